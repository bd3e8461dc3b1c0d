package btcrpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shaorongqiang/bitcoin-block-verify/spv"
	"github.com/shaorongqiang/bitcoin-block-verify/spv/spvtest"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newFakeClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := New("http://127.0.0.1:18443", "admin1", "123", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

// fakeNode answers getblockhash and getblockheader for a fixed header chain.
// Hashes are keyed by their reversed-hex display form, the way bitcoind
// renders them.
func fakeNode(t *testing.T, headers [][]byte, baseHeight int64) roundTripperFunc {
	t.Helper()
	return func(r *http.Request) (*http.Response, error) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin1" || pass != "123" {
			return respond(http.StatusUnauthorized, ""), nil
		}
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		switch req.Method {
		case "getblockhash":
			height := int64(req.Params[0].(float64))
			i := height - baseHeight
			if i < 0 || i >= int64(len(headers)) {
				return respond(http.StatusOK, `{"result":null,"error":{"code":-8,"message":"Block height out of range"}}`), nil
			}
			hash, err := spv.HeaderHash(headers[i])
			if err != nil {
				return nil, err
			}
			return respond(http.StatusOK, `{"result":"`+hash.String()+`","error":null}`), nil
		case "getblockheader":
			want := req.Params[0].(string)
			for _, h := range headers {
				hash, err := spv.HeaderHash(h)
				if err != nil {
					return nil, err
				}
				if hash.String() == want {
					return respond(http.StatusOK, `{"result":"`+hex.EncodeToString(h)+`","error":null}`), nil
				}
			}
			return respond(http.StatusOK, `{"result":null,"error":{"code":-5,"message":"Block not found"}}`), nil
		}
		t.Errorf("unexpected rpc method %q", req.Method)
		return respond(http.StatusOK, `{"result":null,"error":{"code":-32601,"message":"Method not found"}}`), nil
	}
}

func TestGetBlockHash(t *testing.T) {
	headers := spvtest.Chain(3)
	c := newFakeClient(t, fakeNode(t, headers, 100))

	hash, err := c.GetBlockHash(context.Background(), 101)
	if err != nil {
		t.Fatalf("GetBlockHash: %v", err)
	}
	want, err := spv.HeaderHash(headers[1])
	if err != nil {
		t.Fatalf("hash header: %v", err)
	}
	if *hash != want {
		t.Fatalf("hash = %s, want %s", hash, &want)
	}
}

func TestGetBlockHeaderRoundTrip(t *testing.T) {
	headers := spvtest.Chain(2)
	c := newFakeClient(t, fakeNode(t, headers, 0))

	hash, err := c.GetBlockHash(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBlockHash: %v", err)
	}
	raw, err := c.GetBlockHeader(context.Background(), hash)
	if err != nil {
		t.Fatalf("GetBlockHeader: %v", err)
	}
	if string(raw) != string(headers[1]) {
		t.Fatalf("header bytes differ from the node's")
	}
}

func TestHeaderRangeAscending(t *testing.T) {
	headers := spvtest.Chain(5)
	c := newFakeClient(t, fakeNode(t, headers, 10))

	got, err := c.HeaderRange(context.Background(), 10, 14)
	if err != nil {
		t.Fatalf("HeaderRange: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d headers, want 5", len(got))
	}
	for i := range got {
		if string(got[i]) != string(headers[i]) {
			t.Fatalf("header %d differs from the node's", i)
		}
	}
}

func TestHeaderRangeEmpty(t *testing.T) {
	c := newFakeClient(t, fakeNode(t, nil, 0))
	if _, err := c.HeaderRange(context.Background(), 5, 4); err == nil {
		t.Fatal("empty range succeeded")
	}
}

func TestRPCErrorSurfaced(t *testing.T) {
	c := newFakeClient(t, fakeNode(t, spvtest.Chain(1), 0))

	_, err := c.GetBlockHash(context.Background(), 999)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v (%T), want *RPCError", err, err)
	}
	if rpcErr.Code != -8 || !strings.Contains(rpcErr.Message, "out of range") {
		t.Fatalf("rpc error = %+v", rpcErr)
	}
}

func TestNonJSONFailureIncludesStatus(t *testing.T) {
	c := newFakeClient(t, func(r *http.Request) (*http.Response, error) {
		return respond(http.StatusBadGateway, "upstream down"), nil
	})

	_, err := c.GetBlockHash(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("err = %v, want status and body", err)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New("", "u", "p"); err == nil {
		t.Fatal("empty URL accepted")
	}
}
