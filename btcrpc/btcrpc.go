// Package btcrpc is a small bitcoind JSON-RPC client covering the calls the
// header collector needs: block hash by height and raw header by hash.
package btcrpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shaorongqiang/bitcoin-block-verify/guestio"
)

const defaultTimeout = 30 * time.Second

// RPCError is a bitcoind error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("btcrpc: rpc error %d: %s", e.Code, e.Message)
}

// Client talks to one bitcoind over HTTP basic auth. Safe for concurrent
// use.
type Client struct {
	url   string
	user  string
	pass  string
	httpc *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// New builds a client for a node address like "http://127.0.0.1:18443".
func New(url, user, pass string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("btcrpc: node URL is required")
	}
	c := &Client{
		url:   strings.TrimRight(url, "/"),
		user:  user,
		pass:  pass,
		httpc: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      "bitcoin-block-verify",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("btcrpc: %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("btcrpc: %s: %w", method, err)
	}
	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("btcrpc: %s: %w", method, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<22))
	if err != nil {
		return fmt.Errorf("btcrpc: %s: read reply: %w", method, err)
	}
	var reply rpcResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("btcrpc: %s: status %d: %s", method, res.StatusCode, body)
		}
		return fmt.Errorf("btcrpc: %s: decode reply: %w", method, err)
	}
	if reply.Error != nil {
		return reply.Error
	}
	if result != nil {
		if err := json.Unmarshal(reply.Result, result); err != nil {
			return fmt.Errorf("btcrpc: %s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetBlockHash fetches the hash of the block at height on the node's active
// chain.
func (c *Client) GetBlockHash(ctx context.Context, height int64) (*chainhash.Hash, error) {
	var s string
	if err := c.call(ctx, "getblockhash", []any{height}, &s); err != nil {
		return nil, err
	}
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return nil, fmt.Errorf("btcrpc: getblockhash: parse %q: %w", s, err)
	}
	return hash, nil
}

// GetBlockHeader fetches the raw 80-byte header of a block.
func (c *Client) GetBlockHeader(ctx context.Context, hash *chainhash.Hash) ([]byte, error) {
	var s string
	if err := c.call(ctx, "getblockheader", []any{hash.String(), false}, &s); err != nil {
		return nil, err
	}
	header, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("btcrpc: getblockheader: decode hex: %w", err)
	}
	if len(header) != guestio.HeaderLen {
		return nil, fmt.Errorf("btcrpc: getblockheader: got %d bytes, want %d", len(header), guestio.HeaderLen)
	}
	return header, nil
}

// HeaderRange collects the raw headers for heights begin through end
// inclusive, in ascending order.
func (c *Client) HeaderRange(ctx context.Context, begin, end int64) ([][]byte, error) {
	if begin > end {
		return nil, fmt.Errorf("btcrpc: header range %d..%d is empty", begin, end)
	}
	headers := make([][]byte, 0, end-begin+1)
	for height := begin; height <= end; height++ {
		hash, err := c.GetBlockHash(ctx, height)
		if err != nil {
			return nil, err
		}
		header, err := c.GetBlockHeader(ctx, hash)
		if err != nil {
			return nil, err
		}
		headers = append(headers, header)
	}
	return headers, nil
}
