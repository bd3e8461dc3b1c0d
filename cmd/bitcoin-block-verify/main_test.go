package main

import (
	"bytes"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/shaorongqiang/bitcoin-block-verify/bonsai/bonsaid"
	"github.com/shaorongqiang/bitcoin-block-verify/guestio"
	"github.com/shaorongqiang/bitcoin-block-verify/guests"
	"github.com/shaorongqiang/bitcoin-block-verify/spv"
	"github.com/shaorongqiang/bitcoin-block-verify/spv/spvtest"
	"github.com/shaorongqiang/bitcoin-block-verify/zkvm"
)

func packHex(t *testing.T, height uint64, headers [][]byte) string {
	t.Helper()
	buf, err := guestio.Pack(height, headers)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return hex.EncodeToString(buf)
}

func TestIdentityLookup(t *testing.T) {
	t.Setenv("BONSAI_ENDPOINT", "")
	var out, errOut bytes.Buffer
	if code := run([]string{"bitcoin_block_verify"}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut.String())
	}
	entry, err := guests.Resolve("BITCOIN_BLOCK_VERIFY")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.String() != entry.ImageID.String() {
		t.Fatalf("stdout = %q, want the image id %s", out.String(), entry.ImageID)
	}
	if strings.HasSuffix(out.String(), "\n") {
		t.Fatal("identity output has a trailing newline")
	}
}

func TestProveLocalEndToEnd(t *testing.T) {
	t.Setenv("BONSAI_ENDPOINT", "")
	headers := spvtest.MinedChain(6)
	inputHex := packHex(t, 15, headers)

	var out, errOut bytes.Buffer
	if code := run([]string{"BITCOIN_BLOCK_VERIFY", inputHex}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut.String())
	}
	if strings.HasSuffix(out.String(), "\n") {
		t.Fatal("journal output has a trailing newline")
	}
	journal, err := hex.DecodeString(out.String())
	if err != nil {
		t.Fatalf("stdout is not hex: %v", err)
	}
	decoded, err := guests.DecodeJournal(journal)
	if err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if decoded.Height != 15 {
		t.Fatalf("height = %d, want 15", decoded.Height)
	}
	want, err := spv.HeaderHash(headers[5])
	if err != nil {
		t.Fatalf("hash header: %v", err)
	}
	if decoded.BlockHash != want {
		t.Fatalf("hash = %s, want %s", decoded.BlockHash, want)
	}
}

func TestProveLocalSealed(t *testing.T) {
	t.Setenv("BONSAI_ENDPOINT", "")
	inputHex := packHex(t, 15, spvtest.MinedChain(3))

	var out, errOut bytes.Buffer
	if code := run([]string{"-prove-local", "BITCOIN_BLOCK_VERIFY", inputHex}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut.String())
	}
}

func TestFlippedHeaderFailsWithoutOutput(t *testing.T) {
	t.Setenv("BONSAI_ENDPOINT", "")
	headers := spvtest.Flip(spvtest.MinedChain(6), 4, 40)
	inputHex := packHex(t, 15, headers)

	var out, errOut bytes.Buffer
	if code := run([]string{"BITCOIN_BLOCK_VERIFY", inputHex}, &out, &errOut); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if out.Len() != 0 {
		t.Fatalf("partial output printed on failure: %q", out.String())
	}
	if errOut.Len() == 0 {
		t.Fatal("no error message on stderr")
	}
}

func TestUnknownProgram(t *testing.T) {
	t.Setenv("BONSAI_ENDPOINT", "")
	var out, errOut bytes.Buffer
	if code := run([]string{"DOES_NOT_EXIST"}, &out, &errOut); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "unknown program") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestUsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "no args", args: nil},
		{name: "too many args", args: []string{"a", "b", "c"}},
		{name: "input not hex", args: []string{"BITCOIN_BLOCK_VERIFY", "zz"}},
		{name: "input too short", args: []string{"BITCOIN_BLOCK_VERIFY", "00"}},
		{name: "bad remote", args: []string{"-remote", "no-separator", "BITCOIN_BLOCK_VERIFY"}},
		{name: "bad flag value", args: []string{"-interval", "soon", "BITCOIN_BLOCK_VERIFY"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if code := run(tc.args, &out, &errOut); code != 2 {
				t.Fatalf("exit %d, want 2 (stderr: %s)", code, errOut.String())
			}
		})
	}
}

func TestListPrograms(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"-list"}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut.String())
	}
	for _, name := range []string{"BITCOIN_BLOCK_VERIFY", "BITCOIN_BLOCK_VERIFY_NOPOW"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("listing %q is missing %s", out.String(), name)
		}
	}
}

func startBonsaid(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	exec := zkvm.NewExecutor(zkvm.WithProofGeneration())
	if err := guests.Install(exec); err != nil {
		t.Fatalf("install guests: %v", err)
	}
	srv := bonsaid.NewServer(bonsaid.Config{APIKey: "test-key"}, bonsaid.ServerDeps{Executor: exec})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestRemoteViaFlag(t *testing.T) {
	url := startBonsaid(t)
	headers := spvtest.MinedChain(4)
	inputHex := packHex(t, 15, headers)

	var out, errOut bytes.Buffer
	args := []string{"-remote", url + "|test-key", "-interval", "1ms", "BITCOIN_BLOCK_VERIFY", inputHex}
	if code := run(args, &out, &errOut); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut.String())
	}
	journal, err := hex.DecodeString(out.String())
	if err != nil {
		t.Fatalf("stdout is not hex: %v", err)
	}
	decoded, err := guests.DecodeJournal(journal)
	if err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if decoded.Height != 15 {
		t.Fatalf("height = %d, want 15", decoded.Height)
	}
}

func TestRemoteViaEnv(t *testing.T) {
	url := startBonsaid(t)
	t.Setenv("BONSAI_ENDPOINT", url+"|test-key")
	inputHex := packHex(t, 21, spvtest.MinedChain(2))

	var out, errOut bytes.Buffer
	if code := run([]string{"-interval", "1ms", "BITCOIN_BLOCK_VERIFY", inputHex}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, errOut.String())
	}
	journal, err := hex.DecodeString(out.String())
	if err != nil {
		t.Fatalf("stdout is not hex: %v", err)
	}
	if decoded, err := guests.DecodeJournal(journal); err != nil || decoded.Height != 21 {
		t.Fatalf("decoded = %+v, err %v", decoded, err)
	}
}
