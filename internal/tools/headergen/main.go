// headergen emits packaged guest inputs as hex, ready to hand to the
// bitcoin-block-verify CLI. Headers come from the deterministic test chains
// or, with -node, from a running bitcoind.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"github.com/shaorongqiang/bitcoin-block-verify/btcrpc"
	"github.com/shaorongqiang/bitcoin-block-verify/guestio"
	"github.com/shaorongqiang/bitcoin-block-verify/spv/spvtest"
)

func main() {
	var n int
	var height uint64
	var mode string
	var headersOnly bool
	var node string
	var rpcUser string
	var rpcPass string
	var begin int64
	var end int64

	flag.IntVar(&n, "n", 6, "Number of synthetic headers")
	flag.Uint64Var(&height, "height", 15, "Claimed height of the first header")
	flag.StringVar(&mode, "mode", "mined", "Synthetic chain kind: plain, mined, or weak")
	flag.BoolVar(&headersOnly, "headers-only", false, "Print one header per line instead of the packed input")
	flag.StringVar(&node, "node", "", "bitcoind RPC URL; when set, headers are fetched instead of generated")
	flag.StringVar(&rpcUser, "rpc-user", "admin1", "bitcoind RPC user")
	flag.StringVar(&rpcPass, "rpc-pass", "123", "bitcoind RPC password")
	flag.Int64Var(&begin, "begin", 10, "First block height to fetch")
	flag.Int64Var(&end, "end", 13, "Last block height to fetch (inclusive)")
	flag.Parse()

	var headers [][]byte
	if node != "" {
		client, err := btcrpc.New(node, rpcUser, rpcPass)
		if err != nil {
			log.Fatalf("node client: %v", err)
		}
		headers, err = client.HeaderRange(context.Background(), begin, end)
		if err != nil {
			log.Fatalf("fetch headers: %v", err)
		}
		height = uint64(begin)
	} else {
		switch mode {
		case "plain":
			headers = spvtest.Chain(n)
		case "mined":
			headers = spvtest.MinedChain(n)
		case "weak":
			headers = spvtest.WeakChain(n)
		default:
			log.Fatalf("unknown -mode %q (want plain, mined, or weak)", mode)
		}
	}

	if headersOnly {
		for _, h := range headers {
			fmt.Println(hex.EncodeToString(h))
		}
		return
	}

	buf, err := guestio.Pack(height, headers)
	if err != nil {
		log.Fatalf("pack: %v", err)
	}
	fmt.Println(hex.EncodeToString(buf))
}
