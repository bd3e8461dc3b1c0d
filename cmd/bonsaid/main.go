// bonsaid runs the development proving service: the full remote session
// protocol backed by the in-process executor and a local artifact store.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/shaorongqiang/bitcoin-block-verify/bonsai/bonsaid"
	"github.com/shaorongqiang/bitcoin-block-verify/guests"
	"github.com/shaorongqiang/bitcoin-block-verify/storage"
	"github.com/shaorongqiang/bitcoin-block-verify/storage/localfs"
	"github.com/shaorongqiang/bitcoin-block-verify/zkvm"
)

func main() {
	var addr string
	var apiKey string
	var dataDir string
	var prove bool

	flag.StringVar(&addr, "addr", ":8081", "Listen address")
	flag.StringVar(&apiKey, "api-key", os.Getenv("BONSAID_API_KEY"), "Required x-api-key value (empty disables auth)")
	flag.StringVar(&dataDir, "data-dir", "", "Persist artifacts under this directory (empty keeps them in memory)")
	flag.BoolVar(&prove, "prove", true, "Seal receipts so clients can verify them")
	flag.Parse()

	var opts []zkvm.Option
	if prove {
		opts = append(opts, zkvm.WithProofGeneration())
	}
	exec := zkvm.NewExecutor(opts...)
	if err := guests.Install(exec); err != nil {
		log.Fatalf("install guests: %v", err)
	}

	var store storage.Store = storage.NewMemStore()
	if dataDir != "" {
		disk, err := localfs.New(dataDir)
		if err != nil {
			log.Fatalf("open data dir: %v", err)
		}
		store = storage.Replicated{Backends: []storage.Store{storage.NewMemStore(), disk}}
		log.Printf("persisting artifacts under %s", dataDir)
	}

	srv := bonsaid.NewServer(bonsaid.Config{Addr: addr, APIKey: apiKey}, bonsaid.ServerDeps{
		Executor: exec,
		Store:    store,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
