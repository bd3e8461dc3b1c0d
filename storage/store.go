// Package storage is the content-addressed artifact store behind the dev
// proving service: uploaded program images, packaged inputs, and finished
// receipts, each keyed by the CIDv1 (raw + sha2-256) of its bytes.
package storage

import "github.com/ipfs/go-cid"

// Store is a minimal content-addressed blob store.
//
// Contract:
//   - Put is idempotent and derives the CID from the bytes written.
//   - Stored artifacts are immutable.
//   - Get returns ErrNotFound for absent CIDs and never returns bytes that
//     do not hash to the requested CID.
type Store interface {
	Put(data []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
