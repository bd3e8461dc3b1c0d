package storage

import (
	"errors"

	"github.com/ipfs/go-cid"

	"github.com/shaorongqiang/bitcoin-block-verify/cidutil"
)

// Replicated writes every artifact to all backends and reads from the first
// backend that has it, in slice order. The dev service runs it as
// memory-in-front-of-disk when persistence is enabled: reads stay in memory,
// restarts recover from disk.
//
// Backend order is fixed by the caller; map-free iteration keeps retrieval
// deterministic.
type Replicated struct {
	Backends []Store
}

var _ Store = Replicated{}

// Put writes data to every backend and requires all of them to report the
// canonical CID of the bytes.
func (r Replicated) Put(data []byte) (cid.Cid, error) {
	if len(r.Backends) == 0 {
		return cid.Undef, errors.New("storage: replicated store has no backends")
	}
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !want.Defined() {
		return cid.Undef, ErrInvalidCID
	}
	for _, b := range r.Backends {
		got, err := b.Put(data)
		if err != nil {
			return cid.Undef, err
		}
		if got != want {
			return cid.Undef, ErrCIDMismatch
		}
	}
	return want, nil
}

func (r Replicated) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		data, err := b.Get(id)
		if err == nil {
			return data, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (r Replicated) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.Has(id) {
			return true
		}
	}
	return false
}
