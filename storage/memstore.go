package storage

import (
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/shaorongqiang/bitcoin-block-verify/cidutil"
)

// MemStore is an in-memory Store, safe for concurrent use. It is the default
// backend of the dev proving service.
type MemStore struct {
	mu   sync.RWMutex
	blob map[cid.Cid][]byte
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{blob: make(map[cid.Cid][]byte)}
}

func (m *MemStore) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, ErrInvalidCID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blob[id]; !ok {
		m.blob[id] = append([]byte(nil), data...)
	}
	return id, nil
}

func (m *MemStore) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	m.mu.RLock()
	data, ok := m.blob[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemStore) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blob[id]
	return ok
}
