// Package localfs is a filesystem-backed artifact store. The dev proving
// service uses it to keep uploaded images, inputs, and receipts across
// restarts.
package localfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"github.com/shaorongqiang/bitcoin-block-verify/cidutil"
	"github.com/shaorongqiang/bitcoin-block-verify/storage"
)

// Store keeps one read-only file per artifact, sharded by the first two
// characters of the CID. Objects are immutable: files are created with
// O_EXCL and never rewritten, and every read re-derives the CID before the
// bytes are returned.
type Store struct {
	root string
}

var _ storage.Store = (*Store)(nil)

// New opens a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: dir}, nil
}

func (s *Store) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}

	path := s.objectPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if errors.Is(err, fs.ErrExist) {
		// Idempotent only when the existing object still matches.
		existing, rerr := s.Get(id)
		if rerr != nil || string(existing) != string(data) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	if err != nil {
		return cid.Undef, err
	}

	if err := writeAndSync(f, data); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	data, err := os.ReadFile(s.objectPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	got, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return data, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.objectPath(id))
	return err == nil
}

func (s *Store) objectPath(id cid.Cid) string {
	name := id.String()
	if len(name) < 2 {
		return filepath.Join(s.root, name)
	}
	return filepath.Join(s.root, name[:2], name)
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
