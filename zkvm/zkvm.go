// Package zkvm is the boundary to the proving sandbox.
//
// Guest programs are identified by a 32-byte image id derived from their
// image bytes. The in-process Executor runs registered guests against a
// packaged input and produces a Receipt binding the guest's committed
// journal to the image id. Verification of a receipt never interprets the
// journal before the image id has been checked.
package zkvm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/shaorongqiang/bitcoin-block-verify/cidutil"
)

// ImageID identifies a guest program: the sha2-256 of its image bytes.
type ImageID [32]byte

// NewImageID derives the image id of an image.
func NewImageID(image []byte) ImageID {
	return ImageID(sha256.Sum256(image))
}

// ParseImageID parses a 64-digit hex image id. Input is lowercased and an
// optional "0x" prefix is dropped; anything else about the form is an error.
func ParseImageID(s string) (ImageID, error) {
	var id ImageID
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(s) != hex.EncodedLen(len(id)) {
		return id, fmt.Errorf("%w: %d hex digits, want %d", ErrBadImageID, len(s), hex.EncodedLen(len(id)))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrBadImageID, err)
	}
	copy(id[:], b)
	return id, nil
}

// String renders the id as lowercase hex without a prefix.
func (id ImageID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the id is all zero bytes.
func (id ImageID) IsZero() bool {
	return id == ImageID{}
}

// CID returns the CIDv1 (raw + sha2-256) addressing the image content,
// used wherever images are stored or uploaded by content.
func (id ImageID) CID() (cid.Cid, error) {
	return cidutil.CIDFromDigest(id)
}

// MarshalText implements encoding.TextMarshaler as lowercase hex.
func (id ImageID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ImageID) UnmarshalText(text []byte) error {
	parsed, err := ParseImageID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Env is a guest's view of the sandbox: one input buffer in, one committed
// journal out.
type Env struct {
	input     []byte
	journal   []byte
	committed bool
}

// ReadInput returns a copy of the packaged input buffer.
func (e *Env) ReadInput() []byte {
	return append([]byte(nil), e.input...)
}

// Commit records the guest's public output. A guest commits exactly once;
// a second commit is an execution fault.
func (e *Env) Commit(journal []byte) error {
	if e.committed {
		return errors.New("zkvm: journal already committed")
	}
	e.journal = append([]byte(nil), journal...)
	e.committed = true
	return nil
}

// GuestFunc is a guest program entrypoint.
type GuestFunc func(env *Env) error

// Prover produces a receipt for one program run over a packaged input.
// Implementations decide whether the receipt is sealed for verification or
// execution-only.
type Prover interface {
	Prove(ctx context.Context, imageID ImageID, input []byte) (*Receipt, error)
}
