// Package spv validates raw Bitcoin block header chains.
//
// A chain is a sequence of 80-byte headers in ascending order where every
// header after the first commits to the double-SHA256 hash of its
// predecessor. Validation optionally checks each header's hash against its
// own compact difficulty target. Nothing here consults chain parameters or
// retarget schedules; that is consensus validation and out of scope.
package spv

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// HeaderLen is the serialized size of a block header.
const HeaderLen = 80

var (
	// ErrEmptyChain reports a chain with no headers.
	ErrEmptyChain = errors.New("spv: empty header chain")
	// ErrBadHeaderLength reports a header that is not exactly HeaderLen bytes.
	ErrBadHeaderLength = errors.New("spv: bad header length")
	// ErrNotExtension reports a header that does not commit to the hash of
	// its predecessor.
	ErrNotExtension = errors.New("spv: header does not extend previous header")
	// ErrBadTarget reports a compact difficulty target that no hash can satisfy.
	ErrBadTarget = errors.New("spv: unusable difficulty target")
	// ErrInsufficientWork reports a header whose hash exceeds its stated target.
	ErrInsufficientWork = errors.New("spv: header hash exceeds target")
)

// Policy selects how much of a header chain is checked.
type Policy uint8

const (
	// LinkageOnly verifies hash linkage between consecutive headers.
	LinkageOnly Policy = iota
	// EnforcePoW verifies linkage and that every header hash meets the
	// header's own compact difficulty target.
	EnforcePoW
)

// ParseHeader decodes one 80-byte header.
func ParseHeader(b []byte) (*wire.BlockHeader, error) {
	if len(b) != HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrBadHeaderLength, len(b), HeaderLen)
	}
	var hdr wire.BlockHeader
	if err := hdr.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("spv: deserialize header: %w", err)
	}
	return &hdr, nil
}

// HeaderHash returns the double-SHA256 hash of one 80-byte header.
func HeaderHash(b []byte) (chainhash.Hash, error) {
	if len(b) != HeaderLen {
		return chainhash.Hash{}, fmt.Errorf("%w: %d bytes, want %d", ErrBadHeaderLength, len(b), HeaderLen)
	}
	return chainhash.DoubleHashH(b), nil
}

// ValidateHeaderChain checks the given headers under policy and returns the
// hash of the last header. The first header's parent is not checked; callers
// anchor the chain externally.
func ValidateHeaderChain(headers [][]byte, policy Policy) (chainhash.Hash, error) {
	if len(headers) == 0 {
		return chainhash.Hash{}, ErrEmptyChain
	}
	var prev chainhash.Hash
	for i, raw := range headers {
		hdr, err := ParseHeader(raw)
		if err != nil {
			return chainhash.Hash{}, fmt.Errorf("header %d: %w", i, err)
		}
		if i > 0 && !hdr.PrevBlock.IsEqual(&prev) {
			return chainhash.Hash{}, fmt.Errorf("header %d: %w", i, ErrNotExtension)
		}
		hash := hdr.BlockHash()
		if policy == EnforcePoW {
			target := blockchain.CompactToBig(hdr.Bits)
			if target.Sign() <= 0 {
				return chainhash.Hash{}, fmt.Errorf("header %d: %w (bits %08x)", i, ErrBadTarget, hdr.Bits)
			}
			if blockchain.HashToBig(&hash).Cmp(target) > 0 {
				return chainhash.Hash{}, fmt.Errorf("header %d: %w", i, ErrInsufficientWork)
			}
		}
		prev = hash
	}
	return prev, nil
}
