package guests

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/holiman/uint256"
)

// ErrMalformedJournal is returned when journal bytes do not carry a valid
// (height, hash) commitment.
var ErrMalformedJournal = errors.New("guests: malformed journal")

// Journal ABI layout, matching abi.encode(uint256 height, bytes hash) with a
// 32-byte hash: height word, tail offset, tail length, hash word.
const (
	journalLen    = 128
	journalOffset = 64
	hashLen       = 32
)

// Output is the public commitment of a header-chain guest: the claimed
// height of the first header and the double-SHA256 hash of the last one.
type Output struct {
	Height    uint64
	BlockHash chainhash.Hash
}

func (o Output) String() string {
	return fmt.Sprintf("height %d hash %s", o.Height, o.BlockHash)
}

// EncodeJournal renders the output in the journal ABI. Deterministic.
func EncodeJournal(out Output) []byte {
	buf := make([]byte, 0, journalLen)
	height := uint256.NewInt(out.Height).Bytes32()
	offset := uint256.NewInt(journalOffset).Bytes32()
	length := uint256.NewInt(hashLen).Bytes32()
	buf = append(buf, height[:]...)
	buf = append(buf, offset[:]...)
	buf = append(buf, length[:]...)
	buf = append(buf, out.BlockHash[:]...)
	return buf
}

// DecodeJournal parses journal bytes back into an Output, rejecting any
// deviation from the ABI layout.
func DecodeJournal(journal []byte) (Output, error) {
	var out Output
	if len(journal) != journalLen {
		return out, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedJournal, len(journal), journalLen)
	}
	var height, offset, length uint256.Int
	height.SetBytes32(journal[0:32])
	offset.SetBytes32(journal[32:64])
	length.SetBytes32(journal[64:96])
	if !offset.Eq(uint256.NewInt(journalOffset)) {
		return out, fmt.Errorf("%w: tail offset %s, want %d", ErrMalformedJournal, offset.Dec(), journalOffset)
	}
	if !length.Eq(uint256.NewInt(hashLen)) {
		return out, fmt.Errorf("%w: hash length %s, want %d", ErrMalformedJournal, length.Dec(), hashLen)
	}
	if !height.IsUint64() {
		return out, fmt.Errorf("%w: height exceeds uint64", ErrMalformedJournal)
	}
	out.Height = height.Uint64()
	copy(out.BlockHash[:], journal[96:128])
	return out, nil
}
