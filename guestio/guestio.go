// Package guestio encodes and decodes guest input buffers.
//
// The buffer layout is fixed: an 8-byte little-endian block height followed
// by the raw 80-byte block headers in submission order. There is no count
// field and no separators, so equal inputs always produce equal buffers and
// the layout can be reproduced independently by the guest.
package guestio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the serialized size of a Bitcoin block header.
const HeaderLen = 80

const heightLen = 8

var (
	// ErrMalformedHeader reports a header whose length is not exactly HeaderLen.
	ErrMalformedHeader = errors.New("guestio: malformed header")
	// ErrMalformedBuffer reports a buffer that cannot hold a height plus
	// a whole number of headers.
	ErrMalformedBuffer = errors.New("guestio: malformed input buffer")
)

// Input is a guest input before packaging: the claimed height of the first
// header and the headers themselves.
type Input struct {
	Height  uint64
	Headers [][]byte
}

// Pack builds the canonical guest input buffer. It fails only when some
// header is not exactly HeaderLen bytes; an empty header list is permitted
// here and rejected by the in-sandbox validator.
func Pack(height uint64, headers [][]byte) ([]byte, error) {
	for i, h := range headers {
		if len(h) != HeaderLen {
			return nil, fmt.Errorf("%w: header %d has length %d, want %d", ErrMalformedHeader, i, len(h), HeaderLen)
		}
	}
	buf := make([]byte, heightLen, heightLen+len(headers)*HeaderLen)
	binary.LittleEndian.PutUint64(buf, height)
	for _, h := range headers {
		buf = append(buf, h...)
	}
	return buf, nil
}

// Unpack is the exact inverse of Pack. The returned header slices alias buf.
func Unpack(buf []byte) (uint64, [][]byte, error) {
	if len(buf) < heightLen {
		return 0, nil, fmt.Errorf("%w: %d bytes is too short for a height", ErrMalformedBuffer, len(buf))
	}
	rest := buf[heightLen:]
	if len(rest)%HeaderLen != 0 {
		return 0, nil, fmt.Errorf("%w: %d header bytes is not a multiple of %d", ErrMalformedBuffer, len(rest), HeaderLen)
	}
	height := binary.LittleEndian.Uint64(buf)
	headers := make([][]byte, 0, len(rest)/HeaderLen)
	for off := 0; off < len(rest); off += HeaderLen {
		headers = append(headers, rest[off:off+HeaderLen])
	}
	return height, headers, nil
}

// Encode packages the input into its canonical buffer.
func (in *Input) Encode() ([]byte, error) {
	return Pack(in.Height, in.Headers)
}

// DecodeInput parses a canonical buffer back into an Input. This is how the
// CLI accepts a pre-assembled hex payload: decoding enforces the same shape
// rules that Pack guarantees, so malformed payloads are rejected before any
// backend sees them.
func DecodeInput(buf []byte) (*Input, error) {
	height, headers, err := Unpack(buf)
	if err != nil {
		return nil, err
	}
	return &Input{Height: height, Headers: headers}, nil
}
