package guestio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func testHeader(fill byte) []byte {
	h := make([]byte, HeaderLen)
	for i := range h {
		h[i] = fill
	}
	return h
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	headers := [][]byte{testHeader(0x01), testHeader(0x02), testHeader(0x03)}
	buf, err := Pack(838000, headers)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if want := heightLen + 3*HeaderLen; len(buf) != want {
		t.Fatalf("buffer length %d, want %d", len(buf), want)
	}
	height, got, err := Unpack(buf)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if height != 838000 {
		t.Fatalf("height %d, want 838000", height)
	}
	if len(got) != len(headers) {
		t.Fatalf("header count %d, want %d", len(got), len(headers))
	}
	for i := range headers {
		if !bytes.Equal(got[i], headers[i]) {
			t.Fatalf("header %d does not round-trip", i)
		}
	}
}

func TestPack_Deterministic(t *testing.T) {
	headers := [][]byte{testHeader(0xaa), testHeader(0xbb)}
	b1, err := Pack(15, headers)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	b2, err := Pack(15, headers)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("equal inputs produced different buffers")
	}
}

func TestPack_Layout(t *testing.T) {
	h := testHeader(0x7f)
	buf, err := Pack(0x0102030405060708, [][]byte{h})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if got := binary.LittleEndian.Uint64(buf[:8]); got != 0x0102030405060708 {
		t.Fatalf("height word %x not little-endian", got)
	}
	if !bytes.Equal(buf[8:], h) {
		t.Fatalf("header bytes not appended verbatim")
	}
}

func TestPack_RejectsWrongHeaderLength(t *testing.T) {
	headers := [][]byte{testHeader(0x01), make([]byte, 79), testHeader(0x03)}
	_, err := Pack(1, headers)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
	// The failing index is part of the message so callers can report it.
	if want := "header 1"; !bytes.Contains([]byte(err.Error()), []byte(want)) {
		t.Fatalf("error %q does not name the failing header", err)
	}
}

func TestPack_AllowsEmptyHeaderList(t *testing.T) {
	buf, err := Pack(9, nil)
	if err != nil {
		t.Fatalf("Pack failed on empty header list: %v", err)
	}
	if len(buf) != heightLen {
		t.Fatalf("buffer length %d, want %d", len(buf), heightLen)
	}
}

func TestUnpack_RejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
	}{
		{"too short for height", make([]byte, 7)},
		{"partial header", make([]byte, heightLen+HeaderLen-1)},
		{"trailing bytes", make([]byte, heightLen+HeaderLen+5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := Unpack(tc.buf); !errors.Is(err, ErrMalformedBuffer) {
				t.Fatalf("expected ErrMalformedBuffer, got %v", err)
			}
		})
	}
}

func TestDecodeInput_MatchesEncode(t *testing.T) {
	in := &Input{Height: 42, Headers: [][]byte{testHeader(0x11)}}
	buf, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := DecodeInput(buf)
	if err != nil {
		t.Fatalf("DecodeInput failed: %v", err)
	}
	if got.Height != in.Height || len(got.Headers) != 1 || !bytes.Equal(got.Headers[0], in.Headers[0]) {
		t.Fatalf("decoded input does not match original")
	}
}
