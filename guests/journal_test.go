package guests

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func testHash(fill byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = fill
	}
	return h
}

func TestJournal_RoundTrip(t *testing.T) {
	in := Output{Height: 838000, BlockHash: testHash(0x5a)}
	journal := EncodeJournal(in)
	out, err := DecodeJournal(journal)
	if err != nil {
		t.Fatalf("DecodeJournal failed: %v", err)
	}
	if out != in {
		t.Fatalf("journal round-trip mismatch: got %+v want %+v", out, in)
	}
}

func TestJournal_ABILayout(t *testing.T) {
	h := testHash(0xcc)
	journal := EncodeJournal(Output{Height: 15, BlockHash: h})
	if len(journal) != 128 {
		t.Fatalf("journal length %d, want 128", len(journal))
	}
	// Big-endian words: height, tail offset 0x40, byte length 0x20, hash.
	if got := binary.BigEndian.Uint64(journal[24:32]); got != 15 {
		t.Fatalf("height word %d, want 15", got)
	}
	if !bytes.Equal(journal[:24], make([]byte, 24)) {
		t.Fatalf("height word not left-padded with zeros")
	}
	if got := binary.BigEndian.Uint64(journal[56:64]); got != 0x40 {
		t.Fatalf("offset word %#x, want 0x40", got)
	}
	if got := binary.BigEndian.Uint64(journal[88:96]); got != 0x20 {
		t.Fatalf("length word %#x, want 0x20", got)
	}
	if !bytes.Equal(journal[96:], h[:]) {
		t.Fatalf("hash word does not carry the raw hash bytes")
	}
}

func TestDecodeJournal_Malformed(t *testing.T) {
	good := EncodeJournal(Output{Height: 7, BlockHash: testHash(0x01)})

	short := good[:127]
	if _, err := DecodeJournal(short); !errors.Is(err, ErrMalformedJournal) {
		t.Fatalf("short journal: expected ErrMalformedJournal, got %v", err)
	}

	badOffset := append([]byte(nil), good...)
	badOffset[63] = 0x41
	if _, err := DecodeJournal(badOffset); !errors.Is(err, ErrMalformedJournal) {
		t.Fatalf("bad offset: expected ErrMalformedJournal, got %v", err)
	}

	badLength := append([]byte(nil), good...)
	badLength[95] = 0x21
	if _, err := DecodeJournal(badLength); !errors.Is(err, ErrMalformedJournal) {
		t.Fatalf("bad length: expected ErrMalformedJournal, got %v", err)
	}

	bigHeight := append([]byte(nil), good...)
	bigHeight[0] = 0x01 // 2^248, far beyond uint64
	if _, err := DecodeJournal(bigHeight); !errors.Is(err, ErrMalformedJournal) {
		t.Fatalf("oversized height: expected ErrMalformedJournal, got %v", err)
	}
}
