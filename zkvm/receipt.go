package zkvm

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

var sealDomain = []byte("zkvm/receipt/v1\n")

// Claim binds a journal to the program that produced it.
type Claim struct {
	// ImageID names the program the receipt attests to.
	ImageID ImageID `json:"image_id"`
	// Seal commits to (image id, journal). Empty on execution-only
	// receipts, which cannot be verified.
	Seal []byte `json:"seal,omitempty"`
}

// Receipt is the artifact a proving backend returns: the guest's committed
// journal plus the claim binding it to an image id. The wire encoding is
// canonical JSON.
type Receipt struct {
	Journal []byte `json:"journal"`
	Claim   Claim  `json:"claim"`
}

// Encode renders the receipt in its canonical wire form.
func (r *Receipt) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeReceipt parses receipt bytes. A receipt without an image id claim
// is malformed regardless of the rest.
func DecodeReceipt(data []byte) (*Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	if r.Claim.ImageID.IsZero() {
		return nil, fmt.Errorf("%w: missing image id claim", ErrMalformedReceipt)
	}
	return &r, nil
}

// Sealed reports whether the receipt carries a seal and can be verified.
func (r *Receipt) Sealed() bool {
	return len(r.Claim.Seal) > 0
}

// Verify checks the receipt against the expected image id.
//
// The image id comparison comes first, before the seal and before any
// journal byte is interpreted: a receipt for the wrong program must fail as
// an identity mismatch even when the rest of it is garbage.
func (r *Receipt) Verify(expected ImageID) error {
	if r.Claim.ImageID != expected {
		return fmt.Errorf("%w: receipt claims %s, want %s", ErrImageIDMismatch, r.Claim.ImageID, expected)
	}
	if !r.Sealed() {
		return ErrUnsealedReceipt
	}
	if !bytes.Equal(r.Claim.Seal, sealFor(r.Claim.ImageID, r.Journal)) {
		return ErrSealInvalid
	}
	return nil
}

func sealFor(id ImageID, journal []byte) []byte {
	h := sha256.New()
	h.Write(sealDomain)
	h.Write(id[:])
	h.Write(journal)
	return h.Sum(nil)
}
