// Package cidutil derives content identifiers for program images and
// proving artifacts. All identifiers are CIDv1 with the "raw" multicodec
// and a sha2-256 multihash, so the 32-byte digest inside a CID is exactly
// the sha2-256 of the content and can stand alone as an image id.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// DigestFromCID extracts the raw 32-byte sha2-256 digest carried by c.
// It fails when c does not use a sha2-256 multihash of standard length.
func DigestFromCID(c cid.Cid) ([32]byte, error) {
	var digest [32]byte
	dec, err := multihash.Decode(c.Hash())
	if err != nil {
		return digest, fmt.Errorf("cidutil: decode multihash: %w", err)
	}
	if dec.Code != multihash.SHA2_256 {
		return digest, fmt.Errorf("cidutil: multihash code 0x%x is not sha2-256", dec.Code)
	}
	if len(dec.Digest) != 32 {
		return digest, fmt.Errorf("cidutil: sha2-256 digest has length %d, want 32", len(dec.Digest))
	}
	copy(digest[:], dec.Digest)
	return digest, nil
}

// CIDFromDigest wraps a raw sha2-256 digest back into a CIDv1 (raw + sha2-256).
// Inverse of DigestFromCID for well-formed inputs.
func CIDFromDigest(digest [32]byte) (cid.Cid, error) {
	mh, err := multihash.Encode(digest[:], multihash.SHA2_256)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, multihash.Multihash(mh)), nil
}
