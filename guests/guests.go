// Package guests holds the guest programs this host can prove and the
// registry that resolves them by name or image id.
package guests

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shaorongqiang/bitcoin-block-verify/zkvm"
)

// ErrUnknownProgram is returned when a query matches no registered program.
var ErrUnknownProgram = errors.New("guests: unknown program")

// Entry describes one provable guest program.
type Entry struct {
	// Name is the canonical uppercase program name.
	Name string
	// ImageID is the sha2-256 of Image.
	ImageID zkvm.ImageID
	// Image is the program's canonical manifest; its digest is the
	// program identity a receipt attests to.
	Image []byte
	// Path is the conventional build location of the guest, used for
	// file-based uploads and listings.
	Path string
	// Main is the program entrypoint run by the local executor.
	Main zkvm.GuestFunc
}

var entries = []*Entry{
	newEntry("BITCOIN_BLOCK_VERIFY", "guests/bitcoin_block_verify", mainnetGuest),
	newEntry("BITCOIN_BLOCK_VERIFY_NOPOW", "guests/bitcoin_block_verify_nopow", nopowGuest),
}

func newEntry(name, path string, g guestProgram) *Entry {
	image := imageManifest(name, g.policyName)
	return &Entry{
		Name:    name,
		ImageID: zkvm.NewImageID(image),
		Image:   image,
		Path:    path,
		Main:    g.main,
	}
}

// imageManifest renders the canonical manifest standing for a guest build.
// The digest of these bytes is the program identity, so every field here is
// identity-relevant: changing the input layout, journal ABI, or validation
// policy yields a different program.
func imageManifest(name, policy string) []byte {
	var b bytes.Buffer
	b.WriteString("bbv-guest-manifest-1\n")
	fmt.Fprintf(&b, "Name: %s\n", name)
	b.WriteString("Input: u64le-height || 80-byte-headers\n")
	b.WriteString("Journal: abi(u256 height, bytes hash)\n")
	fmt.Fprintf(&b, "Policy: %s\n", policy)
	return b.Bytes()
}

// Entries lists the registered programs in declaration order.
func Entries() []*Entry {
	out := make([]*Entry, len(entries))
	copy(out, entries)
	return out
}

// Resolve finds a program by case-insensitive exact name, or by full hex
// image id (optionally 0x-prefixed). Substrings and partial ids never match.
func Resolve(query string) (*Entry, error) {
	name := strings.ToUpper(strings.TrimSpace(query))
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	if id, err := zkvm.ParseImageID(query); err == nil {
		for _, e := range entries {
			if e.ImageID == id {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, query)
}

// Install registers every guest with the executor.
func Install(exec *zkvm.Executor) error {
	for _, e := range entries {
		if err := exec.Register(e.ImageID, e.Main); err != nil {
			return fmt.Errorf("guests: install %s: %w", e.Name, err)
		}
	}
	return nil
}
