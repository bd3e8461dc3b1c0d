// Package spvtest builds deterministic header chains for tests and tools.
package spvtest

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// RegtestBits is the easiest compact difficulty target Bitcoin accepts.
// Roughly every other nonce satisfies it, so grinding test chains is cheap.
const RegtestBits = 0x207fffff

const baseTimestamp = 1700000000

// Chain returns n linked 80-byte headers. Nonces are left at zero, so the
// chain passes linkage checks but carries no particular proof of work.
func Chain(n int) [][]byte {
	return build(n, false, false)
}

// MinedChain returns n linked 80-byte headers whose nonces are ground until
// every header hash meets RegtestBits. Deterministic: each search starts at
// zero and takes the first satisfying nonce.
func MinedChain(n int) [][]byte {
	return build(n, true, false)
}

// WeakChain returns n linked headers where all but the last are mined and
// the last header's nonce is ground the other way, to the first hash that
// misses RegtestBits. The chain links correctly but fails PoW enforcement
// at its tip.
func WeakChain(n int) [][]byte {
	return build(n, true, true)
}

// Flip deep-copies headers and XORs one bit of headers[i][off].
func Flip(headers [][]byte, i, off int) [][]byte {
	out := make([][]byte, len(headers))
	for j, h := range headers {
		out[j] = append([]byte(nil), h...)
	}
	out[i][off] ^= 0x01
	return out
}

func build(n int, mine, weakLast bool) [][]byte {
	target := blockchain.CompactToBig(RegtestBits)
	prev := anchor()
	headers := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		hdr := wire.BlockHeader{
			Version:    0x20000000,
			PrevBlock:  prev,
			MerkleRoot: merkleFor(i),
			Timestamp:  time.Unix(baseTimestamp+int64(i)*600, 0),
			Bits:       RegtestBits,
		}
		switch {
		case weakLast && i == n-1:
			for {
				h := hdr.BlockHash()
				if blockchain.HashToBig(&h).Cmp(target) > 0 {
					break
				}
				hdr.Nonce++
			}
		case mine:
			for {
				h := hdr.BlockHash()
				if blockchain.HashToBig(&h).Cmp(target) <= 0 {
					break
				}
				hdr.Nonce++
			}
		}
		headers = append(headers, serialize(&hdr))
		prev = hdr.BlockHash()
	}
	return headers
}

func anchor() chainhash.Hash {
	var h chainhash.Hash
	sum := sha256.Sum256([]byte("spvtest anchor"))
	copy(h[:], sum[:])
	return h
}

func merkleFor(i int) chainhash.Hash {
	var h chainhash.Hash
	sum := sha256.Sum256([]byte(fmt.Sprintf("spvtest merkle %d", i)))
	copy(h[:], sum[:])
	return h
}

func serialize(hdr *wire.BlockHeader) []byte {
	var buf bytes.Buffer
	if err := hdr.Serialize(&buf); err != nil {
		panic(fmt.Sprintf("spvtest: serialize header: %v", err))
	}
	return buf.Bytes()
}
