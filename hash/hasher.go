// Package hash wraps the chain's canonical 32-byte domain hash: blake2b
// personalised with the fixed tag "ckb-default-hash". It is the only
// hash primitive this layer uses, for both SMT node hashing and
// transaction hashing, matching the on-chain validator's hash choice.
package hash

import (
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
)

// Personalization is the fixed 16-byte blake2b personalisation tag used
// by the chain's canonical hash.
const Personalization = "ckb-default-hash"

// Hasher accumulates H256 words and produces the domain digest.
type Hasher struct {
	h hash.Hash
}

// New returns a fresh Hasher.
func New() *Hasher {
	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: []byte(Personalization)})
	if err != nil {
		// Size and Person are both static and within blake2b's limits;
		// this can only fail on a caller-supplied Key or Salt, neither
		// of which this constructor sets.
		panic("hash: invalid static blake2b configuration: " + err.Error())
	}
	return &Hasher{h: h}
}

// WriteH256 appends a word to the hash input, in order.
func (h *Hasher) WriteH256(word common.H256) {
	h.h.Write(word[:])
}

// WriteBytes appends raw bytes to the hash input, in order.
func (h *Hasher) WriteBytes(b []byte) {
	h.h.Write(b)
}

// Sum returns the 32-byte digest of everything written so far.
func (h *Hasher) Sum() common.H256 {
	var out common.H256
	copy(out[:], h.h.Sum(nil))
	return out
}

// H256 is a convenience wrapper hashing a sequence of H256 words.
func H256(words ...common.H256) common.H256 {
	h := New()
	for _, w := range words {
		h.WriteH256(w)
	}
	return h.Sum()
}

// Bytes is a convenience wrapper hashing a single byte slice.
func Bytes(b []byte) common.H256 {
	h := New()
	h.WriteBytes(b)
	return h.Sum()
}
