package smt

import (
	"encoding/binary"
	"sort"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
)

// KVPair is a (key, value) pair sorted ascending by key, as used by
// merkle_proof/compile.
type KVPair struct {
	Key   common.H256
	Value common.H256
}

// SortKVPairs sorts pairs ascending by key in place.
func SortKVPairs(pairs []KVPair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key.Less(pairs[j].Key) })
}

// proofEntry records the sibling hash at the subtree boundary where the
// queried keys' path diverges from the unqueried side, along with the
// depth at which that sibling was needed (used for a deterministic,
// self-describing serialization).
type proofEntry struct {
	depth uint16
	sib   common.H256
}

// Proof is an opaque compact Merkle proof for a set of keys against the
// tree state at the time MerkleProof was called. Compile binds it to a
// concrete (key, value) list and serializes it to bytes.
type Proof struct {
	keys    []common.H256
	entries []proofEntry
}

// MerkleProof builds a Proof for the given keys against the tree's
// current state. Keys are de-duplicated and sorted ascending.
func (t *SparseMerkleTree) MerkleProof(keys []common.H256) (*Proof, error) {
	sorted := uniqueSorted(keys)
	if len(sorted) == 0 {
		return &Proof{}, nil
	}
	var entries []proofEntry
	if _, err := t.walkProof(t.root, sorted, 0, &entries); err != nil {
		return nil, err
	}
	return &Proof{keys: sorted, entries: entries}, nil
}

// walkProof descends the tree along the paths of the given (non-empty,
// sorted) key set, recursing into whichever side still has queried keys
// and recording the other side's current hash as a proof entry.
func (t *SparseMerkleTree) walkProof(nodeHash common.H256, keys []common.H256, depth int, out *[]proofEntry) (common.H256, error) {
	if depth == Depth {
		return nodeHash, nil
	}

	var branch BranchNode
	if !nodeHash.IsZero() {
		b, ok, err := t.store.GetBranch(nodeHash)
		if err != nil {
			return common.Zero, err
		}
		if !ok {
			return common.Zero, ErrNodeNotFound
		}
		branch = b
	}

	mid := partitionByBit(keys, depth)
	leftKeys, rightKeys := keys[:mid], keys[mid:]

	var leftHash, rightHash common.H256
	var err error

	if len(leftKeys) > 0 {
		leftHash, err = t.walkProof(branch.Left, leftKeys, depth+1, out)
		if err != nil {
			return common.Zero, err
		}
	} else {
		leftHash = branch.Left
	}

	if len(rightKeys) > 0 {
		rightHash, err = t.walkProof(branch.Right, rightKeys, depth+1, out)
		if err != nil {
			return common.Zero, err
		}
	} else {
		rightHash = branch.Right
	}

	switch {
	case len(leftKeys) == 0 && len(rightKeys) > 0:
		*out = append(*out, proofEntry{depth: uint16(depth + 1), sib: leftHash})
	case len(rightKeys) == 0 && len(leftKeys) > 0:
		*out = append(*out, proofEntry{depth: uint16(depth + 1), sib: rightHash})
	}

	return merge(leftHash, rightHash), nil
}

// partitionByBit returns the index of the first key whose bit(depth) is
// 1, the split between the left (bit 0) and right (bit 1) subtrees. keys
// are not reordered: they must already be sorted ascending and share
// their bits above depth, which guarantees a single contiguous split
// point.
func partitionByBit(keys []common.H256, depth int) int {
	for i, k := range keys {
		if k.BitAt(depth) == 1 {
			return i
		}
	}
	return len(keys)
}

func uniqueSorted(keys []common.H256) []common.H256 {
	cp := make([]common.H256, len(keys))
	copy(cp, keys)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Less(cp[j]) })
	out := cp[:0]
	var last common.H256
	have := false
	for _, k := range cp {
		if have && k == last {
			continue
		}
		out = append(out, k)
		last = k
		have = true
	}
	return out
}

// Compile binds the proof to a concrete sorted (key, value) list and
// serializes it to a deterministic byte string. Combined with pairs, the
// bytes are sufficient for a verifier holding the same algorithm to
// reconstruct the committed root; that reconstruction runs on-chain and
// is not implemented in this layer.
func (p *Proof) Compile(pairs []KVPair) ([]byte, error) {
	if len(pairs) != len(p.keys) {
		return nil, ErrProofKeyMismatch
	}
	for i, pair := range pairs {
		if pair.Key != p.keys[i] {
			return nil, ErrProofKeyMismatch
		}
	}
	if len(p.entries) == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, 0, 2+len(p.entries)*(2+common.H256Length))
	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(len(p.entries)))
	buf = append(buf, countBuf[:]...)
	for _, e := range p.entries {
		var depthBuf [2]byte
		binary.LittleEndian.PutUint16(depthBuf[:], e.depth)
		buf = append(buf, depthBuf[:]...)
		buf = append(buf, e.sib[:]...)
	}
	return buf, nil
}
