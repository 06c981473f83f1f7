package smt

import (
	"github.com/nervosnetwork/ckb-simple-account-layer/common"
	"github.com/nervosnetwork/ckb-simple-account-layer/hash"
)

// Depth is the key width in bits: 256-bit H256 keys descend a binary
// tree this many levels deep.
const Depth = common.H256Length * 8

// SparseMerkleTree is a mapping H256 -> H256 backed by a content-
// addressed Store, with the convention that an absent key and a key
// mapped to the zero word are indistinguishable.
type SparseMerkleTree struct {
	root  common.H256
	store Store
}

// NewSparseMerkleTree wraps store with the given root (common.Zero for
// an empty tree).
func NewSparseMerkleTree(root common.H256, store Store) *SparseMerkleTree {
	return &SparseMerkleTree{root: root, store: store}
}

// Root returns the current root hash.
func (t *SparseMerkleTree) Root() common.H256 { return t.root }

// Store returns the tree's backing store.
func (t *SparseMerkleTree) Store() Store { return t.store }

// merge computes the hash of a branch node's two children, with the
// "empty subtree" shortcut: merging two zero children yields zero, so
// an all-default subtree commits to the zero word at every depth,
// matching the SMT's absent-equals-zero convention.
func merge(left, right common.H256) common.H256 {
	if left.IsZero() && right.IsZero() {
		return common.Zero
	}
	return hash.H256(left, right)
}

// Get returns the value stored at key, or the zero word if absent.
func (t *SparseMerkleTree) Get(key common.H256) (common.H256, error) {
	return t.getAt(t.root, key, 0)
}

func (t *SparseMerkleTree) getAt(nodeHash common.H256, key common.H256, depth int) (common.H256, error) {
	if nodeHash.IsZero() {
		return common.Zero, nil
	}
	if depth == Depth {
		return nodeHash, nil
	}
	branch, ok, err := t.store.GetBranch(nodeHash)
	if err != nil {
		return common.Zero, err
	}
	if !ok {
		return common.Zero, ErrNodeNotFound
	}
	if key.BitAt(depth) == 0 {
		return t.getAt(branch.Left, key, depth+1)
	}
	return t.getAt(branch.Right, key, depth+1)
}

// Update sets key to value, recomputing and storing every branch node
// along the path, and updates the tree's root in place.
func (t *SparseMerkleTree) Update(key, value common.H256) error {
	newRoot, err := t.updateAt(t.root, key, value, 0)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *SparseMerkleTree) updateAt(nodeHash common.H256, key, value common.H256, depth int) (common.H256, error) {
	if depth == Depth {
		if !value.IsZero() {
			if err := t.store.InsertLeaf(value, LeafNode{Value: value}); err != nil {
				return common.Zero, err
			}
		}
		return value, nil
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

	if key.BitAt(depth) == 0 {
		newLeft, err := t.updateAt(branch.Left, key, value, depth+1)
		if err != nil {
			return common.Zero, err
		}
		branch.Left = newLeft
	} else {
		newRight, err := t.updateAt(branch.Right, key, value, depth+1)
		if err != nil {
			return common.Zero, err
		}
		branch.Right = newRight
	}

	newHash := merge(branch.Left, branch.Right)
	if !newHash.IsZero() {
		if err := t.store.InsertBranch(newHash, branch); err != nil {
			return common.Zero, err
		}
	}
	return newHash, nil
}
