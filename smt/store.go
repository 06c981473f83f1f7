// Package smt implements the sparse Merkle tree adapter: a content-
// addressed binary tree over 32-byte keys and values, an overlay store
// for speculative root computation, and compact Merkle proof building.
//
// The tree's internal node layout and merkle-proof algorithm are this
// module's own design. The externally-visible contract is root/get/update
// plus a proof object that compiles against a sorted (key,value) list
// into a deterministic byte witness.
package smt

import "github.com/nervosnetwork/ckb-simple-account-layer/common"

// BranchNode is an interior node: the hashes of its two children.
// A zero child denotes an empty subtree.
type BranchNode struct {
	Left  common.H256
	Right common.H256
}

// LeafNode is a terminal node. Its value equals its own content hash,
// since SMT values are themselves H256 words with no further encoding.
type LeafNode struct {
	Value common.H256
}

// Store is the SMT's backing node storage: get/insert/remove for each
// of the two node kinds (branch, leaf), content-addressed by node hash.
type Store interface {
	GetBranch(key common.H256) (BranchNode, bool, error)
	InsertBranch(key common.H256, node BranchNode) error
	RemoveBranch(key common.H256) error

	GetLeaf(key common.H256) (LeafNode, bool, error)
	InsertLeaf(key common.H256, node LeafNode) error
	RemoveLeaf(key common.H256) error
}
