package smt

import "github.com/nervosnetwork/ckb-simple-account-layer/common"

// OverlayStore wraps a shared-read base Store with an in-memory diff: two
// insert maps and two tombstone sets, one pair per node kind. It is used
// to compute a speculative root without mutating the base store:
// constructed immediately before a committed-root-hash computation and
// discarded immediately after.
//
// Read policy: tombstone takes precedence over local insert, which takes
// precedence over base. Write policy: insert clears the corresponding
// tombstone; remove clears the corresponding insert and adds a tombstone.
type OverlayStore struct {
	base Store

	insertedBranch map[common.H256]BranchNode
	removedBranch  map[common.H256]struct{}

	insertedLeaf map[common.H256]LeafNode
	removedLeaf  map[common.H256]struct{}
}

// NewOverlayStore wraps base in a fresh, empty overlay.
func NewOverlayStore(base Store) *OverlayStore {
	return &OverlayStore{
		base:           base,
		insertedBranch: make(map[common.H256]BranchNode),
		removedBranch:  make(map[common.H256]struct{}),
		insertedLeaf:   make(map[common.H256]LeafNode),
		removedLeaf:    make(map[common.H256]struct{}),
	}
}

func (o *OverlayStore) GetBranch(key common.H256) (BranchNode, bool, error) {
	if _, tombstoned := o.removedBranch[key]; tombstoned {
		return BranchNode{}, false, nil
	}
	if n, ok := o.insertedBranch[key]; ok {
		return n, true, nil
	}
	return o.base.GetBranch(key)
}

func (o *OverlayStore) InsertBranch(key common.H256, node BranchNode) error {
	delete(o.removedBranch, key)
	o.insertedBranch[key] = node
	return nil
}

func (o *OverlayStore) RemoveBranch(key common.H256) error {
	delete(o.insertedBranch, key)
	o.removedBranch[key] = struct{}{}
	return nil
}

func (o *OverlayStore) GetLeaf(key common.H256) (LeafNode, bool, error) {
	if _, tombstoned := o.removedLeaf[key]; tombstoned {
		return LeafNode{}, false, nil
	}
	if n, ok := o.insertedLeaf[key]; ok {
		return n, true, nil
	}
	return o.base.GetLeaf(key)
}

func (o *OverlayStore) InsertLeaf(key common.H256, node LeafNode) error {
	delete(o.removedLeaf, key)
	o.insertedLeaf[key] = node
	return nil
}

func (o *OverlayStore) RemoveLeaf(key common.H256) error {
	delete(o.insertedLeaf, key)
	o.removedLeaf[key] = struct{}{}
	return nil
}
