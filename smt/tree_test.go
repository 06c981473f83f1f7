package smt

import (
	"testing"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
)

func hexH256(t *testing.T, s string) common.H256 {
	t.Helper()
	return common.HexToH256(s)
}

func TestEmptyTreeGetIsZero(t *testing.T) {
	tree := NewSparseMerkleTree(common.Zero, NewDefaultStore())
	k := hexH256(t, "0x01")
	v, err := tree.Get(k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.IsZero() {
		t.Fatalf("expected zero value on empty tree, got %x", v)
	}
}

func TestUpdateThenGet(t *testing.T) {
	tree := NewSparseMerkleTree(common.Zero, NewDefaultStore())
	k1 := hexH256(t, "0xe8c0265680a02b680b6cbc880348f062b825b28e237da7169aded4bcac0a04e5")
	v1 := hexH256(t, "0x2ca41595841e46ce8e74ad749e5c3f1d17202150f99c3d8631233ebdd19b19eb")
	if err := tree.Update(k1, v1); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := tree.Get(k1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != v1 {
		t.Fatalf("got %x want %x", got, v1)
	}
	if tree.Root().IsZero() {
		t.Fatal("root should be non-zero after a non-zero update")
	}
}

func TestUpdateToZeroClearsValue(t *testing.T) {
	tree := NewSparseMerkleTree(common.Zero, NewDefaultStore())
	k := hexH256(t, "0x01")
	v := hexH256(t, "0x02")
	if err := tree.Update(k, v); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := tree.Update(k, common.Zero); err != nil {
		t.Fatalf("Update to zero: %v", err)
	}
	if !tree.Root().IsZero() {
		t.Fatalf("expected empty tree after deleting only key, got root %x", tree.Root())
	}
	got, err := tree.Get(k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero after delete, got %x", got)
	}
}

func TestRootUnchangedByGet(t *testing.T) {
	tree := NewSparseMerkleTree(common.Zero, NewDefaultStore())
	k := hexH256(t, "0x01")
	v := hexH256(t, "0x02")
	if err := tree.Update(k, v); err != nil {
		t.Fatalf("Update: %v", err)
	}
	before := tree.Root()
	if _, err := tree.Get(k); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tree.Root() != before {
		t.Fatal("Get must not mutate the root")
	}
}

// TestSpeculativeCommitMatchesOverlay builds two keys into a live tree,
// computes a third key's effect speculatively through an overlay without
// touching the live tree, then commits it directly and checks the
// resulting root matches what the overlay predicted. This tree's
// internal node layout is its own design (see DESIGN.md), so the
// assertions are structural rather than pinned to an external root
// digest.
func TestSpeculativeCommitMatchesOverlay(t *testing.T) {
	store := NewDefaultStore()
	tree := NewSparseMerkleTree(common.Zero, store)

	k1 := hexH256(t, "0xe8c0265680a02b680b6cbc880348f062b825b28e237da7169aded4bcac0a04e5")
	v1 := hexH256(t, "0x2ca41595841e46ce8e74ad749e5c3f1d17202150f99c3d8631233ebdd19b19eb")
	k2 := hexH256(t, "0x381dc5391dab099da5e28acd1ad859a051cf18ace804d037f12819c6fbc0e18b")
	v2 := hexH256(t, "0x9158ce9b0e11dd150ba2ae5d55c1db04b1c5986ec626f2e38a93fe8ad0b2923b")
	if err := tree.Update(k1, v1); err != nil {
		t.Fatalf("Update k1: %v", err)
	}
	if err := tree.Update(k2, v2); err != nil {
		t.Fatalf("Update k2: %v", err)
	}
	preRoot := tree.Root()

	k3 := hexH256(t, "0xa9bb945b00000000000000000000000000000000000000000000000000428a8a")
	v3 := hexH256(t, "0xa939a47300000000000000000000000000000000000000000000000000364e82")

	overlay := NewOverlayStore(store)
	speculative := NewSparseMerkleTree(preRoot, overlay)
	if err := speculative.Update(k3, v3); err != nil {
		t.Fatalf("speculative Update: %v", err)
	}
	committedRoot := speculative.Root()

	if tree.Root() != preRoot {
		t.Fatal("live tree root must be unchanged before commit")
	}

	if err := tree.Update(k3, v3); err != nil {
		t.Fatalf("commit Update: %v", err)
	}
	if tree.Root() != committedRoot {
		t.Fatalf("committed root mismatch: got %x want %x", tree.Root(), committedRoot)
	}
	got, err := tree.Get(k3)
	if err != nil {
		t.Fatalf("Get k3: %v", err)
	}
	if got != v3 {
		t.Fatalf("Get(k3) = %x want %x", got, v3)
	}
}
