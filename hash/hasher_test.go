package hash

import (
	"testing"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
)

func TestDeterministic(t *testing.T) {
	a := H256(common.BytesToH256([]byte{1}), common.BytesToH256([]byte{2}))
	b := H256(common.BytesToH256([]byte{1}), common.BytesToH256([]byte{2}))
	if a != b {
		t.Fatalf("expected deterministic digest, got %x vs %x", a, b)
	}
}

func TestOrderSensitive(t *testing.T) {
	a := H256(common.BytesToH256([]byte{1}), common.BytesToH256([]byte{2}))
	b := H256(common.BytesToH256([]byte{2}), common.BytesToH256([]byte{1}))
	if a == b {
		t.Fatal("expected different digests for different input order")
	}
}

func TestEmptyInputNonZero(t *testing.T) {
	h := H256()
	if h.IsZero() {
		t.Fatal("hash of empty input should not be the zero word")
	}
}

func TestBytesVsH256Consistent(t *testing.T) {
	w := common.BytesToH256([]byte{0xAA})
	a := H256(w)
	b := Bytes(w[:])
	if a != b {
		t.Fatalf("expected Bytes(word[:]) == H256(word), got %x vs %x", b, a)
	}
}
