package chain

import (
	"testing"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
)

func sampleTx() *Transaction {
	return &Transaction{
		CellDeps: []CellDep{{OutPoint: OutPoint{TxHash: common.HexToH256("0x01"), Index: 0}, DepType: DepTypeCode}},
		Inputs:   []CellInput{{PreviousOutput: OutPoint{TxHash: common.HexToH256("0x02"), Index: 1}}},
		Outputs: []CellOutput{{
			Capacity: 1000,
			Lock:     Script{CodeHash: common.HexToH256("0x03"), HashType: 1, Args: []byte{0xaa}},
			Type:     &Script{CodeHash: common.HexToH256("0x04"), HashType: 1, Args: []byte{0xbb}},
		}},
		OutputsData: [][]byte{common.HexToH256("0x05").Bytes()},
	}
}

func TestTransactionHashDeterministic(t *testing.T) {
	tx1 := sampleTx()
	tx2 := sampleTx()
	h1, err := tx1.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := tx2.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("identical transactions must hash identically: %x != %x", h1, h2)
	}
}

func TestTransactionHashSensitiveToCapacity(t *testing.T) {
	tx1 := sampleTx()
	tx2 := sampleTx()
	tx2.Outputs[0].Capacity = 2000
	h1, _ := tx1.Hash()
	h2, _ := tx2.Hash()
	if h1 == h2 {
		t.Fatal("different capacities must not hash identically")
	}
}

func TestScriptEqualNilNeverMatches(t *testing.T) {
	s := &Script{CodeHash: common.HexToH256("0x01")}
	if ScriptEqual(nil, nil) {
		t.Fatal("two nils must not be considered equal scripts")
	}
	if ScriptEqual(s, nil) || ScriptEqual(nil, s) {
		t.Fatal("a nil script must never equal a present script")
	}
}

func TestScriptEqualCompares(t *testing.T) {
	a := &Script{CodeHash: common.HexToH256("0x01"), HashType: 1, Args: []byte{1, 2}}
	b := &Script{CodeHash: common.HexToH256("0x01"), HashType: 1, Args: []byte{1, 2}}
	c := &Script{CodeHash: common.HexToH256("0x01"), HashType: 1, Args: []byte{1, 3}}
	if !ScriptEqual(a, b) {
		t.Fatal("identical scripts should be equal")
	}
	if ScriptEqual(a, c) {
		t.Fatal("scripts with different args should not be equal")
	}
}
