// Package chain implements the minimal cell/transaction container model
// the account layer builds and consumes: outpoints, cells, scripts, and
// witnesses, along with a deterministic transaction hash.
package chain

import (
	"github.com/nervosnetwork/ckb-simple-account-layer/chain/rlp"
	"github.com/nervosnetwork/ckb-simple-account-layer/common"
	"github.com/nervosnetwork/ckb-simple-account-layer/hash"
)

// DepType distinguishes how a CellDep's referenced cell is interpreted.
type DepType uint8

const (
	DepTypeCode DepType = iota
	DepTypeDepGroup
)

// Script identifies code plus its arguments, used for both lock and
// type scripts.
type Script struct {
	CodeHash common.H256
	HashType uint8
	Args     []byte
}

// OutPoint identifies a cell by the hash of the transaction that
// produced it and its output index within that transaction.
type OutPoint struct {
	TxHash common.H256
	Index  uint32
}

// CellInput references a previously produced cell being spent.
type CellInput struct {
	PreviousOutput OutPoint
	Since          uint64
}

// CellOutput is a UTXO-like record: capacity, an optional type script,
// a lock script, the data length is implied by the paired outputs_data
// entry at the same index.
type CellOutput struct {
	Capacity uint64
	Lock     Script
	Type     *Script
}

// CellDep references a cell whose code this transaction depends on.
type CellDep struct {
	OutPoint OutPoint
	DepType  DepType
}

// WitnessArgs is the per-input auxiliary data envelope: up to three
// optional byte slots.
type WitnessArgs struct {
	Lock       []byte
	InputType  []byte
	OutputType []byte
}

// Transaction is the cell-model transaction this layer builds and
// parses: cell_deps, inputs, one or more outputs with their matching
// outputs_data, and one witness per relevant input/output slot.
type Transaction struct {
	CellDeps    []CellDep
	Inputs      []CellInput
	Outputs     []CellOutput
	OutputsData [][]byte
	Witnesses   []WitnessArgs
}

// Hash returns the transaction's content-addressed hash, computed over
// cell_deps, inputs, outputs, and outputs_data (witnesses are excluded,
// matching the convention that a transaction's identity does not depend
// on its own signatures/proofs).
func (tx *Transaction) Hash() (common.H256, error) {
	type body struct {
		CellDeps    []CellDep
		Inputs      []CellInput
		Outputs     []CellOutput
		OutputsData [][]byte
	}
	b, err := rlp.EncodeToBytes(body{
		CellDeps:    tx.CellDeps,
		Inputs:      tx.Inputs,
		Outputs:     tx.Outputs,
		OutputsData: tx.OutputsData,
	})
	if err != nil {
		return common.Zero, err
	}
	return hash.Bytes(b), nil
}

// ScriptEqual reports whether two scripts are the same code, hash type,
// and arguments. A nil type script never equals another script, even a
// nil one, since "no type script" and "some type script" are always
// distinguished explicitly by callers (never by comparing two nils).
func ScriptEqual(a, b *Script) bool {
	if a == nil || b == nil {
		return false
	}
	if a.CodeHash != b.CodeHash || a.HashType != b.HashType {
		return false
	}
	if len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}
