// Package account implements the client-side account layer built on top
// of the SMT, the VM host, and the witness builder: generating
// transaction skeletons from program runs, replaying committed
// transactions to advance local state, and rebuilding an account's
// history from an unordered bag of transactions.
package account

import (
	"encoding/binary"

	"github.com/nervosnetwork/ckb-simple-account-layer/chain"
	"github.com/nervosnetwork/ckb-simple-account-layer/common"
	"github.com/nervosnetwork/ckb-simple-account-layer/log"
	"github.com/nervosnetwork/ckb-simple-account-layer/smt"
	"github.com/nervosnetwork/ckb-simple-account-layer/vm"
	"github.com/nervosnetwork/ckb-simple-account-layer/witness"
)

var logger = log.Default().Module("account")

// LastCell is the account's most recent on-chain state cell.
type LastCell struct {
	OutPoint chain.OutPoint
	Output   chain.CellOutput
	Data     []byte
}

// Account tracks one type-scripted cell's state as a local SMT, mirrored
// against a chain of transactions.
type Account struct {
	Config   Config
	Tree     *smt.SparseMerkleTree
	LastCell *LastCell
}

// New returns an Account with an empty tree and no prior on-chain cell.
func New(config Config) *Account {
	return &Account{
		Config: config,
		Tree:   smt.NewSparseMerkleTree(common.Zero, smt.NewDefaultStore()),
	}
}

// NewWithTree returns an Account seeded with an existing tree (still
// with no prior on-chain cell).
func NewWithTree(config Config, tree *smt.SparseMerkleTree) *Account {
	return &Account{Config: config, Tree: tree}
}

// NewWithLastCell returns an Account at a known on-chain position.
func NewWithLastCell(config Config, tree *smt.SparseMerkleTree, lastCell LastCell) *Account {
	return &Account{Config: config, Tree: tree, LastCell: &lastCell}
}

func (a *Account) runConfig() vm.Config {
	return vm.Config{Generator: a.Config.Generator, GasLimit: a.Config.GasLimit}
}

// Generate runs program against the current tree and builds a
// transaction skeleton that would, once broadcast and committed, apply
// that run's effect. It does not mutate the tree or LastCell; fees and
// capacity balancing, and any signature generation on inputs, are left
// to the caller.
func (a *Account) Generate(program []byte) (*chain.Transaction, error) {
	result, err := vm.Run(a.runConfig(), a.Tree, program, nil)
	if err != nil {
		return nil, err
	}
	proof, err := witness.Build(a.Tree, result)
	if err != nil {
		return nil, err
	}
	rootHash, err := witness.CommittedRootHash(a.Tree, result)
	if err != nil {
		return nil, err
	}
	serialized, err := proof.Serialize(program)
	if err != nil {
		return nil, &OtherError{Message: "generate: " + err.Error()}
	}

	var witnessArgs chain.WitnessArgs
	if a.LastCell == nil {
		witnessArgs.OutputType = serialized
	} else {
		witnessArgs.InputType = serialized
	}

	output := chain.CellOutput{Type: &a.Config.TypeScript}
	if a.LastCell == nil {
		output.Capacity = a.Config.Capacity
	} else {
		output.Capacity = a.LastCell.Output.Capacity
	}

	if a.Config.LockScript == nil {
		if a.LastCell == nil {
			return nil, &OtherError{Message: "generate: no valid lock script to use"}
		}
		output.Lock = a.LastCell.Output.Lock
	} else {
		output.Lock = *a.Config.LockScript
	}

	tx := &chain.Transaction{
		CellDeps:    []chain.CellDep{{OutPoint: a.Config.ValidatorOutPoint, DepType: chain.DepTypeCode}},
		Outputs:     []chain.CellOutput{output},
		OutputsData: [][]byte{rootHash.Bytes()},
		Witnesses:   []chain.WitnessArgs{witnessArgs},
	}
	if a.LastCell != nil {
		tx.Inputs = []chain.CellInput{{PreviousOutput: a.LastCell.OutPoint}}
	}

	logger.WithRoot(rootHash).Debug("generated transaction skeleton", "update", a.LastCell != nil)
	return tx, nil
}

// Advance replays a committed transaction: it locates the single
// type-scripted output, extracts the program from the matching witness
// slot, re-runs it, verifies the recomputed root against the output's
// data, commits the writes, and records the new LastCell.
func (a *Account) Advance(tx *chain.Transaction) error {
	txHash, err := tx.Hash()
	if err != nil {
		return err
	}

	index := -1
	for i, out := range tx.Outputs {
		if chain.ScriptEqual(out.Type, &a.Config.TypeScript) {
			if index != -1 {
				return &InvalidTransactionError{TxHash: txHash, Reason: "Invalid number of outputs!"}
			}
			index = i
		}
	}

	if a.LastCell != nil {
		consumesLastCell := false
		for _, in := range tx.Inputs {
			if in.PreviousOutput == a.LastCell.OutPoint {
				consumesLastCell = true
				break
			}
		}
		if !consumesLastCell {
			return &InvalidTransactionError{TxHash: txHash, Reason: "Provided transaction does not consume last cell!"}
		}
	}

	if index == -1 {
		return &OtherError{Message: "advance: tree destruction is not supported"}
	}

	if index >= len(tx.Witnesses) {
		return &InvalidTransactionError{TxHash: txHash, Reason: "Witness is missing!"}
	}
	witnessArgs := tx.Witnesses[index]
	var slot []byte
	if a.LastCell == nil {
		slot = witnessArgs.OutputType
	} else {
		slot = witnessArgs.InputType
	}
	if len(slot) < 4 || uint64(binary.LittleEndian.Uint32(slot)) > uint64(len(slot)-4) {
		return &InvalidTransactionError{TxHash: txHash, Reason: "Witness format is invalid!"}
	}
	program := slot[4 : 4+binary.LittleEndian.Uint32(slot)]

	result, err := vm.Run(a.runConfig(), a.Tree, program, nil)
	if err != nil {
		return err
	}
	newRoot, err := witness.CommittedRootHash(a.Tree, result)
	if err != nil {
		return err
	}

	outputData := tx.OutputsData[index]
	if len(outputData) != common.H256Length || common.BytesToH256(outputData) != newRoot {
		return &InvalidTransactionError{TxHash: txHash, Reason: "Invalid new root hash!"}
	}

	if err := witness.Commit(a.Tree, result); err != nil {
		return err
	}
	a.LastCell = &LastCell{
		OutPoint: chain.OutPoint{TxHash: txHash, Index: uint32(index)},
		Output:   tx.Outputs[index],
		Data:     outputData,
	}
	logger.WithTxHash(txHash).WithRoot(newRoot).Debug("advanced account")
	return nil
}

// chainEntry is one transaction under consideration while rebuilding a
// chain: its outpoint-tagged view plus the type-scripted output it
// produced, if any.
type chainEntry struct {
	tx         *chain.Transaction
	txHash     common.H256
	producedPt *chain.OutPoint
}

// RestoreFromTransactions reconstructs an Account from an unordered set
// of transactions that form a single linear chain through the
// type-scripted cell, extending backwards and forwards from an
// arbitrary starting transaction until no further join is found.
func RestoreFromTransactions(config Config, txs []*chain.Transaction, strict bool) (*Account, error) {
	var chainList []chainEntry
	spentCells := make(map[chain.OutPoint]chainEntry)
	createdCells := make(map[chain.OutPoint]chainEntry)

	for _, tx := range txs {
		txHash, err := tx.Hash()
		if err != nil {
			return nil, err
		}

		var producedPt *chain.OutPoint
		matchCount := 0
		for i, out := range tx.Outputs {
			if chain.ScriptEqual(out.Type, &config.TypeScript) {
				matchCount++
				pt := chain.OutPoint{TxHash: txHash, Index: uint32(i)}
				producedPt = &pt
			}
		}
		if matchCount > 1 {
			return nil, &InvalidTransactionError{TxHash: txHash, Reason: "Invalid number of outputs!"}
		}

		entry := chainEntry{tx: tx, txHash: txHash, producedPt: producedPt}

		if len(chainList) == 0 {
			chainList = append(chainList, entry)
			continue
		}

		for _, in := range tx.Inputs {
			spentCells[in.PreviousOutput] = entry
		}
		if producedPt != nil {
			createdCells[*producedPt] = entry
		}

		for {
			inserted := false
			for _, in := range chainList[0].tx.Inputs {
				if producer, ok := createdCells[in.PreviousOutput]; ok {
					delete(createdCells, in.PreviousOutput)
					chainList = append([]chainEntry{producer}, chainList...)
					inserted = true
					break
				}
			}
			if !inserted {
				break
			}
		}
		for {
			tail := chainList[len(chainList)-1]
			if tail.producedPt == nil {
				break
			}
			consumer, ok := spentCells[*tail.producedPt]
			if !ok {
				break
			}
			delete(spentCells, *tail.producedPt)
			chainList = append(chainList, consumer)
		}
	}

	if strict && len(chainList) != len(txs) {
		chained := make(map[*chain.Transaction]bool, len(chainList))
		for _, entry := range chainList {
			chained[entry.tx] = true
		}
		var unchained common.H256
		for _, tx := range txs {
			if !chained[tx] {
				unchained, _ = tx.Hash()
				break
			}
		}
		return nil, &InvalidTransactionError{TxHash: unchained, Reason: "Not all transactions can be chained together!"}
	}

	account := New(config)
	for _, entry := range chainList {
		if err := account.Advance(entry.tx); err != nil {
			return nil, err
		}
	}
	return account, nil
}
