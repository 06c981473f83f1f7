// Package vm implements the RISC-V host: the syscall surface that lets
// the guest generator program read and write the logical tree
// through a read/write set, and the Run engine that drives one
// generator execution to completion.
package vm

import (
	"errors"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
	"github.com/nervosnetwork/ckb-simple-account-layer/riscv"
	"github.com/nervosnetwork/ckb-simple-account-layer/smt"
)

// Syscall numbers reserved by the tree host. Numbers at or above
// ExtensionSyscallBase are available to extension hooks.
const (
	SyscallInsert        = 3073
	SyscallFetch         = 3074
	ExtensionSyscallBase = 3075
)

// RunResult is the accumulated read/write set of one generator run.
// Writes shadows reads: once a key is written, later fetches of it are
// served from writes and never recorded into reads.
type RunResult struct {
	Reads  map[common.H256]common.H256
	Writes map[common.H256]common.H256
}

// NewRunResult returns an empty RunResult.
func NewRunResult() *RunResult {
	return &RunResult{
		Reads:  make(map[common.H256]common.H256),
		Writes: make(map[common.H256]common.H256),
	}
}

// ErrInvalidResponseCode is returned when the guest exits with a
// non-zero code.
var ErrInvalidResponseCode = errors.New("vm: invalid response code")

// InvalidResponseCodeError carries the guest's non-zero exit code.
type InvalidResponseCodeError struct {
	Code int8
}

func (e *InvalidResponseCodeError) Error() string {
	return "vm: invalid response code"
}

func (e *InvalidResponseCodeError) Unwrap() error { return ErrInvalidResponseCode }

// ExtraSyscalls is the optional extension hook: it is consulted before
// the tree syscalls decline an unrecognized number.
type ExtraSyscalls interface {
	ECall(cpu *riscv.CPU) (handled bool, err error)
}

// treeSyscalls implements riscv.ECallHandler, servicing SyscallInsert
// and SyscallFetch against a live tree and accumulating a RunResult. It
// consults an optional extension hook first.
type treeSyscalls struct {
	tree   *smt.SparseMerkleTree
	result *RunResult
	extra  ExtraSyscalls
}

func (s *treeSyscalls) ECall(cpu *riscv.CPU) (bool, error) {
	if s.extra != nil {
		handled, err := s.extra.ECall(cpu)
		if err != nil {
			return false, err
		}
		if handled {
			return true, nil
		}
	}

	switch cpu.Reg(riscv.RegA7) {
	case SyscallInsert:
		return true, s.handleInsert(cpu)
	case SyscallFetch:
		return true, s.handleFetch(cpu)
	default:
		return false, nil
	}
}

func (s *treeSyscalls) handleInsert(cpu *riscv.CPU) error {
	keyAddr := cpu.Reg(riscv.RegA0)
	valueAddr := cpu.Reg(riscv.RegA1)
	key, err := loadH256(cpu, keyAddr)
	if err != nil {
		return err
	}
	value, err := loadH256(cpu, valueAddr)
	if err != nil {
		return err
	}
	s.result.Writes[key] = value
	cpu.SetReg(riscv.RegA0, 0)
	return nil
}

func (s *treeSyscalls) handleFetch(cpu *riscv.CPU) error {
	keyAddr := cpu.Reg(riscv.RegA0)
	outAddr := cpu.Reg(riscv.RegA1)
	key, err := loadH256(cpu, keyAddr)
	if err != nil {
		return err
	}

	value, fromWrites := s.result.Writes[key]
	if !fromWrites {
		treeValue, err := s.tree.Get(key)
		if err != nil {
			return err
		}
		value = treeValue
		if !treeValue.IsZero() {
			s.result.Reads[key] = treeValue
		}
	}

	if err := storeH256(cpu, outAddr, value); err != nil {
		return err
	}
	cpu.SetReg(riscv.RegA0, 0)
	return nil
}

func loadH256(cpu *riscv.CPU, addr uint32) (common.H256, error) {
	b, err := cpu.LoadBytes(addr, common.H256Length)
	if err != nil {
		return common.Zero, err
	}
	return common.BytesToH256(b), nil
}

func storeH256(cpu *riscv.CPU, addr uint32, v common.H256) error {
	return cpu.StoreBytes(addr, v[:])
}
