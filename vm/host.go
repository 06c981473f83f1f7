package vm

import (
	"encoding/binary"

	"github.com/nervosnetwork/ckb-simple-account-layer/riscv"
	"github.com/nervosnetwork/ckb-simple-account-layer/smt"
)

// Config is the minimal configuration the Run engine needs: the
// generator bytecode to load, and an optional gas (instruction) budget.
// account.Config carries the full transaction-building configuration
// and builds one of these from its own Generator and GasLimit fields;
// this narrower type keeps the VM host decoupled from the account
// package.
type Config struct {
	Generator []byte
	GasLimit  uint64
}

const (
	generatorLoadAddr = 0x1000
	argvDataAddr      = 0x10000
	argvTableAddr     = 0x20000
	defaultGasLimit   = 10_000_000
)

// argvLiteral is the first of the generator's three argv entries: the
// literal UTF-8 bytes "generator".
var argvLiteral = []byte("generator")

// Run instantiates a fresh VM, registers the tree syscalls (and the
// optional extension hook), loads the generator with the conventional
// argv layout, executes to completion, and returns the accumulated
// RunResult. The tree is read-only for the duration of the call; only
// the returned RunResult is mutated during execution.
func Run(cfg Config, tree *smt.SparseMerkleTree, program []byte, extra ExtraSyscalls) (*RunResult, error) {
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}
	cpu := riscv.NewCPU(gasLimit)

	result := NewRunResult()
	handler := &treeSyscalls{tree: tree, result: result, extra: extra}
	cpu.SetECallHandler(handler)

	if err := cpu.LoadProgram(cfg.Generator, generatorLoadAddr); err != nil {
		return nil, err
	}

	if err := loadGeneratorArgv(cpu, program); err != nil {
		return nil, err
	}

	if err := cpu.Run(); err != nil {
		return nil, err
	}

	if code := cpu.ExitCode(); code != 0 {
		return nil, &InvalidResponseCodeError{Code: code}
	}

	return result, nil
}

// loadGeneratorArgv lays out the three-argument argv ("generator",
// u32_le(program_len), program_bytes) in guest memory and points A0/A1
// at argc/argv, following the conventional RISC-V calling convention for
// a freestanding entry point. The in-memory argv table layout is this
// module's own convention; only the three logical arguments' content and
// order are load-bearing.
func loadGeneratorArgv(cpu *riscv.CPU, program []byte) error {
	var progLen [4]byte
	binary.LittleEndian.PutUint32(progLen[:], uint32(len(program)))

	arg0 := argvLiteral
	arg1 := progLen[:]
	arg2 := program

	arg0Addr := uint32(argvDataAddr)
	arg1Addr := arg0Addr + uint32(len(arg0))
	arg2Addr := arg1Addr + uint32(len(arg1))

	if err := cpu.StoreBytes(arg0Addr, arg0); err != nil {
		return err
	}
	if err := cpu.StoreBytes(arg1Addr, arg1); err != nil {
		return err
	}
	if err := cpu.StoreBytes(arg2Addr, arg2); err != nil {
		return err
	}

	table := make([]byte, 0, 3*8)
	for _, entry := range []struct {
		addr uint32
		ln   uint32
	}{
		{arg0Addr, uint32(len(arg0))},
		{arg1Addr, uint32(len(arg1))},
		{arg2Addr, uint32(len(arg2))},
	} {
		var a, l [4]byte
		binary.LittleEndian.PutUint32(a[:], entry.addr)
		binary.LittleEndian.PutUint32(l[:], entry.ln)
		table = append(table, a[:]...)
		table = append(table, l[:]...)
	}
	if err := cpu.StoreBytes(argvTableAddr, table); err != nil {
		return err
	}

	cpu.SetReg(riscv.RegA0, 3) // argc
	cpu.SetReg(riscv.RegA1, argvTableAddr)
	return nil
}
