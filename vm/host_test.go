package vm

import (
	"testing"

	"github.com/nervosnetwork/ckb-simple-account-layer/common"
	"github.com/nervosnetwork/ckb-simple-account-layer/riscv"
	"github.com/nervosnetwork/ckb-simple-account-layer/smt"
)

// assemble concatenates little-endian-encoded instruction words into a
// flat byte program.
func assemble(words ...uint32) []byte {
	var out []byte
	for _, w := range words {
		out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return out
}

func exitZero() []uint32 {
	return []uint32{
		riscv.ADDI(riscv.RegA0, riscv.RegZero, 0),
		riscv.ADDI(riscv.RegA7, riscv.RegZero, riscv.ECallSyscallExit),
		riscv.ECALL(),
	}
}

func exitCode(code int32) []uint32 {
	return []uint32{
		riscv.ADDI(riscv.RegA0, riscv.RegZero, code),
		riscv.ADDI(riscv.RegA7, riscv.RegZero, riscv.ECallSyscallExit),
		riscv.ECALL(),
	}
}

func concat(groups ...[]uint32) []uint32 {
	var out []uint32
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// fetchProgram builds a program that fetches the key at keyAddr, storing
// the result at outAddr.
func fetchProgram(keyAddr, outAddr uint32) []uint32 {
	var out []uint32
	out = append(out, riscv.LoadImmediate32(riscv.RegA0, keyAddr)...)
	out = append(out, riscv.LoadImmediate32(riscv.RegA1, outAddr)...)
	out = append(out, riscv.LoadImmediate32(riscv.RegA7, SyscallFetch)...)
	out = append(out, riscv.ECALL())
	return out
}

// insertProgram builds a program that inserts value V (written at
// valAddr) for key K (written at keyAddr).
func insertProgram(keyAddr, valAddr uint32) []uint32 {
	var out []uint32
	out = append(out, riscv.LoadImmediate32(riscv.RegA0, keyAddr)...)
	out = append(out, riscv.LoadImmediate32(riscv.RegA1, valAddr)...)
	out = append(out, riscv.LoadImmediate32(riscv.RegA7, SyscallInsert)...)
	out = append(out, riscv.ECALL())
	return out
}

// writeWord32 builds a program writing a 4-byte word at addr+offset.
func writeWord32(scratchReg, addrBaseReg uint32, addr uint32, offset int32, word int32) []uint32 {
	var out []uint32
	out = append(out, riscv.LoadImmediate32(addrBaseReg, addr)...)
	out = append(out, riscv.ADDI(scratchReg, riscv.RegZero, word))
	out = append(out, riscv.SW(addrBaseReg, scratchReg, offset))
	return out
}

func h256WithLastWordByte(b byte) common.H256 {
	var h common.H256
	h[28] = b
	return h
}

const (
	fetchKeyAddr  = 0x2000
	fetchOutAddr  = 0x2100
	insertKeyAddr = 0x3000
	insertValAddr = 0x4000
)

func TestRunFetchAbsentKey(t *testing.T) {
	store := smt.NewDefaultStore()
	tree := smt.NewSparseMerkleTree(common.Zero, store)

	program := assemble(concat(
		fetchProgram(fetchKeyAddr, fetchOutAddr),
		exitZero(),
	)...)

	result, err := Run(Config{Generator: program}, tree, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Reads) != 0 {
		t.Fatalf("expected no reads for an absent key (zero-suppression), got %v", result.Reads)
	}
	if len(result.Writes) != 0 {
		t.Fatalf("expected no writes, got %v", result.Writes)
	}
}

func TestRunInsertRecordsWrite(t *testing.T) {
	store := smt.NewDefaultStore()
	tree := smt.NewSparseMerkleTree(common.Zero, store)

	program := assemble(concat(
		writeWord32(12, 8, insertKeyAddr, 28, 0x55),
		writeWord32(13, 9, insertValAddr, 28, 0x77),
		insertProgram(insertKeyAddr, insertValAddr),
		exitZero(),
	)...)

	result, err := Run(Config{Generator: program}, tree, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantKey := h256WithLastWordByte(0x55)
	wantVal := h256WithLastWordByte(0x77)
	got, ok := result.Writes[wantKey]
	if !ok {
		t.Fatalf("expected write for key %x, writes=%v", wantKey, result.Writes)
	}
	if got != wantVal {
		t.Fatalf("write value = %x, want %x", got, wantVal)
	}
	if len(result.Reads) != 0 {
		t.Fatalf("expected no reads, got %v", result.Reads)
	}
}

// TestRunShadowRule writes K then fetches K on an empty tree; the fetch
// must be served from the write set and not recorded into reads.
func TestRunShadowRule(t *testing.T) {
	store := smt.NewDefaultStore()
	tree := smt.NewSparseMerkleTree(common.Zero, store)

	program := assemble(concat(
		writeWord32(12, 8, insertKeyAddr, 28, 0x55),
		writeWord32(13, 9, insertValAddr, 28, 0x77),
		insertProgram(insertKeyAddr, insertValAddr),
		fetchProgram(insertKeyAddr, fetchOutAddr),
		exitZero(),
	)...)

	result, err := Run(Config{Generator: program}, tree, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Reads) != 0 {
		t.Fatalf("shadow rule violated: expected empty reads, got %v", result.Reads)
	}
	wantKey := h256WithLastWordByte(0x55)
	wantVal := h256WithLastWordByte(0x77)
	if result.Writes[wantKey] != wantVal {
		t.Fatalf("writes[%x] = %x, want %x", wantKey, result.Writes[wantKey], wantVal)
	}
}

func TestRunNonZeroExitIsInvalidResponseCode(t *testing.T) {
	store := smt.NewDefaultStore()
	tree := smt.NewSparseMerkleTree(common.Zero, store)

	program := assemble(exitCode(5)...)
	_, err := Run(Config{Generator: program}, tree, nil, nil)
	if err == nil {
		t.Fatal("expected an error for non-zero exit code")
	}
	var rcErr *InvalidResponseCodeError
	if !asInvalidResponseCode(err, &rcErr) {
		t.Fatalf("expected *InvalidResponseCodeError, got %v (%T)", err, err)
	}
	if rcErr.Code != 5 {
		t.Fatalf("code = %d, want 5", rcErr.Code)
	}
}

func asInvalidResponseCode(err error, target **InvalidResponseCodeError) bool {
	if e, ok := err.(*InvalidResponseCodeError); ok {
		*target = e
		return true
	}
	return false
}

func TestRunTreeUnmutatedDuringRun(t *testing.T) {
	store := smt.NewDefaultStore()
	tree := smt.NewSparseMerkleTree(common.Zero, store)
	if err := tree.Update(h256WithLastWordByte(0x01), h256WithLastWordByte(0x02)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	before := tree.Root()

	program := assemble(concat(
		writeWord32(12, 8, insertKeyAddr, 28, 0x55),
		writeWord32(13, 9, insertValAddr, 28, 0x77),
		insertProgram(insertKeyAddr, insertValAddr),
		exitZero(),
	)...)

	if _, err := Run(Config{Generator: program}, tree, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tree.Root() != before {
		t.Fatal("Run must not mutate the tree")
	}
}
