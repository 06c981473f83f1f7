package riscv

import "testing"

func assembleAndRun(t *testing.T, program []uint32) *CPU {
	t.Helper()
	cpu := NewCPU(10000)
	var code []byte
	for _, w := range program {
		var b [4]byte
		b[0] = byte(w)
		b[1] = byte(w >> 8)
		b[2] = byte(w >> 16)
		b[3] = byte(w >> 24)
		code = append(code, b[:]...)
	}
	if err := cpu.LoadProgram(code, 0); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if err := cpu.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return cpu
}

func exitProgram(rest ...uint32) []uint32 {
	prog := append([]uint32{}, rest...)
	prog = append(prog, ADDI(RegA7, RegZero, ECallSyscallExit))
	prog = append(prog, ECALL())
	return prog
}

func TestAddImmediate(t *testing.T) {
	cpu := assembleAndRun(t, exitProgram(
		ADDI(5, RegZero, 42),
		ADDI(RegA0, 5, 0),
	))
	if cpu.Reg(5) != 42 {
		t.Fatalf("x5 = %d, want 42", cpu.Reg(5))
	}
	if cpu.ExitCode() != 42 {
		t.Fatalf("exit code = %d, want 42", cpu.ExitCode())
	}
}

func TestAddSub(t *testing.T) {
	cpu := assembleAndRun(t, exitProgram(
		ADDI(5, RegZero, 10),
		ADDI(6, RegZero, 3),
		ADD(7, 5, 6),
		SUB(8, 5, 6),
	))
	if cpu.Reg(7) != 13 {
		t.Fatalf("x7 = %d, want 13", cpu.Reg(7))
	}
	if cpu.Reg(8) != 7 {
		t.Fatalf("x8 = %d, want 7", cpu.Reg(8))
	}
}

func TestLoadStoreWord(t *testing.T) {
	cpu := assembleAndRun(t, exitProgram(
		ADDI(5, RegZero, 100), // address
		ADDI(6, RegZero, 0x55),
		SW(5, 6, 0),
		LW(7, 5, 0),
	))
	if cpu.Reg(7) != 0x55 {
		t.Fatalf("x7 = %d, want 0x55", cpu.Reg(7))
	}
}

func TestBranchTaken(t *testing.T) {
	// x5 = 1, x6 = 1: beq x5,x6 -> skip the following ADDI, so x7 stays 0.
	cpu := assembleAndRun(t, []uint32{
		ADDI(5, RegZero, 1),
		ADDI(6, RegZero, 1),
		BEQ(5, 6, 8), // pc+8: skip next instruction and land on exit setup
		ADDI(7, RegZero, 99),
		ADDI(RegA7, RegZero, ECallSyscallExit),
		ECALL(),
	})
	if cpu.Reg(7) != 0 {
		t.Fatalf("x7 = %d, want 0 (branch should have been taken)", cpu.Reg(7))
	}
}

func TestBranchNotTaken(t *testing.T) {
	// x5 = 1, x6 = 1: bne x5,x6 is not taken, so the following ADDI runs.
	cpu := assembleAndRun(t, exitProgram(
		ADDI(5, RegZero, 1),
		ADDI(6, RegZero, 1),
		BNE(5, 6, 8),
		ADDI(7, RegZero, 99),
	))
	if cpu.Reg(7) != 99 {
		t.Fatalf("x7 = %d, want 99 (branch should not have been taken)", cpu.Reg(7))
	}
}

func TestExitCodePropagates(t *testing.T) {
	cpu := assembleAndRun(t, []uint32{
		ADDI(RegA0, RegZero, 7),
		ADDI(RegA7, RegZero, ECallSyscallExit),
		ECALL(),
	})
	if cpu.ExitCode() != 7 {
		t.Fatalf("exit code = %d, want 7", cpu.ExitCode())
	}
}

func TestOutOfGas(t *testing.T) {
	cpu := NewCPU(2)
	code := []byte{}
	for _, w := range []uint32{ADDI(5, RegZero, 1), ADDI(5, 5, 1), ADDI(5, 5, 1)} {
		var b [4]byte
		b[0], b[1], b[2], b[3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
		code = append(code, b[:]...)
	}
	if err := cpu.LoadProgram(code, 0); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	err := cpu.Run()
	if err != ErrOutOfGas {
		t.Fatalf("expected ErrOutOfGas, got %v", err)
	}
}

func TestWitnessCollectorRecordsSteps(t *testing.T) {
	cpu := NewCPU(1000)
	collector := NewWitnessCollector(0)
	cpu.AttachWitnessCollector(collector)
	var code []byte
	for _, w := range exitProgram(ADDI(5, RegZero, 1)) {
		var b [4]byte
		b[0], b[1], b[2], b[3] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
		code = append(code, b[:]...)
	}
	if err := cpu.LoadProgram(code, 0); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if err := cpu.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if collector.Len() == 0 {
		t.Fatal("expected recorded steps")
	}
}
