// Package riscv implements a small RV32IM interpreter: the RISC-V CPU
// core that the VM host loads the generator bytecode into,
// built behind a narrow interface (LoadProgram, Run, memory access,
// register access) so that everything above it only ever reaches
// through that seam.
package riscv

import (
	"encoding/binary"
	"errors"
)

// Register ABI names, per the standard RISC-V calling convention.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegA0   = 10
	RegA1   = 11
	RegA7   = 17
)

// DefaultMemorySize is the flat address space size given to a fresh CPU.
const DefaultMemorySize = 4 << 20 // 4 MiB

// ECallSyscallExit is the conventional "exit" syscall number: a7 holds
// this value, a0 holds the signed 8-bit exit code.
const ECallSyscallExit = 93

// ECallHandler services an ecall the CPU core does not itself interpret.
// It returns handled=false to let the CPU fall through to its own
// built-in handling (currently just the exit syscall).
type ECallHandler interface {
	ECall(cpu *CPU) (handled bool, err error)
}

// ErrOutOfGas is returned by Run when the instruction budget is exhausted
// before the guest program halts.
var ErrOutOfGas = errors.New("riscv: out of gas")

// ErrMemoryOutOfBounds is returned on any load/store past the end of the
// CPU's address space.
var ErrMemoryOutOfBounds = errors.New("riscv: memory access out of bounds")

// ErrIllegalInstruction is returned when Step decodes an unsupported
// opcode/funct combination.
var ErrIllegalInstruction = errors.New("riscv: illegal instruction")

// CPU is a flat-memory RV32IM machine: 32 general-purpose registers (x0
// hardwired to zero), a byte-addressable memory, and a gas meter.
type CPU struct {
	regs [32]uint32
	pc   uint32
	mem  []byte

	gas      uint64
	gasLimit uint64

	exited   bool
	exitCode int8

	ecall     ECallHandler
	collector *WitnessCollector
}

// NewCPU returns a CPU with a fresh DefaultMemorySize address space and
// the given gas limit (instruction budget).
func NewCPU(gasLimit uint64) *CPU {
	return &CPU{
		mem:      make([]byte, DefaultMemorySize),
		gasLimit: gasLimit,
	}
}

// SetECallHandler installs the syscall handler consulted on every ecall.
func (c *CPU) SetECallHandler(h ECallHandler) { c.ecall = h }

// AttachWitnessCollector installs an optional execution-trace recorder.
// It is a diagnostic supplement, not part of the run engine's RunResult.
func (c *CPU) AttachWitnessCollector(w *WitnessCollector) { c.collector = w }

// PC returns the current program counter.
func (c *CPU) PC() uint32 { return c.pc }

// SetPC sets the program counter, e.g. the program's entry point.
func (c *CPU) SetPC(pc uint32) { c.pc = pc }

// Reg returns the value of register i (0-31). Register 0 always reads 0.
func (c *CPU) Reg(i int) uint32 {
	if i == RegZero {
		return 0
	}
	return c.regs[i]
}

// SetReg sets register i (0-31). Writes to register 0 are discarded.
func (c *CPU) SetReg(i int, v uint32) {
	if i == RegZero {
		return
	}
	c.regs[i] = v
}

// ExitCode returns the signed 8-bit code the guest exited with. Only
// meaningful after Run returns nil (i.e. the guest issued the exit
// syscall rather than erroring out).
func (c *CPU) ExitCode() int8 { return c.exitCode }

// GasUsed returns the number of instructions retired so far.
func (c *CPU) GasUsed() uint64 { return c.gas }

// LoadProgram copies code into memory at the given address and sets the
// program counter to that address.
func (c *CPU) LoadProgram(code []byte, at uint32) error {
	if int(at)+len(code) > len(c.mem) {
		return ErrMemoryOutOfBounds
	}
	copy(c.mem[at:], code)
	c.pc = at
	return nil
}

// LoadBytes reads n bytes starting at addr.
func (c *CPU) LoadBytes(addr uint32, n int) ([]byte, error) {
	if n < 0 || int(addr)+n > len(c.mem) || int(addr) < 0 {
		return nil, ErrMemoryOutOfBounds
	}
	out := make([]byte, n)
	copy(out, c.mem[addr:int(addr)+n])
	return out, nil
}

// StoreBytes writes b starting at addr.
func (c *CPU) StoreBytes(addr uint32, b []byte) error {
	if int(addr)+len(b) > len(c.mem) {
		return ErrMemoryOutOfBounds
	}
	copy(c.mem[addr:], b)
	return nil
}

func (c *CPU) loadWord(addr uint32) (uint32, error) {
	if int(addr)+4 > len(c.mem) {
		return 0, ErrMemoryOutOfBounds
	}
	return binary.LittleEndian.Uint32(c.mem[addr:]), nil
}

func (c *CPU) storeWord(addr uint32, v uint32) error {
	if int(addr)+4 > len(c.mem) {
		return ErrMemoryOutOfBounds
	}
	binary.LittleEndian.PutUint32(c.mem[addr:], v)
	return nil
}

// Run executes instructions until the guest issues the exit syscall, an
// error occurs, or the gas limit is exhausted.
func (c *CPU) Run() error {
	for {
		if c.exited {
			return nil
		}
		if c.gasLimit != 0 && c.gas >= c.gasLimit {
			return ErrOutOfGas
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
}

// Step decodes and executes a single instruction at the current PC.
func (c *CPU) Step() error {
	word, err := c.loadWord(c.pc)
	if err != nil {
		return err
	}
	pc := c.pc
	opcode := word & 0x7f

	if c.collector != nil {
		c.collector.record(pc, word, c.gas)
	}

	nextPC := pc + 4
	var stepErr error

	switch opcode {
	case 0x37: // LUI
		rd, imm := decodeU(word)
		c.SetReg(rd, imm)
	case 0x17: // AUIPC
		rd, imm := decodeU(word)
		c.SetReg(rd, pc+imm)
	case 0x6F: // JAL
		rd, imm := decodeJ(word)
		c.SetReg(rd, nextPC)
		nextPC = pc + uint32(imm)
	case 0x67: // JALR
		rd, rs1, imm := decodeI(word)
		target := (c.Reg(rs1) + uint32(imm)) &^ 1
		c.SetReg(rd, nextPC)
		nextPC = target
	case 0x63: // BRANCH
		nextPC, stepErr = c.execBranch(word, pc, nextPC)
	case 0x03: // LOAD
		stepErr = c.execLoad(word)
	case 0x23: // STORE
		stepErr = c.execStore(word)
	case 0x13: // OP-IMM
		c.execOpImm(word)
	case 0x33: // OP / MULDIV
		c.execOp(word)
	case 0x73: // SYSTEM (ECALL/EBREAK)
		stepErr = c.execSystem(word)
	default:
		stepErr = ErrIllegalInstruction
	}

	if stepErr != nil {
		return stepErr
	}
	c.pc = nextPC
	c.gas++
	return nil
}

func (c *CPU) execBranch(word uint32, pc, fallthroughPC uint32) (uint32, error) {
	rs1, rs2, imm, funct3 := decodeB(word)
	a := int32(c.Reg(int(rs1)))
	b := int32(c.Reg(int(rs2)))
	var taken bool
	switch funct3 {
	case 0b000: // BEQ
		taken = a == b
	case 0b001: // BNE
		taken = a != b
	case 0b100: // BLT
		taken = a < b
	case 0b101: // BGE
		taken = a >= b
	case 0b110: // BLTU
		taken = uint32(a) < uint32(b)
	case 0b111: // BGEU
		taken = uint32(a) >= uint32(b)
	default:
		return 0, ErrIllegalInstruction
	}
	if taken {
		return pc + uint32(imm), nil
	}
	return fallthroughPC, nil
}

func (c *CPU) execLoad(word uint32) error {
	rd, rs1, imm := decodeI(word)
	addr := c.Reg(rs1) + uint32(imm)
	funct3 := (word >> 12) & 0x7
	switch funct3 {
	case 0b000: // LB
		b, err := c.LoadBytes(addr, 1)
		if err != nil {
			return err
		}
		c.SetReg(rd, uint32(int32(int8(b[0]))))
	case 0b001: // LH
		b, err := c.LoadBytes(addr, 2)
		if err != nil {
			return err
		}
		v := int16(binary.LittleEndian.Uint16(b))
		c.SetReg(rd, uint32(int32(v)))
	case 0b010: // LW
		v, err := c.loadWord(addr)
		if err != nil {
			return err
		}
		c.SetReg(rd, v)
	case 0b100: // LBU
		b, err := c.LoadBytes(addr, 1)
		if err != nil {
			return err
		}
		c.SetReg(rd, uint32(b[0]))
	case 0b101: // LHU
		b, err := c.LoadBytes(addr, 2)
		if err != nil {
			return err
		}
		c.SetReg(rd, uint32(binary.LittleEndian.Uint16(b)))
	default:
		return ErrIllegalInstruction
	}
	return nil
}

func (c *CPU) execStore(word uint32) error {
	rs1, rs2, imm, funct3 := decodeS(word)
	addr := c.Reg(int(rs1)) + uint32(imm)
	v := c.Reg(int(rs2))
	switch funct3 {
	case 0b000: // SB
		return c.StoreBytes(addr, []byte{byte(v)})
	case 0b001: // SH
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		return c.StoreBytes(addr, b[:])
	case 0b010: // SW
		return c.storeWord(addr, v)
	default:
		return ErrIllegalInstruction
	}
}

func (c *CPU) execOpImm(word uint32) {
	rd, rs1, imm := decodeI(word)
	funct3 := (word >> 12) & 0x7
	a := c.Reg(rs1)
	switch funct3 {
	case 0b000: // ADDI
		c.SetReg(rd, a+uint32(imm))
	case 0b010: // SLTI
		c.SetReg(rd, boolToU32(int32(a) < imm))
	case 0b011: // SLTIU
		c.SetReg(rd, boolToU32(a < uint32(imm)))
	case 0b100: // XORI
		c.SetReg(rd, a^uint32(imm))
	case 0b110: // ORI
		c.SetReg(rd, a|uint32(imm))
	case 0b111: // ANDI
		c.SetReg(rd, a&uint32(imm))
	case 0b001: // SLLI
		c.SetReg(rd, a<<(uint32(imm)&0x1f))
	case 0b101: // SRLI / SRAI
		shamt := uint32(imm) & 0x1f
		if (word>>30)&1 == 1 {
			c.SetReg(rd, uint32(int32(a)>>shamt))
		} else {
			c.SetReg(rd, a>>shamt)
		}
	}
}

func (c *CPU) execOp(word uint32) {
	rdU, rs1U, rs2U, funct3, funct7 := decodeR(word)
	rd := int(rdU)
	a, b := c.Reg(int(rs1U)), c.Reg(int(rs2U))

	if funct7 == 0b0000001 { // M extension
		switch funct3 {
		case 0b000: // MUL
			c.SetReg(rd, a*b)
		case 0b001: // MULH
			c.SetReg(rd, uint32(int64(int32(a))*int64(int32(b))>>32))
		case 0b010: // MULHSU
			c.SetReg(rd, uint32((int64(int32(a))*int64(uint64(b)))>>32))
		case 0b011: // MULHU
			c.SetReg(rd, uint32((uint64(a)*uint64(b))>>32))
		case 0b100: // DIV
			if b == 0 {
				c.SetReg(rd, 0xFFFFFFFF)
			} else if int32(a) == -2147483648 && int32(b) == -1 {
				c.SetReg(rd, a)
			} else {
				c.SetReg(rd, uint32(int32(a)/int32(b)))
			}
		case 0b101: // DIVU
			if b == 0 {
				c.SetReg(rd, 0xFFFFFFFF)
			} else {
				c.SetReg(rd, a/b)
			}
		case 0b110: // REM
			if b == 0 {
				c.SetReg(rd, a)
			} else if int32(a) == -2147483648 && int32(b) == -1 {
				c.SetReg(rd, 0)
			} else {
				c.SetReg(rd, uint32(int32(a)%int32(b)))
			}
		case 0b111: // REMU
			if b == 0 {
				c.SetReg(rd, a)
			} else {
				c.SetReg(rd, a%b)
			}
		}
		return
	}

	switch funct3 {
	case 0b000:
		if funct7&0x20 != 0 {
			c.SetReg(rd, a-b) // SUB
		} else {
			c.SetReg(rd, a+b) // ADD
		}
	case 0b001: // SLL
		c.SetReg(rd, a<<(b&0x1f))
	case 0b010: // SLT
		c.SetReg(rd, boolToU32(int32(a) < int32(b)))
	case 0b011: // SLTU
		c.SetReg(rd, boolToU32(a < b))
	case 0b100: // XOR
		c.SetReg(rd, a^b)
	case 0b101: // SRL / SRA
		if funct7&0x20 != 0 {
			c.SetReg(rd, uint32(int32(a)>>(b&0x1f)))
		} else {
			c.SetReg(rd, a>>(b&0x1f))
		}
	case 0b110: // OR
		c.SetReg(rd, a|b)
	case 0b111: // AND
		c.SetReg(rd, a&b)
	}
}

func (c *CPU) execSystem(word uint32) error {
	funct3 := (word >> 12) & 0x7
	imm12 := word >> 20
	if funct3 != 0 {
		return ErrIllegalInstruction
	}
	if imm12 == 1 { // EBREAK
		c.exited = true
		c.exitCode = 0
		return nil
	}
	// ECALL
	if c.ecall != nil {
		handled, err := c.ecall.ECall(c)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	if c.Reg(RegA7) == ECallSyscallExit {
		c.exited = true
		c.exitCode = int8(c.Reg(RegA0))
		return nil
	}
	return ErrIllegalInstruction
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
