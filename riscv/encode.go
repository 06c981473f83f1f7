package riscv

// This file implements the RV32IM instruction encoders and matching
// decoders. Encoders exist so that Go test code can author small guest
// "generator" programs directly; they are this module's own tooling for
// exercising the CPU and VM host in tests, not a claim about how real
// generator binaries are built.

// EncodeR encodes an R-type instruction (register-register ALU ops).
func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeI encodes an I-type instruction (immediate ALU ops, loads, JALR).
func EncodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)<<20)&0xfff00000 | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeS encodes an S-type instruction (stores).
func EncodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	imm11_5 := (u >> 5) & 0x7f
	imm4_0 := u & 0x1f
	return (imm11_5 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (imm4_0 << 7) | opcode
}

// EncodeB encodes a B-type instruction (conditional branches). imm must
// be a multiple of 2.
func EncodeB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	bit12 := (u >> 12) & 1
	bit11 := (u >> 11) & 1
	bits10_5 := (u >> 5) & 0x3f
	bits4_1 := (u >> 1) & 0xf
	return (bit12 << 31) | (bits10_5 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (bits4_1 << 8) | (bit11 << 7) | 0x63
}

// EncodeU encodes a U-type instruction (LUI, AUIPC). imm is the raw
// 20-bit upper immediate (already shifted out of the low 12 bits).
func EncodeU(opcode, rd uint32, imm uint32) uint32 {
	return (imm << 12) | (rd << 7) | opcode
}

// EncodeJ encodes a J-type instruction (JAL). imm must be a multiple of 2.
func EncodeJ(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	bit20 := (u >> 20) & 1
	bits10_1 := (u >> 1) & 0x3ff
	bit11 := (u >> 11) & 1
	bits19_12 := (u >> 12) & 0xff
	return (bit20 << 31) | (bits10_1 << 21) | (bit11 << 20) | (bits19_12 << 12) | (rd << 7) | 0x6F
}

// Convenience encoders for the instructions this module's test programs
// and generator/validator stand-ins actually use.

func ADDI(rd, rs1 uint32, imm int32) uint32 { return EncodeI(0x13, rd, 0b000, rs1, imm) }
func ANDI(rd, rs1 uint32, imm int32) uint32 { return EncodeI(0x13, rd, 0b111, rs1, imm) }
func ORI(rd, rs1 uint32, imm int32) uint32  { return EncodeI(0x13, rd, 0b110, rs1, imm) }
func LW(rd, rs1 uint32, imm int32) uint32   { return EncodeI(0x03, rd, 0b010, rs1, imm) }
func JALR(rd, rs1 uint32, imm int32) uint32 { return EncodeI(0x67, rd, 0b000, rs1, imm) }

func SW(rs1, rs2 uint32, imm int32) uint32 { return EncodeS(0x23, 0b010, rs1, rs2, imm) }

func ADD(rd, rs1, rs2 uint32) uint32 { return EncodeR(0x33, rd, 0b000, rs1, rs2, 0) }
func SUB(rd, rs1, rs2 uint32) uint32 { return EncodeR(0x33, rd, 0b000, rs1, rs2, 0x20) }

func LUI(rd uint32, imm uint32) uint32 { return EncodeU(0x37, rd, imm) }

func BEQ(rs1, rs2 uint32, imm int32) uint32 { return EncodeB(0b000, rs1, rs2, imm) }
func BNE(rs1, rs2 uint32, imm int32) uint32 { return EncodeB(0b001, rs1, rs2, imm) }

func JAL(rd uint32, imm int32) uint32 { return EncodeJ(rd, imm) }

// ECALL encodes the ecall instruction.
func ECALL() uint32 { return 0x73 }

// LoadImmediate32 returns the one- or two-instruction sequence (ADDI, or
// LUI+ADDI) that loads an arbitrary 32-bit value into rd. It is test
// assembler tooling, following the standard "li" pseudo-instruction
// rounding trick (add 0x800 before taking the upper 20 bits, so the
// subsequent ADDI's sign-extension lands on the right value).
func LoadImmediate32(rd uint32, val uint32) []uint32 {
	hi := (val + 0x800) >> 12
	lo := int32(val) - int32(hi<<12)
	if hi == 0 {
		return []uint32{ADDI(rd, RegZero, lo)}
	}
	return []uint32{LUI(rd, hi&0xfffff), ADDI(rd, rd, lo)}
}

// decoders, mirroring the Encode* field layouts above.

func decodeR(word uint32) (rd, rs1, rs2, funct3, funct7 uint32) {
	rd = (word >> 7) & 0x1f
	funct3 = (word >> 12) & 0x7
	rs1 = (word >> 15) & 0x1f
	rs2 = (word >> 20) & 0x1f
	funct7 = (word >> 25) & 0x7f
	return
}

func decodeI(word uint32) (rd int, rs1 int, imm int32) {
	rd = int((word >> 7) & 0x1f)
	rs1 = int((word >> 15) & 0x1f)
	imm = int32(word) >> 20
	return
}

func decodeS(word uint32) (rs1, rs2 uint32, imm int32, funct3 uint32) {
	rs1 = (word >> 15) & 0x1f
	rs2 = (word >> 20) & 0x1f
	funct3 = (word >> 12) & 0x7
	imm4_0 := (word >> 7) & 0x1f
	imm11_5 := (word >> 25) & 0x7f
	raw := (imm11_5 << 5) | imm4_0
	imm = signExtend(raw, 12)
	return
}

func decodeB(word uint32) (rs1, rs2 uint32, imm int32, funct3 uint32) {
	rs1 = (word >> 15) & 0x1f
	rs2 = (word >> 20) & 0x1f
	funct3 = (word >> 12) & 0x7
	bit11 := (word >> 7) & 1
	bits4_1 := (word >> 8) & 0xf
	bits10_5 := (word >> 25) & 0x3f
	bit12 := (word >> 31) & 1
	raw := (bit12 << 12) | (bit11 << 11) | (bits10_5 << 5) | (bits4_1 << 1)
	imm = signExtend(raw, 13)
	return
}

func decodeU(word uint32) (rd int, imm uint32) {
	rd = int((word >> 7) & 0x1f)
	imm = word & 0xfffff000
	return
}

func decodeJ(word uint32) (rd int, imm int32) {
	rd = int((word >> 7) & 0x1f)
	bit20 := (word >> 31) & 1
	bits19_12 := (word >> 12) & 0xff
	bit11 := (word >> 20) & 1
	bits10_1 := (word >> 21) & 0x3ff
	raw := (bit20 << 20) | (bits19_12 << 12) | (bit11 << 11) | (bits10_1 << 1)
	imm = signExtend(raw, 21)
	return
}

// signExtend sign-extends the low `bits` bits of v.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
