package cpu

import (
	"fmt"
	"math/bits"
)

// CodeOp is a decoded instruction family.
type CodeOp int

const (
	OP_UNKNOWN   = CodeOp(0)  // ????
	OP_SYS       = CodeOp(1)  // 0NNN
	OP_CLS       = CodeOp(2)  // 00E0
	OP_RET       = CodeOp(3)  // 00EE
	OP_JP        = CodeOp(4)  // 1NNN
	OP_CALL      = CodeOp(5)  // 2NNN
	OP_SE_IMM    = CodeOp(6)  // 3XNN
	OP_SNE_IMM   = CodeOp(7)  // 4XNN
	OP_SE_REG    = CodeOp(8)  // 5XY0
	OP_LD_IMM    = CodeOp(9)  // 6XNN
	OP_ADD_IMM   = CodeOp(10) // 7XNN
	OP_LD_REG    = CodeOp(11) // 8XY0
	OP_OR        = CodeOp(12) // 8XY1
	OP_AND       = CodeOp(13) // 8XY2
	OP_XOR       = CodeOp(14) // 8XY3
	OP_ADD_REG   = CodeOp(15) // 8XY4
	OP_SUB       = CodeOp(16) // 8XY5
	OP_SHR       = CodeOp(17) // 8XY6
	OP_SUBN      = CodeOp(18) // 8XY7
	OP_SHL       = CodeOp(19) // 8XYE
	OP_SNE_REG   = CodeOp(20) // 9XY0
	OP_LD_I      = CodeOp(21) // ANNN
	OP_JP_V0     = CodeOp(22) // BNNN
	OP_RND       = CodeOp(23) // CXNN
	OP_DRW       = CodeOp(24) // DXYN
	OP_SKP       = CodeOp(25) // EX9E
	OP_SKNP      = CodeOp(26) // EXA1
	OP_LD_VX_DT  = CodeOp(27) // FX07
	OP_LD_VX_K   = CodeOp(28) // FX0A
	OP_LD_DT_VX  = CodeOp(29) // FX15
	OP_LD_ST_VX  = CodeOp(30) // FX18
	OP_ADD_I_VX  = CodeOp(31) // FX1E
	OP_LD_F_VX   = CodeOp(32) // FX29
	OP_LD_B_VX   = CodeOp(33) // FX33
	OP_LD_MEM_VX = CodeOp(34) // FX55
	OP_LD_VX_MEM = CodeOp(35) // FX65

	OP_COUNT = 36
)

// CodeShape describes which operand fields an instruction uses.
//
//go:generate go tool stringer -linecomment -type=CodeShape
type CodeShape int

const (
	SHAPE_NONE = CodeShape(0) // ----
	SHAPE_NNN  = CodeShape(1) // -NNN
	SHAPE_XNN  = CodeShape(2) // -XNN
	SHAPE_XY   = CodeShape(3) // -XY-
	SHAPE_XYN  = CodeShape(4) // -XYN
	SHAPE_X    = CodeShape(5) // -X--
)

// codeInfo is one row of the instruction table.
type codeInfo struct {
	Mask   uint16    // Bits fixed by the instruction family.
	Value  uint16    // Value of the fixed bits.
	Shape  CodeShape // Operand fields.
	Format string    // Disassembly, operands in shape order.
}

// codeTable is the single source of truth for decode, encode and disassembly.
var codeTable = [OP_COUNT]codeInfo{
	OP_SYS:       {0xf000, 0x0000, SHAPE_NNN, "sys 0x%03x"},
	OP_CLS:       {0xffff, 0x00e0, SHAPE_NONE, "cls"},
	OP_RET:       {0xffff, 0x00ee, SHAPE_NONE, "ret"},
	OP_JP:        {0xf000, 0x1000, SHAPE_NNN, "jp 0x%03x"},
	OP_CALL:      {0xf000, 0x2000, SHAPE_NNN, "call 0x%03x"},
	OP_SE_IMM:    {0xf000, 0x3000, SHAPE_XNN, "se v%x, 0x%02x"},
	OP_SNE_IMM:   {0xf000, 0x4000, SHAPE_XNN, "sne v%x, 0x%02x"},
	OP_SE_REG:    {0xf00f, 0x5000, SHAPE_XY, "se v%x, v%x"},
	OP_LD_IMM:    {0xf000, 0x6000, SHAPE_XNN, "ld v%x, 0x%02x"},
	OP_ADD_IMM:   {0xf000, 0x7000, SHAPE_XNN, "add v%x, 0x%02x"},
	OP_LD_REG:    {0xf00f, 0x8000, SHAPE_XY, "ld v%x, v%x"},
	OP_OR:        {0xf00f, 0x8001, SHAPE_XY, "or v%x, v%x"},
	OP_AND:       {0xf00f, 0x8002, SHAPE_XY, "and v%x, v%x"},
	OP_XOR:       {0xf00f, 0x8003, SHAPE_XY, "xor v%x, v%x"},
	OP_ADD_REG:   {0xf00f, 0x8004, SHAPE_XY, "add v%x, v%x"},
	OP_SUB:       {0xf00f, 0x8005, SHAPE_XY, "sub v%x, v%x"},
	OP_SHR:       {0xf00f, 0x8006, SHAPE_XY, "shr v%x, v%x"},
	OP_SUBN:      {0xf00f, 0x8007, SHAPE_XY, "subn v%x, v%x"},
	OP_SHL:       {0xf00f, 0x800e, SHAPE_XY, "shl v%x, v%x"},
	OP_SNE_REG:   {0xf00f, 0x9000, SHAPE_XY, "sne v%x, v%x"},
	OP_LD_I:      {0xf000, 0xa000, SHAPE_NNN, "ld i, 0x%03x"},
	OP_JP_V0:     {0xf000, 0xb000, SHAPE_NNN, "jp v0, 0x%03x"},
	OP_RND:       {0xf000, 0xc000, SHAPE_XNN, "rnd v%x, 0x%02x"},
	OP_DRW:       {0xf000, 0xd000, SHAPE_XYN, "drw v%x, v%x, %d"},
	OP_SKP:       {0xf0ff, 0xe09e, SHAPE_X, "skp v%x"},
	OP_SKNP:      {0xf0ff, 0xe0a1, SHAPE_X, "sknp v%x"},
	OP_LD_VX_DT:  {0xf0ff, 0xf007, SHAPE_X, "ld v%x, dt"},
	OP_LD_VX_K:   {0xf0ff, 0xf00a, SHAPE_X, "ld v%x, k"},
	OP_LD_DT_VX:  {0xf0ff, 0xf015, SHAPE_X, "ld dt, v%x"},
	OP_LD_ST_VX:  {0xf0ff, 0xf018, SHAPE_X, "ld st, v%x"},
	OP_ADD_I_VX:  {0xf0ff, 0xf01e, SHAPE_X, "add i, v%x"},
	OP_LD_F_VX:   {0xf0ff, 0xf029, SHAPE_X, "ld f, v%x"},
	OP_LD_B_VX:   {0xf0ff, 0xf033, SHAPE_X, "ld b, v%x"},
	OP_LD_MEM_VX: {0xf0ff, 0xf055, SHAPE_X, "ld [i], v%x"},
	OP_LD_VX_MEM: {0xf0ff, 0xf065, SHAPE_X, "ld v%x, [i]"},
}

// decodeTable maps every possible instruction word to its family.
var decodeTable [0x10000]CodeOp

func init() {
	for word := range len(decodeTable) {
		best := -1
		for op := OP_SYS; op < OP_COUNT; op++ {
			info := &codeTable[op]
			if uint16(word)&info.Mask != info.Value {
				continue
			}
			// The most specific pattern wins (00E0 over 0NNN).
			width := bits.OnesCount16(info.Mask)
			if width > best {
				best = width
				decodeTable[word] = op
			}
		}
	}
}

// Decode returns the instruction family of a word, or OP_UNKNOWN.
func Decode(word uint16) CodeOp {
	return decodeTable[word]
}

// Shape returns the operand layout of the family.
func (op CodeOp) Shape() CodeShape {
	if op <= OP_UNKNOWN || op >= OP_COUNT {
		return SHAPE_NONE
	}
	return codeTable[op].Shape
}

// String returns the pattern of the family, ie "8XY4".
func (op CodeOp) String() string {
	if op <= OP_UNKNOWN || op >= OP_COUNT {
		return "????"
	}
	info := &codeTable[op]
	var out [4]byte
	for n := range 4 {
		shift := 12 - 4*n
		if (info.Mask>>shift)&0xf == 0xf {
			out[n] = "0123456789ABCDEF"[(info.Value>>shift)&0xf]
			continue
		}
		switch {
		case info.Shape == SHAPE_NNN:
			out[n] = 'N'
		case n == 1:
			out[n] = 'X'
		case n == 2 && (info.Shape == SHAPE_XY || info.Shape == SHAPE_XYN):
			out[n] = 'Y'
		default:
			out[n] = 'N'
		}
	}
	return string(out[:])
}

// Code is a single instruction word.
type Code uint16

// MakeCode encodes an instruction from its family and operands, given in
// shape order: nnn; x, nn; x, y; x, y, n; or x. Operands are truncated to
// their field widths.
func MakeCode(op CodeOp, args ...uint16) (code Code) {
	if op <= OP_UNKNOWN || op >= OP_COUNT {
		return
	}

	arg := func(n int) uint16 {
		if n < len(args) {
			return args[n]
		}
		return 0
	}

	info := &codeTable[op]
	word := info.Value
	switch info.Shape {
	case SHAPE_NNN:
		word |= arg(0) & 0xfff
	case SHAPE_XNN:
		word |= (arg(0)&0xf)<<8 | arg(1)&0xff
	case SHAPE_XY:
		word |= (arg(0)&0xf)<<8 | (arg(1)&0xf)<<4
	case SHAPE_XYN:
		word |= (arg(0)&0xf)<<8 | (arg(1)&0xf)<<4 | arg(2)&0xf
	case SHAPE_X:
		word |= (arg(0) & 0xf) << 8
	}

	return Code(word)
}

// Op returns the decoded instruction family.
func (code Code) Op() CodeOp {
	return decodeTable[code]
}

// X returns the first register operand.
func (code Code) X() int {
	return int(code>>8) & 0xf
}

// Y returns the second register operand.
func (code Code) Y() int {
	return int(code>>4) & 0xf
}

// N returns the low nibble.
func (code Code) N() uint8 {
	return uint8(code) & 0xf
}

// NN returns the low byte.
func (code Code) NN() uint8 {
	return uint8(code)
}

// NNN returns the 12-bit address field.
func (code Code) NNN() uint16 {
	return uint16(code) & 0xfff
}

// String returns the assembly language representation of the word.
func (code Code) String() string {
	op := code.Op()
	if op == OP_UNKNOWN {
		return fmt.Sprintf(".word 0x%04x", uint16(code))
	}

	info := &codeTable[op]
	switch info.Shape {
	case SHAPE_NNN:
		return fmt.Sprintf(info.Format, code.NNN())
	case SHAPE_XNN:
		return fmt.Sprintf(info.Format, code.X(), code.NN())
	case SHAPE_XY:
		return fmt.Sprintf(info.Format, code.X(), code.Y())
	case SHAPE_XYN:
		return fmt.Sprintf(info.Format, code.X(), code.Y(), code.N())
	case SHAPE_X:
		return fmt.Sprintf(info.Format, code.X())
	}

	return info.Format
}
