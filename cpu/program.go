package cpu

import (
	"iter"

	"github.com/ezrec/chip8vm/memory"
)

// Opcode represents a line of assembled code with its source location and
// generated instructions or data.
type Opcode struct {
	LineNo    int
	Address   int
	Words     []string
	Codes     []Code
	Bytes     []byte
	LinkLabel string
}

// Size is the number of bytes the line occupies.
func (op *Opcode) Size() int {
	return 2*len(op.Codes) + len(op.Bytes)
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug locates the line containing address.
func (prog *Program) Debug(address uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(address) >= op.Address && int(address) < op.Address+op.Size() {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  (int(address) - op.Address) / 2,
			}
			break
		}
	}

	return
}

// Binary returns the ROM image, starting at PROGRAM_START. Gaps left by
// .org are zero filled.
func (prog *Program) Binary() (image []byte) {
	for _, op := range prog.Opcodes {
		offset := op.Address - memory.PROGRAM_START
		end := offset + op.Size()
		if end > len(image) {
			image = append(image, make([]byte, end-len(image))...)
		}
		for _, code := range op.Codes {
			image[offset] = byte(code >> 8)
			image[offset+1] = byte(code)
			offset += 2
		}
		copy(image[offset:], op.Bytes)
	}

	return
}

// Codes iterates over the instruction words and their addresses.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(address uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			address := uint16(op.Address)
			for n, code := range op.Codes {
				if !yield(address+uint16(2*n), code) {
					return
				}
			}
		}
	}
}

// Disassemble iterates over a ROM image as instruction words, with the
// addresses they load at. A trailing odd byte is padded with zero.
func Disassemble(image []byte) iter.Seq2[uint16, Code] {
	return func(yield func(address uint16, code Code) bool) {
		for n := 0; n < len(image); n += 2 {
			word := uint16(image[n]) << 8
			if n+1 < len(image) {
				word |= uint16(image[n+1])
			}
			if !yield(uint16(memory.PROGRAM_START+n), Code(word)) {
				return
			}
		}
	}
}
