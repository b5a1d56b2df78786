package memory

import (
	"fmt"
	"iter"
	"maps"
)

const (
	SIZE          = 0x1000 // Total addressable bytes.
	PROGRAM_START = 0x200  // Load address of programs.
	PROGRAM_LIMIT = SIZE - PROGRAM_START
)

var _memory_defines = map[string]string{
	"MEMORY_SIZE":   fmt.Sprintf("0x%x", SIZE),
	"PROGRAM_START": fmt.Sprintf("0x%x", PROGRAM_START),
	"FONT_BASE":     fmt.Sprintf("0x%x", FONT_BASE),
	"GLYPH_BYTES":   fmt.Sprintf("%v", GLYPH_BYTES),
}

// Memory is the flat byte store of the machine.
type Memory struct {
	Data [SIZE]byte
}

// NewMemory returns a memory with the font installed.
func NewMemory() (mem *Memory) {
	mem = &Memory{}
	mem.Reset()
	return
}

// Defines for the memory map.
func (mem *Memory) Defines() iter.Seq2[string, string] {
	return maps.All(_memory_defines)
}

// Reset zeroes memory and reinstalls the font.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
	copy(mem.Data[FONT_BASE:], Font[:])
}

func check(address, count int) (err error) {
	if address < 0 || address >= SIZE {
		err = ErrOutOfBounds{Address: address}
		return
	}
	if count > 0 && address+count > SIZE {
		err = ErrOutOfBounds{Address: SIZE}
	}
	return
}

// Read a single byte.
func (mem *Memory) Read(address int) (value byte, err error) {
	err = check(address, 1)
	if err != nil {
		return
	}
	value = mem.Data[address]
	return
}

// Write a single byte.
func (mem *Memory) Write(address int, value byte) (err error) {
	err = check(address, 1)
	if err != nil {
		return
	}
	mem.Data[address] = value
	return
}

// ReadWord reads a big-endian 16-bit word.
func (mem *Memory) ReadWord(address int) (value uint16, err error) {
	err = check(address, 2)
	if err != nil {
		return
	}
	value = uint16(mem.Data[address])<<8 | uint16(mem.Data[address+1])
	return
}

// Slice returns count bytes starting at address, without copying.
func (mem *Memory) Slice(address, count int) (data []byte, err error) {
	err = check(address, count)
	if err != nil {
		return
	}
	data = mem.Data[address : address+count]
	return
}

// Load copies a program image to PROGRAM_START verbatim.
// The caller is responsible for keeping the image within PROGRAM_LIMIT.
func (mem *Memory) Load(image []byte) {
	copy(mem.Data[PROGRAM_START:], image)
}
