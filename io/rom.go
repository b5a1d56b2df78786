package io

import (
	"io"
	"io/fs"

	"github.com/ezrec/chip8vm/memory"
)

const ROM_LIMIT = memory.PROGRAM_LIMIT

// Rom is a raw program image: no header, loaded verbatim at PROGRAM_START.
type Rom struct {
	Data []byte
}

// Validate checks that the image fits in program memory.
func (rom *Rom) Validate() (err error) {
	if len(rom.Data) == 0 {
		err = ErrRomEmpty
		return
	}
	if len(rom.Data) > ROM_LIMIT {
		err = ErrRomSize(len(rom.Data))
	}
	return
}

// ReadFrom reads an image, refusing one larger than program memory.
func (rom *Rom) ReadFrom(in io.Reader) (n int64, err error) {
	data, err := io.ReadAll(io.LimitReader(in, ROM_LIMIT+1))
	n = int64(len(data))
	if err != nil {
		return
	}
	rom.Data = data
	err = rom.Validate()
	return
}

// Open reads an image from a file system.
func (rom *Rom) Open(filesys fs.FS, name string) (err error) {
	inf, err := filesys.Open(name)
	if err != nil {
		return
	}
	defer inf.Close()

	_, err = rom.ReadFrom(inf)
	return
}

// Install copies the image into memory.
func (rom *Rom) Install(mem *memory.Memory) (err error) {
	err = rom.Validate()
	if err != nil {
		return
	}
	mem.Load(rom.Data)
	return
}
