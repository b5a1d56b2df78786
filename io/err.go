package io

import (
	"errors"

	"github.com/ezrec/chip8vm/translate"
)

var f = translate.From

var (
	// Loader errors
	ErrRomEmpty = errors.New(f("rom empty"))
)

// ErrRomSize reports an image that does not fit in program memory.
type ErrRomSize int

func (err ErrRomSize) Error() string {
	return f("rom of %d bytes exceeds %d bytes of program memory", int(err), ROM_LIMIT)
}

func (err ErrRomSize) Is(target error) (ok bool) {
	_, ok = target.(ErrRomSize)
	return
}
