package memory

import (
	"github.com/ezrec/chip8vm/translate"
)

var f = translate.From

// ErrOutOfBounds reports an access outside of the address space.
type ErrOutOfBounds struct {
	Address int
}

func (err ErrOutOfBounds) Error() string {
	return f("address 0x%x out of bounds", err.Address)
}

// Is matches any ErrOutOfBounds, regardless of address.
func (err ErrOutOfBounds) Is(target error) (ok bool) {
	_, ok = target.(ErrOutOfBounds)
	return
}
