// Package io provides the peripheral devices of the virtual machine: the
// monochrome display, the hexadecimal keypad, the delay and sound timers, and
// the ROM image loader.
package io

import (
	"iter"
)

// Device is the common interface of all peripherals.
type Device interface {
	// Reset returns the device to its power-on state.
	Reset()
	// Defines returns assembler equates describing the device.
	Defines() iter.Seq2[string, string]
}
