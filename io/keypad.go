package io

import (
	"fmt"
	"iter"
	"maps"
)

const KEY_COUNT = 16

// Keypad holds the pressed state of the sixteen hexadecimal keys.
type Keypad struct {
	Key [KEY_COUNT]bool
}

var _ Device = (*Keypad)(nil)

// Defines returns the key count.
func (kp *Keypad) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"KEY_COUNT": fmt.Sprintf("%v", KEY_COUNT),
	})
}

// Reset releases every key.
func (kp *Keypad) Reset() {
	clear(kp.Key[:])
}

// SetKey records a key edge. Codes outside the keypad are ignored.
func (kp *Keypad) SetKey(code int, pressed bool) {
	if code < 0 || code >= KEY_COUNT {
		return
	}
	kp.Key[code] = pressed
}

// Pressed reports the state of a key; unknown codes are never pressed.
func (kp *Keypad) Pressed(code int) bool {
	if code < 0 || code >= KEY_COUNT {
		return false
	}
	return kp.Key[code]
}

// First returns the lowest pressed key code.
func (kp *Keypad) First() (code int, ok bool) {
	for n, down := range kp.Key {
		if down {
			return n, true
		}
	}
	return
}
