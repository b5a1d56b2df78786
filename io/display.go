package io

import (
	"fmt"
	"iter"
	"maps"
	"strings"
)

const (
	DISPLAY_WIDTH  = 64
	DISPLAY_HEIGHT = 32
	DISPLAY_STRIDE = DISPLAY_WIDTH / 8 // Bytes per row.
	DISPLAY_BYTES  = DISPLAY_STRIDE * DISPLAY_HEIGHT
)

// Framebuffer is a 1 bit per pixel, row-major, MSB-first image.
type Framebuffer [DISPLAY_BYTES]byte

// Blit XORs an 8 pixel wide sprite into fb with its top left corner at (x, y),
// one sprite byte per row, and reports whether any lit pixel was cleared.
//
// The start coordinate wraps to the screen, and rows or columns that run off
// the right or bottom edge wrap around to the opposite edge.
func Blit(fb *Framebuffer, sprite []byte, x, y uint8) (collision bool) {
	col := int(x) % DISPLAY_WIDTH
	shift := uint(col % 8)
	first := col / 8
	second := (first + 1) % DISPLAY_STRIDE

	for n, data := range sprite {
		row := (int(y) + n) % DISPLAY_HEIGHT
		base := row * DISPLAY_STRIDE

		left := data >> shift
		if fb[base+first]&left != 0 {
			collision = true
		}
		fb[base+first] ^= left

		if shift != 0 {
			right := data << (8 - shift)
			if fb[base+second]&right != 0 {
				collision = true
			}
			fb[base+second] ^= right
		}
	}

	return
}

// Display is the monochrome screen device.
type Display struct {
	Framebuffer Framebuffer
	Dirty       bool // Set on every change, cleared by the consumer.
}

var _ Device = (*Display)(nil)

// Defines returns the display geometry.
func (dp *Display) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"DISPLAY_WIDTH":  fmt.Sprintf("%v", DISPLAY_WIDTH),
		"DISPLAY_HEIGHT": fmt.Sprintf("%v", DISPLAY_HEIGHT),
	})
}

// Reset blanks the screen.
func (dp *Display) Reset() {
	dp.Clear()
}

// Clear zeros the entire framebuffer.
func (dp *Display) Clear() {
	clear(dp.Framebuffer[:])
	dp.Dirty = true
}

// Draw blits a sprite and returns the collision flag.
func (dp *Display) Draw(sprite []byte, x, y uint8) (collision bool) {
	collision = Blit(&dp.Framebuffer, sprite, x, y)
	dp.Dirty = true
	return
}

// Bytes returns a read-only view of the framebuffer.
func (dp *Display) Bytes() []byte {
	return dp.Framebuffer[:]
}

// Pixel reports whether the pixel at (x, y) is lit.
func (dp *Display) Pixel(x, y int) bool {
	if x < 0 || x >= DISPLAY_WIDTH || y < 0 || y >= DISPLAY_HEIGHT {
		return false
	}
	b := dp.Framebuffer[y*DISPLAY_STRIDE+x/8]
	return b&(0x80>>(x%8)) != 0
}

// String renders the display, one line per row, '#' for lit pixels.
func (dp *Display) String() string {
	var sb strings.Builder
	for y := range DISPLAY_HEIGHT {
		for x := range DISPLAY_WIDTH {
			if dp.Pixel(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
