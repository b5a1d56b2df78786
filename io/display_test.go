package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlitAligned(t *testing.T) {
	assert := assert.New(t)

	fb := &Framebuffer{}
	collision := Blit(fb, []byte{0xff, 0x81}, 8, 1)
	assert.False(collision)
	assert.Equal(byte(0xff), fb[1*DISPLAY_STRIDE+1])
	assert.Equal(byte(0x81), fb[2*DISPLAY_STRIDE+1])
	assert.Equal(byte(0), fb[1*DISPLAY_STRIDE+2])
}

func TestBlitSplit(t *testing.T) {
	assert := assert.New(t)

	fb := &Framebuffer{}
	collision := Blit(fb, []byte{0xf0}, 6, 0)
	assert.False(collision)
	assert.Equal(byte(0x03), fb[0])
	assert.Equal(byte(0xc0), fb[1])
}

func TestBlitSelfErase(t *testing.T) {
	assert := assert.New(t)

	fb := &Framebuffer{}
	fb[10*DISPLAY_STRIDE+3] = 0x18
	before := *fb

	sprite := []byte{0xf0, 0x90, 0xf0}
	assert.False(Blit(fb, sprite, 27, 4))
	assert.NotEqual(before, *fb)
	assert.True(Blit(fb, sprite, 27, 4))
	assert.Equal(before, *fb)
}

func TestBlitCollision(t *testing.T) {
	assert := assert.New(t)

	fb := &Framebuffer{}
	fb[0] = 0x01

	// Turning a pixel on is not a collision.
	assert.False(Blit(fb, []byte{0x02}, 0, 0))
	// Turning one off is.
	assert.True(Blit(fb, []byte{0x01}, 0, 0))
	assert.Equal(byte(0x02), fb[0])
}

func TestBlitWrap(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		x, y  uint8
		index int
		value byte
	}){
		{"x_mod", 64 + 8, 0, 1, 0x80},
		{"y_mod", 0, 32 + 2, 2 * DISPLAY_STRIDE, 0x80},
		{"right_edge", 60, 0, 7, 0x08},
		{"bottom_edge", 0, 31, 31 * DISPLAY_STRIDE, 0x80},
	}

	for _, entry := range table {
		fb := &Framebuffer{}
		Blit(fb, []byte{0x80, 0x80}, entry.x, entry.y)
		assert.Equal(entry.value, fb[entry.index], entry.name)
	}

	// Bytes running off the right edge land in column 0 of the same row.
	fb := &Framebuffer{}
	Blit(fb, []byte{0xff}, 60, 0)
	assert.Equal(byte(0x0f), fb[7])
	assert.Equal(byte(0xf0), fb[0])

	// Rows running off the bottom land in row 0.
	fb = &Framebuffer{}
	Blit(fb, []byte{0x80, 0x40}, 0, 31)
	assert.Equal(byte(0x80), fb[31*DISPLAY_STRIDE])
	assert.Equal(byte(0x40), fb[0])
}

func TestDisplay(t *testing.T) {
	assert := assert.New(t)

	dp := &Display{}
	assert.False(dp.Draw([]byte{0x80}, 3, 2))
	assert.True(dp.Dirty)
	assert.True(dp.Pixel(3, 2))
	assert.False(dp.Pixel(4, 2))
	assert.False(dp.Pixel(-1, 0))
	assert.False(dp.Pixel(DISPLAY_WIDTH, 0))
	assert.Equal(DISPLAY_BYTES, len(dp.Bytes()))

	lines := dp.String()
	assert.Equal(DISPLAY_HEIGHT*(DISPLAY_WIDTH+1), len(lines))
	assert.Equal(byte('#'), lines[2*(DISPLAY_WIDTH+1)+3])

	dp.Dirty = false
	dp.Clear()
	assert.True(dp.Dirty)
	assert.Equal(Framebuffer{}, dp.Framebuffer)
}
