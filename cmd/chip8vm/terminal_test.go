package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8vm/io"
)

func testHost() (h *TerminalHost, out *bytes.Buffer) {
	out = &bytes.Buffer{}
	h = &TerminalHost{
		keys:   make(chan byte, 16),
		stopCh: make(chan struct{}),
		out:    bufio.NewWriter(out),
	}
	return
}

func TestTerminalPoll(t *testing.T) {
	assert := assert.New(t)

	h, _ := testHost()
	keypad := &io.Keypad{}

	h.keys <- 'w'
	h.keys <- 'V'
	h.keys <- '?'
	assert.False(h.Poll(keypad))
	assert.True(keypad.Pressed(0x5))
	assert.True(keypad.Pressed(0xf))
	assert.Equal(2, func() (n int) {
		for _, down := range keypad.Key {
			if down {
				n++
			}
		}
		return
	}())

	// Repeats keep the key down.
	for range HOLD_FRAMES {
		h.keys <- 'w'
		assert.False(h.Poll(keypad))
	}
	assert.False(keypad.Pressed(0xf))
	assert.True(keypad.Pressed(0x5))

	for range HOLD_FRAMES {
		assert.False(h.Poll(keypad))
	}
	assert.False(keypad.Pressed(0x5))

	h.keys <- keyEscape
	assert.True(h.Poll(keypad))
}

func TestTerminalRender(t *testing.T) {
	assert := assert.New(t)

	h, out := testHost()

	display := &io.Display{}
	display.Draw([]byte{0x80, 0xc0, 0x40}, 0, 0)

	assert.NoError(h.Render(display, false))
	assert.False(display.Dirty)

	lines := strings.Split(strings.TrimPrefix(out.String(), "\x1b[H"), "\r\n")
	assert.Equal(io.DISPLAY_HEIGHT/2+1, len(lines))
	assert.True(strings.HasPrefix(lines[0], "█▄ "))
	assert.True(strings.HasPrefix(lines[1], " ▀ "))

	// No redraw without a change, and the bell rings once.
	out.Reset()
	assert.NoError(h.Render(display, true))
	assert.NoError(h.Render(display, true))
	assert.Equal("\a", out.String())
}

func TestHalfBlock(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(" ", halfBlock(false, false))
	assert.Equal("▀", halfBlock(true, false))
	assert.Equal("▄", halfBlock(false, true))
	assert.Equal("█", halfBlock(true, true))
}
