package main

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/ezrec/chip8vm/io"
)

const (
	HOLD_FRAMES = 6 // Frames a key stays down after its last repeat.

	keyEscape = 0x1b
	keyCtrlC  = 0x03
)

// keyMap places the hexadecimal keypad on the left of a QWERTY keyboard.
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  q w e r
//	7 8 9 E      a s d f
//	A 0 B F      z x c v
var keyMap = map[byte]int{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xc,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xd,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xe,
	'z': 0xa, 'x': 0x0, 'c': 0xb, 'v': 0xf,
}

// Keypad is the subset of the emulator the terminal drives.
type Keypad interface {
	SetKey(code int, pressed bool)
}

// TerminalHost renders the display on a raw mode terminal, and turns
// keystrokes into keypad edges. Terminals report no key releases, so a
// release is synthesized once a key has not repeated for HOLD_FRAMES.
type TerminalHost struct {
	fd       int
	oldState *term.State
	keys     chan byte
	stopCh   chan struct{}
	stopped  sync.Once
	out      *bufio.Writer

	held     [io.KEY_COUNT]int
	sounding bool
}

// NewTerminalHost creates a host on stdin and stdout.
func NewTerminalHost() *TerminalHost {
	return &TerminalHost{
		fd:     int(os.Stdin.Fd()),
		keys:   make(chan byte, 64),
		stopCh: make(chan struct{}),
		out:    bufio.NewWriter(os.Stdout),
	}
}

// Start puts the terminal in raw mode and begins reading keys.
func (h *TerminalHost) Start() (err error) {
	if !term.IsTerminal(h.fd) {
		err = fmt.Errorf("stdin is not a terminal")
		return
	}

	h.oldState, err = term.MakeRaw(h.fd)
	if err != nil {
		return
	}

	// Clear the screen and hide the cursor.
	fmt.Fprint(h.out, "\x1b[2J\x1b[?25l")
	err = h.out.Flush()
	if err != nil {
		return
	}

	go func() {
		buf := make([]byte, 16)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			for _, b := range buf[:n] {
				select {
				case h.keys <- b:
				case <-h.stopCh:
					return
				}
			}
		}
	}()

	return
}

// Stop restores the terminal.
func (h *TerminalHost) Stop() (err error) {
	h.stopped.Do(func() {
		close(h.stopCh)
	})

	if h.oldState == nil {
		return
	}

	fmt.Fprint(h.out, "\x1b[?25h\r\n")
	err = h.out.Flush()

	restore_err := term.Restore(h.fd, h.oldState)
	h.oldState = nil
	if err == nil {
		err = restore_err
	}

	return
}

// Poll drains pending keystrokes into the keypad, and releases keys that
// have not repeated. Returns true when the user asked to quit.
func (h *TerminalHost) Poll(keypad Keypad) (quit bool) {
	for code := range h.held {
		if h.held[code] == 0 {
			continue
		}
		h.held[code]--
		if h.held[code] == 0 {
			keypad.SetKey(code, false)
		}
	}

	for {
		select {
		case b := <-h.keys:
			if b == keyEscape || b == keyCtrlC {
				quit = true
				return
			}
			code, ok := keyMap[b|0x20]
			if !ok {
				continue
			}
			keypad.SetKey(code, true)
			h.held[code] = HOLD_FRAMES
		default:
			return
		}
	}
}

// halfBlock picks the glyph for a top and bottom pixel pair.
func halfBlock(top, bottom bool) string {
	switch {
	case top && bottom:
		return "█"
	case top:
		return "▀"
	case bottom:
		return "▄"
	}
	return " "
}

// Render redraws a changed display, two pixel rows per text line, and rings
// the bell as the sound timer starts.
func (h *TerminalHost) Render(display *io.Display, sound bool) (err error) {
	if sound && !h.sounding {
		fmt.Fprint(h.out, "\a")
	}
	h.sounding = sound

	if display.Dirty {
		display.Dirty = false

		fmt.Fprint(h.out, "\x1b[H")
		for y := 0; y < io.DISPLAY_HEIGHT; y += 2 {
			for x := range io.DISPLAY_WIDTH {
				fmt.Fprint(h.out, halfBlock(display.Pixel(x, y), display.Pixel(x, y+1)))
			}
			fmt.Fprint(h.out, "\r\n")
		}
	}

	err = h.out.Flush()

	return
}
