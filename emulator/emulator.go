// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"fmt"
	goio "io"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/chip8vm/cpu"
	"github.com/ezrec/chip8vm/internal"
	"github.com/ezrec/chip8vm/io"
)

const (
	CPU_HZ   = 500 // Default instruction rate.
	TIMER_HZ = 60  // Timer and frame rate.
)

var _emulator_defines = map[string]string{
	"CPU_HZ":   fmt.Sprintf("%v", CPU_HZ),
	"TIMER_HZ": fmt.Sprintf("%v", TIMER_HZ),
}

// Emulator state. CPU + devices + the loaded program.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing of the loaded program, if assembled.
	Rom      io.Rom       // Image installed on every reset.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Cpu.Memory.Defines(),
		emu.Cpu.Display.Defines(),
		emu.Cpu.Keypad.Defines(),
	)
}

// Assemble parses source text, loads the resulting image, and keeps the
// listing for line number lookups.
func (emu *Emulator) Assemble(input goio.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	err = emu.Load(prog.Binary())
	if err != nil {
		return
	}

	emu.Program = prog

	return
}

// Load installs a raw ROM image and resets the machine.
func (emu *Emulator) Load(rom []byte) (err error) {
	image := io.Rom{Data: rom}
	err = image.Validate()
	if err != nil {
		return
	}

	emu.Rom = image
	emu.Program = &cpu.Program{}

	err = emu.Reset()

	return
}

// Reset the machine state, and reinstall the ROM image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	if len(emu.Rom.Data) == 0 {
		return
	}

	err = emu.Rom.Install(emu.Cpu.Memory)

	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Code returns the instruction at the program counter.
func (emu *Emulator) Code() cpu.Code {
	code, _ := emu.Cpu.FetchCode()
	return code
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()

	return
}

// Frame runs one timer period: count instructions followed by a single
// timer tick.
func (emu *Emulator) Frame(count int) (err error) {
	for range count {
		err = emu.Tick()
		if err != nil {
			return
		}
	}

	emu.Cpu.TickTimers()

	return
}

// Run executes at hz instructions per second until the context is done or
// the machine faults. The frame callback runs after every timer tick, and
// may stop the run by returning an error.
func (emu *Emulator) Run(ctx context.Context, hz int, frame func() error) (err error) {
	if hz <= 0 {
		hz = CPU_HZ
	}

	ticker := time.NewTicker(time.Second / TIMER_HZ)
	defer ticker.Stop()

	if emu.Verbose {
		log.Printf("emulator: run at %v Hz", hz)
	}

	// Carry the remainder so that the long run rate is exactly hz.
	var owed int
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-ticker.C:
		}

		owed += hz
		count := owed / TIMER_HZ
		owed %= TIMER_HZ

		err = emu.Frame(count)
		if err != nil {
			return
		}

		if frame != nil {
			err = frame()
			if err != nil {
				return
			}
		}
	}
}
