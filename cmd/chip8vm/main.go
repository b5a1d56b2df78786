// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ezrec/chip8vm/cpu"
	"github.com/ezrec/chip8vm/emulator"
)

var errQuit = errors.New("quit")

func main() {
	var compile string
	var output string
	var disassemble bool
	var hz int
	var ticks int
	var seed uint64
	var quirkIndex bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&output, "o", "", "Write the ROM image, do not execute")
	flag.BoolVar(&disassemble, "d", false, "Disassemble the ROM image, do not execute")
	flag.IntVar(&hz, "hz", emulator.CPU_HZ, "Instructions per second")
	flag.IntVar(&ticks, "n", 0, "Run N instructions without a terminal, then dump state")
	flag.Uint64Var(&seed, "seed", 0, "Random seed (0 seeds from the clock)")
	flag.BoolVar(&quirkIndex, "quirk-index", false, "ld [i] / ld vx, [i] advance i")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Quirks.LoadStoreIndex = quirkIndex
	if seed != 0 {
		emu.Seed(seed)
	}

	switch {
	case len(compile) != 0:
		if flag.NArg() != 0 {
			log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
		}
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		err = emu.Assemble(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	case flag.NArg() == 1:
		rom := flag.Arg(0)
		err := emu.Rom.Open(os.DirFS(filepath.Dir(rom)), filepath.Base(rom))
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
		err = emu.Load(emu.Rom.Data)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
	default:
		log.Fatalf("%v: A ROM image, or -c source, is required", os.Args[0])
	}

	if len(output) != 0 {
		err := os.WriteFile(output, emu.Rom.Data, 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	if disassemble {
		for address, code := range cpu.Disassemble(emu.Rom.Data) {
			fmt.Printf("%03x: %04x  %v\n", address, uint16(code), code)
		}
		return
	}

	if ticks > 0 {
		err := runHeadless(emu, ticks, hz)
		fmt.Print(emu.Cpu.String())
		fmt.Print(emu.Cpu.Display.String())
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	err := runTerminal(emu, hz)
	if err != nil {
		log.Fatal(err)
	}
}

// runHeadless runs a fixed number of instructions, ticking the timers at
// the rate they would see in real time.
func runHeadless(emu *emulator.Emulator, ticks int, hz int) (err error) {
	per_frame := max(1, hz/emulator.TIMER_HZ)
	for ticks > 0 {
		count := min(ticks, per_frame)
		err = emu.Frame(count)
		if err != nil {
			return
		}
		ticks -= count
	}

	return
}

// runTerminal runs interactively until escape, interrupt or a fault.
func runTerminal(emu *emulator.Emulator, hz int) (err error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	host := NewTerminalHost()
	err = host.Start()
	if err != nil {
		err = errors.Join(err, host.Stop())
		return
	}

	err = emu.Run(ctx, hz, func() error {
		if host.Poll(emu) {
			return errQuit
		}
		return host.Render(emu.Cpu.Display, emu.SoundActive())
	})
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		err = nil
	}

	err = errors.Join(err, host.Stop())

	return
}
