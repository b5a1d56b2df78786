package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"
	"time"

	"github.com/ezrec/chip8vm/io"
	"github.com/ezrec/chip8vm/memory"
)

const (
	REGISTER_COUNT = 16    // v0 through vf
	REGISTER_FLAG  = 0xf   // vf
	INDEX_LIMIT    = 0xfff // Highest index that does not raise the add i overflow flag.
)

var _cpu_defines = map[string]string{
	"STACK_LIMIT":    fmt.Sprintf("%v", STACK_LIMIT),
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	"INDEX_LIMIT":    fmt.Sprintf("0x%x", INDEX_LIMIT),
}

// Random is the source of the rnd instruction.
// *math/rand/v2.Rand satisfies it.
type Random interface {
	Uint32() uint32
}

// Quirks selects between behaviours that differ across historical
// interpreters.
type Quirks struct {
	LoadStoreIndex bool // ld [i] / ld vx, [i] leave i past the last register.
}

// Cpu is the simulation context of the processor and the devices it drives.
type Cpu struct {
	Verbose bool   // Set to enable verbose logging.
	Quirks  Quirks // Interpreter compatibility options.
	Random  Random // Random byte source for rnd.

	Memory  *memory.Memory // Address space.
	Display *io.Display    // Framebuffer.
	Keypad  *io.Keypad     // Key state.
	Delay   io.Timer       // Delay timer.
	Sound   io.Timer       // Sound timer.

	Pc    uint16                // Program counter.
	I     uint16                // Index register.
	V     [REGISTER_COUNT]uint8 // Register bank.
	Stack Stack                 // Return stack.

	Parked bool // Waiting on a key for ld vx, k.
	Ticks  int  // Instructions executed since reset.

	wait Code // Instruction being re-evaluated while parked.
}

// NewCpu creates a new CPU with its own memory and devices, and a
// clock-seeded random source.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Memory:  memory.NewMemory(),
		Display: &io.Display{},
		Keypad:  &io.Keypad{},
	}

	seed := uint64(time.Now().UnixNano())
	cpu.Random = rand.New(rand.NewPCG(seed, seed>>32))

	cpu.Reset()

	return
}

// Seed replaces the random source with a deterministic one.
func (cpu *Cpu) Seed(seed uint64) {
	cpu.Random = rand.New(rand.NewPCG(seed, seed))
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("   pc: %03X\n", cpu.Pc)
	text += fmt.Sprintf("    i: %03X\n", cpu.I)
	for n := 0; n < REGISTER_COUNT; n += 4 {
		text += fmt.Sprintf("   v%X: %02X  v%X: %02X  v%X: %02X  v%X: %02X\n",
			n, cpu.V[n], n+1, cpu.V[n+1], n+2, cpu.V[n+2], n+3, cpu.V[n+3])
	}
	text += fmt.Sprintf("   dt: %02X  st: %02X\n", cpu.Delay.Value(), cpu.Sound.Value())

	top, ok := cpu.Stack.Peek()
	if ok {
		text += fmt.Sprintf("stack: %03X (%d)\n", top, cpu.Stack.Sp)
	} else {
		text += "stack: --- (0)\n"
	}

	if cpu.Parked {
		text += " wait: key\n"
	}

	return
}

// Reset the CPU state.
// - Clears the registers, stack, timers and keypad.
// - Blanks the display.
// - Zeros memory and reinstalls the font.
// - Points the program counter at the program start.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.V[:])
	cpu.I = 0
	cpu.Pc = memory.PROGRAM_START
	cpu.Stack.Reset()
	cpu.Delay.Reset()
	cpu.Sound.Reset()
	cpu.Memory.Reset()
	cpu.Display.Reset()
	cpu.Keypad.Reset()
	cpu.Parked = false
	cpu.Ticks = 0
	cpu.wait = 0
}

// SetKey records a keypad edge.
func (cpu *Cpu) SetKey(code int, pressed bool) {
	cpu.Keypad.SetKey(code, pressed)
}

// TickTimers decrements the delay and sound timers; call at 60Hz.
func (cpu *Cpu) TickTimers() {
	cpu.Delay.Tick()
	cpu.Sound.Tick()
}

// SoundActive is true while the sound timer is running.
func (cpu *Cpu) SoundActive() bool {
	return cpu.Sound.Active()
}

// FetchCode fetches the instruction at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	word, err := cpu.Memory.ReadWord(int(cpu.Pc))
	if err != nil {
		return
	}

	code = Code(word)
	return
}

// Tick executes a single instruction cycle. While parked on ld vx, k the
// parked instruction is re-evaluated instead of fetching.
func (cpu *Cpu) Tick() (err error) {
	var code Code

	if cpu.Parked {
		code = cpu.wait
	} else {
		code, err = cpu.FetchCode()
		if err != nil {
			err = &ErrFault{Pc: cpu.Pc, Err: err}
			return
		}
	}

	return cpu.Execute(code)
}

// Execute executes a single decoded instruction, as if located at the
// program counter. On failure the machine state is left at the faulting
// instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = &ErrFault{Pc: cpu.Pc, Code: code, Err: err}
		}
	}()

	if cpu.Verbose {
		log.Printf("%03x: %04x %v", cpu.Pc, uint16(code), code)
	}

	next_pc := cpu.Pc + 2

	x := code.X()
	y := code.Y()
	vx := cpu.V[x]
	vy := cpu.V[y]

	op := code.Op()
	switch op {
	case OP_SYS:
		// Machine code routines do not exist here.
		if cpu.Verbose {
			log.Printf("%03x: sys 0x%03x ignored", cpu.Pc, code.NNN())
		}
	case OP_CLS:
		cpu.Display.Clear()
	case OP_RET:
		addr, ok := cpu.Stack.Pop()
		if !ok {
			err = ErrStackUnderflow
			return
		}
		next_pc = addr
	case OP_JP:
		next_pc = code.NNN()
	case OP_CALL:
		if !cpu.Stack.Push(next_pc) {
			err = ErrStackOverflow
			return
		}
		next_pc = code.NNN()
	case OP_SE_IMM:
		if vx == code.NN() {
			next_pc += 2
		}
	case OP_SNE_IMM:
		if vx != code.NN() {
			next_pc += 2
		}
	case OP_SE_REG:
		if vx == vy {
			next_pc += 2
		}
	case OP_SNE_REG:
		if vx != vy {
			next_pc += 2
		}
	case OP_LD_IMM:
		cpu.V[x] = code.NN()
	case OP_ADD_IMM:
		cpu.V[x] = vx + code.NN()
	case OP_LD_REG, OP_OR, OP_AND, OP_XOR, OP_ADD_REG, OP_SUB, OP_SHR, OP_SUBN, OP_SHL:
		output, flag, flagged := doAlu(op, vx, vy)
		cpu.V[x] = output
		// The flag overwrites a result targeting vf.
		if flagged {
			cpu.V[REGISTER_FLAG] = flag
		}
	case OP_LD_I:
		cpu.I = code.NNN()
	case OP_JP_V0:
		target := code.NNN() + uint16(cpu.V[0])
		if target >= memory.SIZE {
			err = memory.ErrOutOfBounds{Address: int(target)}
			return
		}
		next_pc = target
	case OP_RND:
		cpu.V[x] = uint8(cpu.Random.Uint32()) & code.NN()
	case OP_DRW:
		var sprite []byte
		sprite, err = cpu.Memory.Slice(int(cpu.I), int(code.N()))
		if err != nil {
			return
		}
		cpu.V[REGISTER_FLAG] = bit(cpu.Display.Draw(sprite, vx, vy))
	case OP_SKP:
		if cpu.Keypad.Pressed(int(vx)) {
			next_pc += 2
		}
	case OP_SKNP:
		if !cpu.Keypad.Pressed(int(vx)) {
			next_pc += 2
		}
	case OP_LD_VX_DT:
		cpu.V[x] = cpu.Delay.Value()
	case OP_LD_VX_K:
		key, ok := cpu.Keypad.First()
		if !cpu.Parked || !ok {
			if cpu.Verbose && !cpu.Parked {
				log.Printf("%03x: await key", cpu.Pc)
			}
			cpu.Parked = true
			cpu.wait = code
			next_pc = cpu.Pc
			break
		}
		cpu.V[x] = uint8(key)
		cpu.Parked = false
		cpu.wait = 0
	case OP_LD_DT_VX:
		cpu.Delay.Set(vx)
	case OP_LD_ST_VX:
		cpu.Sound.Set(vx)
	case OP_ADD_I_VX:
		sum := cpu.I + uint16(vx)
		cpu.I = sum
		cpu.V[REGISTER_FLAG] = bit(sum > INDEX_LIMIT)
	case OP_LD_F_VX:
		cpu.I = memory.FONT_BASE + uint16(vx)*memory.GLYPH_BYTES
	case OP_LD_B_VX:
		var bcd []byte
		bcd, err = cpu.Memory.Slice(int(cpu.I), 3)
		if err != nil {
			return
		}
		bcd[0] = vx / 100
		bcd[1] = (vx / 10) % 10
		bcd[2] = vx % 10
	case OP_LD_MEM_VX:
		var data []byte
		data, err = cpu.Memory.Slice(int(cpu.I), x+1)
		if err != nil {
			return
		}
		copy(data, cpu.V[:x+1])
		if cpu.Quirks.LoadStoreIndex {
			cpu.I += uint16(x + 1)
		}
	case OP_LD_VX_MEM:
		var data []byte
		data, err = cpu.Memory.Slice(int(cpu.I), x+1)
		if err != nil {
			return
		}
		copy(cpu.V[:x+1], data)
		if cpu.Quirks.LoadStoreIndex {
			cpu.I += uint16(x + 1)
		}
	default:
		err = ErrOpcode{Pc: cpu.Pc, Code: code}
		return
	}

	cpu.Pc = next_pc
	cpu.Ticks++

	return
}
