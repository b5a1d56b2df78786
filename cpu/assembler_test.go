package cpu

import (
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("0x200", asm.Equate["PROGRAM_START"])
	assert.Equal("0x0", asm.Equate["FONT_BASE"])
	assert.Equal("5", asm.Equate["GLYPH_BYTES"])
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	table := []struct {
		line string
		code Code
	}{
		{"cls", 0x00e0},
		{"ret", 0x00ee},
		{"sys 0x123", 0x0123},
		{"jp 0x234", 0x1234},
		{"call 0x456", 0x2456},
		{"se v1, 0x42", 0x3142},
		{"sne v1, 66", 0x4142},
		{"se v1, v2", 0x5120},
		{"sne v1 v2", 0x9120},
		{"ld v3, 0xff", 0x63ff},
		{"ld v3, v4", 0x8340},
		{"add v3, 1", 0x7301},
		{"add v3, -1", 0x73ff},
		{"add v3, v4", 0x8344},
		{"or v1, v2", 0x8121},
		{"and v1, v2", 0x8122},
		{"xor v1, v2", 0x8123},
		{"sub v1, v2", 0x8125},
		{"shr v1", 0x8116},
		{"shr v1, v2", 0x8126},
		{"subn v1, v2", 0x8127},
		{"shl v1, v2", 0x812e},
		{"ld i, 0x300", 0xa300},
		{"jp v0, 0x300", 0xb300},
		{"rnd v5, 0x0f", 0xc50f},
		{"drw v1, v2, 5", 0xd125},
		{"skp v7", 0xe79e},
		{"sknp v7", 0xe7a1},
		{"ld v7, dt", 0xf707},
		{"ld v7, k", 0xf70a},
		{"ld dt, v7", 0xf715},
		{"ld st, v7", 0xf718},
		{"add i, v7", 0xf71e},
		{"ld f, v7", 0xf729},
		{"ld b, v7", 0xf733},
		{"ld [i], v7", 0xf755},
		{"ld v7, [i]", 0xf765},
		{"LD VA, 'A'", 0x6a41},
		{"ld vf, ~0x0f", 0x6ff0},
		{"ld v0, $(3 * 7)  ; comment", 0x6015},
	}

	for _, entry := range table {
		prog, err := asm.Parse(strings.NewReader(entry.line))
		if !assert.NoError(err, entry.line) {
			continue
		}
		if assert.Equal(1, len(prog.Opcodes), entry.line) {
			op := prog.Opcodes[0]
			assert.Equal(0x200, op.Address, entry.line)
			assert.Equal([]Code{entry.code}, op.Codes, entry.line)
		}
	}
}

func TestAssemblerDisassembly(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Disassembled text assembles back to the same word.
	for word := 0; word < 0x10000; word += 7 {
		code := Code(word)
		if code.Op() == OP_UNKNOWN {
			continue
		}
		text := code.String()
		prog, err := asm.Parse(strings.NewReader(text))
		if !assert.NoError(err, text) {
			break
		}
		if !assert.Equal([]Code{code}, prog.Opcodes[0].Codes, text) {
			break
		}
	}
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SPEED", "3")

	program := []string{
		".equ COUNT 10",
		"ld v0, COUNT",
		"ld v1, $(COUNT * 2)",
		".equ KEY v5",
		"ld KEY, SPEED",
		"ld v2, $(LINENO)",
		"data: .byte 1, 2",
		"ld i, $(data + 1)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	codes := []Code{}
	for _, code := range prog.Codes() {
		codes = append(codes, code)
	}
	assert.Equal([]Code{0x600a, 0x6114, 0x6503, 0x6206, 0xa209}, codes)
	assert.Equal(0x208, asm.Label["data"])
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".macro SETADD rn a b",
		"ld rn, a",
		"add rn, b",
		".endm",
		"SETADD v0 8 8",
		".macro WAIT reg",
		"@loop: sknp reg",
		"jp @loop",
		".endm",
		"WAIT v3",
		"WAIT v4",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		log.Fatal(err)
	}

	expected := []Opcode{
		{LineNo: 2, Address: 0x200, Words: []string{"ld", "v0", "8"}, Codes: []Code{0x6008}},
		{LineNo: 3, Address: 0x202, Words: []string{"add", "v0", "8"}, Codes: []Code{0x7008}},
		{LineNo: 7, Address: 0x204, Words: []string{"sknp", "v3"}, Codes: []Code{0xe3a1}},
		{LineNo: 8, Address: 0x206, Words: []string{"jp", "WAIT_2_loop"}, Codes: []Code{0x1204}, LinkLabel: "WAIT_2_loop"},
		{LineNo: 7, Address: 0x208, Words: []string{"sknp", "v4"}, Codes: []Code{0xe4a1}},
		{LineNo: 8, Address: 0x20a, Words: []string{"jp", "WAIT_3_loop"}, Codes: []Code{0x1208}, LinkLabel: "WAIT_3_loop"},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerNestedMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".macro INC reg",
		"add reg, 1",
		".endm",
		".macro INC2 reg",
		"INC reg",
		"INC reg",
		".endm",
		"INC2 va",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	assert.Equal([]byte{0x7a, 0x01, 0x7a, 0x01}, prog.Binary())
	_, leaked := asm.Equate["reg"]
	assert.False(leaked)
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"start:",
		"  ld v0, 0",
		"loop: add v0, 1",
		"  se v0, 10",
		"  jp loop",
		"  call sub",
		"  jp start",
		"sub: ALSO: ret",
		"",
		"sprite: .byte 0x80, 0x40",
		"  ld i, sprite",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(9, len(prog.Opcodes))
	assert.Equal(0x200, asm.Label["start"])
	assert.Equal(0x20c, asm.Label["sub"])
	assert.Equal(0x20c, asm.Label["ALSO"])
	assert.Equal(0x20e, asm.Label["sprite"])

	assert.Equal([]byte{
		0x60, 0x00,
		0x70, 0x01,
		0x30, 0x0a,
		0x12, 0x02,
		0x22, 0x0c,
		0x12, 0x00,
		0x00, 0xee,
		0x80, 0x40,
		0xa2, 0x0e,
	}, prog.Binary())

	dbg := prog.Debug(0x20a)
	if assert.NotNil(dbg.Opcode) {
		assert.Equal(7, dbg.LineNo)
	}
}

func TestAssemblerOrg(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"jp main",
		".org 0x208",
		"main: cls",
		".word 0x1208, 0xffff",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	assert.Equal([]byte{
		0x12, 0x08,
		0, 0, 0, 0, 0, 0,
		0x00, 0xe0,
		0x12, 0x08,
		0xff, 0xff,
	}, prog.Binary())
}

func TestAssemblerReuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader(".equ A 1\nlabel: ld v0, A\n"))
	assert.NoError(err)

	prog, err := asm.Parse(strings.NewReader(".equ A 2\nlabel: ld v0, A\n"))
	assert.NoError(err)
	assert.Equal([]byte{0x60, 0x02}, prog.Binary())
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
	}){
		{"DUP:\nDUP:\n", 2},
		{"ld v0, nothing", 1},
		{"ld v0, $(\"aaa\")", 1},
		{"ld v0, $(more(\"aaa\"))", 1},
		{"ld v0, $(0x10000000000000000)", 1},
		{"ld v0, 0x100", 1},
		{".equ", 1},
		{".equ A", 1},
		{".equ A 1\n.equ A 2\n", 2},
		{".macro A B C\n.endm\nA 1\n", 3},
		{".macro A B C\nB C\n.endm\nA skp v1\nA invalid word\n", 5},
		{".macro A B\n.macro C\n.endm\n.endm", 2},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3},
		{".macro A B\n.endm\n.endm\n", 3},
		{".macro A\ncls\n", 2},
		{".macro\n", 1},
		{".org\n", 1},
		{".org 0x100\n", 1},
		{".org 0x300\n.org 0x280\n", 2},
		{".org 0xfff\n.word 0x1234\n", 2},
		{".byte\n", 1},
		{".byte 256\n", 1},
		{".word 0x10000\n", 1},
		{"cls v0", 1},
		{"ret 1", 1},
		{"jp", 1},
		{"jp 0x1000", 1},
		{"jp 1 2 3", 1},
		{"jp v1, 0x200", 1},
		{"jp v0", 1},
		{"cls\njp nowhere", 2},
		{"se v0", 1},
		{"se 1, 2", 1},
		{"se v0, 256", 1},
		{"ld", 1},
		{"ld x, v0", 1},
		{"ld dt, 5", 1},
		{"ld v0, v1, v2", 1},
		{"add v0", 1},
		{"add i, 5", 1},
		{"add x, 1", 1},
		{"or v0, 1", 1},
		{"shr", 1},
		{"rnd v0", 1},
		{"rnd 1, 2", 1},
		{"drw v0, v1", 1},
		{"drw v0, v1, 16", 1},
		{"drw v0, 1, 2", 1},
		{"skp", 1},
		{"skp 1", 1},
		{"bogus", 1},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
		}
	}
}

func TestAssemblerErrKinds(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader("jp missing"))
	var missing ErrLabelMissing
	if assert.True(errors.As(err, &missing)) {
		assert.Equal(ErrLabelMissing("missing"), missing)
	}

	_, err = asm.Parse(strings.NewReader("drw v0, v1, 16"))
	var vr ErrValueRange
	if assert.True(errors.As(err, &vr)) {
		assert.Equal(4, vr.Bits)
	}

	_, err = asm.Parse(strings.NewReader(".org 0xfff\ncls\n"))
	assert.True(errors.Is(err, ErrProgramSize))

	_, err = asm.Parse(strings.NewReader("bogus"))
	assert.True(errors.Is(err, ErrInstructionInvalid))
}
