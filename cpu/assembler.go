// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/chip8vm/memory"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":        "0",
	"PROGRAM_START": fmt.Sprintf("%#x", memory.PROGRAM_START),
	"FONT_BASE":     fmt.Sprintf("%#x", memory.FONT_BASE),
	"GLYPH_BYTES":   fmt.Sprintf("%v", memory.GLYPH_BYTES),
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// Assembler is a single pass macro assembler for the chip8vm system.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	address    int // Address of the next generated opcode.
	expansions int // Count of macro expansions, for @ local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber("~")
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	value, err = strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if invert {
		value = ^value
	}

	return
}

// field parses a word into an unsigned field of the given width. Negative
// values are accepted as two's complement.
func (asm *Assembler) field(word string, width int) (value uint16, err error) {
	v64, err := asm.valueOf(word)
	if err != nil {
		return
	}

	limit := int64(1) << width
	if v64 >= limit || v64 < -(limit/2) {
		err = ErrValueRange{Word: word, Bits: width}
		return
	}

	value = uint16(v64) & uint16(limit-1)
	return
}

// register parses a register name, v0 through vf.
func register(word string) (reg uint16, ok bool) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		return
	}
	n, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}
	return uint16(n), true
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v64 int64
		v64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, address := range asm.Label {
		if _, ok := pred[key]; !ok {
			pred[key] = starlark.MakeInt(address)
		}
	}
	err = nil

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// splitWords splits a line on blanks and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.address
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.address = memory.PROGRAM_START
	asm.expansions = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		line = strings.Join(op.Words, " ")
		lineno = op.LineNo

		label := op.LinkLabel
		address, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if address >= memory.SIZE {
			err = ErrValueRange{Word: label, Bits: 12}
			return
		}
		linked := &op.Codes[len(op.Codes)-1]
		*linked |= Code(address)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// addressOf parses a 12-bit address operand, or names a label to link.
func (asm *Assembler) addressOf(word string) (address uint16, label string, err error) {
	address, err = asm.field(word, 12)
	if err == nil {
		return
	}

	if _, is_number := err.(ErrParseNumber); is_number && reLabel.MatchString(word) {
		if _, is_reg := register(word); !is_reg {
			err = nil
			label = word
			return
		}
	}

	return
}

// registers parses a list of register operands.
func registers(words []string) (regs []uint16, err error) {
	for _, word := range words {
		reg, ok := register(word)
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		regs = append(regs, reg)
	}
	return
}

// aluMap maps the two register ALU mnemonics.
var aluMap = map[string]CodeOp{
	"or":   OP_OR,
	"and":  OP_AND,
	"xor":  OP_XOR,
	"sub":  OP_SUB,
	"subn": OP_SUBN,
}

// ldMap maps the 'ld TARGET vx' forms.
var ldMap = map[string]CodeOp{
	"dt":  OP_LD_DT_VX,
	"st":  OP_LD_ST_VX,
	"f":   OP_LD_F_VX,
	"b":   OP_LD_B_VX,
	"[i]": OP_LD_MEM_VX,
}

// ldSourceMap maps the 'ld vx SOURCE' forms.
var ldSourceMap = map[string]CodeOp{
	"dt":  OP_LD_VX_DT,
	"k":   OP_LD_VX_K,
	"[i]": OP_LD_VX_MEM,
}

// argCount checks the operand count of an instruction.
func argCount(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || (len(codes) == 0 && len(data) == 0) {
			return
		}
		opcode := Opcode{LineNo: lineno, Address: asm.address, Words: initial_words, Codes: codes, Bytes: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
		asm.address += opcode.Size()
		if asm.address > memory.SIZE {
			err = ErrProgramSize
		}
	}()

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	switch mnemonic {
	case ".org":
		if len(args) != 1 {
			err = ErrOrgSyntax
			return
		}
		var address uint16
		address, err = asm.field(args[0], 12)
		if err != nil {
			return
		}
		if int(address) < asm.address {
			err = ErrOrgBackwards
			return
		}
		asm.address = int(address)
	case ".byte":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			var value uint16
			value, err = asm.field(arg, 8)
			if err != nil {
				return
			}
			data = append(data, byte(value))
		}
	case ".word":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			var value uint16
			value, err = asm.field(arg, 16)
			if err != nil {
				return
			}
			codes = append(codes, Code(value))
		}
	case "cls", "ret":
		err = argCount(args, 0)
		if err != nil {
			return
		}
		op := OP_CLS
		if mnemonic == "ret" {
			op = OP_RET
		}
		codes = append(codes, MakeCode(op))
	case "sys", "call", "jp":
		op := map[string]CodeOp{"sys": OP_SYS, "call": OP_CALL, "jp": OP_JP}[mnemonic]
		if op == OP_JP && len(args) == 2 {
			if reg, ok := register(args[0]); !ok || reg != 0 {
				err = ErrRegisterInvalid
				return
			}
			op = OP_JP_V0
			args = args[1:]
		}
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var address uint16
		address, label, err = asm.addressOf(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(op, address))
	case "se", "sne":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		x, ok := register(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		if y, ok := register(args[1]); ok {
			op := OP_SE_REG
			if mnemonic == "sne" {
				op = OP_SNE_REG
			}
			codes = append(codes, MakeCode(op, x, y))
			break
		}
		var nn uint16
		nn, err = asm.field(args[1], 8)
		if err != nil {
			return
		}
		op := OP_SE_IMM
		if mnemonic == "sne" {
			op = OP_SNE_IMM
		}
		codes = append(codes, MakeCode(op, x, nn))
	case "ld":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		dst := strings.ToLower(args[0])
		src := strings.ToLower(args[1])
		if dst == "i" {
			var address uint16
			address, label, err = asm.addressOf(args[1])
			if err != nil {
				return
			}
			codes = append(codes, MakeCode(OP_LD_I, address))
			break
		}
		if op, ok := ldMap[dst]; ok {
			x, ok := register(src)
			if !ok {
				err = ErrRegisterInvalid
				return
			}
			codes = append(codes, MakeCode(op, x))
			break
		}
		x, ok := register(dst)
		if !ok {
			err = ErrTargetInvalid
			return
		}
		if op, ok := ldSourceMap[src]; ok {
			codes = append(codes, MakeCode(op, x))
			break
		}
		if y, ok := register(src); ok {
			codes = append(codes, MakeCode(OP_LD_REG, x, y))
			break
		}
		var nn uint16
		nn, err = asm.field(args[1], 8)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_LD_IMM, x, nn))
	case "add":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		if strings.ToLower(args[0]) == "i" {
			x, ok := register(args[1])
			if !ok {
				err = ErrRegisterInvalid
				return
			}
			codes = append(codes, MakeCode(OP_ADD_I_VX, x))
			break
		}
		x, ok := register(args[0])
		if !ok {
			err = ErrTargetInvalid
			return
		}
		if y, ok := register(args[1]); ok {
			codes = append(codes, MakeCode(OP_ADD_REG, x, y))
			break
		}
		var nn uint16
		nn, err = asm.field(args[1], 8)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_ADD_IMM, x, nn))
	case "or", "and", "xor", "sub", "subn":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		var regs []uint16
		regs, err = registers(args)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(aluMap[mnemonic], regs...))
	case "shr", "shl":
		// The second register is optional, and only recorded.
		if len(args) == 1 {
			args = append(args, args[0])
		}
		err = argCount(args, 2)
		if err != nil {
			return
		}
		var regs []uint16
		regs, err = registers(args)
		if err != nil {
			return
		}
		op := OP_SHR
		if mnemonic == "shl" {
			op = OP_SHL
		}
		codes = append(codes, MakeCode(op, regs...))
	case "rnd":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		x, ok := register(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		var nn uint16
		nn, err = asm.field(args[1], 8)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_RND, x, nn))
	case "drw":
		err = argCount(args, 3)
		if err != nil {
			return
		}
		var regs []uint16
		regs, err = registers(args[:2])
		if err != nil {
			return
		}
		var n uint16
		n, err = asm.field(args[2], 4)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_DRW, regs[0], regs[1], n))
	case "skp", "sknp":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		x, ok := register(args[0])
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		op := OP_SKP
		if mnemonic == "sknp" {
			op = OP_SKNP
		}
		codes = append(codes, MakeCode(op, x))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
