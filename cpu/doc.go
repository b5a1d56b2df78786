// Package cpu implements the processor and assembler for the chip8vm system.
//
// The processor has sixteen 8-bit registers (v0-vf), a 16-bit index register
// (i), a 12-bit program counter and a sixteen entry return stack. Register vf
// doubles as the flag register for carry, borrow, shift-out, sprite collision
// results.
//
// Instructions are 16-bit big-endian words. Every word is decoded through a
// single flat table into a CodeOp, and executed by Tick one per call.
//
// The assembler provides a small macro assembly language for the instruction
// set, supporting labels, equates, macros, data directives and compile-time
// expression evaluation.
package cpu
