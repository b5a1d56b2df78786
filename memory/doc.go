// Package memory implements the 4 KiB address space of the virtual machine.
//
// The first 512 bytes are reserved for the interpreter and hold the built in
// hexadecimal font. Programs are loaded at PROGRAM_START.
package memory
