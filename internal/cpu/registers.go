package cpu

import (
	"fmt"

	"github.com/nevisdale/micro6502/internal/bus"
)

const (
	// The stack is located in the fixed memory page $0100 to $01FF.
	stackStartAddr = uint16(0x100)
)

// Flags is the processor status register.
type Flags uint8

const (
	FlagC Flags = 1 << iota // Carry
	FlagZ                   // Zero
	FlagI                   // Interrupt Disable
	FlagD                   // Decimal Mode
	FlagB                   // Break marker, only meaningful in a pushed copy
	FlagU                   // Unused
	FlagV                   // Overflow
	FlagN                   // Negative
)

// Has reports whether every bit of flag is set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f *Flags) Set(flag Flags, v bool) {
	if v {
		*f |= flag
		return
	}
	*f &^= flag
}

// String renders the flags from bit 7 to bit 0 in NV-BDIZC order, a letter
// for a set bit and a dot for a clear one. Bit 5 is always "-". For
// example "N.-...ZC".
func (f Flags) String() string {
	const letters = "NV-BDIZC"
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		if i == 2 || f&(1<<(7-i)) != 0 {
			out[i] = letters[i]
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// Registers is the whole programmer visible state of the CPU.
// All 8-bit fields wrap modulo 256 and PC wraps modulo 65536.
type Registers struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16
	P  Flags
}

// NewRegisters returns the power-on state: an empty stack and
// everything else zeroed.
func NewRegisters() Registers {
	return Registers{SP: 0xff}
}

func (r Registers) Flag(flag Flags) bool {
	return r.P.Has(flag)
}

func (r *Registers) SetFlag(flag Flags, v bool) {
	r.P.Set(flag, v)
}

// SetZN derives Zero and Negative from an 8-bit result.
func (r *Registers) SetZN(value uint8) {
	r.P.Set(FlagZ, value == 0)
	r.P.Set(FlagN, value&0x80 != 0)
}

// Push8 writes to $0100+SP and then decrements SP, wrapping inside the page.
func (r *Registers) Push8(b bus.Bus, data uint8) {
	b.Write8(stackStartAddr|uint16(r.SP), data)
	r.SP--
}

// Pull8 increments SP first and then reads from $0100+SP.
func (r *Registers) Pull8(b bus.Bus) uint8 {
	r.SP++
	return b.Read8(stackStartAddr | uint16(r.SP))
}

// Push16 pushes the high byte first so the word sits little-endian in memory.
func (r *Registers) Push16(b bus.Bus, data uint16) {
	r.Push8(b, uint8(data>>8))
	r.Push8(b, uint8(data))
}

func (r *Registers) Pull16(b bus.Bus) uint16 {
	lo := uint16(r.Pull8(b))
	hi := uint16(r.Pull8(b))
	return lo | hi<<8
}

func (r Registers) String() string {
	return fmt.Sprintf("PC=$%04X A=$%02X X=$%02X Y=$%02X SP=$%02X P=$%02X [%s]",
		r.PC, r.A, r.X, r.Y, r.SP, uint8(r.P), r.P)
}
