package cpu

import (
	"fmt"

	"github.com/nevisdale/micro6502/internal/bus"
)

// Compat selects bit-exact NMOS behaviours that a program may or may not
// rely on.
type Compat uint8

const (
	// CompatJumpBug reproduces the JMP ($xxFF) defect: the high byte of the
	// pointer is read from the start of the same page.
	CompatJumpBug Compat = 1 << iota

	// CompatDecimal enables BCD arithmetic in ADC and SBC while the D flag
	// is set. Without it D is still a plain status bit and ADC/SBC stay
	// binary, like on the NES 2A03.
	CompatDecimal
)

// NMOS is the behaviour of the original MOS 6502.
const NMOS = CompatJumpBug | CompatDecimal

// UndefinedOpcodeError is returned for an opcode byte without a registry
// entry. It is fatal for the run.
type UndefinedOpcodeError struct {
	Opcode uint8
	Addr   uint16
}

func (e *UndefinedOpcodeError) Error() string {
	return fmt.Sprintf("undefined opcode $%02X at $%04X", e.Opcode, e.Addr)
}

// Decoder turns the bytes at PC into resolved instructions.
type Decoder struct {
	bus      bus.Bus
	registry *Registry
	compat   Compat
}

func NewDecoder(b bus.Bus, registry *Registry, compat Compat) *Decoder {
	return &Decoder{
		bus:      b,
		registry: registry,
		compat:   compat,
	}
}

func (d *Decoder) read16(addr uint16) uint16 {
	return bus.Read16(d.bus, addr)
}

// Decode reads the instruction at regs.PC, resolves its addressing mode and
// moves PC past the opcode and operand bytes. Branch targets are resolved
// here but PC only moves to them when the branch executes.
//
// On an undefined opcode nothing in regs is changed.
func (d *Decoder) Decode(regs *Registers) (Instruction, error) {
	pc := regs.PC
	opcode := d.bus.Read8(pc)
	def, ok := d.registry.Lookup(opcode)
	if !ok {
		return Instruction{}, &UndefinedOpcodeError{Opcode: opcode, Addr: pc}
	}

	in := Instruction{
		def:    def,
		PC:     pc,
		compat: d.compat,
	}
	next := pc + 1

	switch def.Mode {
	case AddrModeIMP:

	case AddrModeACC:
		in.Value = regs.A

	case AddrModeIMM:
		in.Addr = next
		in.Value = d.bus.Read8(next)
		in.Operand = uint16(in.Value)

	case AddrModeZP:
		in.Operand = uint16(d.bus.Read8(next))
		in.Addr = in.Operand

	case AddrModeZPX:
		zp := d.bus.Read8(next)
		in.Operand = uint16(zp)
		in.Addr = uint16(zp + regs.X)

	case AddrModeZPY:
		zp := d.bus.Read8(next)
		in.Operand = uint16(zp)
		in.Addr = uint16(zp + regs.Y)

	case AddrModeABS:
		in.Operand = d.read16(next)
		in.Addr = in.Operand

	case AddrModeABSX:
		in.Operand = d.read16(next)
		in.Addr = in.Operand + uint16(regs.X)
		in.PageCrossed = isDiffPage(in.Operand, in.Addr)

	case AddrModeABSY:
		in.Operand = d.read16(next)
		in.Addr = in.Operand + uint16(regs.Y)
		in.PageCrossed = isDiffPage(in.Operand, in.Addr)

	case AddrModeIND:
		ptr := d.read16(next)
		in.Operand = ptr
		hi := ptr + 1
		if d.compat&CompatJumpBug != 0 && ptr&0xff == 0xff {
			hi = ptr & 0xff00
		}
		in.Addr = uint16(d.bus.Read8(ptr)) | uint16(d.bus.Read8(hi))<<8

	case AddrModeINDX:
		zp := d.bus.Read8(next)
		in.Operand = uint16(zp)
		ptr := zp + regs.X
		lo := uint16(d.bus.Read8(uint16(ptr)))
		hi := uint16(d.bus.Read8(uint16(ptr + 1)))
		in.Addr = lo | hi<<8

	case AddrModeINDY:
		zp := d.bus.Read8(next)
		in.Operand = uint16(zp)
		lo := uint16(d.bus.Read8(uint16(zp)))
		hi := uint16(d.bus.Read8(uint16(zp + 1)))
		base := lo | hi<<8
		in.Addr = base + uint16(regs.Y)
		in.PageCrossed = isDiffPage(base, in.Addr)

	case AddrModeREL:
		offset := d.bus.Read8(next)
		in.Operand = uint16(offset)
		after := next + 1
		in.Addr = after + uint16(int16(int8(offset)))
	}

	regs.PC = next + def.Mode.OperandBytes()
	return in, nil
}
