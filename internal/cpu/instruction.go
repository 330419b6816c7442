package cpu

import (
	"fmt"

	"github.com/nevisdale/micro6502/internal/bus"
)

// Instruction is a decoded instruction ready to execute. It is produced by
// Decoder.Decode and is meant to be executed once and dropped.
type Instruction struct {
	def    *Definition
	compat Compat

	PC          uint16 // address of the opcode byte
	Operand     uint16 // raw operand bytes
	Addr        uint16 // effective address, branch target for REL
	Value       uint8  // operand value for IMM and ACC
	PageCrossed bool
}

// Result tells the caller what executing an instruction cost and whether the
// program asked to stop.
type Result struct {
	Cycles uint8
	Halt   bool
}

func (in Instruction) Definition() *Definition {
	return in.def
}

func (in Instruction) Opcode() uint8 {
	return in.def.Opcode
}

func (in Instruction) Mnemonic() string {
	return in.def.Mnemonic
}

func (in Instruction) Mode() AddrMode {
	return in.def.Mode
}

// Size is the number of bytes the instruction occupies.
func (in Instruction) Size() uint16 {
	return 1 + in.def.Mode.OperandBytes()
}

// Execute runs the instruction semantics against regs and b.
func (in Instruction) Execute(regs *Registers, b bus.Bus) Result {
	x := execution{
		regs:   regs,
		bus:    b,
		in:     &in,
		cycles: in.def.Cycles,
	}
	in.def.operate(&x)
	return Result{Cycles: x.cycles, Halt: x.halt}
}

func (in Instruction) String() string {
	name := in.def.Mnemonic
	switch in.def.Mode {
	case AddrModeIMM:
		return fmt.Sprintf("%s #$%02X", name, in.Operand)
	case AddrModeZP:
		return fmt.Sprintf("%s $%02X", name, in.Operand)
	case AddrModeZPX:
		return fmt.Sprintf("%s $%02X,X", name, in.Operand)
	case AddrModeZPY:
		return fmt.Sprintf("%s $%02X,Y", name, in.Operand)
	case AddrModeABS:
		return fmt.Sprintf("%s $%04X", name, in.Operand)
	case AddrModeABSX:
		return fmt.Sprintf("%s $%04X,X", name, in.Operand)
	case AddrModeABSY:
		return fmt.Sprintf("%s $%04X,Y", name, in.Operand)
	case AddrModeIND:
		return fmt.Sprintf("%s ($%04X)", name, in.Operand)
	case AddrModeINDX:
		return fmt.Sprintf("%s ($%02X,X)", name, in.Operand)
	case AddrModeINDY:
		return fmt.Sprintf("%s ($%02X),Y", name, in.Operand)
	case AddrModeREL:
		return fmt.Sprintf("%s $%04X", name, in.Addr)
	case AddrModeACC:
		return name + " A"
	}
	return name
}
