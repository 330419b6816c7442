package emulator

import (
	"log"

	"github.com/nevisdale/micro6502/internal/cpu"
)

// Config holds everything the engine needs besides the bus.
type Config struct {
	// Registers is the initial register file. PC is only used when
	// EntryFromRegisters is set, otherwise it comes from the reset vector.
	Registers          cpu.Registers
	EntryFromRegisters bool

	Compat cpu.Compat

	// MaxSteps stops Run with ErrStepLimit after that many instructions.
	// Zero means no limit.
	MaxSteps uint64

	// Logger receives fatal conditions and, with Trace, one line per
	// executed instruction. Nil discards everything.
	Logger *log.Logger
	Trace  bool

	// OnStep is called after every executed instruction with the register
	// file as the instruction left it.
	OnStep func(in cpu.Instruction, regs cpu.Registers)
}

// DefaultConfig is the power-on register file, NMOS behaviour and no step
// limit.
func DefaultConfig() Config {
	return Config{
		Registers: cpu.NewRegisters(),
		Compat:    cpu.NMOS,
		Logger:    log.Default(),
	}
}
