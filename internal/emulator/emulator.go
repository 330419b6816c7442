package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/nevisdale/micro6502/internal/bus"
	"github.com/nevisdale/micro6502/internal/cpu"
)

var (
	ErrHalted    = errors.New("emulator is halted")
	ErrStepLimit = errors.New("step limit reached")
)

type State uint8

const (
	StateRunning State = iota + 1
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	}
	return "unknown"
}

// A bus that can fail out of band, like a remote one, reports it here.
type errorer interface {
	Err() error
}

type tracer interface {
	Trace(pc uint16, opcode uint8, text string)
}

// Emulator runs one program on one bus. It is not safe for concurrent use,
// except for IRQ and NMI which may be raised from any goroutine.
type Emulator struct {
	cfg      Config
	bus      bus.Bus
	registry *cpu.Registry
	decoder  *cpu.Decoder
	logger   *log.Logger

	regs   cpu.Registers
	state  State
	err    error
	cycles uint64
	steps  uint64

	irq atomic.Bool
	nmi atomic.Bool
}

// New builds an engine in the Running state. Unless cfg.EntryFromRegisters
// is set, PC is loaded from the reset vector, so the program and the vector
// must be on the bus already.
func New(b bus.Bus, cfg Config) *Emulator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	registry := cpu.DefaultRegistry()
	e := &Emulator{
		cfg:      cfg,
		bus:      b,
		registry: registry,
		decoder:  cpu.NewDecoder(b, registry, cfg.Compat),
		logger:   logger,
	}
	e.Reset()
	return e
}

// Reset puts the initial registers back and reloads PC. Memory is left
// alone.
func (e *Emulator) Reset() {
	e.regs = e.cfg.Registers
	if !e.cfg.EntryFromRegisters {
		e.regs.PC = bus.Read16(e.bus, bus.ResetVector)
	}
	e.state = StateRunning
	e.err = nil
	e.cycles = 0
	e.steps = 0
	e.irq.Store(false)
	e.nmi.Store(false)
}

func (e *Emulator) Registers() cpu.Registers {
	return e.regs
}

func (e *Emulator) State() State {
	return e.state
}

// Err is the fatal error that halted the engine, if any. A halt caused by
// BRK leaves it nil.
func (e *Emulator) Err() error {
	return e.err
}

func (e *Emulator) Cycles() uint64 {
	return e.cycles
}

func (e *Emulator) Steps() uint64 {
	return e.steps
}

// SetMaxSteps changes the step limit. Steps are counted from the last
// Reset, so a run stopped by ErrStepLimit continues after the limit is
// raised. Zero means no limit.
func (e *Emulator) SetMaxSteps(n uint64) {
	e.cfg.MaxSteps = n
}

// IRQ requests a maskable interrupt. It is taken at the next instruction
// boundary once the I flag is clear.
func (e *Emulator) IRQ() {
	e.irq.Store(true)
}

// NMI requests a non-maskable interrupt for the next instruction boundary.
func (e *Emulator) NMI() {
	e.nmi.Store(true)
}

// pendingInterrupt returns the vector of the request to service at this
// boundary without acknowledging it.
func (e *Emulator) pendingInterrupt() (uint16, bool) {
	if e.nmi.Load() {
		return bus.NMIVector, true
	}
	if e.irq.Load() && !e.regs.Flag(cpu.FlagI) {
		return bus.IRQVector, true
	}
	return 0, false
}

// interrupt enters the handler at vector. The handler's first opcode is
// checked before anything is pushed, so an undefined one halts the engine
// with the registers and the stack as they were.
func (e *Emulator) interrupt(vector uint16) error {
	handler := bus.Read16(e.bus, vector)
	opcode := e.bus.Read8(handler)
	if _, ok := e.registry.Lookup(opcode); !ok {
		return &cpu.UndefinedOpcodeError{Opcode: opcode, Addr: handler}
	}

	if vector == bus.NMIVector {
		e.nmi.Store(false)
	} else {
		e.irq.Store(false)
	}
	e.regs.Push16(e.bus, e.regs.PC)
	e.regs.Push8(e.bus, uint8((e.regs.P&^cpu.FlagB)|cpu.FlagU))
	e.regs.SetFlag(cpu.FlagI, true)
	e.regs.PC = handler
	e.cycles += 7
	return nil
}

func (e *Emulator) fail(err error) error {
	e.state = StateHalted
	e.err = err
	e.logger.Printf("%s. halting...", err)
	return err
}

// Step services a pending interrupt, then decodes and executes exactly one
// instruction. BRK moves the engine to Halted and Step returns nil.
// An undefined opcode, including one at an interrupt handler, halts it with
// *cpu.UndefinedOpcodeError and leaves the registers as they were.
func (e *Emulator) Step() error {
	if e.state == StateHalted {
		return ErrHalted
	}

	if vector, ok := e.pendingInterrupt(); ok {
		if err := e.interrupt(vector); err != nil {
			return e.fail(err)
		}
	}

	pc := e.regs.PC
	in, err := e.decoder.Decode(&e.regs)
	if err != nil {
		return e.fail(err)
	}

	if e.cfg.Trace {
		e.logger.Printf("$%04X: %s", pc, in)
		if t, ok := e.bus.(tracer); ok {
			t.Trace(pc, in.Opcode(), in.String())
		}
	}

	res := in.Execute(&e.regs, e.bus)
	e.cycles += uint64(res.Cycles)
	e.steps++

	if e.cfg.OnStep != nil {
		e.cfg.OnStep(in, e.regs)
	}

	if b, ok := e.bus.(errorer); ok {
		if err := b.Err(); err != nil {
			return e.fail(fmt.Errorf("bus failed at $%04X: %w", pc, err))
		}
	}

	if res.Halt {
		e.state = StateHalted
	}
	return nil
}

// Run steps until the program halts, a fatal error occurs, MaxSteps is
// reached or ctx is done. The limit and ctx are checked once per
// instruction. A clean halt returns nil.
func (e *Emulator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.cfg.MaxSteps > 0 && e.steps >= e.cfg.MaxSteps {
			return ErrStepLimit
		}
		if err := e.Step(); err != nil {
			return err
		}
		if e.state == StateHalted {
			return nil
		}
	}
}
