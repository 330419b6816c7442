package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/nevisdale/micro6502/internal/bus"
	"github.com/nevisdale/micro6502/internal/cpu"
	"github.com/nevisdale/micro6502/internal/emulator"
	"github.com/nevisdale/micro6502/internal/remote"
	"github.com/nevisdale/micro6502/internal/ui"
	"github.com/pkg/profile"
)

type options struct {
	memoryPath   string
	programPath  string
	loadAddr     uint
	regs         *regsFlag
	maxSteps     uint64
	trace        bool
	dump         bool
	nmos         bool
	remoteURL    string
	withUI       bool
	stepsPerTick int
	profileDir   string
}

func main() {
	opts := options{regs: newRegsFlag()}
	flag.StringVar(&opts.memoryPath, "memory", "", "initialize memory with the file provided")
	flag.UintVar(&opts.loadAddr, "load", 0x0600, "address the program is loaded at")
	flag.Var(opts.regs, "regs", "initial registers, for example x=3,y=2 (keys: pc, sp, a, x, y, flags)")
	flag.Uint64Var(&opts.maxSteps, "max-steps", 0, "stop after that many instructions, 0 means no limit")
	flag.BoolVar(&opts.trace, "trace", false, "log every executed instruction")
	flag.BoolVar(&opts.dump, "dump", false, "print the memory after the run")
	flag.BoolVar(&opts.nmos, "nmos", true, "emulate the JMP indirect bug and decimal mode")
	flag.StringVar(&opts.remoteURL, "remote", "", "use a remote bus (ws://host/path or tcp://host:port)")
	flag.BoolVar(&opts.withUI, "ui", false, "open the monitor window")
	flag.IntVar(&opts.stepsPerTick, "ui-steps", 1000, "instructions per frame in the monitor")
	flag.StringVar(&opts.profileDir, "profile", "", "write a CPU profile into the directory")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [program.bin]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}
	opts.programPath = flag.Arg(0)

	if err := run(opts); err != nil {
		log.Fatalf("%s\n", err.Error())
	}
}

func run(opts options) error {
	if opts.profileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.profileDir)).Stop()
	}
	if opts.loadAddr > 0xffff {
		return fmt.Errorf("load address %#x is outside the address space", opts.loadAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, mem, err := openBus(ctx, opts)
	if err != nil {
		return err
	}
	if rb, ok := b.(*remote.Bus); ok {
		defer rb.Close()
	}

	if opts.programPath != "" {
		program, err := os.ReadFile(opts.programPath)
		if err != nil {
			return fmt.Errorf("couldn't read program: %w", err)
		}
		if err := loadProgram(b, uint16(opts.loadAddr), program); err != nil {
			return err
		}
		bus.Write16(b, bus.ResetVector, uint16(opts.loadAddr))
	}

	cfg := emulator.DefaultConfig()
	cfg.Registers = opts.regs.regs
	cfg.EntryFromRegisters = opts.regs.pcSet
	cfg.MaxSteps = opts.maxSteps
	cfg.Trace = opts.trace
	cfg.Compat = 0
	if opts.nmos {
		cfg.Compat = cpu.NMOS
	}

	var monitor *ui.UI
	if opts.withUI {
		monitor = ui.New(opts.stepsPerTick)
		cfg.OnStep = monitor.OnStep
	}

	emu := emulator.New(b, cfg)

	if monitor != nil {
		monitor.Attach(emu)
		if err := ui.RunUI(monitor); err != nil {
			return err
		}
	} else {
		err := emu.Run(ctx)
		if err != nil && !errors.Is(err, emulator.ErrStepLimit) {
			return err
		}
		if err != nil {
			log.Printf("stopped after %d steps: %s", emu.Steps(), err)
		}
	}

	fmt.Println(emu.Registers())
	fmt.Printf("cycles: %d, steps: %d\n", emu.Cycles(), emu.Steps())
	if opts.dump && mem != nil {
		return mem.Dump(os.Stdout)
	}
	return nil
}

// openBus returns the remote bus when one is asked for, the flat memory
// otherwise. mem is nil for a remote bus.
func openBus(ctx context.Context, opts options) (bus.Bus, *bus.Memory, error) {
	if opts.remoteURL != "" {
		if opts.memoryPath != "" {
			return nil, nil, errors.New("-memory cannot be used with -remote")
		}
		rb, err := remote.Dial(ctx, opts.remoteURL)
		if err != nil {
			return nil, nil, err
		}
		return rb, nil, nil
	}

	if opts.memoryPath == "" {
		mem := bus.NewMemory()
		return mem, mem, nil
	}

	img, err := os.ReadFile(opts.memoryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't read memory image: %w", err)
	}
	mem, err := bus.NewMemoryFromImage(img)
	if err != nil {
		return nil, nil, err
	}
	return mem, mem, nil
}

// loadProgram writes program to b at addr. It must not run past $FFFF.
func loadProgram(b bus.Bus, addr uint16, program []byte) error {
	if int(addr)+len(program) > 0x10000 {
		return fmt.Errorf("program of %d bytes at $%04X: %w", len(program), addr, bus.ErrImageTooLarge)
	}
	for i, v := range program {
		b.Write8(addr+uint16(i), v)
	}
	return nil
}
