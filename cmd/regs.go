package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nevisdale/micro6502/internal/cpu"
)

// regsFlag parses initial registers given as "x=3,y=2". Keys are pc, sp, a,
// x, y and flags. Values accept Go integer syntax, so 0x0600 works.
type regsFlag struct {
	regs  cpu.Registers
	pcSet bool
}

func newRegsFlag() *regsFlag {
	return &regsFlag{regs: cpu.NewRegisters()}
}

func (f *regsFlag) String() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("pc=%d,sp=%d,a=%d,x=%d,y=%d,flags=%d",
		f.regs.PC, f.regs.SP, f.regs.A, f.regs.X, f.regs.Y, uint8(f.regs.P))
}

func (f *regsFlag) Set(s string) error {
	for _, kv := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return fmt.Errorf("cannot parse register argument: %s", kv)
		}

		bitSize := 8
		if key == "pc" {
			bitSize = 16
		}
		v, err := strconv.ParseUint(value, 0, bitSize)
		if err != nil {
			return fmt.Errorf("not a valid %d-bit value: %s", bitSize, kv)
		}

		switch key {
		case "pc":
			f.regs.PC = uint16(v)
			f.pcSet = true
		case "sp":
			f.regs.SP = uint8(v)
		case "a":
			f.regs.A = uint8(v)
		case "x":
			f.regs.X = uint8(v)
		case "y":
			f.regs.Y = uint8(v)
		case "flags":
			f.regs.P = cpu.Flags(v)
		default:
			return fmt.Errorf("unknown register: %s", key)
		}
	}
	return nil
}
