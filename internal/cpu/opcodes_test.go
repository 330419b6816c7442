package cpu

import (
	"testing"

	"github.com/nevisdale/micro6502/internal/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execAt decodes and executes the instruction at regs.PC.
func execAt(t *testing.T, mem bus.Bus, regs *Registers, compat Compat) Result {
	t.Helper()
	instr, err := NewDecoder(mem, DefaultRegistry(), compat).Decode(regs)
	require.NoError(t, err)
	return instr.Execute(regs, mem)
}

func newTestMemory(addr uint16, program ...uint8) *bus.Memory {
	mem := bus.NewMemory()
	for i, b := range program {
		mem.Write8(addr+uint16(i), b)
	}
	return mem
}

func Test_ADC_Binary(t *testing.T) {
	type testArgs struct {
		initA     uint8
		operand   uint8
		initP     Flags
		expectedA uint8
		expectedP Flags
	}

	testDo := func(t *testing.T, in testArgs) {
		mem := newTestMemory(0x0200, 0x69, in.operand)
		regs := Registers{PC: 0x0200, A: in.initA, P: in.initP}

		res := execAt(t, mem, &regs, NMOS)

		assert.Equal(t, in.expectedA, regs.A, "A register")
		assert.Equal(t, in.expectedP, regs.P, "P register")
		assert.Equal(t, uint8(2), res.Cycles, "Cycles")
	}

	t.Run("zero result, no carry", func(t *testing.T) {
		testDo(t, testArgs{expectedP: FlagZ})
	})
	t.Run("simple addition, no carry", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x10, operand: 0x20, expectedA: 0x30})
	})
	t.Run("unsigned overflow sets carry", func(t *testing.T) {
		testDo(t, testArgs{initA: 0xff, operand: 0x01, expectedA: 0x00, expectedP: FlagZ | FlagC})
	})
	t.Run("signed overflow", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x7f, operand: 0x01, expectedA: 0x80, expectedP: FlagN | FlagV})
	})
	t.Run("carry in", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x50, operand: 0x50, initP: FlagC, expectedA: 0xa1, expectedP: FlagN | FlagV})
	})
	t.Run("decimal flag without decimal support is binary", func(t *testing.T) {
		mem := newTestMemory(0x0200, 0x69, 0x01)
		regs := Registers{PC: 0x0200, A: 0x09, P: FlagD}
		execAt(t, mem, &regs, CompatJumpBug)
		assert.Equal(t, uint8(0x0a), regs.A)
	})
}

// Every a, m and carry in against a plain integer reference.
func Test_ADC_Exhaustive(t *testing.T) {
	mem := bus.NewMemory()
	mem.Write8(0x0200, 0x69)
	dec := NewDecoder(mem, DefaultRegistry(), NMOS)

	for a := 0; a < 0x100; a++ {
		for m := 0; m < 0x100; m++ {
			for c := 0; c < 2; c++ {
				mem.Write8(0x0201, uint8(m))
				regs := Registers{PC: 0x0200, A: uint8(a)}
				regs.SetFlag(FlagC, c == 1)

				instr, err := dec.Decode(&regs)
				require.NoError(t, err)
				instr.Execute(&regs, mem)

				sum := a + m + c
				res := uint8(sum)
				var expectedP Flags
				expectedP.Set(FlagC, sum > 0xff)
				expectedP.Set(FlagZ, res == 0)
				expectedP.Set(FlagN, res&0x80 != 0)
				signedSum := int(int8(a)) + int(int8(m)) + c
				expectedP.Set(FlagV, signedSum < -128 || signedSum > 127)

				if regs.A != res || regs.P != expectedP {
					t.Fatalf("ADC a=$%02X m=$%02X c=%d: got A=$%02X P=%s, expected A=$%02X P=%s",
						a, m, c, regs.A, regs.P, res, expectedP)
				}
			}
		}
	}
}

func Test_SBC_Binary(t *testing.T) {
	type testArgs struct {
		initA     uint8
		operand   uint8
		initP     Flags
		expectedA uint8
		expectedP Flags
	}

	testDo := func(t *testing.T, in testArgs) {
		mem := newTestMemory(0x0200, 0xe9, in.operand)
		regs := Registers{PC: 0x0200, A: in.initA, P: in.initP}

		execAt(t, mem, &regs, NMOS)

		assert.Equal(t, in.expectedA, regs.A, "A register")
		assert.Equal(t, in.expectedP, regs.P, "P register")
	}

	t.Run("no borrow", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x50, operand: 0x10, initP: FlagC, expectedA: 0x40, expectedP: FlagC})
	})
	t.Run("borrow in", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x50, operand: 0x10, expectedA: 0x3f, expectedP: FlagC})
	})
	t.Run("result negative clears carry", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x10, operand: 0x20, initP: FlagC, expectedA: 0xf0, expectedP: FlagN})
	})
	t.Run("equal operands give zero", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x42, operand: 0x42, initP: FlagC, expectedA: 0x00, expectedP: FlagZ | FlagC})
	})
	t.Run("signed overflow", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x80, operand: 0x01, initP: FlagC, expectedA: 0x7f, expectedP: FlagV | FlagC})
	})
}

func Test_Decimal(t *testing.T) {
	type testArgs struct {
		opcode    uint8
		initA     uint8
		operand   uint8
		carry     bool
		expectedA uint8
		expectedC bool
	}

	testDo := func(t *testing.T, in testArgs) {
		mem := newTestMemory(0x0200, in.opcode, in.operand)
		regs := Registers{PC: 0x0200, A: in.initA, P: FlagD}
		regs.SetFlag(FlagC, in.carry)

		execAt(t, mem, &regs, NMOS)

		assert.Equal(t, in.expectedA, regs.A, "A register")
		assert.Equal(t, in.expectedC, regs.Flag(FlagC), "carry")
		assert.True(t, regs.Flag(FlagD), "decimal flag survives")
	}

	t.Run("ADC 09+01", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x69, initA: 0x09, operand: 0x01, expectedA: 0x10})
	})
	t.Run("ADC 99+01 carries out", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x69, initA: 0x99, operand: 0x01, expectedA: 0x00, expectedC: true})
	})
	t.Run("ADC 58+46+1", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x69, initA: 0x58, operand: 0x46, carry: true, expectedA: 0x05, expectedC: true})
	})
	t.Run("ADC 12+34", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x69, initA: 0x12, operand: 0x34, expectedA: 0x46})
	})
	t.Run("SBC 46-12", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0xe9, initA: 0x46, operand: 0x12, carry: true, expectedA: 0x34, expectedC: true})
	})
	t.Run("SBC 40-13", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0xe9, initA: 0x40, operand: 0x13, carry: true, expectedA: 0x27, expectedC: true})
	})
	t.Run("SBC 12-21 borrows", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0xe9, initA: 0x12, operand: 0x21, carry: true, expectedA: 0x91})
	})
	t.Run("SBC 32-02 with borrow in", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0xe9, initA: 0x32, operand: 0x02, expectedA: 0x29, expectedC: true})
	})
}

// On the NMOS chip Z follows the binary sum even in decimal mode.
func Test_ADC_DecimalZeroFlag(t *testing.T) {
	mem := newTestMemory(0x0200, 0x69, 0x01)
	regs := Registers{PC: 0x0200, A: 0x99, P: FlagD}

	execAt(t, mem, &regs, NMOS)

	assert.Equal(t, uint8(0x00), regs.A)
	assert.False(t, regs.Flag(FlagZ))
}

func Test_ShiftsAndRotates(t *testing.T) {
	type testArgs struct {
		opcode    uint8
		initA     uint8
		initP     Flags
		expectedA uint8
		expectedP Flags
	}

	testDo := func(t *testing.T, in testArgs) {
		mem := newTestMemory(0x0200, in.opcode)
		regs := Registers{PC: 0x0200, A: in.initA, P: in.initP}

		execAt(t, mem, &regs, NMOS)

		assert.Equal(t, in.expectedA, regs.A, "A register")
		assert.Equal(t, in.expectedP, regs.P, "P register")
	}

	t.Run("ASL carries bit 7 out", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x0a, initA: 0x81, expectedA: 0x02, expectedP: FlagC})
	})
	t.Run("LSR carries bit 0 out", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x4a, initA: 0x01, expectedA: 0x00, expectedP: FlagZ | FlagC})
	})
	t.Run("ROL shifts carry in", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x2a, initA: 0x40, initP: FlagC, expectedA: 0x81, expectedP: FlagN})
	})
	t.Run("ROR shifts carry in", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x6a, initA: 0x01, initP: FlagC, expectedA: 0x80, expectedP: FlagN | FlagC})
	})
	t.Run("ROR without carry", func(t *testing.T) {
		testDo(t, testArgs{opcode: 0x6a, initA: 0x02, expectedA: 0x01})
	})
}

func Test_ShiftMemory(t *testing.T) {
	mem := newTestMemory(0x0200, 0x06, 0x10) // ASL $10
	mem.Write8(0x0010, 0xc0)
	regs := Registers{PC: 0x0200, A: 0x55}

	res := execAt(t, mem, &regs, NMOS)

	assert.Equal(t, uint8(0x80), mem.Read8(0x0010))
	assert.Equal(t, uint8(0x55), regs.A)
	assert.Equal(t, FlagN|FlagC, regs.P)
	assert.Equal(t, uint8(5), res.Cycles)
}

func Test_Compare(t *testing.T) {
	type testArgs struct {
		program   []uint8
		regs      Registers
		expectedP Flags
	}

	testDo := func(t *testing.T, in testArgs) {
		mem := newTestMemory(0x0200, in.program...)
		regs := in.regs
		regs.PC = 0x0200

		execAt(t, mem, &regs, NMOS)

		assert.Equal(t, in.expectedP, regs.P, "P register")
		assert.Equal(t, in.regs.A, regs.A, "A is untouched")
		assert.Equal(t, in.regs.X, regs.X, "X is untouched")
		assert.Equal(t, in.regs.Y, regs.Y, "Y is untouched")
	}

	t.Run("CMP equal", func(t *testing.T) {
		testDo(t, testArgs{program: []uint8{0xc9, 0x10}, regs: Registers{A: 0x10}, expectedP: FlagZ | FlagC})
	})
	t.Run("CMP less", func(t *testing.T) {
		testDo(t, testArgs{program: []uint8{0xc9, 0x10}, regs: Registers{A: 0x0f}, expectedP: FlagN})
	})
	t.Run("CMP greater", func(t *testing.T) {
		testDo(t, testArgs{program: []uint8{0xc9, 0x10}, regs: Registers{A: 0x20}, expectedP: FlagC})
	})
	t.Run("CPX zero", func(t *testing.T) {
		testDo(t, testArgs{program: []uint8{0xe0, 0x00}, regs: Registers{X: 0}, expectedP: FlagZ | FlagC})
	})
	t.Run("CPY greater", func(t *testing.T) {
		testDo(t, testArgs{program: []uint8{0xc0, 0x01}, regs: Registers{Y: 0x90}, expectedP: FlagN | FlagC})
	})
}

func Test_BIT(t *testing.T) {
	mem := newTestMemory(0x0200, 0x24, 0x10)
	mem.Write8(0x0010, 0xc0)
	regs := Registers{PC: 0x0200, A: 0x01}

	execAt(t, mem, &regs, NMOS)

	assert.Equal(t, FlagZ|FlagV|FlagN, regs.P)
}

func Test_IncDecWrap(t *testing.T) {
	mem := newTestMemory(0x0200, 0xe8, 0x88, 0xe6, 0x10) // INX DEY INC $10
	mem.Write8(0x0010, 0xff)
	regs := Registers{PC: 0x0200, X: 0xff, Y: 0x00}

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x00), regs.X)
	assert.True(t, regs.Flag(FlagZ))

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0xff), regs.Y)
	assert.True(t, regs.Flag(FlagN))

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x00), mem.Read8(0x0010))
	assert.True(t, regs.Flag(FlagZ))
}

type recordingBus struct {
	*bus.Memory
	writes []uint16
}

func (b *recordingBus) Write8(addr uint16, data uint8) {
	b.writes = append(b.writes, addr)
	b.Memory.Write8(addr, data)
}

func Test_StackWrapsInsideStackPage(t *testing.T) {
	mem := &recordingBus{Memory: newTestMemory(0x0200)}
	for i := 0; i < 16; i++ {
		mem.Memory.Write8(0x0200+uint16(i), 0x48) // PHA
	}
	regs := Registers{PC: 0x0200, SP: 0x01, A: 0x77}

	for i := 0; i < 16; i++ {
		execAt(t, mem, &regs, NMOS)
	}

	require.Len(t, mem.writes, 16)
	for _, addr := range mem.writes {
		assert.True(t, addr >= 0x0100 && addr <= 0x01ff, "push went to $%04X", addr)
	}
	assert.Equal(t, uint16(0x0101), mem.writes[0])
	assert.Equal(t, uint16(0x0100), mem.writes[1])
	assert.Equal(t, uint16(0x01ff), mem.writes[2])
	assert.Equal(t, uint8(0xf1), regs.SP)
}

func Test_PushPullStatus(t *testing.T) {
	mem := newTestMemory(0x0200, 0x08, 0x28) // PHP PLP
	regs := Registers{PC: 0x0200, SP: 0xff, P: FlagC | FlagN}

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(FlagC|FlagN|FlagB|FlagU), mem.Read8(0x01ff))

	regs.P = 0
	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, FlagC|FlagN|FlagU, regs.P)
	assert.Equal(t, uint8(0xff), regs.SP)
}

func Test_JSR_RTS(t *testing.T) {
	for _, callSite := range []uint16{0x0200, 0x12fd, 0x80ff, 0xfff0} {
		mem := bus.NewMemory()
		target := callSite + 0x40
		mem.Write8(callSite, 0x20)
		bus.Write16(mem, callSite+1, target)
		mem.Write8(target, 0x60)

		regs := Registers{PC: callSite, SP: 0xff}

		res := execAt(t, mem, &regs, NMOS)
		assert.Equal(t, uint8(6), res.Cycles)
		assert.Equal(t, target, regs.PC)
		assert.Equal(t, uint8(0xfd), regs.SP)
		assert.Equal(t, callSite+2, bus.Read16(mem, 0x01fe), "pushed return address")

		execAt(t, mem, &regs, NMOS)
		assert.Equal(t, callSite+3, regs.PC, "call site $%04X", callSite)
		assert.Equal(t, uint8(0xff), regs.SP)
	}
}

func Test_RTI(t *testing.T) {
	mem := newTestMemory(0x0200, 0x40)
	mem.Write8(0x01fd, uint8(FlagC|FlagB))
	bus.Write16(mem, 0x01fe, 0x1234)
	regs := Registers{PC: 0x0200, SP: 0xfc}

	execAt(t, mem, &regs, NMOS)

	assert.Equal(t, uint16(0x1234), regs.PC)
	assert.Equal(t, FlagC|FlagU, regs.P)
	assert.Equal(t, uint8(0xff), regs.SP)
}

func Test_Branch(t *testing.T) {
	type testArgs struct {
		pc             uint16
		offset         uint8
		initP          Flags
		expectedPC     uint16
		expectedCycles uint8
	}

	testDo := func(t *testing.T, in testArgs) {
		mem := newTestMemory(in.pc, 0xd0, in.offset) // BNE
		regs := Registers{PC: in.pc, P: in.initP}

		res := execAt(t, mem, &regs, NMOS)

		assert.Equal(t, in.expectedPC, regs.PC, "PC")
		assert.Equal(t, in.expectedCycles, res.Cycles, "Cycles")
	}

	t.Run("not taken", func(t *testing.T) {
		testDo(t, testArgs{pc: 0x0200, offset: 0x02, initP: FlagZ, expectedPC: 0x0202, expectedCycles: 2})
	})
	t.Run("taken same page", func(t *testing.T) {
		testDo(t, testArgs{pc: 0x0200, offset: 0x02, expectedPC: 0x0204, expectedCycles: 3})
	})
	t.Run("taken backward", func(t *testing.T) {
		testDo(t, testArgs{pc: 0x8015, offset: 0xfa, expectedPC: 0x8011, expectedCycles: 3})
	})
	t.Run("taken across page", func(t *testing.T) {
		testDo(t, testArgs{pc: 0x02fd, offset: 0x10, expectedPC: 0x030f, expectedCycles: 4})
	})
}

func Test_PageCrossPenalty(t *testing.T) {
	t.Run("read instruction pays", func(t *testing.T) {
		mem := newTestMemory(0x0200, 0xbd, 0xff, 0x02) // LDA $02FF,X
		mem.Write8(0x0300, 0x42)
		regs := Registers{PC: 0x0200, X: 1}

		res := execAt(t, mem, &regs, NMOS)
		assert.Equal(t, uint8(0x42), regs.A)
		assert.Equal(t, uint8(5), res.Cycles)
	})

	t.Run("store does not", func(t *testing.T) {
		mem := newTestMemory(0x0200, 0x9d, 0xff, 0x02) // STA $02FF,X
		regs := Registers{PC: 0x0200, X: 1, A: 0x42}

		res := execAt(t, mem, &regs, NMOS)
		assert.Equal(t, uint8(0x42), mem.Read8(0x0300))
		assert.Equal(t, uint8(5), res.Cycles)
	})
}

func Test_Transfers(t *testing.T) {
	mem := newTestMemory(0x0200, 0xaa, 0xa8, 0xba, 0x9a, 0x8a, 0x98) // TAX TAY TSX TXS TXA TYA
	regs := Registers{PC: 0x0200, A: 0x80, SP: 0x00}

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x80), regs.X)
	assert.True(t, regs.Flag(FlagN))

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x80), regs.Y)

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x00), regs.X)
	assert.True(t, regs.Flag(FlagZ))

	regs.X = 0x80
	regs.P = 0
	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x80), regs.SP)
	assert.Equal(t, Flags(0), regs.P, "TXS leaves flags alone")

	regs.X = 0x01
	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x01), regs.A)

	execAt(t, mem, &regs, NMOS)
	assert.Equal(t, uint8(0x80), regs.A)
}

func Test_BRK_Halts(t *testing.T) {
	mem := &recordingBus{Memory: newTestMemory(0x0200, 0x00)}
	bus.Write16(mem.Memory, bus.IRQVector, 0x9000)
	regs := Registers{PC: 0x0200, SP: 0xff, P: FlagU}

	res := execAt(t, mem, &regs, NMOS)

	assert.True(t, res.Halt)
	assert.Empty(t, mem.writes, "nothing is pushed")
	assert.Equal(t, uint8(0xff), regs.SP)
	assert.Equal(t, FlagU, regs.P)
	assert.NotEqual(t, uint16(0x9000), regs.PC, "vector is not taken")
}
