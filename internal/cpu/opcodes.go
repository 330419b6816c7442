package cpu

import (
	"fmt"

	"github.com/nevisdale/micro6502/internal/bus"
)

type operation func(x *execution)

// execution is the state one instruction runs against.
type execution struct {
	regs   *Registers
	bus    bus.Bus
	in     *Instruction
	cycles uint8
	halt   bool
}

func isSameSign(a, b uint8) bool {
	return (a^b)&0x80 == 0
}

// operand returns the byte the instruction works on.
func (x *execution) operand() uint8 {
	switch x.in.def.Mode {
	case AddrModeIMM, AddrModeACC:
		return x.in.Value
	}
	return x.bus.Read8(x.in.Addr)
}

// store writes a result back to where the operand came from.
func (x *execution) store(data uint8) {
	if x.in.def.Mode == AddrModeACC {
		x.regs.A = data
		return
	}
	x.bus.Write8(x.in.Addr, data)
}

// pageCrossPenalty charges read instructions for an indexed access that left
// the page of its base address.
func (x *execution) pageCrossPenalty() {
	if x.in.PageCrossed {
		x.cycles++
	}
}

func (x *execution) decimal() bool {
	return x.in.compat&CompatDecimal != 0 && x.regs.Flag(FlagD)
}

func (x *execution) jmpIf(condition bool) {
	if !condition {
		return
	}
	x.cycles++
	if isDiffPage(x.regs.PC, x.in.Addr) {
		x.cycles++
	}
	x.regs.PC = x.in.Addr
}

func (x *execution) addWithCarry(m uint8) {
	r := x.regs
	r16 := uint16(r.A) + uint16(m)
	if r.Flag(FlagC) {
		r16++
	}
	r8 := uint8(r16)
	r.SetFlag(FlagC, r16 > 0xff)
	r.SetFlag(FlagV, isSameSign(r.A, m) && !isSameSign(r.A, r8))
	r.SetZN(r8)
	r.A = r8
}

// adcDecimal follows the NMOS chip: Z comes from the binary sum, N and V from
// the sum before the high nibble is adjusted.
func (x *execution) adcDecimal(m uint8) {
	r := x.regs
	a := r.A
	carry := 0
	if r.Flag(FlagC) {
		carry = 1
	}

	lo := int(a&0x0f) + int(m&0x0f) + carry
	if lo >= 0x0a {
		lo = ((lo + 0x06) & 0x0f) + 0x10
	}
	sum := int(a&0xf0) + int(m&0xf0) + lo

	r.SetFlag(FlagZ, uint8(int(a)+int(m)+carry) == 0)
	r.SetFlag(FlagN, sum&0x80 != 0)
	r.SetFlag(FlagV, isSameSign(a, m) && !isSameSign(a, uint8(sum)))

	if sum >= 0xa0 {
		sum += 0x60
	}
	r.SetFlag(FlagC, sum >= 0x100)
	r.A = uint8(sum)
}

// sbcDecimal keeps the flags of the binary subtraction, only A gets the BCD
// result.
func (x *execution) sbcDecimal(m uint8) {
	r := x.regs
	a := r.A
	carry := 0
	if r.Flag(FlagC) {
		carry = 1
	}

	x.addWithCarry(^m)

	lo := int(a&0x0f) - int(m&0x0f) + carry - 1
	if lo < 0 {
		lo = ((lo - 0x06) & 0x0f) - 0x10
	}
	diff := int(a&0xf0) - int(m&0xf0) + lo
	if diff < 0 {
		diff -= 0x60
	}
	r.A = uint8(diff)
}

func (x *execution) compare(reg uint8) {
	m := x.operand()
	x.regs.SetFlag(FlagC, reg >= m)
	x.regs.SetZN(reg - m)
}

// Add with Carry
func (x *execution) adc() {
	m := x.operand()
	if x.decimal() {
		x.adcDecimal(m)
	} else {
		x.addWithCarry(m)
	}
	x.pageCrossPenalty()
}

// Logical AND
func (x *execution) and() {
	x.regs.A &= x.operand()
	x.regs.SetZN(x.regs.A)
	x.pageCrossPenalty()
}

// Arithmetic Shift Left
func (x *execution) asl() {
	m := x.operand()
	x.regs.SetFlag(FlagC, m&0x80 != 0)
	r := m << 1
	x.regs.SetZN(r)
	x.store(r)
}

// Branch if Carry Clear
func (x *execution) bcc() {
	x.jmpIf(!x.regs.Flag(FlagC))
}

// Branch if Carry Set
func (x *execution) bcs() {
	x.jmpIf(x.regs.Flag(FlagC))
}

// Branch if Equal
func (x *execution) beq() {
	x.jmpIf(x.regs.Flag(FlagZ))
}

// Bit Test
func (x *execution) bit() {
	m := x.operand()
	x.regs.SetFlag(FlagZ, x.regs.A&m == 0)
	x.regs.SetFlag(FlagN, m&0x80 != 0)
	x.regs.SetFlag(FlagV, m&0x40 != 0)
}

// Branch if Minus
func (x *execution) bmi() {
	x.jmpIf(x.regs.Flag(FlagN))
}

// Branch if Not Equal
func (x *execution) bne() {
	x.jmpIf(!x.regs.Flag(FlagZ))
}

// Branch if Positive
func (x *execution) bpl() {
	x.jmpIf(!x.regs.Flag(FlagN))
}

// Force Interrupt.
//
// BRK is how a program tells the harness it is done. The engine stops here
// instead of pushing PC and P and jumping through $FFFE. This is deliberate,
// do not turn it into real interrupt dispatch.
func (x *execution) brk() {
	x.halt = true
}

// Branch if Overflow Clear
func (x *execution) bvc() {
	x.jmpIf(!x.regs.Flag(FlagV))
}

// Branch if Overflow Set
func (x *execution) bvs() {
	x.jmpIf(x.regs.Flag(FlagV))
}

// Clear Carry Flag
func (x *execution) clc() {
	x.regs.SetFlag(FlagC, false)
}

// Clear Decimal Mode
func (x *execution) cld() {
	x.regs.SetFlag(FlagD, false)
}

// Clear Interrupt Disable
func (x *execution) cli() {
	x.regs.SetFlag(FlagI, false)
}

// Clear Overflow Flag
func (x *execution) clv() {
	x.regs.SetFlag(FlagV, false)
}

// Compare
func (x *execution) cmp() {
	x.compare(x.regs.A)
	x.pageCrossPenalty()
}

// Compare X Register
func (x *execution) cpx() {
	x.compare(x.regs.X)
}

// Compare Y Register
func (x *execution) cpy() {
	x.compare(x.regs.Y)
}

// Decrement Memory
func (x *execution) dec() {
	r := x.operand() - 1
	x.regs.SetZN(r)
	x.store(r)
}

// Decrement X Register
func (x *execution) dex() {
	x.regs.X--
	x.regs.SetZN(x.regs.X)
}

// Decrement Y Register
func (x *execution) dey() {
	x.regs.Y--
	x.regs.SetZN(x.regs.Y)
}

// Exclusive OR
func (x *execution) eor() {
	x.regs.A ^= x.operand()
	x.regs.SetZN(x.regs.A)
	x.pageCrossPenalty()
}

// Increment Memory
func (x *execution) inc() {
	r := x.operand() + 1
	x.regs.SetZN(r)
	x.store(r)
}

// Increment X Register
func (x *execution) inx() {
	x.regs.X++
	x.regs.SetZN(x.regs.X)
}

// Increment Y Register
func (x *execution) iny() {
	x.regs.Y++
	x.regs.SetZN(x.regs.Y)
}

// Jump
func (x *execution) jmp() {
	x.regs.PC = x.in.Addr
}

// Jump to Subroutine. The pushed address is the last byte of the JSR
// itself, RTS adds the missing one.
func (x *execution) jsr() {
	x.regs.Push16(x.bus, x.regs.PC-1)
	x.regs.PC = x.in.Addr
}

// Load Accumulator
func (x *execution) lda() {
	x.regs.A = x.operand()
	x.regs.SetZN(x.regs.A)
	x.pageCrossPenalty()
}

// Load X Register
func (x *execution) ldx() {
	x.regs.X = x.operand()
	x.regs.SetZN(x.regs.X)
	x.pageCrossPenalty()
}

// Load Y Register
func (x *execution) ldy() {
	x.regs.Y = x.operand()
	x.regs.SetZN(x.regs.Y)
	x.pageCrossPenalty()
}

// Logical Shift Right
func (x *execution) lsr() {
	m := x.operand()
	x.regs.SetFlag(FlagC, m&0x01 != 0)
	r := m >> 1
	x.regs.SetZN(r)
	x.store(r)
}

// No Operation
func (x *execution) nop() {}

// Logical Inclusive OR
func (x *execution) ora() {
	x.regs.A |= x.operand()
	x.regs.SetZN(x.regs.A)
	x.pageCrossPenalty()
}

// Push Accumulator
func (x *execution) pha() {
	x.regs.Push8(x.bus, x.regs.A)
}

// Push Processor Status
func (x *execution) php() {
	x.regs.Push8(x.bus, uint8(x.regs.P|FlagB|FlagU))
}

// Pull Accumulator
func (x *execution) pla() {
	x.regs.A = x.regs.Pull8(x.bus)
	x.regs.SetZN(x.regs.A)
}

// Pull Processor Status
func (x *execution) plp() {
	x.regs.P = (Flags(x.regs.Pull8(x.bus)) | FlagU) &^ FlagB
}

// Rotate Left
func (x *execution) rol() {
	m := x.operand()
	r := m << 1
	if x.regs.Flag(FlagC) {
		r |= 0x01
	}
	x.regs.SetFlag(FlagC, m&0x80 != 0)
	x.regs.SetZN(r)
	x.store(r)
}

// Rotate Right
func (x *execution) ror() {
	m := x.operand()
	r := m >> 1
	if x.regs.Flag(FlagC) {
		r |= 0x80
	}
	x.regs.SetFlag(FlagC, m&0x01 != 0)
	x.regs.SetZN(r)
	x.store(r)
}

// Return from Interrupt
func (x *execution) rti() {
	x.plp()
	x.regs.PC = x.regs.Pull16(x.bus)
}

// Return from Subroutine
func (x *execution) rts() {
	x.regs.PC = x.regs.Pull16(x.bus) + 1
}

// Subtract with Carry
func (x *execution) sbc() {
	m := x.operand()
	if x.decimal() {
		x.sbcDecimal(m)
	} else {
		x.addWithCarry(^m)
	}
	x.pageCrossPenalty()
}

// Set Carry Flag
func (x *execution) sec() {
	x.regs.SetFlag(FlagC, true)
}

// Set Decimal Flag
func (x *execution) sed() {
	x.regs.SetFlag(FlagD, true)
}

// Set Interrupt Disable
func (x *execution) sei() {
	x.regs.SetFlag(FlagI, true)
}

// Store Accumulator
func (x *execution) sta() {
	x.bus.Write8(x.in.Addr, x.regs.A)
}

// Store X Register
func (x *execution) stx() {
	x.bus.Write8(x.in.Addr, x.regs.X)
}

// Store Y Register
func (x *execution) sty() {
	x.bus.Write8(x.in.Addr, x.regs.Y)
}

// Transfer Accumulator to X
func (x *execution) tax() {
	x.regs.X = x.regs.A
	x.regs.SetZN(x.regs.X)
}

// Transfer Accumulator to Y
func (x *execution) tay() {
	x.regs.Y = x.regs.A
	x.regs.SetZN(x.regs.Y)
}

// Transfer Stack Pointer to X
func (x *execution) tsx() {
	x.regs.X = x.regs.SP
	x.regs.SetZN(x.regs.X)
}

// Transfer X to Accumulator
func (x *execution) txa() {
	x.regs.A = x.regs.X
	x.regs.SetZN(x.regs.A)
}

// Transfer X to Stack Pointer
func (x *execution) txs() {
	x.regs.SP = x.regs.X
}

// Transfer Y to Accumulator
func (x *execution) tya() {
	x.regs.A = x.regs.Y
	x.regs.SetZN(x.regs.A)
}

func operationFromMnemonic(mnemonic string) (operation, error) {
	switch mnemonic {
	case "ADC":
		return (*execution).adc, nil
	case "AND":
		return (*execution).and, nil
	case "ASL":
		return (*execution).asl, nil
	case "BCC":
		return (*execution).bcc, nil
	case "BCS":
		return (*execution).bcs, nil
	case "BEQ":
		return (*execution).beq, nil
	case "BIT":
		return (*execution).bit, nil
	case "BMI":
		return (*execution).bmi, nil
	case "BNE":
		return (*execution).bne, nil
	case "BPL":
		return (*execution).bpl, nil
	case "BRK":
		return (*execution).brk, nil
	case "BVC":
		return (*execution).bvc, nil
	case "BVS":
		return (*execution).bvs, nil
	case "CLC":
		return (*execution).clc, nil
	case "CLD":
		return (*execution).cld, nil
	case "CLI":
		return (*execution).cli, nil
	case "CLV":
		return (*execution).clv, nil
	case "CMP":
		return (*execution).cmp, nil
	case "CPX":
		return (*execution).cpx, nil
	case "CPY":
		return (*execution).cpy, nil
	case "DEC":
		return (*execution).dec, nil
	case "DEX":
		return (*execution).dex, nil
	case "DEY":
		return (*execution).dey, nil
	case "EOR":
		return (*execution).eor, nil
	case "INC":
		return (*execution).inc, nil
	case "INX":
		return (*execution).inx, nil
	case "INY":
		return (*execution).iny, nil
	case "JMP":
		return (*execution).jmp, nil
	case "JSR":
		return (*execution).jsr, nil
	case "LDA":
		return (*execution).lda, nil
	case "LDX":
		return (*execution).ldx, nil
	case "LDY":
		return (*execution).ldy, nil
	case "LSR":
		return (*execution).lsr, nil
	case "NOP":
		return (*execution).nop, nil
	case "ORA":
		return (*execution).ora, nil
	case "PHA":
		return (*execution).pha, nil
	case "PHP":
		return (*execution).php, nil
	case "PLA":
		return (*execution).pla, nil
	case "PLP":
		return (*execution).plp, nil
	case "ROL":
		return (*execution).rol, nil
	case "ROR":
		return (*execution).ror, nil
	case "RTI":
		return (*execution).rti, nil
	case "RTS":
		return (*execution).rts, nil
	case "SBC":
		return (*execution).sbc, nil
	case "SEC":
		return (*execution).sec, nil
	case "SED":
		return (*execution).sed, nil
	case "SEI":
		return (*execution).sei, nil
	case "STA":
		return (*execution).sta, nil
	case "STX":
		return (*execution).stx, nil
	case "STY":
		return (*execution).sty, nil
	case "TAX":
		return (*execution).tax, nil
	case "TAY":
		return (*execution).tay, nil
	case "TSX":
		return (*execution).tsx, nil
	case "TXA":
		return (*execution).txa, nil
	case "TXS":
		return (*execution).txs, nil
	case "TYA":
		return (*execution).tya, nil
	default:
		return nil, fmt.Errorf("unknown mnemonic: %s", mnemonic)
	}
}
