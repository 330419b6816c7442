package cpu

import "fmt"

// AddrMode tells the decoder how many operand bytes follow the opcode and
// how to turn them into an effective address or value.
type AddrMode uint8

const (
	// Implied: IMP
	//
	// Description: the instruction names its registers or flags itself.
	// For example, CLC clears the carry flag.
	//
	// Format: no operand.
	AddrModeIMP AddrMode = iota + 1

	// Accumulator: ACC
	//
	// Description: the instruction reads and writes the accumulator (A)
	// instead of memory. For example, ASL A shifts A one bit left.
	//
	// Format: A, no operand bytes.
	AddrModeACC

	// Immediate: IMM
	//
	// Description: the operand is the byte right after the opcode.
	// For example, LDA #$10 loads $10 into A.
	//
	// Format: #$nn.
	AddrModeIMM

	// Zero Page: ZP
	//
	// Description: the operand byte is an address in $0000-$00FF.
	// For example, LDA $20 loads A from $0020.
	//
	// Format: $nn.
	AddrModeZP

	// Zero Page Indexed with X: ZPX
	//
	// Description: the operand byte plus X. The sum is truncated to 8 bits,
	// so $FF,X with X=2 is $0001 and never $0101.
	//
	// Format: $nn,X.
	AddrModeZPX

	// Zero Page Indexed with Y: ZPY
	//
	// Description: same as ZPX but with Y. Only LDX and STX use it.
	//
	// Format: $nn,Y.
	AddrModeZPY

	// Absolute: ABS
	//
	// Description: two operand bytes, low byte first, form a full address.
	// For example, LDA $1234 loads A from $1234.
	//
	// Format: $nnnn.
	AddrModeABS

	// Absolute Indexed with X: ABSX
	//
	// Description: absolute address plus X with a full 16-bit addition.
	// Crossing into the next page costs read instructions one cycle.
	//
	// Format: $nnnn,X.
	AddrModeABSX

	// Absolute Indexed with Y: ABSY
	//
	// Description: absolute address plus Y, same rules as ABSX.
	//
	// Format: $nnnn,Y.
	AddrModeABSY

	// Indirect: IND
	//
	// Description: only JMP uses it. The operand is the address of a
	// little-endian pointer to the destination. The NMOS chip never carries
	// into the high byte while reading the pointer: JMP ($10FF) takes the
	// high byte from $1000, not $1100. See CompatJumpBug.
	//
	// Format: ($nnnn).
	AddrModeIND

	// Indexed Indirect (X): INDX
	//
	// Description: the operand byte plus X, wrapped inside the zero page,
	// points to a little-endian pointer in the zero page.
	// For example, LDA ($20,X).
	//
	// Format: ($nn,X).
	AddrModeINDX

	// Indirect Indexed (Y): INDY
	//
	// Description: the operand byte points to a little-endian pointer in
	// the zero page, then Y is added to that pointer with a full 16-bit
	// addition. For example, LDA ($20),Y.
	//
	// Format: ($nn),Y.
	AddrModeINDY

	// Relative: REL
	//
	// Description: a signed 8-bit offset from the address of the
	// instruction that follows the branch. Only branches use it.
	//
	// Format: $nn, shown as the resolved target.
	AddrModeREL
)

func (mode AddrMode) String() string {
	switch mode {
	case AddrModeIMP:
		return "IMP"
	case AddrModeACC:
		return "ACC"
	case AddrModeIMM:
		return "IMM"
	case AddrModeZP:
		return "ZP"
	case AddrModeZPX:
		return "ZPX"
	case AddrModeZPY:
		return "ZPY"
	case AddrModeABS:
		return "ABS"
	case AddrModeABSX:
		return "ABSX"
	case AddrModeABSY:
		return "ABSY"
	case AddrModeIND:
		return "IND"
	case AddrModeINDX:
		return "INDX"
	case AddrModeINDY:
		return "INDY"
	case AddrModeREL:
		return "REL"
	}
	return "???"
}

// OperandBytes is the number of bytes that follow the opcode.
func (mode AddrMode) OperandBytes() uint16 {
	switch mode {
	case AddrModeIMM, AddrModeZP, AddrModeZPX, AddrModeZPY,
		AddrModeINDX, AddrModeINDY, AddrModeREL:
		return 1
	case AddrModeABS, AddrModeABSX, AddrModeABSY, AddrModeIND:
		return 2
	}
	return 0
}

func addrModeFromString(s string) (AddrMode, error) {
	for mode := AddrModeIMP; mode <= AddrModeREL; mode++ {
		if mode.String() == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("address mode couldn't be parsed from %q", s)
}

func isDiffPage(a, b uint16) bool {
	return a&0xff00 != b&0xff00
}
