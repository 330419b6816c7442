package bus

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// Address space layout as seen by the CPU:
	//
	// $0000-$00FF: Zero page
	//   Addressable with a single byte. Zero page indexed modes wrap
	//   inside this page.
	//
	// $0100-$01FF: Stack
	//   The stack pointer is an offset into this page. Pushes and pulls
	//   never leave it.
	//
	// $0200-$FFF9: General purpose memory
	//   Program images are usually loaded somewhere in here.
	//
	// $FFFA-$FFFB: NMI vector
	// $FFFC-$FFFD: Reset vector (little-endian start address)
	// $FFFE-$FFFF: IRQ vector
	memSizeBytes = 0x10000

	NMIVector   = uint16(0xfffa)
	ResetVector = uint16(0xfffc)
	IRQVector   = uint16(0xfffe)
)

// ErrImageTooLarge is returned when a memory image or a program does not fit
// into the 64KB address space.
var ErrImageTooLarge = errors.New("image does not fit into 64KB address space")

// Bus is the only thing the CPU knows about memory and devices.
// Both operations are valid for every address and never fail.
type Bus interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, data uint8)
}

// Read16 reads a little-endian word at addr. The high byte comes from addr+1
// with 16-bit wraparound.
func Read16(b Bus, addr uint16) uint16 {
	return uint16(b.Read8(addr)) | uint16(b.Read8(addr+1))<<8
}

// Write16 writes a little-endian word at addr.
func Write16(b Bus, addr uint16, data uint16) {
	b.Write8(addr, uint8(data))
	b.Write8(addr+1, uint8(data>>8))
}

// Memory is a flat 64KB RAM without any mapped devices.
type Memory struct {
	ram [memSizeBytes]uint8
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFromImage copies img to address $0000. The rest of the memory is
// zeroed. Images larger than 64KB are rejected.
func NewMemoryFromImage(img []byte) (*Memory, error) {
	if len(img) > memSizeBytes {
		return nil, fmt.Errorf("memory image is %d bytes: %w", len(img), ErrImageTooLarge)
	}
	m := NewMemory()
	copy(m.ram[:], img)
	return m, nil
}

func (m *Memory) Read8(addr uint16) uint8 {
	return m.ram[addr]
}

func (m *Memory) Write8(addr uint16, data uint8) {
	m.ram[addr] = data
}

// Load places data at addr. Programs that would run past $FFFF are rejected
// instead of being wrapped to the zero page.
func (m *Memory) Load(addr uint16, data []byte) error {
	end := int(addr) + len(data)
	if end > memSizeBytes {
		return fmt.Errorf("program of %d bytes at $%04X ends at $%X: %w", len(data), addr, end, ErrImageTooLarge)
	}
	copy(m.ram[addr:], data)
	return nil
}

func (m *Memory) SetResetVector(addr uint16) {
	Write16(m, ResetVector, addr)
}

func (m *Memory) ResetVector() uint16 {
	return Read16(m, ResetVector)
}

func (m *Memory) SetIRQVector(addr uint16) {
	Write16(m, IRQVector, addr)
}

func (m *Memory) SetNMIVector(addr uint16) {
	Write16(m, NMIVector, addr)
}

// Dump writes the memory as hex, 16 bytes per line.
// Lines that contain only zeros are skipped.
func (m *Memory) Dump(w io.Writer) error {
	var line strings.Builder
	for base := 0; base < memSizeBytes; base += 16 {
		row := m.ram[base : base+16]
		if isZero(row) {
			continue
		}
		line.Reset()
		fmt.Fprintf(&line, "$%04X:", base)
		for _, b := range row {
			fmt.Fprintf(&line, " %02X", b)
		}
		line.WriteByte('\n')
		if _, err := io.WriteString(w, line.String()); err != nil {
			return fmt.Errorf("couldn't write memory dump: %w", err)
		}
	}
	return nil
}

func isZero(row []uint8) bool {
	for _, b := range row {
		if b != 0 {
			return false
		}
	}
	return true
}
