package cpu

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

//go:embed opcode_matrix.csv
var opcodeMatrixFileData []byte

// Definition is one row of the opcode matrix. It is owned by a Registry and
// never modified after the registry is built.
type Definition struct {
	Opcode   uint8
	Mnemonic string
	Mode     AddrMode
	Cycles   uint8

	operate operation
}

// Registry maps every opcode byte to its definition.
// Opcodes the NMOS 6502 leaves undocumented have no entry.
type Registry struct {
	defs [0x100]*Definition
	size int
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry built from the embedded opcode matrix.
// It is built on first use and shared afterwards.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := NewRegistry()
		if err != nil {
			panic(fmt.Sprintf("embedded opcode matrix is broken: %s", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// NewRegistry parses the embedded opcode matrix.
func NewRegistry() (*Registry, error) {
	return parseOpcodeMatrix(bytes.NewReader(opcodeMatrixFileData))
}

// Lookup returns the definition for opcode, or false when the opcode is
// undefined.
func (r *Registry) Lookup(opcode uint8) (*Definition, bool) {
	def := r.defs[opcode]
	return def, def != nil
}

// Len is the number of defined opcodes.
func (r *Registry) Len() int {
	return r.size
}

func parseOpcodeMatrix(in io.Reader) (*Registry, error) {
	r := csv.NewReader(in)
	r.ReuseRecord = true
	_, _ = r.Read() // skip header

	reg := &Registry{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("couldn't read data from csv: %w", err)
		}
		if len(record) != 4 {
			return nil, fmt.Errorf("invalid format for the record: %s: must be 4 parts", strings.Join(record, string(r.Comma)))
		}

		opcodeByte, err := strconv.ParseUint(record[0], 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid format for opcode byte: %w", err)
		}
		if reg.defs[opcodeByte] != nil {
			return nil, fmt.Errorf("opcode %02X is defined twice", opcodeByte)
		}

		mnemonic := strings.ToUpper(record[1])
		op, err := operationFromMnemonic(mnemonic)
		if err != nil {
			return nil, fmt.Errorf("invalid format for mnemonic: %w", err)
		}

		mode, err := addrModeFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("invalid format for address mode: %w", err)
		}

		cycles, err := strconv.ParseUint(record[3], 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid format for opcode cycles: %w", err)
		}

		reg.defs[opcodeByte] = &Definition{
			Opcode:   uint8(opcodeByte),
			Mnemonic: mnemonic,
			Mode:     mode,
			Cycles:   uint8(cycles),
			operate:  op,
		}
		reg.size++
	}

	return reg, nil
}
