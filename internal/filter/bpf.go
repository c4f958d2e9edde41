package filter

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/bpf"

	"firestige.xyz/tundecode/internal/core"
)

// BPFFilter runs a classic BPF program over each datagram. Programs must be
// compiled for raw IP (DLT_RAW), e.g. with `tcpdump -y RAW -ddd 'tcp'`.
type BPFFilter struct {
	vm *bpf.VM
}

// NewBPFFilter creates a filter from raw instructions.
func NewBPFFilter(raw []bpf.RawInstruction) (*BPFFilter, error) {
	insns, ok := bpf.Disassemble(raw)
	if !ok {
		return nil, fmt.Errorf("%w: bpf program contains undecodable instructions", core.ErrConfigInvalid)
	}
	vm, err := bpf.NewVM(insns)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid bpf program: %w", core.ErrConfigInvalid, err)
	}
	return &BPFFilter{vm: vm}, nil
}

// Match reports whether the program accepts the datagram.
func (f *BPFFilter) Match(datagram []byte) bool {
	n, err := f.vm.Run(datagram)
	return err == nil && n > 0
}

// ParseDDD parses the decimal program listing printed by `tcpdump -ddd`:
// an instruction count followed by one "code jt jf k" line per instruction.
// Lines may also be separated by commas.
func ParseDDD(text string) ([]bpf.RawInstruction, error) {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ','
	})
	var fields [][]string
	for _, l := range lines {
		if f := strings.Fields(l); len(f) > 0 {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty bpf program", core.ErrConfigInvalid)
	}

	if len(fields[0]) != 1 {
		return nil, fmt.Errorf("%w: bpf program must start with the instruction count", core.ErrConfigInvalid)
	}
	count, err := strconv.Atoi(fields[0][0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad bpf instruction count: %w", core.ErrConfigInvalid, err)
	}
	if count != len(fields)-1 {
		return nil, fmt.Errorf("%w: bpf program announces %d instructions, has %d",
			core.ErrConfigInvalid, count, len(fields)-1)
	}

	raw := make([]bpf.RawInstruction, 0, count)
	for i, f := range fields[1:] {
		if len(f) != 4 {
			return nil, fmt.Errorf("%w: bpf instruction %d: want 4 fields, got %d", core.ErrConfigInvalid, i, len(f))
		}
		var v [4]uint64
		for j, s := range f {
			bits := []int{16, 8, 8, 32}[j]
			v[j], err = strconv.ParseUint(s, 10, bits)
			if err != nil {
				return nil, fmt.Errorf("%w: bpf instruction %d: %w", core.ErrConfigInvalid, i, err)
			}
		}
		raw = append(raw, bpf.RawInstruction{
			Op: uint16(v[0]),
			Jt: uint8(v[1]),
			Jf: uint8(v[2]),
			K:  uint32(v[3]),
		})
	}
	return raw, nil
}

// CompileDDD parses a `tcpdump -ddd` listing into a filter.
func CompileDDD(text string) (*BPFFilter, error) {
	raw, err := ParseDDD(text)
	if err != nil {
		return nil, err
	}
	return NewBPFFilter(raw)
}
