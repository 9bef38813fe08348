package mapfile

import (
	"fmt"
	"io"

	"github.com/rwirdemann/regmap"
	"gopkg.in/yaml.v3"
)

// Table is the flat form of a map: every register with its absolute
// offset.
type Table struct {
	Map       string       `yaml:"map"`
	Registers []TableEntry `yaml:"registers"`
}

type TableEntry struct {
	Path   string `yaml:"path"`
	Offset Hex    `yaml:"offset"`
	Mode   string `yaml:"mode"`
}

// NewTable flattens m, registers in depth-first declaration order.
func NewTable(m *regmap.Map) Table {
	t := Table{Map: m.Name()}
	for _, e := range m.Registers() {
		t.Registers = append(t.Registers, TableEntry{
			Path:   e.Path,
			Offset: Hex(e.Offset),
			Mode:   string(e.Mode),
		})
	}
	return t
}

// Offsets returns the table as path to offset pairs, the form accepted by
// regmap.Map.VerifyTable.
func (t Table) Offsets() (map[string]uint64, error) {
	out := make(map[string]uint64, len(t.Registers))
	for _, e := range t.Registers {
		if _, dup := out[e.Path]; dup {
			return nil, fmt.Errorf("%w: %s", regmap.ErrDuplicateName, e.Path)
		}
		out[e.Path] = uint64(e.Offset)
	}
	return out, nil
}

func EncodeTable(w io.Writer, m *regmap.Map) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewTable(m)); err != nil {
		return fmt.Errorf("encode table of %s: %w", m.Name(), err)
	}
	return enc.Close()
}

func DecodeTable(r io.Reader) (Table, error) {
	var t Table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return Table{}, fmt.Errorf("decode register table: %w", err)
	}
	return t, nil
}
