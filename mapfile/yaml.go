// Package mapfile reads and writes register maps: a hierarchical YAML
// document, a flat path/offset table and a compact text DSL.
package mapfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/rwirdemann/regmap"
	"gopkg.in/yaml.v3"
)

// Hex is an offset written as a hexadecimal YAML integer.
type Hex uint64

func (h Hex) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!int",
		Value: fmt.Sprintf("0x%X", uint64(h)),
	}, nil
}

func (h *Hex) UnmarshalYAML(n *yaml.Node) error {
	v, err := parseNumber(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid offset %q: %w", n.Line, n.Value, err)
	}
	*h = Hex(v)
	return nil
}

// GroupDoc is the YAML form of a group. The root group of a map is a
// GroupDoc as well.
type GroupDoc struct {
	Name        string        `yaml:"name"`
	Offset      Hex           `yaml:"offset,omitempty"`
	Size        Hex           `yaml:"size,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Reserved    []BlockDoc    `yaml:"reserved,omitempty"`
	Registers   []RegisterDoc `yaml:"registers,omitempty"`
	Groups      []GroupDoc    `yaml:"groups,omitempty"`
}

type BlockDoc struct {
	Name        string `yaml:"name"`
	Offset      Hex    `yaml:"offset"`
	Size        Hex    `yaml:"size"`
	Description string `yaml:"description,omitempty"`
}

type RegisterDoc struct {
	Name        string `yaml:"name"`
	Offset      Hex    `yaml:"offset"`
	Width       uint8  `yaml:"width,omitempty"`
	Mode        string `yaml:"mode"`
	Description string `yaml:"description,omitempty"`
}

// Encode writes m as a YAML document.
func Encode(w io.Writer, m *regmap.Map) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toDoc(m.Tree())); err != nil {
		return fmt.Errorf("encode %s: %w", m.Name(), err)
	}
	return enc.Close()
}

// Decode reads a YAML document and builds the map it describes.
func Decode(r io.Reader) (*regmap.Map, error) {
	var doc GroupDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode register map: %w", err)
	}
	return doc.Build()
}

// Build builds the map described by d.
func (d GroupDoc) Build() (*regmap.Map, error) {
	root := regmap.NewGroup(d.Name, uint64(d.Offset)).
		SetSize(uint64(d.Size)).
		SetDescription(d.Description)
	if err := d.fill(root); err != nil {
		return nil, err
	}
	return regmap.Build(root)
}

func (d GroupDoc) fill(g *regmap.Group) error {
	for _, b := range d.Reserved {
		err := g.AddBlock(regmap.Block{
			Name:        b.Name,
			Offset:      uint64(b.Offset),
			Size:        uint64(b.Size),
			Description: b.Description,
		})
		if err != nil {
			return err
		}
	}
	for _, r := range d.Registers {
		err := g.Add(regmap.Register{
			Name:        r.Name,
			Offset:      uint64(r.Offset),
			Width:       regmap.Width(r.Width),
			Mode:        regmap.Mode(strings.ToUpper(r.Mode)),
			Description: r.Description,
		})
		if err != nil {
			return err
		}
	}
	for _, c := range d.Groups {
		child, err := g.Define(c.Name, uint64(c.Offset))
		if err != nil {
			return err
		}
		child.SetSize(uint64(c.Size)).SetDescription(c.Description)
		if err := c.fill(child); err != nil {
			return err
		}
	}
	return nil
}

func toDoc(g *regmap.Group) GroupDoc {
	d := GroupDoc{
		Name:        g.Name(),
		Offset:      Hex(g.Offset()),
		Size:        Hex(g.Size()),
		Description: g.Description(),
	}
	for _, b := range g.Reserved() {
		d.Reserved = append(d.Reserved, BlockDoc{
			Name:        b.Name,
			Offset:      Hex(b.Offset),
			Size:        Hex(b.Size),
			Description: b.Description,
		})
	}
	for _, r := range g.Registers() {
		rd := RegisterDoc{
			Name:        r.Name,
			Offset:      Hex(r.Offset),
			Mode:        string(r.Mode),
			Description: r.Description,
		}
		if r.Width != regmap.Width32 {
			rd.Width = uint8(r.Width)
		}
		d.Registers = append(d.Registers, rd)
	}
	for _, c := range g.Groups() {
		d.Groups = append(d.Groups, toDoc(c))
	}
	return d
}
