package regmap

import (
	"math"
	"slices"
)

// Group is a named container of registers, reserved blocks and nested
// groups. Offsets of children are relative to the group's base. A Group is
// the mutable building block of a Map; once passed to Build, later changes
// to the group are not visible through the Map.
type Group struct {
	name        string
	offset      uint64
	size        uint64
	description string
	path        string

	groups    []*Group
	registers []Register
	reserved  []Block
}

// NewGroup creates a root group at the given base offset.
func NewGroup(name string, offset uint64) *Group {
	return &Group{name: name, offset: offset, path: name}
}

func (g *Group) Name() string        { return g.name }
func (g *Group) Offset() uint64      { return g.offset }
func (g *Group) Size() uint64        { return g.size }
func (g *Group) Description() string { return g.description }

// Groups returns the child groups in declaration order.
func (g *Group) Groups() []*Group { return slices.Clone(g.groups) }

// Registers returns the registers in declaration order.
func (g *Group) Registers() []Register { return slices.Clone(g.registers) }

// Reserved returns the reserved blocks in declaration order.
func (g *Group) Reserved() []Block { return slices.Clone(g.reserved) }

// SetSize reserves a fixed address span for the group. Without an explicit
// size a group spans up to the end of its furthest child.
func (g *Group) SetSize(size uint64) *Group {
	g.size = size
	return g
}

func (g *Group) SetDescription(description string) *Group {
	g.description = description
	return g
}

// Extent returns the number of bytes the group occupies in its parent.
func (g *Group) Extent() uint64 {
	if g.size > 0 {
		return g.size
	}
	var end uint64
	for _, s := range g.spans() {
		end = max(end, s.end)
	}
	return end
}

// Define adds a child group at offset, relative to g.
func (g *Group) Define(name string, offset uint64) (*Group, error) {
	if err := g.checkChild(name, span{name: name, start: offset, end: offset}); err != nil {
		return nil, err
	}
	child := &Group{name: name, offset: offset, path: g.path + PathSeparator + name}
	g.groups = append(g.groups, child)
	return child, nil
}

// AddRegister adds a 32-bit register at offset, relative to g.
func (g *Group) AddRegister(name string, offset uint64, mode Mode) error {
	return g.Add(Register{Name: name, Offset: offset, Mode: mode})
}

// Add adds r to the group. A zero width defaults to 32 bits.
func (g *Group) Add(r Register) error {
	if r.Width == 0 {
		r.Width = Width32
	}
	p := g.path + PathSeparator + r.Name
	switch r.Width {
	case 8, 16, 32:
	default:
		return configError(p, "%w: %d", ErrInvalidWidth, r.Width)
	}
	if !r.Mode.Valid() {
		return configError(p, "%w: %q", ErrInvalidMode, r.Mode)
	}
	if r.Offset%r.Width.Bytes() != 0 {
		return configError(p, "%w: 0x%X", ErrMisaligned, r.Offset)
	}
	s, err := g.childSpan(r.Name, r.Offset, r.extent())
	if err != nil {
		return err
	}
	if err := g.checkChild(r.Name, s); err != nil {
		return err
	}
	g.registers = append(g.registers, r)
	return nil
}

// Reserve marks [offset, offset+size) as occupied by an opaque block.
func (g *Group) Reserve(name string, offset, size uint64) error {
	return g.AddBlock(Block{Name: name, Offset: offset, Size: size})
}

// AddBlock adds the reserved block b to the group.
func (g *Group) AddBlock(b Block) error {
	if b.Size == 0 {
		return configError(g.path+PathSeparator+b.Name, "%w", ErrEmptyBlock)
	}
	s, err := g.childSpan(b.Name, b.Offset, b.Size)
	if err != nil {
		return err
	}
	if err := g.checkChild(b.Name, s); err != nil {
		return err
	}
	g.reserved = append(g.reserved, b)
	return nil
}

type span struct {
	name       string
	start, end uint64
}

// childSpan returns [offset, offset+extent) or ErrOutOfBounds if the end does
// not fit into 64 bits.
func (g *Group) childSpan(name string, offset, extent uint64) (span, error) {
	if offset > math.MaxUint64-extent {
		return span{}, configError(g.path+PathSeparator+name, "%w: 0x%X + 0x%X overflows", ErrOutOfBounds, offset, extent)
	}
	return span{name: name, start: offset, end: offset + extent}, nil
}

// endOf adds without wrapping around; overflowing spans are rejected by
// validate.
func endOf(offset, extent uint64) uint64 {
	if offset > math.MaxUint64-extent {
		return math.MaxUint64
	}
	return offset + extent
}

// overlaps treats empty spans as points so that two empty groups at the
// same offset still collide.
func (s span) overlaps(o span) bool {
	if s.start == o.start {
		return true
	}
	return s.start < o.end && o.start < s.end
}

func (g *Group) spans() []span {
	out := make([]span, 0, len(g.groups)+len(g.registers)+len(g.reserved))
	for _, c := range g.groups {
		out = append(out, span{name: c.name, start: c.offset, end: endOf(c.offset, c.Extent())})
	}
	for _, r := range g.registers {
		out = append(out, span{name: r.Name, start: r.Offset, end: endOf(r.Offset, r.extent())})
	}
	for _, b := range g.reserved {
		out = append(out, span{name: b.Name, start: b.Offset, end: endOf(b.Offset, b.Size)})
	}
	return out
}

func (g *Group) checkChild(name string, s span) error {
	p := g.path + PathSeparator + name
	if !validName(name) {
		return configError(p, "%w: %q", ErrInvalidName, name)
	}
	if g.size > 0 && s.end > g.size {
		return configError(p, "%w: ends at 0x%X, group size 0x%X", ErrOutOfBounds, s.end, g.size)
	}
	for _, o := range g.spans() {
		if o.name == name {
			return configError(p, "%w: %s", ErrDuplicateName, name)
		}
		if s.overlaps(o) {
			return configError(p, "%w: 0x%X overlaps %s [0x%X, 0x%X)", ErrOverlap, s.start, o.name, o.start, o.end)
		}
	}
	return nil
}

// validate re-checks every sibling set with final extents; child groups
// may have grown after they were defined.
func (g *Group) validate() error {
	for _, c := range g.groups {
		if _, err := g.childSpan(c.name, c.offset, c.Extent()); err != nil {
			return err
		}
	}
	spans := g.spans()
	slices.SortStableFunc(spans, func(a, b span) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		}
		return 0
	})
	for i := range spans {
		if g.size > 0 && spans[i].end > g.size {
			return configError(g.path+PathSeparator+spans[i].name, "%w: ends at 0x%X, group size 0x%X", ErrOutOfBounds, spans[i].end, g.size)
		}
		for j := i + 1; j < len(spans); j++ {
			if spans[j].start >= spans[i].end && spans[j].start != spans[i].start {
				break
			}
			if spans[i].overlaps(spans[j]) {
				return configError(g.path+PathSeparator+spans[j].name, "%w: 0x%X overlaps %s [0x%X, 0x%X)",
					ErrOverlap, spans[j].start, spans[i].name, spans[i].start, spans[i].end)
			}
		}
	}
	for _, c := range g.groups {
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (g *Group) clone() *Group {
	c := *g
	c.registers = slices.Clone(g.registers)
	c.reserved = slices.Clone(g.reserved)
	c.groups = make([]*Group, len(g.groups))
	for i, child := range g.groups {
		c.groups[i] = child.clone()
	}
	return &c
}
