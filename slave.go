package regmap

import (
	"fmt"
	"sort"
	"strings"
)

const (
	ErrUnknownUnit Error = "unknown modbus unit"
	ErrUnitAddress Error = "invalid modbus unit address"
)

// Unit is an application sub-block exposed as a modbus slave. Its
// registers are addressed in 16-bit words: modbus address a covers the
// local byte offsets 2a and 2a+1, so a 32-bit register at local offset o
// occupies addresses o/2 (high word) and o/2+1 (low word).
type Unit struct {
	Slave
	Group Entry
}

// UnitTable translates between absolute offsets of a Map and modbus
// (unit, address) pairs.
type UnitTable struct {
	m     *Map
	units []Unit
	byID  map[uint8]Unit
}

// DefaultSlaves numbers the top-level groups of m from 1 in declaration
// order.
func DefaultSlaves(m *Map) []Slave {
	groups, _ := m.Groups("")
	slaves := make([]Slave, 0, len(groups))
	for i, g := range groups {
		slaves = append(slaves, Slave{Address: uint8(i + 1), Group: g.Path})
	}
	return slaves
}

// NewUnitTable binds every slave to the group it names. Each register of
// a bound group must be 16 or 32 bits wide and lie within the 16-bit
// modbus address space.
func NewUnitTable(m *Map, slaves []Slave) (*UnitTable, error) {
	t := &UnitTable{m: m, byID: make(map[uint8]Unit, len(slaves))}
	for _, s := range slaves {
		if s.Address == 0 || s.Address > 247 {
			return nil, fmt.Errorf("%w: %d", ErrUnitAddress, s.Address)
		}
		if _, dup := t.byID[s.Address]; dup {
			return nil, fmt.Errorf("%w: %d used twice", ErrUnitAddress, s.Address)
		}
		g, err := m.Resolve(s.Group)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", s.Address, err)
		}
		if g.Kind != KindGroup {
			return nil, fmt.Errorf("unit %d: %w: %s", s.Address, ErrNotGroup, s.Group)
		}
		for _, r := range m.Registers() {
			if r.Offset < g.Offset || r.Offset >= g.End() {
				continue
			}
			if r.Width != 16 && r.Width != 32 {
				return nil, configError(r.Path, "%w: %d bits cannot be exposed as modbus words", ErrInvalidWidth, r.Width)
			}
			if (r.End()-g.Offset)/2-1 > 0xFFFF {
				return nil, configError(r.Path, "%w: local offset 0x%X exceeds modbus address space", ErrOutOfBounds, r.Offset-g.Offset)
			}
		}
		u := Unit{Slave: s, Group: g}
		t.units = append(t.units, u)
		t.byID[s.Address] = u
	}
	sort.Slice(t.units, func(i, j int) bool {
		return t.units[i].Group.Offset < t.units[j].Group.Offset
	})
	return t, nil
}

func (t *UnitTable) Map() *Map { return t.m }

// Units returns the units ordered by base offset.
func (t *UnitTable) Units() []Unit {
	return append([]Unit(nil), t.units...)
}

func (t *UnitTable) Unit(id uint8) (Unit, bool) {
	u, ok := t.byID[id]
	return u, ok
}

// Address returns the unit and word address of an absolute offset.
func (t *UnitTable) Address(offset uint64) (uint8, uint16, error) {
	for _, u := range t.units {
		if offset < u.Group.Offset || offset >= u.Group.End() {
			continue
		}
		local := offset - u.Group.Offset
		if local%2 != 0 {
			return 0, 0, fmt.Errorf("%w: 0x%X", ErrMisaligned, offset)
		}
		if local/2 > 0xFFFF {
			return 0, 0, fmt.Errorf("%w: 0x%X", ErrUnmapped, offset)
		}
		return u.Address, uint16(local / 2), nil
	}
	return 0, 0, fmt.Errorf("%w: 0x%X is outside %s", ErrUnmapped, offset, t.names())
}

// Locate returns the absolute byte offset of a word address of a unit.
func (t *UnitTable) Locate(unit uint8, addr uint16) (uint64, error) {
	u, ok := t.byID[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownUnit, unit)
	}
	offset := u.Group.Offset + 2*uint64(addr)
	if offset >= u.Group.End() {
		return 0, fmt.Errorf("%w: unit %d address 0x%04X", ErrUnmapped, unit, addr)
	}
	return offset, nil
}

func (t *UnitTable) names() string {
	names := make([]string, 0, len(t.units))
	for _, u := range t.units {
		names = append(names, fmt.Sprintf("%s (unit %d)", u.Group.Path, u.Address))
	}
	return strings.Join(names, ", ")
}
