package regmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSlaves(t *testing.T) {
	slaves := DefaultSlaves(newTestMap(t))
	assert.Equal(t, []Slave{
		{Address: 1, Group: "Registers"},
		{Address: 2, Group: "Modbus"},
	}, slaves)
}

func TestUnitTableAddress(t *testing.T) {
	m := newTestMap(t)
	units, err := NewUnitTable(m, DefaultSlaves(m))
	require.NoError(t, err)

	tests := []struct {
		name     string
		offset   uint64
		wantUnit uint8
		wantAddr uint16
		wantErr  error
	}{
		{name: "first relay", offset: 0x80000, wantUnit: 1, wantAddr: 0x0},
		{name: "third relay", offset: 0x80008, wantUnit: 1, wantAddr: 0x4},
		{name: "low word", offset: 0x8000A, wantUnit: 1, wantAddr: 0x5},
		{name: "modbus status", offset: 0xC0070, wantUnit: 2, wantAddr: 0x38},
		{name: "core", offset: 0x10, wantErr: ErrUnmapped},
		{name: "past last block", offset: 0x100000, wantErr: ErrUnmapped},
		{name: "odd offset", offset: 0x80001, wantErr: ErrMisaligned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, addr, err := units.Address(tt.offset)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUnit, unit)
			assert.Equal(t, tt.wantAddr, addr)

			offset, err := units.Locate(unit, addr)
			require.NoError(t, err)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestUnitTableLocate(t *testing.T) {
	root := NewGroup("Top", 0)
	g, err := root.Define("Small", 0x100)
	require.NoError(t, err)
	g.SetSize(0x10)
	require.NoError(t, g.AddRegister("R", 0x0, ReadWrite))
	m, err := Build(root)
	require.NoError(t, err)

	units, err := NewUnitTable(m, []Slave{{Address: 5, Group: "Small"}})
	require.NoError(t, err)

	offset, err := units.Locate(5, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10E), offset)

	_, err = units.Locate(5, 8)
	assert.ErrorIs(t, err, ErrUnmapped)
	_, err = units.Locate(6, 0)
	assert.ErrorIs(t, err, ErrUnknownUnit)

	u, ok := units.Unit(5)
	require.True(t, ok)
	assert.Equal(t, "Small", u.Group.Path)
	assert.Same(t, m, units.Map())
}

func TestUnitTableOrder(t *testing.T) {
	m := newTestMap(t)
	units, err := NewUnitTable(m, []Slave{{Address: 7, Group: "Modbus"}, {Address: 3, Group: "Registers"}})
	require.NoError(t, err)

	list := units.Units()
	require.Len(t, list, 2)
	assert.Equal(t, uint8(3), list[0].Address)
	assert.Equal(t, uint8(7), list[1].Address)
}

func TestNewUnitTableErrors(t *testing.T) {
	m := newTestMap(t)

	wide := NewGroup("Top", 0)
	g, err := wide.Define("Wide", 0)
	require.NoError(t, err)
	require.NoError(t, g.AddRegister("Far", 0x20000, ReadWrite))
	wideMap, err := Build(wide)
	require.NoError(t, err)

	narrow := NewGroup("Top", 0)
	g, err = narrow.Define("Narrow", 0)
	require.NoError(t, err)
	require.NoError(t, g.Add(Register{Name: "Byte", Width: 8, Mode: ReadWrite}))
	narrowMap, err := Build(narrow)
	require.NoError(t, err)

	tests := []struct {
		name    string
		m       *Map
		slaves  []Slave
		wantErr error
	}{
		{name: "address zero", m: m, slaves: []Slave{{Address: 0, Group: "Registers"}}, wantErr: ErrUnitAddress},
		{name: "address too high", m: m, slaves: []Slave{{Address: 248, Group: "Registers"}}, wantErr: ErrUnitAddress},
		{name: "duplicate address", m: m, slaves: []Slave{{Address: 1, Group: "Registers"}, {Address: 1, Group: "Modbus"}}, wantErr: ErrUnitAddress},
		{name: "unknown group", m: m, slaves: []Slave{{Address: 1, Group: "Nope"}}, wantErr: ErrNotFound},
		{name: "register instead of group", m: m, slaves: []Slave{{Address: 1, Group: "Registers/Relay_1"}}, wantErr: ErrNotGroup},
		{name: "8-bit register", m: narrowMap, slaves: []Slave{{Address: 1, Group: "Narrow"}}, wantErr: ErrInvalidWidth},
		{name: "beyond word address space", m: wideMap, slaves: []Slave{{Address: 1, Group: "Wide"}}, wantErr: ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUnitTable(tt.m, tt.slaves)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
