package regmap

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestMap builds a small map with the shape of the relay-plus-Modbus
// image: a reserved core and two sub-blocks of 0x40000 bytes each.
func newTestMap(t *testing.T) *Map {
	t.Helper()

	root := NewGroup("Fpga", 0).SetDescription("Device Memory Mapping")
	require.NoError(t, root.Reserve("Core", 0, 0x40000))

	regs, err := root.Define("Registers", 0x80000)
	require.NoError(t, err)
	regs.SetSize(0x40000)
	require.NoError(t, regs.AddRegister("Relay_1", 0x0, ReadWrite))
	require.NoError(t, regs.AddRegister("Relay_2", 0x4, ReadWrite))
	require.NoError(t, regs.AddRegister("Relay_3", 0x8, ReadWrite))

	mb, err := root.Define("Modbus", 0xC0000)
	require.NoError(t, err)
	mb.SetSize(0x40000)
	require.NoError(t, mb.AddRegister("ModbusTxHi", 0x0, ReadWrite))
	require.NoError(t, mb.AddRegister("ModbusRxStatus", 0x8, ReadOnly))
	require.NoError(t, mb.AddRegister("Status", 0x70, ReadOnly))
	require.NoError(t, mb.Add(Register{Name: "Flags", Offset: 0x74, Width: 16, Mode: ReadWrite}))

	m, err := Build(root)
	require.NoError(t, err)
	return m
}

// fakeBus is an in-memory Bus that records writes and fails on request.
type fakeBus struct {
	mu     sync.Mutex
	regs   map[uint64]uint32
	writes []uint64
	fail   map[uint64]error
}

var errBus = errors.New("bus timeout")

func newFakeBus() *fakeBus {
	return &fakeBus{regs: make(map[uint64]uint32), fail: make(map[uint64]error)}
}

func (b *fakeBus) Read(offset uint64, width Width) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[offset]; err != nil {
		return 0, err
	}
	return b.regs[offset], nil
}

func (b *fakeBus) Write(offset uint64, width Width, value uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[offset]; err != nil {
		return err
	}
	b.writes = append(b.writes, offset)
	b.regs[offset] = value
	return nil
}

func (b *fakeBus) set(offset uint64, value uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[offset] = value
}

func (b *fakeBus) get(offset uint64) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[offset]
}

func (b *fakeBus) written() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint64(nil), b.writes...)
}
