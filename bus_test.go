package regmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRead(t *testing.T) {
	bus := newFakeBus()
	bus.set(0x80004, 0x12345678)
	dev := NewDevice(newTestMap(t), bus)

	v, err := dev.Read("Registers/Relay_2")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)

	_, err = dev.Read("Registers")
	assert.ErrorIs(t, err, ErrNotRegister)
	_, err = dev.Read("Registers/Nope")
	assert.ErrorIs(t, err, ErrNotFound)

	bus.fail[0xC0070] = errBus
	_, err = dev.Read("Modbus/Status")
	assert.ErrorIs(t, err, errBus)
	assert.Contains(t, err.Error(), "Modbus/Status")
}

func TestDeviceWrite(t *testing.T) {
	bus := newFakeBus()
	dev := NewDevice(newTestMap(t), bus)

	require.NoError(t, dev.Write("Registers/Relay_3", 0xCAFE))
	assert.Equal(t, uint32(0xCAFE), bus.get(0x80008))

	err := dev.Write("Modbus/Status", 1)
	assert.ErrorIs(t, err, ErrReadOnly)

	err = dev.Write("Core", 1)
	assert.ErrorIs(t, err, ErrNotRegister)

	// refused writes never reach the bus
	assert.Equal(t, []uint64{0x80008}, bus.written())

	bus.fail[0x80000] = errBus
	assert.ErrorIs(t, dev.Write("Registers/Relay_1", 1), errBus)
}

func TestDeviceSnapshot(t *testing.T) {
	bus := newFakeBus()
	bus.set(0xC0000, 0xAA)
	bus.set(0xC0070, 0x3)
	bus.fail[0xC0008] = errBus
	dev := NewDevice(newTestMap(t), bus)
	assert.NotNil(t, dev.Map())

	samples, err := dev.Snapshot("Modbus")
	require.NoError(t, err)
	require.Len(t, samples, 4)

	assert.Equal(t, "Modbus/ModbusTxHi", samples[0].Path)
	assert.Equal(t, uint32(0xAA), samples[0].Value)
	assert.NoError(t, samples[0].Err)
	assert.ErrorIs(t, samples[1].Err, errBus)
	assert.Equal(t, uint32(0x3), samples[2].Value)

	_, err = dev.Snapshot("Modbus/Status")
	assert.ErrorIs(t, err, ErrNotGroup)
}
