package modbus

import (
	"fmt"
	"sync"

	"github.com/rwirdemann/regmap"
	"github.com/simonvetter/modbus"
)

var (
	_ regmap.Bus = (*Adapter)(nil)
	_ regmap.Bus = (*MemoryMap)(nil)
)

// Adapter is a regmap.Bus that reaches the device through a modbus client.
// Absolute offsets are translated to (unit, holding register) pairs by a
// unit table.
type Adapter struct {
	mu     sync.Mutex
	client *modbus.ModbusClient
	units  *regmap.UnitTable
}

// NewAdapter opens a client connection for serial. Slaves of serial bind
// unit ids to the top-level groups of m; without slaves the groups are
// numbered from 1.
func NewAdapter(serial regmap.Serial, m *regmap.Map) (*Adapter, error) {
	units, err := regmap.NewUnitTable(m, slaves(serial, m))
	if err != nil {
		return nil, err
	}

	client, err := modbus.NewClient(clientConfiguration(serial))
	if err != nil {
		return nil, fmt.Errorf("create client for %s: %w", serial.Url, err)
	}
	if err = client.Open(); err != nil {
		return nil, fmt.Errorf("open %s: %w", serial.Url, err)
	}

	return &Adapter{client: client, units: units}, nil
}

func (a *Adapter) Close() {
	_ = a.client.Close()
}

func (a *Adapter) Units() *regmap.UnitTable {
	return a.units
}

func (a *Adapter) Read(offset uint64, width regmap.Width) (uint32, error) {
	unit, addr, err := a.units.Address(offset)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.client.SetUnitId(unit); err != nil {
		return 0, fmt.Errorf("set unit id: %w", err)
	}

	switch width {
	case 32:
		return a.client.ReadUint32(addr, modbus.HOLDING_REGISTER)
	case 16:
		v, err := a.client.ReadRegister(addr, modbus.HOLDING_REGISTER)
		return uint32(v), err
	default:
		return 0, fmt.Errorf("%w: %d", regmap.ErrInvalidWidth, width)
	}
}

func (a *Adapter) Write(offset uint64, width regmap.Width, value uint32) error {
	unit, addr, err := a.units.Address(offset)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.client.SetUnitId(unit); err != nil {
		return fmt.Errorf("set unit id: %w", err)
	}

	switch width {
	case 32:
		return a.client.WriteUint32(addr, value)
	case 16:
		return a.client.WriteRegister(addr, uint16(value))
	default:
		return fmt.Errorf("%w: %d", regmap.ErrInvalidWidth, width)
	}
}
