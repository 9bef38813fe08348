package regmap

import "fmt"

// Bus performs memory-mapped reads and writes at absolute offsets.
// Implementations own serialization, timeouts and retries; errors are
// passed through as returned.
type Bus interface {
	Read(offset uint64, width Width) (uint32, error)
	Write(offset uint64, width Width, value uint32) error
}

// Sample is the value of a register read at one point in time.
type Sample struct {
	Entry
	Value uint32
	Err   error
}

// Device accesses the registers of a Map through a Bus.
type Device struct {
	m   *Map
	bus Bus
}

func NewDevice(m *Map, bus Bus) *Device {
	return &Device{m: m, bus: bus}
}

func (d *Device) Map() *Map { return d.m }

func (d *Device) register(path string) (Entry, error) {
	e, err := d.m.Resolve(path)
	if err != nil {
		return Entry{}, err
	}
	if e.Kind != KindRegister {
		return Entry{}, fmt.Errorf("%w: %s is a %s", ErrNotRegister, path, e.Kind)
	}
	return e, nil
}

// Read reads the register named by path.
func (d *Device) Read(path string) (uint32, error) {
	e, err := d.register(path)
	if err != nil {
		return 0, err
	}
	v, err := d.bus.Read(e.Offset, e.Width)
	if err != nil {
		return 0, fmt.Errorf("read %s at 0x%X: %w", e.Path, e.Offset, err)
	}
	return v, nil
}

// Write writes value to the register named by path. Read-only registers
// are refused without touching the bus.
func (d *Device) Write(path string, value uint32) error {
	e, err := d.register(path)
	if err != nil {
		return err
	}
	if !e.Mode.Writable() {
		return fmt.Errorf("%w: %s", ErrReadOnly, e.Path)
	}
	if err := d.bus.Write(e.Offset, e.Width, value); err != nil {
		return fmt.Errorf("write %s at 0x%X: %w", e.Path, e.Offset, err)
	}
	return nil
}

// Snapshot reads every register of the group named by path. A failing
// read is recorded in its sample and does not stop the others.
func (d *Device) Snapshot(path string) ([]Sample, error) {
	entries, err := d.m.Enumerate(path)
	if err != nil {
		return nil, err
	}
	samples := make([]Sample, 0, len(entries))
	for _, e := range entries {
		v, err := d.bus.Read(e.Offset, e.Width)
		samples = append(samples, Sample{Entry: e, Value: v, Err: err})
	}
	return samples, nil
}
