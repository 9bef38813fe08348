package modbus

import (
	"fmt"
	"sync"

	"github.com/rwirdemann/regmap"
)

// MemoryMap is an in-memory register file. It implements regmap.Bus and
// backs the simulated device.
type MemoryMap struct {
	mu   sync.Mutex
	regs map[uint64]uint32
}

// NewMemoryMap creates a new MemoryMap instance.
func NewMemoryMap() *MemoryMap {
	return &MemoryMap{
		regs: make(map[uint64]uint32),
	}
}

// Read returns the value stored at offset; unwritten offsets read as zero.
func (mm *MemoryMap) Read(offset uint64, width regmap.Width) (uint32, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.regs[offset] & mask(width), nil
}

func (mm *MemoryMap) Write(offset uint64, width regmap.Width, value uint32) error {
	if err := checkWidth(width); err != nil {
		return err
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.regs[offset] = value & mask(width)
	return nil
}

// Put sets the value at offset regardless of the register's access mode,
// e.g. to simulate read-only status registers changing.
func (mm *MemoryMap) Put(offset uint64, value uint32) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.regs[offset] = value
}

func (mm *MemoryMap) Get(offset uint64) (uint32, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	value, ok := mm.regs[offset]
	return value, ok
}

func checkWidth(width regmap.Width) error {
	switch width {
	case 8, 16, 32:
		return nil
	}
	return fmt.Errorf("%w: %d", regmap.ErrInvalidWidth, width)
}

func mask(width regmap.Width) uint32 {
	return uint32(1)<<width - 1
}
