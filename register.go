// Package regmap describes memory-mapped device registers as an immutable
// tree of groups and registers. A Map resolves register paths to absolute
// bus offsets; reads and writes are delegated to a Bus.
package regmap

import (
	"fmt"
	"strings"
)

// Mode is the access mode of a register.
type Mode string

const (
	ReadWrite Mode = "RW"
	ReadOnly  Mode = "RO"
)

// Width is a register width in bits.
type Width uint8

// Width32 is the width of every register of the relay controller.
const Width32 Width = 32

// Bytes returns the number of bytes a register of this width occupies.
func (w Width) Bytes() uint64 {
	return uint64(w) / 8
}

// ParseMode parses RW or RO, ignoring case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	return m == ReadWrite || m == ReadOnly
}

func (m Mode) Writable() bool {
	return m == ReadWrite
}

// Register is a single addressable cell. Offset is relative to the group
// that owns the register.
type Register struct {
	Name        string
	Offset      uint64
	Width       Width
	Mode        Mode
	Description string
}

func (r Register) extent() uint64 {
	return r.Width.Bytes()
}

// Block is an opaque, reserved address range inside a group, e.g. a
// vendor supplied core that is accessed through other means.
type Block struct {
	Name        string
	Offset      uint64
	Size        uint64
	Description string
}
