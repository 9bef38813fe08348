package regmap

import (
	"errors"
	"fmt"
)

type Error string

const (
	ErrOverlap       Error = "offset overlaps sibling"
	ErrDuplicateName Error = "duplicate name"
	ErrInvalidMode   Error = "invalid access mode"
	ErrInvalidWidth  Error = "invalid register width"
	ErrMisaligned    Error = "offset not aligned to register width"
	ErrOutOfBounds   Error = "child extends past group size"
	ErrEmptyBlock    Error = "reserved block has zero size"
	ErrInvalidName   Error = "invalid name"
	ErrNotFound      Error = "not found"
	ErrNotRegister   Error = "not a register"
	ErrNotGroup      Error = "not a group"
	ErrReadOnly      Error = "register is read-only"
	ErrUnmapped      Error = "offset is not mapped"
)

// Error implements the error interface.
func (me Error) Error() (s string) {
	s = string(me)
	return
}

// ConfigError reports an invalid map definition. Path names the group or
// register that could not be added.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("register map %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err was caused by an invalid map
// definition.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configError(path string, format string, args ...any) error {
	return &ConfigError{Path: path, Err: fmt.Errorf(format, args...)}
}
