package mapfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwirdemann/regmap"
)

// Extensions recognized by Load.
const (
	ExtDSL  = ".rmap"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
)

// Load reads a map file, choosing the format by extension.
func Load(filename string) (*regmap.Map, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtDSL:
		return ParseDSLFile(filename)
	case ExtYAML, ExtYML:
		f, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		m, err := Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%s: unknown map file format, want %s, %s or %s", filename, ExtDSL, ExtYAML, ExtYML)
}
