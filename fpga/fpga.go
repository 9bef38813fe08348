// Package fpga defines the register maps of the relay controller FPGA
// images: the relay-only image and the relay-plus-Modbus image.
package fpga

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/mapfile"
)

const (
	// RootName is the name of the root group of every image.
	RootName = "Fpga"
	// CoreName is the reserved vendor core block at the bottom of the map.
	CoreName = "Core"
	// RelayBlock and ModbusBlock name the application sub-blocks.
	RelayBlock  = "Registers"
	ModbusBlock = "Modbus"
)

var (
	// RelayLayout is the address layout of the relay-only image. The core
	// does not take a slot of its own.
	RelayLayout = regmap.Layout{CoreStride: 0x00000, AppStride: 0x1000}

	// RelayModbusLayout is the address layout of the relay-plus-Modbus
	// image.
	RelayModbusLayout = regmap.Layout{CoreStride: 0x40000, AppStride: 0x40000}
)

var builtins = map[string]func() (*regmap.Map, error){
	"relay":        RelayMap,
	"relay-modbus": RelayModbusMap,
}

// Names lists the built-in maps.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds the built-in map called name.
func ByName(name string) (*regmap.Map, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: built-in map %q", regmap.ErrNotFound, name)
	}
	return build()
}

func newRoot(layout regmap.Layout) (*regmap.Group, error) {
	root := regmap.NewGroup(RootName, 0).SetDescription("Device Memory Mapping")
	if err := layout.ReserveCore(root, CoreName); err != nil {
		return nil, err
	}
	return root, nil
}

// RelayMap builds the map of the relay-only image.
func RelayMap() (*regmap.Map, error) {
	root, err := newRoot(RelayLayout)
	if err != nil {
		return nil, err
	}
	if err := addRelayBlock(root, RelayLayout, 0); err != nil {
		return nil, err
	}
	return regmap.Build(root)
}

// RelayModbusMap builds the map of the relay-plus-Modbus image.
func RelayModbusMap() (*regmap.Map, error) {
	root, err := newRoot(RelayModbusLayout)
	if err != nil {
		return nil, err
	}
	if err := addRelayBlock(root, RelayModbusLayout, 1); err != nil {
		return nil, err
	}
	if err := addModbusBlock(root, RelayModbusLayout, 2); err != nil {
		return nil, err
	}
	return regmap.Build(root)
}

// Open returns the map referenced by ref: a map file when ref has a file
// extension, a built-in map otherwise.
func Open(ref string) (*regmap.Map, error) {
	if filepath.Ext(ref) != "" {
		return mapfile.Load(ref)
	}
	return ByName(ref)
}
