package mapfile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/fpga"
	"github.com/rwirdemann/regmap/mapfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDSL = `
# relay controller, relay-plus-Modbus image
map Fpga "Device Memory Mapping" {
    reserve Core @ 0x0 size 0x4_0000 "vendor core"

    group Registers @ 0x80000 size 0x40000 "Container for CtrlReg" {
        register Relay_1 @ 0x00 rw "relay 1 control"
        register Relay_2 @ 0x04 RW
    }

    group Modbus @ 0xC0000 size 0x40000 {
        register ModbusTxHi @ 0x00 rw
        register Status     @ 0x70 ro "master status"
        register Flags      @ 116 rw width 16
    }
}
`

func TestParseDSL(t *testing.T) {
	m, err := mapfile.ParseDSLString(sampleDSL)
	require.NoError(t, err)
	assert.Equal(t, "Fpga", m.Name())
	assert.Equal(t, "Device Memory Mapping", m.Description())

	tests := []struct {
		path       string
		wantOffset uint64
		wantMode   regmap.Mode
		wantWidth  regmap.Width
	}{
		{path: "Registers/Relay_1", wantOffset: 0x80000, wantMode: regmap.ReadWrite, wantWidth: 32},
		{path: "Registers/Relay_2", wantOffset: 0x80004, wantMode: regmap.ReadWrite, wantWidth: 32},
		{path: "Modbus/Status", wantOffset: 0xC0070, wantMode: regmap.ReadOnly, wantWidth: 32},
		{path: "Modbus/Flags", wantOffset: 0xC0074, wantMode: regmap.ReadWrite, wantWidth: 16},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, err := m.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, e.Offset)
			assert.Equal(t, tt.wantMode, e.Mode)
			assert.Equal(t, tt.wantWidth, e.Width)
		})
	}

	core, err := m.Resolve("Core")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x40000), core.Size)
	assert.Equal(t, "vendor core", core.Description)

	regs, err := m.Resolve("Registers")
	require.NoError(t, err)
	assert.Equal(t, "Container for CtrlReg", regs.Description)
}

func TestParseDSLErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantErr    error
		wantConfig bool
	}{
		{
			name:  "syntax",
			input: `map Fpga { register A @ }`,
		},
		{
			name:       "invalid mode",
			input:      `map Fpga { register A @ 0x0 wo }`,
			wantErr:    regmap.ErrInvalidMode,
			wantConfig: true,
		},
		{
			name:       "overlap",
			input:      `map Fpga { register A @ 0x0 rw register B @ 0x0 ro }`,
			wantErr:    regmap.ErrOverlap,
			wantConfig: true,
		},
		{
			name:       "misaligned",
			input:      `map Fpga { register A @ 0x2 rw }`,
			wantErr:    regmap.ErrMisaligned,
			wantConfig: true,
		},
		{
			name:       "group grows into sibling",
			input:      `map Fpga { group A @ 0x0 { register R0 @ 0x0 rw register R1 @ 0x4 rw } group B @ 0x4 { } }`,
			wantErr:    regmap.ErrOverlap,
			wantConfig: true,
		},
		{
			name:    "width out of range",
			input:   `map Fpga { register A @ 0x0 rw width 256 }`,
			wantErr: regmap.ErrInvalidWidth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapfile.ParseDSLString(tt.input)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantConfig, regmap.IsConfigError(err))
		})
	}
}

func TestParseDSLNumbers(t *testing.T) {
	m, err := mapfile.ParseDSLString(`map Top { register A @ 012 rw register B @ 0x1_0 rw }`)
	require.NoError(t, err)

	a, err := m.Resolve("A")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), a.Offset)

	b, err := m.Resolve("B")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), b.Offset)
}

func TestFormatDSLRoundTrip(t *testing.T) {
	for _, name := range fpga.Names() {
		t.Run(name, func(t *testing.T) {
			m, err := fpga.ByName(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, mapfile.FormatDSL(&buf, m))
			assert.Contains(t, buf.String(), "register Relay_1 @ 0x00 rw \"relay 1 control\"")

			parsed, err := mapfile.ParseDSL(&buf)
			require.NoError(t, err)
			assert.Equal(t, m.Entries(), parsed.Entries())
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	for _, name := range fpga.Names() {
		t.Run(name, func(t *testing.T) {
			m, err := fpga.ByName(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, mapfile.Encode(&buf, m))

			decoded, err := mapfile.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, m.Name(), decoded.Name())
			assert.Equal(t, m.Entries(), decoded.Entries())
		})
	}
}

func TestYAMLHexOffsets(t *testing.T) {
	m, err := fpga.RelayModbusMap()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, mapfile.Encode(&buf, m))
	out := buf.String()
	assert.Contains(t, out, "name: Fpga")
	assert.Contains(t, out, "offset: 0x80000")
	assert.Contains(t, out, "size: 0x40000")
	assert.Contains(t, out, "mode: RO")
	assert.NotContains(t, out, "width:")
}

func TestDecodeYAML(t *testing.T) {
	m, err := mapfile.Decode(strings.NewReader(`
name: Top
groups:
  - name: Block
    offset: 0x100
    registers:
      - name: A
        offset: 0x0
        mode: rw
      - name: B
        offset: 8
        width: 16
        mode: ro
`))
	require.NoError(t, err)

	b, err := m.Resolve("Block/B")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x108), b.Offset)
	assert.Equal(t, regmap.Width(16), b.Width)
	assert.Equal(t, regmap.ReadOnly, b.Mode)

	_, err = mapfile.Decode(strings.NewReader("name: Top\nregisters:\n  - name: A\n    offset: 0x0\n    mode: xx\n"))
	assert.ErrorIs(t, err, regmap.ErrInvalidMode)

	_, err = mapfile.Decode(strings.NewReader("name: Top\nregisters:\n  - name: A\n    offset: zero\n    mode: rw\n"))
	assert.ErrorContains(t, err, "invalid offset")
}

func TestDecodeYAMLNumbers(t *testing.T) {
	m, err := mapfile.Decode(strings.NewReader(`
name: Top
registers:
  - name: A
    offset: 012
    mode: rw
  - name: B
    offset: 0x1_0
    mode: rw
  - name: C
    offset: 2_0
    mode: rw
`))
	require.NoError(t, err)

	for path, want := range map[string]uint64{"A": 12, "B": 0x10, "C": 20} {
		e, err := m.Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, want, e.Offset, path)
	}
}

func TestDecodeYAMLNames(t *testing.T) {
	for _, doc := range []string{
		"name: Top\ngroups:\n  - name: Relay-Block\n    offset: 0x0\n",
		"name: Top\nregisters:\n  - name: Relay-1\n    offset: 0x0\n    mode: rw\n",
		"name: Top\nreserved:\n  - name: Core 0\n    offset: 0x0\n    size: 0x10\n",
		"name: Fpga-Top\n",
	} {
		_, err := mapfile.Decode(strings.NewReader(doc))
		assert.ErrorIs(t, err, regmap.ErrInvalidName, doc)
	}
}

// Every map the YAML decoder accepts must survive a trip through the DSL.
func TestYAMLToDSLRoundTrip(t *testing.T) {
	m, err := mapfile.Decode(strings.NewReader(`
name: _Top2
groups:
  - name: Relay_Block_2
    offset: 0x100
    reserved:
      - name: _pad
        offset: 0x0
        size: 0x4
    registers:
      - name: Relay_10
        offset: 0x4
        mode: rw
`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, mapfile.FormatDSL(&buf, m))
	parsed, err := mapfile.ParseDSL(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Name(), parsed.Name())
	assert.Equal(t, m.Entries(), parsed.Entries())
}

func TestTable(t *testing.T) {
	m, err := fpga.RelayModbusMap()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, mapfile.EncodeTable(&buf, m))
	assert.Contains(t, buf.String(), "path: Modbus/Status")

	table, err := mapfile.DecodeTable(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Fpga", table.Map)
	require.Len(t, table.Registers, 24)
	assert.Equal(t, "Registers/Relay_1", table.Registers[0].Path)
	assert.Equal(t, mapfile.Hex(0x80000), table.Registers[0].Offset)

	offsets, err := table.Offsets()
	require.NoError(t, err)
	require.NoError(t, m.VerifyTable(offsets))

	// the relay-only image places the relay block elsewhere
	relay, err := fpga.RelayMap()
	require.NoError(t, err)
	assert.Error(t, relay.VerifyTable(offsets))

	table.Registers = append(table.Registers, table.Registers[0])
	_, err = table.Offsets()
	assert.ErrorIs(t, err, regmap.ErrDuplicateName)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	m, err := fpga.RelayModbusMap()
	require.NoError(t, err)

	var dsl, doc bytes.Buffer
	require.NoError(t, mapfile.FormatDSL(&dsl, m))
	require.NoError(t, mapfile.Encode(&doc, m))

	files := map[string][]byte{
		"fpga.rmap": dsl.Bytes(),
		"fpga.yaml": doc.Bytes(),
		"fpga.YML":  doc.Bytes(),
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o644))

		loaded, err := mapfile.Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, m.Table(), loaded.Table(), name)
	}

	_, err = mapfile.Load(filepath.Join(dir, "fpga.txt"))
	assert.ErrorContains(t, err, "unknown map file format")

	_, err = mapfile.Load(filepath.Join(dir, "missing.rmap"))
	assert.Error(t, err)
}

func TestSampleConfigMap(t *testing.T) {
	m, err := mapfile.Load(filepath.Join("..", "config", "fpga.rmap"))
	require.NoError(t, err)

	builtin, err := fpga.RelayModbusMap()
	require.NoError(t, err)
	assert.Equal(t, builtin.Table(), m.Table())
	require.NoError(t, m.VerifyTable(builtin.Table()))
}
