package regmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `{
  "map": "fpga.rmap",
  "serial": [
    {
      "url": "tcp://localhost:5020",
      "timeout": 500,
      "slaves": [
        {"address": 1, "group": "Registers"},
        {"address": 2, "group": "Modbus"}
      ]
    }
  ]
}`)

	config, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Len(t, config.Serials, 1)

	s := config.Serials[0]
	assert.Equal(t, "tcp://localhost:5020", s.Url)
	assert.Equal(t, 500, s.Timeout)
	assert.Equal(t, []Slave{{Address: 1, Group: "Registers"}, {Address: 2, Group: "Modbus"}}, s.Slaves)
	assert.Equal(t, filepath.Join(dir, "fpga.rmap"), config.MapPath(dir))
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "configuration file not found")

	_, err = LoadConfig(writeConfig(t, `{"serial": [`))
	assert.ErrorContains(t, err, "error decoding file")

	_, err = LoadConfig(writeConfig(t, `{"serial": [{"timeout": 100}]}`))
	assert.ErrorContains(t, err, "missing url")
}

func TestConfigMapPath(t *testing.T) {
	tests := []struct {
		mapRef string
		want   string
	}{
		{mapRef: "", want: ""},
		{mapRef: "relay-modbus", want: "relay-modbus"},
		{mapRef: "maps/fpga.yaml", want: "config/maps/fpga.yaml"},
		{mapRef: "/etc/regmap/fpga.rmap", want: "/etc/regmap/fpga.rmap"},
	}

	for _, tt := range tests {
		t.Run(tt.mapRef, func(t *testing.T) {
			assert.Equal(t, tt.want, Config{Map: tt.mapRef}.MapPath("config"))
		})
	}
}
