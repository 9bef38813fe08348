package regmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
)

// ConfigFile is the name of the configuration file inside a config
// directory.
const ConfigFile = "config.json"

type Config struct {
	// Map is the name of a built-in map or the path of a map file,
	// relative to the config directory.
	Map     string   `json:"map"`
	Serials []Serial `json:"serial"`
}

// Serial describes a modbus endpoint, either tcp://host:port or a serial
// device such as rtu:///dev/ttyUSB0.
type Serial struct {
	Url      string  `json:"url"`
	Timeout  int     `json:"timeout"`
	Speed    int     `json:"speed"`
	DataBits int     `json:"data_bits"`
	Parity   int     `json:"parity"`
	StopBits int     `json:"stop_bits"`
	Slaves   []Slave `json:"slaves"`
}

// Slave binds a modbus unit address to a top-level group of the map.
type Slave struct {
	Address uint8  `json:"address"`
	Group   string `json:"group"`
}

func LoadConfig(configPath string) (Config, error) {
	if !exists(path.Join(configPath, ConfigFile)) {
		return Config{}, fmt.Errorf("configuration file not found: %s", path.Join(configPath, ConfigFile))
	}

	bb, err := os.ReadFile(path.Join(configPath, ConfigFile))
	if err != nil {
		return Config{}, fmt.Errorf("error reading file: %w", err)
	}
	var config Config
	if err := json.NewDecoder(bytes.NewReader(bb)).Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error decoding file: %w", err)
	}
	for i, s := range config.Serials {
		if s.Url == "" {
			return Config{}, fmt.Errorf("serial %d: missing url", i)
		}
	}
	return config, nil
}

// MapPath resolves the map reference of the config against the config
// directory. Built-in map names are returned unchanged.
func (c Config) MapPath(configPath string) string {
	if c.Map == "" || path.IsAbs(c.Map) || path.Ext(c.Map) == "" {
		return c.Map
	}
	return path.Join(configPath, c.Map)
}

func exists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil || !os.IsNotExist(err)
}
