package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/fpga"
	"github.com/spf13/cobra"
)

// defaultMap is used when neither --map nor the config names a map.
const defaultMap = "relay-modbus"

var (
	// Global flags
	verbose    bool
	configPath string
	mapName    string
)

var rootCmd = &cobra.Command{
	Use:   "regmap",
	Short: "Relay controller FPGA register map tool",
	Long: `Inspect the register maps of the relay controller FPGA, export them
and access registers through a modbus gateway.

Examples:
  regmap list                                   # Show built-in maps
  regmap dump Registers                         # Enumerate the relay block
  regmap resolve Modbus/Status                  # Absolute offset of a register
  regmap export --format dsl > fpga.rmap        # Write the map as a map file
  regmap serve --url tcp://localhost:5020       # Simulate the device
  regmap read Registers/Relay_3 --url tcp://localhost:5020`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration directory containing "+regmap.ConfigFile)
	rootCmd.PersistentFlags().StringVarP(&mapName, "map", "m", "", "built-in map name or map file (.rmap, .yaml)")
}

// loadConfig reads the configuration directory if one was given.
func loadConfig() (regmap.Config, error) {
	if configPath == "" {
		return regmap.Config{}, nil
	}
	return regmap.LoadConfig(configPath)
}

// loadMap returns the map selected by --map, falling back to the config
// and finally to the relay-plus-Modbus image.
func loadMap(cfg regmap.Config) (*regmap.Map, error) {
	name := mapName
	if name == "" {
		name = cfg.MapPath(configPath)
	}
	if name == "" {
		name = defaultMap
	}
	slog.Debug("loading register map", "map", name)
	return fpga.Open(name)
}
