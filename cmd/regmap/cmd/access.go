package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/modbus"
	"github.com/spf13/cobra"
)

var (
	url     string
	timeout int
)

var readCmd = &cobra.Command{
	Use:   "read <path>...",
	Short: "Read registers through the modbus gateway",
	Long: `Read registers by path. A group path reads every register of the group.

Examples:
  regmap read Registers/Relay_1 --url tcp://localhost:5020
  regmap read Modbus -c config`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <path> <value>",
	Short: "Write a register through the modbus gateway",
	Long: `Write a read-write register. The value is decimal, 0x hex or 0b binary.

Examples:
  regmap write Registers/Relay_4 1 --url tcp://localhost:5020`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)

	for _, c := range []*cobra.Command{readCmd, writeCmd} {
		c.Flags().StringVarP(&url, "url", "u", "", "modbus endpoint, overrides the first serial of the config")
		c.Flags().IntVarP(&timeout, "timeout", "t", 1000, "request timeout in milliseconds")
	}
}

// openDevice connects to the endpoint given by --url or the first serial
// of the config.
func openDevice() (*regmap.Device, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	m, err := loadMap(cfg)
	if err != nil {
		return nil, nil, err
	}

	var serial regmap.Serial
	switch {
	case url != "":
		serial = regmap.Serial{Url: url, Timeout: timeout}
		if len(cfg.Serials) > 0 {
			serial.Slaves = cfg.Serials[0].Slaves
		}
	case len(cfg.Serials) > 0:
		serial = cfg.Serials[0]
	default:
		return nil, nil, errors.New("no modbus endpoint, use --url or --config")
	}

	adapter, err := modbus.NewAdapter(serial, m)
	if err != nil {
		return nil, nil, err
	}
	return regmap.NewDevice(m, adapter), adapter.Close, nil
}

func runRead(cmd *cobra.Command, args []string) error {
	dev, closeFn, err := openDevice()
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	for _, p := range args {
		e, err := dev.Map().Resolve(p)
		if err != nil {
			return err
		}
		if e.Kind == regmap.KindGroup {
			samples, err := dev.Snapshot(p)
			if err != nil {
				return err
			}
			for _, s := range samples {
				if s.Err != nil {
					fmt.Fprintf(out, "%-28s error: %v\n", s.Path, s.Err)
					continue
				}
				fmt.Fprintf(out, "%-28s 0x%08X\n", s.Path, s.Value)
			}
			continue
		}
		v, err := dev.Read(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-28s 0x%08X\n", e.Path, v)
	}
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}

	dev, closeFn, err := openDevice()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := dev.Write(args[0], uint32(value)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s <- 0x%08X\n", args[0], value)
	return nil
}
