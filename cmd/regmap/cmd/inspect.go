package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/fpga"
	"github.com/spf13/cobra"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in register maps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range fpga.Names() {
			m, err := fpga.ByName(name)
			if err != nil {
				return err
			}
			groups, err := m.Groups("")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d sub-blocks, %d registers\n", name, len(groups), len(m.Registers()))
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [group]",
	Short: "Enumerate registers with their absolute offsets",
	Long: `Enumerate the registers of a group in declaration order. Without a
group every register of the map is listed.

Examples:
  regmap dump
  regmap dump Modbus
  regmap --map relay dump Registers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDump,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>...",
	Short: "Resolve paths to absolute offsets",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadMap(cfg)
	if err != nil {
		return err
	}

	entries := m.Registers()
	if len(args) == 1 {
		if entries, err = m.Enumerate(args[0]); err != nil {
			return err
		}
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Path, fmt.Sprintf("0x%06X", e.Offset), fmt.Sprintf("%d", e.Width), string(e.Mode), e.Description})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Path", "Offset", "Width", "Mode", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadMap(cfg)
	if err != nil {
		return err
	}

	for _, p := range args {
		e, err := m.Resolve(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatEntry(e))
	}
	return nil
}

func formatEntry(e regmap.Entry) string {
	switch e.Kind {
	case regmap.KindRegister:
		return fmt.Sprintf("%-28s 0x%06X %2d bit %s", e.Path, e.Offset, e.Width, e.Mode)
	default:
		return fmt.Sprintf("%-28s 0x%06X %s, 0x%X bytes", e.Path, e.Offset, e.Kind, e.Size)
	}
}
