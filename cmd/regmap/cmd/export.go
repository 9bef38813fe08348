package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rwirdemann/regmap/mapfile"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the register map as YAML, flat table or map file",
	Long: `Write the selected register map in one of three formats:

  yaml   hierarchical document, readable with --map file.yaml
  table  flat list of register paths and absolute offsets
  dsl    map file, readable with --map file.rmap

Examples:
  regmap export --format yaml -o fpga.yaml
  regmap --map relay export --format table`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "output format: yaml, table or dsl")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadMap(cfg)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "yaml":
		return mapfile.Encode(w, m)
	case "table":
		return mapfile.EncodeTable(w, m)
	case "dsl":
		return mapfile.FormatDSL(w, m)
	}
	return fmt.Errorf("unknown format %q", exportFormat)
}
