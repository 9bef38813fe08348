package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rwirdemann/regmap"
	"github.com/rwirdemann/regmap/modbus"
	"github.com/spf13/cobra"
)

const defaultServeURL = "tcp://localhost:5020"

var serveURL string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Simulate the device as a modbus TCP server",
	Long: `Serve the selected register map from memory over modbus TCP. Every
top-level sub-block is one slave; all slaves are online. Stop with Ctrl-C.

Examples:
  regmap serve
  regmap --map relay serve --url tcp://0.0.0.0:502`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveURL, "url", "u", "", "listen url (default "+defaultServeURL+" or the first serial of the config)")
}

// slogLogger forwards server events to the default slog logger.
type slogLogger struct{}

func (slogLogger) Append(text string) {
	slog.Debug("modbus", "event", text)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadMap(cfg)
	if err != nil {
		return err
	}

	listen := serveURL
	slaves := regmap.DefaultSlaves(m)
	if len(cfg.Serials) > 0 {
		if listen == "" {
			listen = cfg.Serials[0].Url
		}
		if len(cfg.Serials[0].Slaves) > 0 {
			slaves = cfg.Serials[0].Slaves
		}
	}
	if listen == "" {
		listen = defaultServeURL
	}

	units, err := regmap.NewUnitTable(m, slaves)
	if err != nil {
		return err
	}
	srv, err := regmap.NewModbusServer(listen, units, modbus.NewMemoryMap(), slogLogger{})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	for _, u := range units.Units() {
		srv.Connect(u.Address)
		slog.Info("slave online", "unit", u.Address, "group", u.Group.Path, "offset", u.Group.Offset)
	}
	slog.Info("serving register map", "map", m.Name(), "addr", srv.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	return srv.Stop()
}
