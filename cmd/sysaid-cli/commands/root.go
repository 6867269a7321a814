package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sysaid-bridge/lib/configutil"
	"sysaid-bridge/lib/telemetry"
	"sysaid-bridge/services/servicerecords"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sysaid-cli",
	Short: "sysaid-cli is a CLI for logging into sysaid and extracting service records.",

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "Path to the configuration file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

type fileConfig struct {
	SysAid servicerecords.Config `json:"sysaid"`
}

// the cli shares the server's config file but never records run history.
func loadConfig() (servicerecords.Config, error) {
	err := configutil.LoadDotenv(".env", ".env.local")
	if err != nil {
		return servicerecords.Config{}, err
	}
	file, err := configutil.ReadConfig[fileConfig](configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return servicerecords.Config{}, err
	}
	cfg := file.SysAid
	err = cfg.Finalize()
	if err != nil {
		return servicerecords.Config{}, err
	}
	cfg.History.Database = ""
	return cfg, nil
}

// setupTelemetry exports telemetry when a telemetry.json5 is present, the
// returned func flushes it and must run before the process exits.
func setupTelemetry(ctx context.Context) func() {
	tel, err := telemetry.SetupFromEnv(ctx, "sysaid-cli")
	if errors.Is(err, os.ErrNotExist) {
		return func() {}
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to setup telemetry, export disabled", "err", err)
		return func() {}
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
