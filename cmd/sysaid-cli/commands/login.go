package commands

import (
	"fmt"
	"sysaid-bridge/lib/telemetry"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs into sysaid with the configured credentials and prints the session cookie names.",
	RunE: func(cmd *cobra.Command, args []string) error {
		shutdown := setupTelemetry(cmd.Context())
		defer shutdown()

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		service, err := newService(cfg)
		if err != nil {
			return fmt.Errorf("init servicerecords: %w", err)
		}
		defer service.Close()

		started := time.Now()
		jar, err := service.Acquirer.Acquire(cmd.Context(), cfg.Credentials)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Cookie", "Value"})
		for _, name := range jar.Names() {
			t.AppendRow(table.Row{name, telemetry.Redacted})
		}
		t.AppendFooter(table.Row{"Login took", time.Since(started).Round(time.Millisecond)})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
