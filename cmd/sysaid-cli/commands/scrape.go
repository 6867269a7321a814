package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sysaid-bridge/lib/restyutil"
	"sysaid-bridge/services/servicerecords"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeJson bool
	scrapeDump string
)

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeJson, "json", false, "Print the records as json instead of a table.")
	scrapeCmd.Flags().StringVar(&scrapeDump, "dump", "", "Write every http exchange with the sysaid api (redacted) into this directory.")
	rootCmd.AddCommand(scrapeCmd)
}

func newService(cfg servicerecords.Config) (servicerecords.Service, error) {
	service, err := servicerecords.NewService(cfg)
	if err != nil {
		return servicerecords.Service{}, err
	}
	if scrapeDump != "" {
		output, err := restyutil.NewFilesystemOutput(scrapeDump)
		if err != nil {
			service.Close()
			return servicerecords.Service{}, err
		}
		restyutil.InstrumentClient(service.Collector.Http(), output)
	}
	return service, nil
}

func valueOf(value *string, present bool) string {
	if !present {
		return ""
	}
	if value == nil {
		return "null"
	}
	return *value
}

func renderRecords(out io.Writer, fields []string, records []servicerecords.ProjectedRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(out)

	header := table.Row{"#"}
	for _, f := range fields {
		header = append(header, f)
	}
	t.AppendHeader(header)

	for i, record := range records {
		row := table.Row{i + 1}
		for _, f := range fields {
			value, present := record[f]
			row = append(row, valueOf(value, present))
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"Total", len(records)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--json] [--dump <dir>]",
	Short: "Runs a full extraction and prints the projected service records.",
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

		records, err := service.Pipeline.Run(cmd.Context(), cfg.Credentials)
		if err != nil {
			return fmt.Errorf("extract service records: %w", err)
		}

		if scrapeJson {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(records)
		}
		renderRecords(cmd.OutOrStdout(), servicerecords.DefaultRequiredFields.Names(), records)
		return nil
	},
}
