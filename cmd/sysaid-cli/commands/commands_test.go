package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sysaid-bridge/services/servicerecords"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDisablesHistory(t *testing.T) {
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.json5")
	err := os.WriteFile(configPath, []byte(`{
		sysaid: {
			base_url: "https://helpdesk.example.com",
			credentials: { username: "agent", password: "hunter2" },
			history: { database: "<dev_state>/runs.db" },
		},
	}`), 0600)
	require.NoError(t, err)
	t.Setenv("SYSAID_HISTORY_DB", "")
	t.Setenv("SYSAID_BASE_URL", "")
	t.Setenv("SYSAID_USERNAME", "")
	t.Setenv("SYSAID_PASSWORD", "")

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.Empty(t, cfg.History.Database)
	require.Equal(t, 500, cfg.PageSize)
}

func TestValueOf(t *testing.T) {
	value := "High"
	require.Equal(t, "High", valueOf(&value, true))
	require.Equal(t, "null", valueOf(nil, true))
	require.Equal(t, "", valueOf(nil, false))
}

func TestScrapeReturnsConfigErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{ sysaid: { base_url: "https://helpdesk.example.com" } }`), 0600)
	require.NoError(t, err)
	t.Setenv("SYSAID_USERNAME", "")
	t.Setenv("SYSAID_PASSWORD", "")

	rootCmd.SetArgs([]string{"scrape", "--config", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err = rootCmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "read config")
}

func TestRenderRecords(t *testing.T) {
	high := "High"
	var out bytes.Buffer
	renderRecords(&out, []string{"Priority", "Status"}, []servicerecords.ProjectedRecord{
		{"Priority": &high, "Status": nil},
	})
	require.Contains(t, out.String(), "High")
	require.Contains(t, out.String(), "null")
	require.Contains(t, out.String(), "Total")
}
