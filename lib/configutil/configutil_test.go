package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int    `json:"port"`
	BaseUrl string `json:"base_url"`
	Nested  struct {
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"nested"`
}

func writeFile(t testing.TB, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		port: 5000,
		base_url: "https://example.sysaidit.com",
		nested: { username: "alice", password: "one" },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		nested: { password: "two" },
	}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, "https://example.sysaidit.com", cfg.BaseUrl)
	require.Equal(t, "alice", cfg.Nested.Username)
	require.Equal(t, "two", cfg.Nested.Password)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{ port: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestWithDefaults(t *testing.T) {
	cfg := testConfig{Port: 8080}
	err := WithDefaults(&cfg, testConfig{Port: 5000, BaseUrl: "https://default"})
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "https://default", cfg.BaseUrl)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONFIGUTIL_TEST_PORT", "6123")
	t.Setenv("CONFIGUTIL_TEST_URL", "https://env")
	t.Setenv("CONFIGUTIL_TEST_BAD", "not-a-number")

	cfg := testConfig{Port: 1, BaseUrl: "https://file"}
	require.NoError(t, OverrideInt(&cfg.Port, "CONFIGUTIL_TEST_PORT"))
	OverrideString(&cfg.BaseUrl, "CONFIGUTIL_TEST_URL")
	require.Equal(t, 6123, cfg.Port)
	require.Equal(t, "https://env", cfg.BaseUrl)

	require.Error(t, OverrideInt(&cfg.Port, "CONFIGUTIL_TEST_BAD"))
	require.Equal(t, 6123, cfg.Port)

	OverrideString(&cfg.BaseUrl, "CONFIGUTIL_TEST_UNSET")
	require.Equal(t, "https://env", cfg.BaseUrl)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "CONFIGUTIL_DOTENV_VALUE=from-file\n")
	t.Cleanup(func() { os.Unsetenv("CONFIGUTIL_DOTENV_VALUE") })

	err := LoadDotenv(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	require.Equal(t, "from-file", os.Getenv("CONFIGUTIL_DOTENV_VALUE"))
}
