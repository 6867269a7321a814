package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	devenv "sysaid-bridge/dev/env"
	"sysaid-bridge/lib/sqliteutil"
	"sysaid-bridge/services/servicerecords/db"
)

func cmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	return cmd.Run()
}

// StartHeadlessChrome runs a disposable chrome that the bridge can reach
// through CHROME_REMOTE_URL=ws://127.0.0.1:9222.
func StartHeadlessChrome() error {
	err := cmd("docker", "rm", "-f", "sysaid-dev-chrome")
	if err != nil {
		slog.Debug("no previous chrome container to remove", "err", err)
	}
	return cmd(
		"docker", "run", "-d",
		"--name", "sysaid-dev-chrome",
		"-p", "9222:9222",
		"chromedp/headless-shell:latest",
	)
}

func createDb(filename, schema string) error {
	path, err := devenv.ResolvePath(filepath.Join(devenv.StatePrefix, filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	database, err := sqliteutil.OpenDB(schema, path)
	if err != nil {
		return err
	}
	return database.Close()
}

func CreateEmptyServiceDBs() error {
	return createDb("servicerecords_runs.db", db.Schema)
}

const localConfigTemplate = `{
  sysaid: {
    base_url: "https://your-instance.sysaidit.com",
    credentials: {
      username: "",
      password: "",
    },
    history: {
      database: "<dev_state>/servicerecords_runs.db",
    },
  },
}
`

func WriteLocalConfig() error {
	_, err := os.Stat("config.local.json5")
	if err == nil {
		fmt.Println("config.local.json5 already exists")
		return nil
	}
	fmt.Println("writing config.local.json5, fill in the sysaid credentials before running")
	return os.WriteFile("config.local.json5", []byte(localConfigTemplate), 0600)
}
