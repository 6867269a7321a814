package main

import (
	"errors"
	"os"
	"sysaid-bridge/lib/configutil"
	"sysaid-bridge/services/servicerecords"
)

type Config struct {
	Port   int                   `json:"port"`
	SysAid servicerecords.Config `json:"sysaid"`
}

// a missing config file is fine, everything can come from the environment.
func readConfig(path string) (Config, error) {
	err := configutil.LoadDotenv(".env", ".env.local")
	if err != nil {
		return Config{}, err
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	err = configutil.WithDefaults(&cfg, Config{Port: 5000})
	if err != nil {
		return Config{}, err
	}
	err = configutil.OverrideInt(&cfg.Port, "PORT")
	if err != nil {
		return Config{}, err
	}
	err = cfg.SysAid.Finalize()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
