package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

func create(recreate, chrome bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll("dev/.state", 0777)
	if err != nil && !os.IsExist(err) {
		return err
	}

	if chrome {
		err = StartHeadlessChrome()
		if err != nil {
			return err
		}
	}
	err = CreateEmptyServiceDBs()
	if err != nil {
		return err
	}
	return WriteLocalConfig()
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	chrome := flag.Bool("chrome", false, "start a headless chrome container for logins")
	flag.Parse()

	err := create(*recreate, *chrome)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
