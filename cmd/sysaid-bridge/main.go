package main

import (
	"flag"
	"log/slog"
	"net/http"
	"sysaid-bridge/lib/serviceutil"
	"sysaid-bridge/services/servicerecords"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := readConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	service, err := servicerecords.NewService(cfg.SysAid)
	if err != nil {
		serviceutil.Fatal("init servicerecords", err)
	}
	defer service.Close()
	if *verbose {
		instrumentVerbose(service)
	}

	mux := http.NewServeMux()
	service.Handler().Register(mux)

	slog.InfoContext(
		ctx, "serving sysaid service records",
		"base_url", cfg.SysAid.BaseUrl,
		"user", cfg.SysAid.Credentials,
		"history", service.RunLog != nil,
	)
	err = serviceutil.StartHttpServer(ctx, serviceutil.NewHttpServer(cfg.Port, mux))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
	slog.Info("server stopped")
}
