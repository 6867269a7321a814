package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sysaid-bridge/lib/restyutil"
	"sysaid-bridge/lib/serviceutil"
	"sysaid-bridge/lib/telemetry"
	"sysaid-bridge/services/servicerecords"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := telemetry.SetupFromEnv(ctx, "sysaid-bridge")
	if errors.Is(err, os.ErrNotExist) {
		slog.InfoContext(ctx, "no telemetry.json5 found, telemetry export disabled")
		return
	}
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx)
}

// dumps every sysaid api exchange (with session material redacted)
// under the dev state directory.
func instrumentVerbose(service servicerecords.Service) {
	output, err := restyutil.NewFilesystemOutput("<dev_state>/resty/sysaid")
	if err != nil {
		slog.Warn("failed to create http dump directory", "err", err)
		return
	}
	restyutil.InstrumentClient(service.Collector.Http(), output)
}
