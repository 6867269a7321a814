package sysaid

import "sysaid-bridge/lib/telemetry"

var tracer = telemetry.Tracer("sysaid.lib.scrapers.sysaid")
