package servicerecords

import "sysaid-bridge/lib/telemetry"

var tracer = telemetry.Tracer("sysaid.services.servicerecords")
var meter = telemetry.Meter("sysaid.services.servicerecords")
