package main

import (
	"atmosenergy/cmd/atmos-energy/commands"
	"atmosenergy/lib/serviceutil"
	"atmosenergy/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	_, err := telemetry.SetupFromEnv(ctx, "atmos-energy")
	if err == nil {
		telemetry.InstrumentPerfStats(ctx)
	}
	commands.ExecuteContext(ctx)
}
