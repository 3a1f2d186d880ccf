package main

import (
	"context"

	"cptracker-backend/cmd/tracker-cli/commands"
	"cptracker-backend/lib/serviceutil"
	"cptracker-backend/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	// credentials live in the environment; .env is a dev convenience
	godotenv.Load()

	ctx := serviceutil.SignalContext()
	tel, err := telemetry.SetupFromEnv(ctx, "tracker-cli")
	if err != nil {
		serviceutil.Fatal("failed to set up telemetry", err)
	}
	defer tel.Shutdown(context.Background())

	telemetry.InitSlog(false)
	commands.ExecuteContext(ctx)
}
