// Package logging configures the backend's slog output: JSON to stdout
// for everything, with ERROR+ records additionally batched into the
// system_logs table so sync and lockout failures stay queryable after the
// container logs rotate.
package logging

import (
	"log/slog"
	"os"
)

// Setup installs a JSON stdout logger as the slog default. main swaps it
// for the stdout+Postgres fan-out once the database is connected.
func Setup() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}
