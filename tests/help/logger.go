package help

import (
	"log/slog"
	"os"
)

// Logger builds the JSON slog used across the integration tests.
func Logger() *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	log := slog.New(h).With(
		slog.String("service", "strataCache"),
		slog.String("env", "test"),
	)
	slog.SetDefault(log)

	return log
}
