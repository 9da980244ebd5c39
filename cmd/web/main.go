// Command web serves the report pipeline over HTTP: code submission,
// artifact downloads, websocket progress and Prometheus metrics.
package main

import (
	"log/slog"
	"os"

	"sicreport/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
