// Command forecast runs a single forecast query and prints the result as JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = Command(openWeatherClient, logger).ExecuteContext(ctx)
	stop()
	_ = observability.FlushTelemetry(context.Background(), logger)
	if err != nil {
		os.Exit(1)
	}
}
