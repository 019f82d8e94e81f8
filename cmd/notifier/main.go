package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/maktba/fulfillment/internal/config"
	"github.com/maktba/fulfillment/internal/messaging"
	"github.com/maktba/fulfillment/internal/notifier"
	"github.com/maktba/fulfillment/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadNotifier()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "notifier", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	createdConsumer := messaging.NewConsumer(cfg.KafkaBrokers, "order.created", "notifier")
	defer func() { _ = createdConsumer.Close() }()

	processedConsumer := messaging.NewConsumer(cfg.KafkaBrokers, "order.processed", "notifier")
	defer func() { _ = processedConsumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	handler := notifier.NewHandler(cfg.EmailServiceURL, httpClient, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notifier", "brokers", cfg.KafkaBrokers)

	errs := make(chan error, 2)
	go func() {
		errs <- createdConsumer.Consume(ctx, handler.HandleOrderCreated)
	}()
	go func() {
		errs <- processedConsumer.Consume(ctx, handler.HandleOrderProcessed)
	}()

	if err := <-errs; err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
