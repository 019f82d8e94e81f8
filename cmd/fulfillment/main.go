package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/maktba/fulfillment/internal/cart"
	"github.com/maktba/fulfillment/internal/catalog"
	"github.com/maktba/fulfillment/internal/config"
	"github.com/maktba/fulfillment/internal/messaging"
	"github.com/maktba/fulfillment/internal/orders"
	"github.com/maktba/fulfillment/internal/telemetry"
)

const (
	serviceName    = "fulfillment"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadFulfillment()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(10 * time.Second)); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var createdProducer, processedProducer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		createdProducer = messaging.NewProducer(cfg.KafkaBrokers, "order.created")
		defer func() { _ = createdProducer.Close() }()
		processedProducer = messaging.NewProducer(cfg.KafkaBrokers, "order.processed")
		defer func() { _ = processedProducer.Close() }()
	}

	cartService, err := cart.NewService(db, createdProducer, logger)
	if err != nil {
		logger.Error("failed to create cart service", "error", err)
		os.Exit(1)
	}
	cartHandler := cart.NewHandler(cartService, logger)

	orderService, err := orders.NewService(db, processedProducer, logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}
	orderHandler := orders.NewHandler(orderService, logger)

	products := catalog.NewProductRepository(db)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAddItem))
	mux.HandleFunc("DELETE /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleRemoveItem))
	mux.HandleFunc("GET /cart/{userId}", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("DELETE /cart/{userId}", telemetry.WithHTTPRoute(cartHandler.HandleReset))
	mux.HandleFunc("POST /cart/{userId}/confirm", telemetry.WithHTTPRoute(cartHandler.HandleConfirm))
	mux.HandleFunc("PUT /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleModify))
	mux.HandleFunc("GET /admin/orders", telemetry.WithHTTPRoute(orderHandler.HandleAdminList))
	mux.HandleFunc("POST /admin/orders/{id}/prepare", telemetry.WithHTTPRoute(orderHandler.HandlePrepare))
	mux.HandleFunc("DELETE /admin/orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleRemove))
	mux.HandleFunc("GET /stock", telemetry.WithHTTPRoute(func(w http.ResponseWriter, r *http.Request) {
		handleListStock(w, r, products, logger)
	}))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting fulfillment service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
