package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/iota-uz/portal/internal/server"
	"github.com/iota-uz/portal/modules"
	logservices "github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/application"
	"github.com/iota-uz/portal/pkg/configuration"
	"github.com/iota-uz/portal/pkg/eventbus"
	"github.com/iota-uz/portal/pkg/logging"
	"github.com/iota-uz/portal/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	conf, err := configuration.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	defer func() {
		if r := recover(); r != nil {
			conf.Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()
	defer conf.Unload()
	logger := conf.Logger()

	// Set up OpenTelemetry if enabled
	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	be, err := server.NewBackend(ctx, conf, logger)
	if err != nil {
		panic(err)
	}
	defer be.Close()

	app := application.New(&application.ApplicationOptions{
		Config:   conf,
		Logger:   logger,
		Backend:  be.Client,
		EventBus: eventbus.NewEventPublisher(logger),
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on: %s\n", conf.Origin)
		errCh <- serverInstance.Start(conf.SocketAddress)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("server stopped")
		}
	case <-stop.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := serverInstance.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Warn("http server shutdown")
	}
	eventLogger := app.Service(logservices.EventLogger{}).(*logservices.EventLogger)
	if err := eventLogger.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("event log queue not drained")
	}
}
