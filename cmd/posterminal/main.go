package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/posterminal/api/routes"
	"github.com/angelmondragon/posterminal/internal/receipt"
	"github.com/angelmondragon/posterminal/internal/scanner"
	"github.com/angelmondragon/posterminal/internal/scanner/serial"
	"github.com/angelmondragon/posterminal/internal/terminal"
	"github.com/angelmondragon/posterminal/pkg/backend"
	"github.com/angelmondragon/posterminal/pkg/config"
	"github.com/angelmondragon/posterminal/pkg/logger"
	"github.com/angelmondragon/posterminal/pkg/metrics"
	"github.com/angelmondragon/posterminal/pkg/printer"
	"github.com/angelmondragon/posterminal/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "posterminal"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "posterminal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "terminal stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithCounter(ctx, cfg.App.CounterNumber)

	var (
		registry       *prometheus.Registry
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	backendClient, err := backend.NewClient(cfg.Backend, logg, backend.WithMetrics(metrics.NewBackendMetrics(registerer(registry))))
	if err != nil {
		return err
	}

	var (
		store    routes.Store
		sessions redis.SessionStore
		lease    *redis.CounterLease
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logg.Error(ctx, "error closing redis", closeErr)
			}
		}()
		lease, err = redisClient.AcquireCounterLease(ctx, cfg.App.CounterNumber, cfg.Redis.LeaseTTL)
		if err != nil {
			return err
		}
		store = redisClient
		sessions = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; idempotent replay and cart recovery disabled")
	}

	var session terminal.Scanner
	if specs := cfg.Scanner.DeviceSpecs(); len(specs) > 0 {
		session = scanner.NewSession(serial.NewDevices(specs), serial.Decoder{}, scanner.Options{
			RetryInterval: cfg.Scanner.RetryInterval,
			SettleDelay:   cfg.Scanner.SettleDelay,
			EventBuffer:   cfg.Scanner.EventBuffer,
			Logger:        logg,
			Metrics:       metrics.NewScannerMetrics(registerer(registry)),
		})
	} else {
		logg.Warn(ctx, "no scanner devices configured; items must be added by search")
	}

	receiptPrinter, err := printer.New(cfg.Receipt)
	if err != nil {
		return err
	}

	term, err := terminal.New(backendClient, terminal.Options{
		Counter:    cfg.App.CounterNumber,
		Debounce:   cfg.Search.Debounce,
		Header:     receipt.HeaderFromConfig(cfg.Receipt),
		PrintWidth: cfg.Receipt.PrinterWidth,
		Store:      sessions,
		Scanner:    session,
		Printer:    receiptPrinter,
		Logger:     logg,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, term.Close())
	}()

	if err := term.Restore(ctx); err != nil {
		logg.Warn(ctx, "could not restore previous session; starting empty")
	}
	if session != nil {
		if _, err := term.StartScanner(ctx); err != nil {
			logg.Warn(ctx, "scanner did not start; retry from the counter")
		}
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, store, term, metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logg.WithFields(gctx, map[string]any{"env": cfg.App.Env, "addr": addr}), "starting terminal api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return term.Run(gctx)
	})
	if lease != nil {
		g.Go(func() error {
			return lease.Hold(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "shutting down terminal api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// registerer keeps a nil *prometheus.Registry from becoming a non-nil interface.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}
