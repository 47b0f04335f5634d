package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/posterminal/api/responses"
	"github.com/angelmondragon/posterminal/internal/scanner"
	"github.com/angelmondragon/posterminal/internal/terminal"
	"github.com/angelmondragon/posterminal/pkg/config"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
	"github.com/angelmondragon/posterminal/pkg/redis"
)

const envHeader = "X-POS-Env"

// Readiness is what the ready probe inspects on the counter.
type Readiness interface {
	Scanner() terminal.ScannerView
	PrinterReady() bool
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady fails only when a configured dependency is down. Scanner and
// printer state are reported for the display but never fail the probe.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisClient redis.Pinger, counter Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		payload := map[string]any{
			"status":  "ready",
			"counter": cfg.App.CounterNumber,
			"scanner": scanner.StatusUnavailable,
			"printer": false,
		}
		if counter != nil {
			payload["scanner"] = counter.Scanner().State.Status
			payload["printer"] = counter.PrinterReady()
		}
		responses.WriteSuccess(w, payload)
	}
}
