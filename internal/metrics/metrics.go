// Package metrics exposes Prometheus metrics for the bot.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeUserNotFound = "user_not_found"
	OutcomeNoHistory    = "no_history"
	OutcomeEmptyModel   = "empty_model"
	OutcomeBrokenChain  = "broken_chain"
	OutcomeThrottled    = "throttled"
	OutcomeError        = "error"
)

var (
	MessagesArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parrotbot_messages_archived_total",
		Help: "Total chat messages archived",
	})
	MessagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parrotbot_messages_skipped_total",
		Help: "Total chat messages not archived because the sender opted out",
	})
	MessagesForgotten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parrotbot_messages_forgotten_total",
		Help: "Total archived messages deleted by forget requests",
	})
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parrotbot_commands_total",
		Help: "Total bot commands handled",
	}, []string{"command"})
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parrotbot_generations_total",
		Help: "Total parrot generations by outcome",
	}, []string{"outcome"})

	GeneratedTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parrotbot_generated_tokens",
		Help:    "Number of units rendered per generated message",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	ChainSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parrotbot_chain_size",
		Help:    "Distinct tokens in the chain built for a generation",
		Buckets: prometheus.ExponentialBuckets(4, 4, 8),
	})
	GenerationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parrotbot_generation_latency_seconds",
		Help:    "Time to fetch history, build the chain and generate",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Handler renders the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr at path until ctx is cancelled.
func Serve(ctx context.Context, addr, path string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
