// Command repricer launches the marketplace repricing engine: it wires
// C1-C8 (intake adapters, normalizer, orchestrator, decision/strategy
// engines, store gateway, telemetry, and config/bootstrap) and serves the
// control-plane HTTP surface until a shutdown signal arrives, mirroring
// _examples/coachpo-meltica-gateway/cmd/gateway/main.go's signal-context +
// ordered-shutdown structure.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc"

	"github.com/northfield/repricer/internal/clock"
	"github.com/northfield/repricer/internal/config"
	"github.com/northfield/repricer/internal/httpserver"
	"github.com/northfield/repricer/internal/intake/queue"
	"github.com/northfield/repricer/internal/intake/webhook"
	"github.com/northfield/repricer/internal/normalize"
	"github.com/northfield/repricer/internal/orchestrator"
	"github.com/northfield/repricer/internal/store/redisstore"
	"github.com/northfield/repricer/internal/telemetry"
)

const (
	telemetryInitTimeout  = 10 * time.Second
	telemetryFlushTimeout = 5 * time.Second
	webhookReadHeaderTO   = 5 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	c := clock.Real{}

	telemetryCtx, cancelTelemetryInit := context.WithTimeout(ctx, telemetryInitTimeout)
	provider, err := telemetry.NewProvider(telemetryCtx, cfg.Telemetry)
	cancelTelemetryInit()
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	metrics, err := telemetry.NewMetrics(provider.Meter("repricer"))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	st := redisstore.New(cfg.Store, c)
	normalizer := normalize.New(cfg.Sellers.OwnSellerIDs, st)
	orch := orchestrator.New(st, normalizer, cfg.Store, cfg.Worker, c, metrics, logger)

	webhookHandler := webhook.New(cfg.Webhook, logger)

	var lifecycle conc.WaitGroup

	// Webhook adapter: drain its internal queue through the bounded
	// worker pool. The SQS path below uses neither this channel nor the pool.
	lifecycle.Go(func() {
		orch.Run(ctx, webhookHandler.Events, func(orchestrator.InboundEvent, orchestrator.Outcome) {})
	})

	// Queue adapter: long-polls SQS directly against the orchestrator's
	// per-event pipeline, fanning each received batch out concurrently.
	var consumer *queue.Consumer
	if cfg.Queue.URL != "" {
		sqsClient, err := newSQSClient(ctx, cfg.Queue)
		if err != nil {
			return fmt.Errorf("init sqs client: %w", err)
		}
		consumer = queue.New(sqsClient, cfg.Queue, logger)
		lifecycle.Go(func() {
			consumer.Run(ctx, orch.ProcessEvent)
		})
	} else {
		logger.Warn("SQS_QUEUE_URL not set, marketplace-A intake disabled")
	}

	statsCron := cron.New()
	if _, err := statsCron.AddFunc(fmt.Sprintf("@every %s", cfg.Worker.StatsLogInterval), func() {
		logStats(logger, orch, consumer)
	}); err != nil {
		return fmt.Errorf("schedule stats log: %w", err)
	}
	statsCron.Start()

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpserver.New(httpserver.Config{
			WebhookPath:    cfg.Webhook.Path,
			WebhookHandler: webhookHandler,
			Store:          st,
			Orchestrator:   orch,
			Logger:         logger,
		}),
		ReadHeaderTimeout: webhookReadHeaderTO,
	}
	lifecycle.Go(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("control server", "error", err)
		}
	})

	logger.Info("repricer started", "addr", cfg.Server.Addr, "workers", cfg.Worker.MaxInFlight)
	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownStep(logger, "http server", cfg.Server.ShutdownTimeout, func(sctx context.Context) error {
		return server.Shutdown(sctx)
	})
	statsCron.Stop()

	drained := make(chan struct{})
	go func() {
		lifecycle.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(cfg.Server.DrainTimeout):
		logger.Warn("drain deadline exceeded, exiting with workers still in flight")
	}

	if err := st.Close(); err != nil {
		logger.Error("close store", "error", err)
	}
	shutdownStep(logger, "telemetry", telemetryFlushTimeout, provider.Shutdown)

	logger.Info("shutdown complete")
	return nil
}

func shutdownStep(logger *slog.Logger, name string, timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("shutdown step failed", "step", name, "error", err)
	}
}

func newSQSClient(ctx context.Context, cfg config.QueueConfig) (*sqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

func logStats(logger *slog.Logger, orch *orchestrator.Orchestrator, consumer *queue.Consumer) {
	snap := orch.Snapshot()
	fields := []any{
		"uptime_seconds", snap.UptimeSeconds,
		"processed", snap.Processed,
		"failed", snap.Failed,
		"written", snap.Written,
		"unchanged", snap.Unchanged,
		"skipped", snap.Skipped,
		"retried", snap.Retried,
		"store_errors", snap.StoreErrors,
	}
	if consumer != nil {
		qs := consumer.Snapshot()
		fields = append(fields, "queue_received", qs.Received, "queue_processed", qs.Processed, "queue_empty_polls", qs.EmptyPolls)
	}
	logger.Info("periodic stats", fields...)
}
