package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sigraph-ai/sigraph/config"
	"github.com/sigraph-ai/sigraph/session"
)

// Upserter is the slice of the session façade the worker needs.
type Upserter interface {
	UpsertSystemProvenance(ctx context.Context, event session.Event) session.Result
}

// Options configures the worker behavior.
type Options struct {
	// RedisURL is the Redis connection string (e.g., "redis://localhost:6379")
	RedisURL string

	// Queue is the intake queue to pop items from.
	// If empty, defaults to "sigraph:events".
	Queue string

	// Concurrency is the number of worker goroutines to start.
	// If 0, uses the value from sigraph.yaml or the default (4).
	Concurrency int

	// ShutdownTimeout is the time to wait for graceful shutdown.
	// If 0, uses the value from sigraph.yaml or the default (30s).
	ShutdownTimeout time.Duration

	// HeartbeatInterval is the interval between worker heartbeats.
	// If 0, uses the value from sigraph.yaml or the default (10s).
	HeartbeatInterval time.Duration

	// Logger is the structured logger for worker operations.
	// If nil, a default logger will be created.
	Logger *slog.Logger

	// IngestConfig is the parsed sigraph.yaml ingest section.
	// If nil, the worker will attempt to load it from the current directory.
	IngestConfig *config.IngestConfig

	// ConfigPath is the path to sigraph.yaml.
	// If empty and IngestConfig is nil, searches from the current directory.
	ConfigPath string
}

// Run starts the intake loop for the given session with the specified
// options. It connects to Redis, starts N worker goroutines based on
// Concurrency, maintains a heartbeat, and handles graceful shutdown on
// SIGTERM/SIGINT.
//
// Configuration priority (highest to lowest):
//  1. Explicit Options values (if non-zero)
//  2. sigraph.yaml ingest section
//  3. Default values
//
// Each worker goroutine:
//  1. Pops an item from the queue
//  2. Upserts the event through the session
//  3. Publishes an ack on the unit's ack channel
//
// Failed items are acked with the error; producers may re-enqueue them
// because upserts are idempotent.
//
// The function blocks until a shutdown signal is received or an error
// occurs. On shutdown, it waits for all workers to finish processing
// their current items before returning.
//
// Returns an error if the Redis connection fails.
func Run(sess Upserter, opts Options) error {
	// Load sigraph.yaml if not provided
	ingestCfg := opts.IngestConfig
	if ingestCfg == nil {
		var cfg *config.Config
		var err error
		if opts.ConfigPath != "" {
			cfg, err = config.Load(opts.ConfigPath)
		} else {
			cfg, err = config.LoadFromCurrentDir()
		}
		// sigraph.yaml is optional for the worker, defaults apply
		if err == nil {
			ingestCfg = cfg.Ingest
		}
	}

	opts = applyIngestConfig(opts, ingestCfg)

	if opts.RedisURL == "" {
		opts.RedisURL = "redis://localhost:6379"
	}
	if opts.Queue == "" {
		opts.Queue = "sigraph:events"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	workerID := generateWorkerID()

	logger := opts.Logger.With(
		"component", "ingest",
		"worker_id", workerID,
	)

	logger.Info("worker starting",
		"concurrency", opts.Concurrency,
		"queue", opts.Queue,
		"redis_url", opts.RedisURL,
	)

	queue, err := NewRedisQueue(RedisOptions{
		URL: opts.RedisURL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runHeartbeat(ctx, queue, workerID, opts.HeartbeatInterval, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			workerLoop(ctx, workerNum, sess, queue, opts.Queue, workerID, logger)
		}(i)
	}

	sig := <-sigChan
	logger.Info("shutdown signal received", "signal", sig.String())

	cancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logger.Info("worker shutdown complete")
	case <-time.After(opts.ShutdownTimeout):
		logger.Warn("worker shutdown timeout exceeded", "timeout", opts.ShutdownTimeout)
	}

	return nil
}

// runHeartbeat sends periodic heartbeats to maintain worker health status.
// It runs in a goroutine and stops when the context is cancelled.
func runHeartbeat(ctx context.Context, queue Queue, workerID string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug("heartbeat goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("heartbeat goroutine stopped")
			return
		case <-ticker.C:
			if err := queue.Heartbeat(ctx, workerID); err != nil {
				// Heartbeat failures are transient, keep the noise down
				logger.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

// workerLoop is the main loop for a single worker goroutine. It
// continuously pops items from the queue, upserts them, and publishes
// acks until the context is cancelled.
func workerLoop(ctx context.Context, workerNum int, sess Upserter, queue Queue, queueName, workerID string, logger *slog.Logger) {
	logger = logger.With("worker_num", workerNum)
	logger.Debug("worker loop started", "queue", queueName)

	for {
		// Check if context is cancelled before popping
		select {
		case <-ctx.Done():
			logger.Debug("worker loop stopped", "reason", "context_cancelled")
			return
		default:
		}

		item, err := queue.Pop(ctx, queueName)
		if err != nil {
			// Check if context was cancelled during Pop
			if ctx.Err() != nil {
				logger.Debug("worker loop stopped", "reason", "context_error")
				return
			}
			logger.Error("failed to pop item", "error", err)
			continue
		}

		if item == nil {
			continue
		}

		logger.Info("received item",
			"item_id", item.ID,
			"unit_id", item.Event.UnitID,
			"trace_id", item.Event.TraceID,
			"span_id", item.Event.SpanID,
		)

		ack := processItem(ctx, sess, *item, workerID, logger)

		ackChannel := AckChannelName(item.Event.UnitID.String())
		if err := queue.Publish(ctx, ackChannel, ack); err != nil {
			logger.Error("failed to publish ack", "error", err)
		}
	}
}

// processItem upserts a single item and returns the ack. It never
// panics on a bad event; upsert failures become error acks.
func processItem(ctx context.Context, sess Upserter, item Item, workerID string, logger *slog.Logger) Ack {
	startedAt := time.Now()

	ack := Ack{
		ItemID:   item.ID,
		WorkerID: workerID,
	}

	result := sess.UpsertSystemProvenance(ctx, item.Event)
	ack.CompletedAt = time.Now().UnixMilli()

	if result.Status != session.StatusOK {
		ack.Status = AckError
		ack.Error = result.Error
		logger.Error("upsert failed",
			"item_id", item.ID,
			"trace_id", item.Event.TraceID,
			"error", result.Error,
		)
		return ack
	}

	ack.Status = AckOK

	logger.Info("item completed",
		"item_id", item.ID,
		"trace_id", item.Event.TraceID,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)

	return ack
}

// generateWorkerID creates a unique identifier for this worker instance.
// Uses hostname + PID + UUID for uniqueness.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	pid := os.Getpid()

	id := uuid.New().String()[:8]

	return fmt.Sprintf("%s-%d-%s", hostname, pid, id)
}

// applyIngestConfig applies sigraph.yaml settings to Options. Explicit
// Options values take priority over sigraph.yaml values.
func applyIngestConfig(opts Options, cfg *config.IngestConfig) Options {
	if opts.RedisURL == "" && cfg != nil {
		opts.RedisURL = cfg.RedisURL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.GetConcurrency()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = cfg.GetShutdownTimeout()
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = cfg.GetHeartbeatInterval()
	}
	return opts
}
