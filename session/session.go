package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/sigraph-ai/sigraph/graph"
	"github.com/sigraph-ai/sigraph/sigraph"
)

// Config configures a Session.
type Config struct {
	// Graph configures the database connection. The primary-key map is
	// filled from the provenance schema when left empty.
	Graph graph.Config

	// Logger receives the session's structured logs. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// MeterProvider enables operation metrics when set. Telemetry is a
	// no-op without it.
	MeterProvider metric.MeterProvider
}

// Session owns a graph connection and exposes the provenance operations
// the API layer consumes. Every operation returns a result value that
// serializes cleanly; failures are logged and carried in the result, never
// raised across the boundary.
type Session struct {
	client   *graph.Client
	behavior *sigraph.Behavior
	logger   *slog.Logger
	metrics  *sessionMetrics
}

// New connects to the graph database, installs the schema constraints, and
// returns a ready Session. The caller owns the Session and must Close it.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("component", "session")
	if cfg.Graph.PrimaryKeys == nil {
		cfg.Graph.PrimaryKeys = sigraph.PrimaryKeys()
	}

	client, err := graph.NewClient(ctx, cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("connect graph database: %w", err)
	}

	// Constraint DDL cannot run inside an explicit transaction, so each
	// statement executes as its own auto-commit query. All statements are
	// idempotent; re-running them at every startup is safe.
	for _, stmt := range sigraph.Constraints() {
		if _, err := client.Run(ctx, stmt, nil); err != nil {
			client.Close(ctx)
			return nil, fmt.Errorf("apply schema constraint: %w", err)
		}
	}
	logger.Info("schema constraints applied", "count", len(sigraph.Constraints()))

	metrics, err := newSessionMetrics(cfg.MeterProvider)
	if err != nil {
		client.Close(ctx)
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	s := newSession(client, cfg.Logger, metrics)
	s.client = client
	return s, nil
}

// newSession wires a Session around any Store. Tests use it to inject an
// in-memory store; New uses it with the real client.
func newSession(store sigraph.Store, logger *slog.Logger, metrics *sessionMetrics) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		behavior: sigraph.NewBehavior(store, logger),
		logger:   logger.With("component", "session"),
		metrics:  metrics,
	}
}

// Close releases the underlying database connection.
func (s *Session) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(ctx)
}

// Status reports whether an operation succeeded.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is the base shape of every session response.
type Result struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

func ok() Result {
	return Result{Status: StatusOK}
}

// TraceIDsResult carries related trace ids.
type TraceIDsResult struct {
	Result
	TraceIDs []string `json:"trace_ids"`
}

// SummariesResult carries the trace summaries of a unit.
type SummariesResult struct {
	Result
	Traces []sigraph.TraceSummary `json:"traces"`
}

// CleanupResult reports what a debris cleanup removed.
type CleanupResult struct {
	Result
	NodesDeleted         int64 `json:"nodes_deleted"`
	RelationshipsDeleted int64 `json:"relationships_deleted"`
}

// ProvenanceResult carries the full provenance render of a unit.
type ProvenanceResult struct {
	Result
	sigraph.RenderedGraph
}

// UpsertSystemProvenance ingests one provenance event.
func (s *Session) UpsertSystemProvenance(ctx context.Context, event Event) Result {
	start := time.Now()
	err := s.behavior.UpsertSystemProvenance(ctx, event.upsertInput())
	s.metrics.record(ctx, "upsert", start, err)
	if err != nil {
		return s.fail(err, "upsert failed",
			"unit_id", event.UnitID.String(),
			"trace_id", event.TraceID,
			"span_id", event.SpanID,
		)
	}
	return ok()
}

// RelatedTraceIDs returns the ids of traces related to the named one
// within maxHop hops. A non-positive maxHop selects the default radius.
func (s *Session) RelatedTraceIDs(ctx context.Context, unitID uuid.UUID, traceID string, maxHop int) TraceIDsResult {
	if maxHop <= 0 {
		maxHop = sigraph.DefaultMaxHop
	}
	start := time.Now()
	ids, err := s.behavior.RelatedTraceIDs(ctx, unitID, traceID, maxHop)
	s.metrics.record(ctx, "related_traces", start, err)
	if err != nil {
		return TraceIDsResult{
			Result:   s.fail(err, "related traces query failed", "unit_id", unitID.String(), "trace_id", traceID),
			TraceIDs: []string{},
		}
	}
	if ids == nil {
		ids = []string{}
	}
	return TraceIDsResult{Result: ok(), TraceIDs: ids}
}

// TraceSummaries returns the unit's traces that aggregated at least two
// events.
func (s *Session) TraceSummaries(ctx context.Context, unitID uuid.UUID) SummariesResult {
	start := time.Now()
	summaries, err := s.behavior.TraceSummaries(ctx, unitID)
	s.metrics.record(ctx, "trace_summaries", start, err)
	if err != nil {
		return SummariesResult{
			Result: s.fail(err, "trace summaries query failed", "unit_id", unitID.String()),
			Traces: []sigraph.TraceSummary{},
		}
	}
	if summaries == nil {
		summaries = []sigraph.TraceSummary{}
	}
	return SummariesResult{Result: ok(), Traces: summaries}
}

// CleanDebris removes the unit's isolated single-event traces.
func (s *Session) CleanDebris(ctx context.Context, unitID uuid.UUID) CleanupResult {
	start := time.Now()
	cleaned, err := s.behavior.CleanDebris(ctx, unitID)
	s.metrics.record(ctx, "clean_debris", start, err)
	if err != nil {
		return CleanupResult{Result: s.fail(err, "debris cleanup failed", "unit_id", unitID.String())}
	}
	return CleanupResult{
		Result:               ok(),
		NodesDeleted:         cleaned.NodesDeleted,
		RelationshipsDeleted: cleaned.RelationshipsDeleted,
	}
}

// AllProvenance renders the unit's full provenance graph.
func (s *Session) AllProvenance(ctx context.Context, unitID uuid.UUID) ProvenanceResult {
	start := time.Now()
	rendered, err := s.behavior.AllProvenance(ctx, unitID)
	s.metrics.record(ctx, "all_provenance", start, err)
	if err != nil {
		return ProvenanceResult{
			Result:        s.fail(err, "provenance render failed", "unit_id", unitID.String()),
			RenderedGraph: rendered,
		}
	}
	return ProvenanceResult{Result: ok(), RenderedGraph: rendered}
}

func (s *Session) fail(err error, msg string, args ...any) Result {
	s.logger.Error(msg, append(args, "error", err)...)
	return Result{Status: StatusError, Error: err.Error()}
}
