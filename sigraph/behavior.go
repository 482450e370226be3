package sigraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sigraph-ai/sigraph/graph"
	"github.com/sigraph-ai/sigraph/provenance"
)

// Store is the slice of the graph client the behavior depends on.
// graph.Client satisfies it; tests inject an in-memory fake.
type Store interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Write(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	MergeNode(ctx context.Context, node graph.Node, primaryLabel string, primaryKeys ...string) error
	CreateRelation(ctx context.Context, rel graph.Relationship) error
}

// Behavior implements the provenance graph domain logic on top of a Store.
type Behavior struct {
	store  Store
	logger *slog.Logger
	locks  *keyedMutex
}

// NewBehavior creates a Behavior. A nil logger falls back to slog.Default.
func NewBehavior(store Store, logger *slog.Logger) *Behavior {
	if logger == nil {
		logger = slog.Default()
	}
	return &Behavior{
		store:  store,
		logger: logger.With("component", "sigraph"),
		locks:  newKeyedMutex(),
	}
}

// UpsertInput carries one ingested provenance event. ProcessName, RuleIDs
// and the parent fields are optional; a parent relationship is built only
// when both ParentSpanID and ParentProvenance are present.
type UpsertInput struct {
	UnitID           uuid.UUID
	TraceID          string
	SpanID           string
	Provenance       string
	Timestamp        time.Time
	Weight           int64
	ProcessName      string
	RuleIDs          []string
	ParentSpanID     string
	ParentProvenance string
}

// Validate checks the upsert preconditions.
func (in UpsertInput) Validate() error {
	switch {
	case in.UnitID == uuid.Nil:
		return fmt.Errorf("%w: unit id is required", ErrInvalidInput)
	case in.TraceID == "":
		return fmt.Errorf("%w: trace id is required", ErrInvalidInput)
	case in.SpanID == "":
		return fmt.Errorf("%w: span id is required", ErrInvalidInput)
	case in.Provenance == "":
		return fmt.Errorf("%w: provenance is required", ErrInvalidInput)
	case in.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp is required", ErrInvalidInput)
	case in.Weight < 1:
		return fmt.Errorf("%w: weight must be at least 1, got %d", ErrInvalidInput, in.Weight)
	}
	return nil
}

// UpsertSystemProvenance ingests one event: it decodes the provenance
// encoding, unions the event's span and trace ids into the artifact node,
// aggregates the trace (start_time only moves earlier, span_count always
// increments), reconciles the optional parent relationship, and persists
// everything through merge-based writes.
//
// The trace and the artifact are locked for the duration of the call so
// that concurrent upserts cannot lose an update to the accumulating sets
// or the span counter. Locks are acquired trace first, then artifact, the
// same order everywhere.
//
// A failure mid-sequence leaves already-applied steps in place; because
// every step is a merge, re-running the whole upsert is safe and
// converges. Only span_count advances on every call, by design.
func (b *Behavior) UpsertSystemProvenance(ctx context.Context, in UpsertInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	actor, err := provenance.DecodeActor(in.Provenance)
	if err != nil {
		return fmt.Errorf("decode provenance %q: %w", in.Provenance, err)
	}

	unlockTrace := b.locks.Lock(traceKey(in.UnitID, in.TraceID))
	defer unlockTrace()
	unlockNode := b.locks.Lock(actor.Artifact.String())
	defer unlockNode()

	current, err := b.resolveNode(ctx, actor.Artifact, in)
	if err != nil {
		return err
	}
	trace, err := b.resolveTrace(ctx, in)
	if err != nil {
		return err
	}

	var (
		parent              ProvenanceNode
		parentRel           graph.Relationship
		hasParent           bool
		parentNeedsContains bool
	)
	if in.ParentSpanID != "" && in.ParentProvenance != "" {
		parentArtifact, err := provenance.ParentArtifact(in.ParentProvenance)
		if err != nil {
			return fmt.Errorf("decode parent provenance %q: %w", in.ParentProvenance, err)
		}
		// The parent is merged bare, by key only, so an existing parent's
		// accumulated properties are never overwritten from a stale read.
		parent = ProvenanceNode{Artifact: parentArtifact}
		_, parentFound, err := b.findNode(ctx, parentArtifact)
		if err != nil {
			return b.upsertErr(err, "look up parent node", in)
		}
		parentNeedsContains = !parentFound

		parentRel, err = ActionRelationship{
			Process:    parent,
			Action:     current,
			ActionType: actor.Action,
			Direction:  actor.Direction,
			StartTime:  in.Timestamp,
			Weight:     in.Weight,
		}.GraphRelationship()
		if err != nil {
			return err
		}
		hasParent = true
	}

	if err := b.store.MergeNode(ctx, trace.GraphNode(), labelTrace, "unit_id", "trace_id"); err != nil {
		return b.upsertErr(err, "merge trace", in)
	}
	if err := b.store.MergeNode(ctx, current.GraphNode(), current.Artifact.Type.String(), "artifact"); err != nil {
		return b.upsertErr(err, "merge node", in)
	}
	if hasParent {
		if err := b.store.MergeNode(ctx, parent.GraphNode(), parent.Artifact.Type.String(), "artifact"); err != nil {
			return b.upsertErr(err, "merge parent node", in)
		}
		if err := b.store.CreateRelation(ctx, parentRel); err != nil {
			return b.upsertErr(err, "create action relationship", in)
		}
		if parentNeedsContains {
			if err := b.store.CreateRelation(ctx, containsRelationship(trace, parent.GraphNode())); err != nil {
				return b.upsertErr(err, "create parent containment", in)
			}
		}
	}
	if err := b.store.CreateRelation(ctx, containsRelationship(trace, current.GraphNode())); err != nil {
		return b.upsertErr(err, "create containment", in)
	}
	for _, ruleID := range in.RuleIDs {
		if ruleID == "" {
			continue
		}
		if err := b.store.CreateRelation(ctx, matchesRelationship(Rule{RuleID: ruleID}, current.GraphNode())); err != nil {
			return b.upsertErr(err, fmt.Sprintf("create rule match %s", ruleID), in)
		}
	}
	return nil
}

// resolveNode computes the post-upsert state of the event's artifact node:
// the union of the stored span/trace id sets with the event's ids, and the
// event's process name when given, else the stored one.
func (b *Behavior) resolveNode(ctx context.Context, art provenance.Artifact, in UpsertInput) (ProvenanceNode, error) {
	existing, found, err := b.findNode(ctx, art)
	if err != nil {
		return ProvenanceNode{}, b.upsertErr(err, "look up node", in)
	}
	current := ProvenanceNode{
		Artifact:        art,
		ProcessName:     in.ProcessName,
		RelatedSpanIDs:  []string{in.SpanID},
		RelatedTraceIDs: []string{in.TraceID},
	}
	if found {
		if current.ProcessName == "" {
			current.ProcessName = existing.ProcessName
		}
		current.RelatedSpanIDs = unionStrings(existing.RelatedSpanIDs, in.SpanID)
		current.RelatedTraceIDs = unionStrings(existing.RelatedTraceIDs, in.TraceID)
	}
	return current, nil
}

// resolveTrace computes the post-upsert trace aggregate. A fresh trace
// starts at the event's timestamp; an existing trace moves its start time
// (and the process name that goes with it) only when the event is earlier.
// span_count advances on every call.
func (b *Behavior) resolveTrace(ctx context.Context, in UpsertInput) (Trace, error) {
	trace, found, err := b.findTrace(ctx, in.UnitID, in.TraceID)
	if err != nil {
		return Trace{}, b.upsertErr(err, "look up trace", in)
	}
	if !found {
		trace = Trace{
			UnitID:      in.UnitID,
			TraceID:     in.TraceID,
			StartTime:   in.Timestamp,
			ProcessName: in.ProcessName,
		}
	} else if in.Timestamp.Before(trace.StartTime) {
		trace.StartTime = in.Timestamp
		trace.ProcessName = in.ProcessName
	}
	trace.SpanCount++
	return trace, nil
}

// findNode looks up the artifact node by label and encoded artifact
// string. Absence is not an error. More than one match means the
// per-label uniqueness invariant is broken.
func (b *Behavior) findNode(ctx context.Context, art provenance.Artifact) (ProvenanceNode, bool, error) {
	rows, err := b.store.Run(ctx, queryArtifact(art.Type.String()), map[string]any{
		"artifact": art.String(),
	})
	if err != nil {
		return ProvenanceNode{}, false, err
	}
	if len(rows) == 0 {
		return ProvenanceNode{}, false, nil
	}
	if len(rows) > 1 {
		b.logger.Error("artifact uniqueness violated",
			"artifact", art.String(),
			"label", art.Type.String(),
			"matches", len(rows),
		)
		return ProvenanceNode{}, false, fmt.Errorf(
			"%w: %d nodes share artifact %q under label %s",
			ErrInvalidElement, len(rows), art, art.Type)
	}

	props, err := nodeProperties(rows[0])
	if err != nil {
		return ProvenanceNode{}, false, fmt.Errorf("%w: artifact %q: %v", ErrInvalidElement, art, err)
	}
	node := ProvenanceNode{Artifact: art}
	if v, ok := props["process_name"]; ok {
		if node.ProcessName, err = graph.AsString(v); err != nil {
			return ProvenanceNode{}, false, fmt.Errorf("%w: artifact %q process_name: %v", ErrInvalidElement, art, err)
		}
	}
	if node.RelatedSpanIDs, err = graph.AsStringSlice(props["related_span_ids"]); err != nil {
		return ProvenanceNode{}, false, fmt.Errorf("%w: artifact %q related_span_ids: %v", ErrInvalidElement, art, err)
	}
	if node.RelatedTraceIDs, err = graph.AsStringSlice(props["related_trace_ids"]); err != nil {
		return ProvenanceNode{}, false, fmt.Errorf("%w: artifact %q related_trace_ids: %v", ErrInvalidElement, art, err)
	}
	return node, true, nil
}

// findTrace looks up the trace aggregate by (unit_id, trace_id). Absence
// is not an error.
func (b *Behavior) findTrace(ctx context.Context, unitID uuid.UUID, traceID string) (Trace, bool, error) {
	rows, err := b.store.Run(ctx, queryTrace, map[string]any{
		"unit_id":  unitID.String(),
		"trace_id": traceID,
	})
	if err != nil {
		return Trace{}, false, err
	}
	if len(rows) == 0 {
		return Trace{}, false, nil
	}
	if len(rows) > 1 {
		b.logger.Error("trace uniqueness violated",
			"unit_id", unitID.String(),
			"trace_id", traceID,
			"matches", len(rows),
		)
		return Trace{}, false, fmt.Errorf(
			"%w: %d traces share (unit_id=%s, trace_id=%s)",
			ErrInvalidElement, len(rows), unitID, traceID)
	}
	trace, err := traceFromRow(rows[0], unitID)
	if err != nil {
		return Trace{}, false, err
	}
	return trace, true, nil
}

// traceFromRow parses the "node" column of a trace query row. Malformed
// stored properties are an invariant failure, not a caller error.
func traceFromRow(row map[string]any, unitID uuid.UUID) (Trace, error) {
	props, err := nodeProperties(row)
	if err != nil {
		return Trace{}, fmt.Errorf("%w: trace of unit %s: %v", ErrInvalidElement, unitID, err)
	}
	trace := Trace{UnitID: unitID}
	if trace.TraceID, err = graph.AsString(props["trace_id"]); err != nil {
		return Trace{}, fmt.Errorf("%w: trace of unit %s: trace_id: %v", ErrInvalidElement, unitID, err)
	}
	if trace.StartTime, err = graph.AsTime(props["start_time"]); err != nil {
		return Trace{}, fmt.Errorf("%w: trace %s/%s start_time: %v", ErrInvalidElement, unitID, trace.TraceID, err)
	}
	if v, ok := props["process_name"]; ok {
		if trace.ProcessName, err = graph.AsString(v); err != nil {
			return Trace{}, fmt.Errorf("%w: trace %s/%s process_name: %v", ErrInvalidElement, unitID, trace.TraceID, err)
		}
	}
	if v, ok := props["span_count"]; ok {
		if trace.SpanCount, err = graph.AsInt64(v); err != nil {
			return Trace{}, fmt.Errorf("%w: trace %s/%s span_count: %v", ErrInvalidElement, unitID, trace.TraceID, err)
		}
	}
	return trace, nil
}

// nodeProperties extracts the property map of the "node" column of a
// normalized query row.
func nodeProperties(row map[string]any) (map[string]any, error) {
	val, ok := row["node"]
	if !ok {
		return nil, fmt.Errorf("row has no node column")
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("node column is %T, not a node", val)
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("node has no property map")
	}
	return props, nil
}

// upsertErr classifies a failure raised during upsert logic as a graph
// interaction failure and attaches the identifiers needed to find the
// offending event. An underlying sentinel (ErrInvalidElement, a client
// error) stays reachable through errors.Is.
func (b *Behavior) upsertErr(err error, step string, in UpsertInput) error {
	return fmt.Errorf("%w: %s (unit_id=%s trace_id=%s span_id=%s): %w",
		ErrGraphDBInteraction, step, in.UnitID, in.TraceID, in.SpanID, err)
}

func traceKey(unitID uuid.UUID, traceID string) string {
	return "trace/" + unitID.String() + "/" + traceID
}

// unionStrings appends add to the set unless already present, preserving
// first-seen order. The input slice is never mutated.
func unionStrings(existing []string, add string) []string {
	for _, v := range existing {
		if v == add {
			return existing
		}
	}
	out := make([]string, 0, len(existing)+1)
	out = append(out, existing...)
	return append(out, add)
}
