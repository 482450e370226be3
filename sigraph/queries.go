package sigraph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sigraph-ai/sigraph/graph"
)

const (
	// DefaultMaxHop bounds the related-trace search when the caller does
	// not pick a radius.
	DefaultMaxHop = 5

	// minMaxHop is the smallest usable radius: two traces sharing a node
	// are already two hops apart (trace, node, trace).
	minMaxHop = 2
)

// RelatedTraceIDs returns the ids of every other trace of the unit
// reachable from the named trace within maxHop undirected hops, with
// duplicates removed and the starting trace excluded.
func (b *Behavior) RelatedTraceIDs(ctx context.Context, unitID uuid.UUID, traceID string, maxHop int) ([]string, error) {
	if unitID == uuid.Nil {
		return nil, fmt.Errorf("%w: unit id is required", ErrInvalidInput)
	}
	if traceID == "" {
		return nil, fmt.Errorf("%w: trace id is required", ErrInvalidInput)
	}
	if maxHop < minMaxHop {
		return nil, fmt.Errorf("%w: max hop must be at least %d, got %d", ErrInvalidInput, minMaxHop, maxHop)
	}

	rows, err := b.store.Run(ctx, queryRelatedTraces(maxHop), map[string]any{
		"unit_id":  unitID.String(),
		"trace_id": traceID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: related traces (unit_id=%s trace_id=%s): %w",
			ErrGraphDBInteraction, unitID, traceID, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		id, err := graph.AsString(row["trace_id"])
		if err != nil {
			return nil, fmt.Errorf("%w: related traces (unit_id=%s): %v", ErrInvalidElement, unitID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CleanupResult reports what a debris cleanup removed.
type CleanupResult struct {
	NodesDeleted         int64 `json:"nodes_deleted"`
	RelationshipsDeleted int64 `json:"relationships_deleted"`
}

// CleanDebris removes the unit's isolated single-event traces: every
// (Trace, Node) pair where the trace contains exactly one node and that
// node has no edges beyond the containment itself. The delete runs inside
// a single write transaction so it never partially applies.
func (b *Behavior) CleanDebris(ctx context.Context, unitID uuid.UUID) (CleanupResult, error) {
	if unitID == uuid.Nil {
		return CleanupResult{}, fmt.Errorf("%w: unit id is required", ErrInvalidInput)
	}

	rows, err := b.store.Write(ctx, flushDebris, map[string]any{"unit_id": unitID.String()})
	if err != nil {
		return CleanupResult{}, fmt.Errorf("%w: clean debris (unit_id=%s): %w",
			ErrGraphDBInteraction, unitID, err)
	}

	var pairs int64
	if len(rows) > 0 {
		if pairs, err = graph.AsInt64(rows[0]["pairs"]); err != nil {
			return CleanupResult{}, fmt.Errorf("%w: clean debris (unit_id=%s): %v",
				ErrInvalidElement, unitID, err)
		}
	}
	b.logger.Info("cleaned debris", "unit_id", unitID.String(), "pairs", pairs)

	// Each pair is one trace node, one artifact node, one containment edge.
	return CleanupResult{NodesDeleted: 2 * pairs, RelationshipsDeleted: pairs}, nil
}

// TraceSummary is one trace aggregate of a unit.
type TraceSummary struct {
	TraceID     string    `json:"trace_id"`
	StartTime   time.Time `json:"start_time"`
	ProcessName string    `json:"process_name"`
	SpanCount   int64     `json:"span_count"`
}

// TraceSummaries returns the unit's traces that aggregated at least two
// events, ordered by start time.
func (b *Behavior) TraceSummaries(ctx context.Context, unitID uuid.UUID) ([]TraceSummary, error) {
	if unitID == uuid.Nil {
		return nil, fmt.Errorf("%w: unit id is required", ErrInvalidInput)
	}

	rows, err := b.store.Run(ctx, queryTraceSummaries, map[string]any{"unit_id": unitID.String()})
	if err != nil {
		return nil, fmt.Errorf("%w: trace summaries (unit_id=%s): %w", ErrGraphDBInteraction, unitID, err)
	}

	summaries := make([]TraceSummary, 0, len(rows))
	for _, row := range rows {
		trace, err := traceFromRow(row, unitID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TraceSummary{
			TraceID:     trace.TraceID,
			StartTime:   trace.StartTime,
			ProcessName: trace.ProcessName,
			SpanCount:   trace.SpanCount,
		})
	}
	return summaries, nil
}

// AllProvenance walks the unit's full provenance graph and returns it as
// deduplicated render-ready node and relationship lists.
func (b *Behavior) AllProvenance(ctx context.Context, unitID uuid.UUID) (RenderedGraph, error) {
	rendered := RenderedGraph{
		Nodes: []RenderedNode{},
		Rels:  []RenderedRelationship{},
	}
	if unitID == uuid.Nil {
		return rendered, fmt.Errorf("%w: unit id is required", ErrInvalidInput)
	}

	rows, err := b.store.Run(ctx, queryAllProvenance, map[string]any{"unit_id": unitID.String()})
	if err != nil {
		return rendered, fmt.Errorf("%w: all provenance (unit_id=%s): %w", ErrGraphDBInteraction, unitID, err)
	}

	seenNodes := make(map[string]struct{})
	seenRels := make(map[string]struct{})
	for _, row := range rows {
		prov, ok := row["provenance"].(map[string]any)
		if !ok {
			return rendered, fmt.Errorf("%w: all provenance (unit_id=%s): row has no provenance column", ErrInvalidElement, unitID)
		}
		nlst, _ := prov["nlst"].([]any)
		for _, value := range nlst {
			node, err := renderedNodeFromValue(value)
			if err != nil {
				return rendered, fmt.Errorf("%w: all provenance (unit_id=%s): %v", ErrInvalidElement, unitID, err)
			}
			if _, ok := seenNodes[node.ElementID]; ok {
				continue
			}
			seenNodes[node.ElementID] = struct{}{}
			rendered.Nodes = append(rendered.Nodes, node)
		}
		rlst, _ := prov["rlst"].([]any)
		for _, value := range rlst {
			rel, err := renderedRelationshipFromValue(value)
			if err != nil {
				return rendered, fmt.Errorf("%w: all provenance (unit_id=%s): %v", ErrInvalidElement, unitID, err)
			}
			if _, ok := seenRels[rel.ElementID]; ok {
				continue
			}
			seenRels[rel.ElementID] = struct{}{}
			rendered.Rels = append(rendered.Rels, rel)
		}
	}
	return rendered, nil
}
