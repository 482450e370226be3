package sigraph

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sigraph-ai/sigraph/graph"
	"github.com/sigraph-ai/sigraph/provenance"
)

// Labels and relationship types of the provenance graph schema. Artifact
// nodes are labeled with their provenance.ArtifactType value.
const (
	labelTrace = "Trace"
	labelRule  = "Rule"

	relContains = "CONTAINS"
	relMatches  = "MATCHES"
)

// ProvenanceNode is a materialized artifact vertex. It is keyed by the
// encoded artifact string, unique within its type label, and accumulates
// the spans and traces that touched it across ingestions.
type ProvenanceNode struct {
	Artifact        provenance.Artifact
	ProcessName     string
	RelatedSpanIDs  []string
	RelatedTraceIDs []string
}

// GraphNode converts the node into its graph value form. The accumulating
// collections and the process name are only written when present, so a
// merge never erases what an earlier ingestion recorded.
func (n ProvenanceNode) GraphNode() graph.Node {
	node := graph.NewNode(n.Artifact.Type.String()).
		WithProperty("artifact", n.Artifact.String())
	if n.ProcessName != "" {
		node = node.WithProperty("process_name", n.ProcessName)
	}
	if len(n.RelatedSpanIDs) > 0 {
		node = node.WithProperty("related_span_ids", n.RelatedSpanIDs)
	}
	if len(n.RelatedTraceIDs) > 0 {
		node = node.WithProperty("related_trace_ids", n.RelatedTraceIDs)
	}
	return node
}

// Trace aggregates one invocation or session. Keyed by (unit_id, trace_id);
// start_time only moves earlier, the process name follows start_time, and
// span_count counts every ingested event.
type Trace struct {
	UnitID      uuid.UUID
	TraceID     string
	StartTime   time.Time
	ProcessName string
	SpanCount   int64
}

// GraphNode converts the trace into its graph value form. Timestamps are
// stored as RFC 3339 strings so query results serialize without a driver
// temporal adapter.
func (t Trace) GraphNode() graph.Node {
	return graph.NewNode(labelTrace).WithProperties(map[string]any{
		"unit_id":      t.UnitID.String(),
		"trace_id":     t.TraceID,
		"start_time":   formatTime(t.StartTime),
		"process_name": t.ProcessName,
		"span_count":   t.SpanCount,
	})
}

// Rule is a detection rule referenced by ingested events, keyed by rule_id.
type Rule struct {
	RuleID string
}

func (r Rule) GraphNode() graph.Node {
	return graph.NewNode(labelRule).WithProperty("rule_id", r.RuleID)
}

// ActionRelationship is a behavioral edge between a process node and the
// artifact it acted on. The actor direction fixes the edge orientation;
// the action type becomes the relationship type.
type ActionRelationship struct {
	Process    ProvenanceNode
	Action     ProvenanceNode
	ActionType provenance.ActionType
	Direction  provenance.Direction
	StartTime  time.Time
	Weight     int64
}

// GraphRelationship orients and converts the edge. READ_RECV means data
// flowed from the artifact into the process, so the edge runs action node
// to process node; WRITE_SEND and NOT_ACTOR run process node to action
// node. Any other direction cannot be materialized and reports
// ErrInvalidElement.
func (r ActionRelationship) GraphRelationship() (graph.Relationship, error) {
	var start, end ProvenanceNode
	switch r.Direction {
	case provenance.DirectionReadRecv:
		start, end = r.Action, r.Process
	case provenance.DirectionWriteSend, provenance.DirectionNotActor:
		start, end = r.Process, r.Action
	default:
		return graph.Relationship{}, fmt.Errorf(
			"%w: direction %q cannot orient an action edge (process=%s action=%s)",
			ErrInvalidElement, r.Direction, r.Process.Artifact, r.Action.Artifact)
	}
	rel := graph.NewRelationship(start.GraphNode(), end.GraphNode(), r.ActionType.String()).
		WithProperty("start_time", formatTime(r.StartTime)).
		WithProperty("weight", r.Weight)
	return rel, nil
}

func containsRelationship(trace Trace, node graph.Node) graph.Relationship {
	return graph.NewRelationship(trace.GraphNode(), node, relContains)
}

func matchesRelationship(rule Rule, node graph.Node) graph.Relationship {
	return graph.NewRelationship(rule.GraphNode(), node, relMatches)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
