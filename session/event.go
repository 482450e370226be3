package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/sigraph-ai/sigraph/sigraph"
)

// Event is one inbound provenance event as the API layer delivers it.
// ProcessName, RelatedRuleIDs and the parent fields are optional.
type Event struct {
	UnitID                 uuid.UUID `json:"unit_id"`
	SpanID                 string    `json:"span_id"`
	TraceID                string    `json:"trace_id"`
	Timestamp              time.Time `json:"timestamp"`
	Weight                 int64     `json:"weight"`
	SystemProvenance       string    `json:"system_provenance"`
	ProcessName            string    `json:"process_name,omitempty"`
	RelatedRuleIDs         []string  `json:"related_rule_ids,omitempty"`
	ParentSpanID           string    `json:"parent_span_id,omitempty"`
	ParentSystemProvenance string    `json:"parent_system_provenance,omitempty"`
}

func (e Event) upsertInput() sigraph.UpsertInput {
	return sigraph.UpsertInput{
		UnitID:           e.UnitID,
		TraceID:          e.TraceID,
		SpanID:           e.SpanID,
		Provenance:       e.SystemProvenance,
		Timestamp:        e.Timestamp,
		Weight:           e.Weight,
		ProcessName:      e.ProcessName,
		RuleIDs:          e.RelatedRuleIDs,
		ParentSpanID:     e.ParentSpanID,
		ParentProvenance: e.ParentSystemProvenance,
	}
}
