package sigraph

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigraph-ai/sigraph/provenance"
)

func TestProvenanceNodeGraphNode(t *testing.T) {
	node := ProvenanceNode{
		Artifact:        provenance.Artifact{Name: "a.exe", Type: provenance.ArtifactProcess},
		ProcessName:     "a.exe",
		RelatedSpanIDs:  []string{"s1"},
		RelatedTraceIDs: []string{"t1"},
	}.GraphNode()

	assert.Equal(t, "PROCESS", node.PrimaryLabel())
	assert.Equal(t, "a.exe@PROCESS", node.Properties["artifact"])
	assert.Equal(t, []string{"s1"}, node.Properties["related_span_ids"])
}

func TestProvenanceNodeGraphNode_BareNodeOmitsEmptyProperties(t *testing.T) {
	node := ProvenanceNode{
		Artifact: provenance.Artifact{Name: "p", Type: provenance.ArtifactProcess},
	}.GraphNode()

	assert.NotContains(t, node.Properties, "process_name",
		"a bare merge must not erase accumulated properties")
	assert.NotContains(t, node.Properties, "related_span_ids")
	assert.NotContains(t, node.Properties, "related_trace_ids")
}

func TestTraceGraphNode(t *testing.T) {
	unit := uuid.MustParse("1d3adf10-98a1-4b6e-b0de-02f3a9f9a001")
	node := Trace{
		UnitID:      unit,
		TraceID:     "t-1",
		StartTime:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600)),
		ProcessName: "svc",
		SpanCount:   3,
	}.GraphNode()

	assert.Equal(t, labelTrace, node.PrimaryLabel())
	assert.Equal(t, unit.String(), node.Properties["unit_id"])
	assert.Equal(t, "2026-03-01T00:00:00Z", node.Properties["start_time"], "timestamps normalize to UTC")
	assert.Equal(t, int64(3), node.Properties["span_count"])
}

func TestActionRelationshipOrientation(t *testing.T) {
	process := ProvenanceNode{Artifact: provenance.Artifact{Name: "p.exe", Type: provenance.ArtifactProcess}}
	action := ProvenanceNode{Artifact: provenance.Artifact{Name: "f.txt", Type: provenance.ArtifactFile}}
	base := ActionRelationship{
		Process:    process,
		Action:     action,
		ActionType: provenance.ActionModify,
		StartTime:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Weight:     2,
	}

	cases := []struct {
		direction        provenance.Direction
		wantStart, wantEnd string
	}{
		{provenance.DirectionWriteSend, "p.exe@PROCESS", "f.txt@FILE"},
		{provenance.DirectionNotActor, "p.exe@PROCESS", "f.txt@FILE"},
		{provenance.DirectionReadRecv, "f.txt@FILE", "p.exe@PROCESS"},
	}
	for _, tc := range cases {
		t.Run(string(tc.direction), func(t *testing.T) {
			rel := base
			rel.Direction = tc.direction
			got, err := rel.GraphRelationship()
			require.NoError(t, err)
			assert.Equal(t, "MODIFY", got.Type)
			assert.Equal(t, tc.wantStart, got.Start.Properties["artifact"])
			assert.Equal(t, tc.wantEnd, got.End.Properties["artifact"])
			assert.Equal(t, int64(2), got.Properties["weight"])
			assert.Equal(t, "2026-03-01T09:00:00Z", got.Properties["start_time"])
		})
	}
}

func TestActionRelationshipRejectsLaunchDirection(t *testing.T) {
	rel := ActionRelationship{
		Process:    ProvenanceNode{Artifact: provenance.Artifact{Name: "p", Type: provenance.ArtifactProcess}},
		Action:     ProvenanceNode{Artifact: provenance.Artifact{Name: "c", Type: provenance.ArtifactProcess}},
		ActionType: provenance.ActionLaunch,
		Direction:  provenance.DirectionLaunch,
	}
	_, err := rel.GraphRelationship()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidElement))
}
