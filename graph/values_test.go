package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValueNode(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	node := dbtype.Node{
		ElementId: "4:abc:7",
		Labels:    []string{"Trace"},
		Props: map[string]any{
			"trace_id":   "t-1",
			"start_time": ts,
			"span_count": int64(3),
		},
	}

	got := NormalizeValue(node).(map[string]any)
	assert.Equal(t, "4:abc:7", got["elementId"])
	assert.Equal(t, []string{"Trace"}, got["labels"])

	props := got["properties"].(map[string]any)
	assert.Equal(t, "2026-03-01T10:30:00Z", props["start_time"])
	assert.Equal(t, int64(3), props["span_count"])
}

func TestNormalizeValueRelationship(t *testing.T) {
	rel := dbtype.Relationship{
		ElementId:      "5:abc:9",
		StartElementId: "4:abc:1",
		EndElementId:   "4:abc:2",
		Type:           "CONTAINS",
		Props:          map[string]any{},
	}

	got := NormalizeValue(rel).(map[string]any)
	assert.Equal(t, "5:abc:9", got["elementId"])
	assert.Equal(t, "4:abc:1", got["startNodeElementId"])
	assert.Equal(t, "4:abc:2", got["endNodeElementId"])
	assert.Equal(t, "CONTAINS", got["type"])
}

func TestNormalizeValueRecursesIntoLists(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	got := NormalizeValue([]any{ts, int64(1)}).([]any)
	assert.Equal(t, "2026-03-01T10:30:00Z", got[0])
	assert.Equal(t, int64(1), got[1])
}

func TestAsTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 30, 0, 123456789, time.UTC)
	normalized := NormalizeValue(ts)

	parsed, err := AsTime(normalized)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

func TestAsStringSlice(t *testing.T) {
	got, err := AsStringSlice([]any{"s-1", "s-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1", "s-2"}, got)

	got, err = AsStringSlice(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = AsStringSlice([]any{int64(1)})
	assert.Error(t, err)
}

func TestAsInt64(t *testing.T) {
	for _, value := range []any{int64(7), int(7), int32(7), float64(7)} {
		got, err := AsInt64(value)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got)
	}

	_, err := AsInt64("7")
	assert.Error(t, err)
}
