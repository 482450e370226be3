package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemDecodesWirePayload(t *testing.T) {
	payload := `{
		"id": "item-42",
		"submitted_at": 1767225600000,
		"event": {
			"unit_id": "7f1c2b44-9d3a-4e1f-8a6b-0c5d9e2f1a33",
			"trace_id": "trace-1",
			"span_id": "span-1",
			"timestamp": "2026-03-01T09:00:00Z",
			"weight": 2,
			"system_provenance": "C:\\temp\\dropped.dll@FILE@CREATE@WRITE_SEND",
			"process_name": "svc-a",
			"related_rule_ids": ["R-100"]
		}
	}`

	var item Item
	require.NoError(t, json.Unmarshal([]byte(payload), &item))

	assert.Equal(t, "item-42", item.ID)
	assert.Equal(t, int64(1767225600000), item.SubmittedAt)
	assert.Equal(t, testUnit, item.Event.UnitID)
	assert.Equal(t, "trace-1", item.Event.TraceID)
	assert.Equal(t, "span-1", item.Event.SpanID)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), item.Event.Timestamp.UTC())
	assert.Equal(t, int64(2), item.Event.Weight)
	assert.Equal(t, `C:\temp\dropped.dll@FILE@CREATE@WRITE_SEND`, item.Event.SystemProvenance)
	assert.Equal(t, []string{"R-100"}, item.Event.RelatedRuleIDs)
}

func TestAckOmitsEmptyError(t *testing.T) {
	data, err := json.Marshal(Ack{ItemID: "item-1", Status: AckOK, WorkerID: "w", CompletedAt: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"error"`)

	data, err = json.Marshal(Ack{ItemID: "item-2", Status: AckError, Error: "boom", WorkerID: "w", CompletedAt: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"boom"`)
}
