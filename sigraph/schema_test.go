package sigraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigraph-ai/sigraph/provenance"
)

func TestConstraintsAreIdempotent(t *testing.T) {
	stmts := Constraints()
	require.Len(t, stmts, len(provenance.AllArtifactTypes())+2)
	for _, stmt := range stmts {
		assert.Contains(t, stmt, "IF NOT EXISTS", "constraint DDL must be safe to re-run")
	}
	joined := strings.Join(stmts, "\n")
	assert.Contains(t, joined, "REQUIRE (n.unit_id, n.trace_id) IS UNIQUE")
	assert.Contains(t, joined, "(n:`FILE`) REQUIRE n.artifact IS UNIQUE")
}

func TestPrimaryKeysCoverEveryLabel(t *testing.T) {
	keys := PrimaryKeys()
	for _, at := range provenance.AllArtifactTypes() {
		assert.Equal(t, []string{"artifact"}, keys[at.String()])
	}
	assert.Equal(t, []string{"unit_id", "trace_id"}, keys[labelTrace])
	assert.Equal(t, []string{"rule_id"}, keys[labelRule])
}

func TestQueryRelatedTracesBindsHopLimit(t *testing.T) {
	q := queryRelatedTraces(4)
	assert.Contains(t, q, "[*1..4]")
	assert.Contains(t, q, "DISTINCT t2.trace_id")
	assert.Contains(t, q, "t2.trace_id <> $trace_id")
}
