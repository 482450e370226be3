package sigraph

import (
	"fmt"

	"github.com/sigraph-ai/sigraph/provenance"
)

// PrimaryKeys returns the label to primary-key property mapping the graph
// client needs to merge relationship endpoints: every artifact-type label
// keys on artifact, Trace on (unit_id, trace_id), Rule on rule_id.
func PrimaryKeys() map[string][]string {
	keys := map[string][]string{
		labelTrace: {"unit_id", "trace_id"},
		labelRule:  {"rule_id"},
	}
	for _, t := range provenance.AllArtifactTypes() {
		keys[t.String()] = []string{"artifact"}
	}
	return keys
}

// Constraints returns the idempotent uniqueness constraints of the schema.
// Each statement is safe to re-run; Neo4j requires constraint DDL to run
// outside an explicit transaction, so they execute as auto-commit
// statements.
func Constraints() []string {
	stmts := make([]string, 0, len(provenance.AllArtifactTypes())+2)
	for _, t := range provenance.AllArtifactTypes() {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:`%s`) REQUIRE n.artifact IS UNIQUE", t))
	}
	stmts = append(stmts,
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:`Trace`) REQUIRE (n.unit_id, n.trace_id) IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:`Rule`) REQUIRE n.rule_id IS UNIQUE",
	)
	return stmts
}

func queryArtifact(label string) string {
	return fmt.Sprintf("MATCH (n:`%s`)\nWHERE n.artifact = $artifact\nRETURN n AS node", label)
}

const queryTrace = `MATCH (n:Trace)
WHERE n.unit_id = $unit_id AND n.trace_id = $trace_id
RETURN n AS node`

// queryTraceSummaries skips single-span traces: a trace that aggregated
// only one event carries no behavioral sequence worth summarizing.
const queryTraceSummaries = `MATCH (n:Trace)
WHERE n.unit_id = $unit_id AND n.span_count >= 2
RETURN n AS node
ORDER BY n.start_time ASC`

const queryRule = `MATCH (n:Rule)
WHERE n.rule_id = $rule_id
RETURN n AS node`

// queryRelatedTraces finds every other trace of the unit reachable from
// the named trace through shared nodes within maxHop undirected hops.
func queryRelatedTraces(maxHop int) string {
	return fmt.Sprintf(`MATCH (t1:Trace {unit_id: $unit_id, trace_id: $trace_id})
MATCH (t1)-[*1..%d]-(t2:Trace {unit_id: $unit_id})
WHERE t2.trace_id <> $trace_id
RETURN DISTINCT t2.trace_id AS trace_id`, maxHop)
}

// flushDebris deletes the (Trace, Node) pairs where the trace contains
// exactly one node and that node has no edges beyond the containment
// itself. Runs as one write transaction; the pair count comes back so the
// caller can report how much was removed.
const flushDebris = `MATCH (t:Trace)-[:CONTAINS]->(n)
WHERE t.unit_id = $unit_id
  AND COUNT{ (t)-[:CONTAINS]->() } = 1
  AND COUNT{ (n)--() } = 1
WITH t, n
DETACH DELETE t, n
RETURN count(*) AS pairs`

// queryAllProvenance walks from the unit's traces through contained nodes
// and up to 5 further action hops, skipping module-type sources and pure
// process-to-process segments, and returns render-ready node and
// relationship lists.
const queryAllProvenance = `MATCH (t:Trace {unit_id: $unit_id})-[:CONTAINS*1..]->(src)
MATCH p = (src)-[*1..5]->(dst)
WHERE (NOT 'PROCESS' IN labels(dst) OR NOT 'PROCESS' IN labels(src))
  AND NOT (src:MODULE)
  AND EXISTS((t)-[:CONTAINS*1..]->(dst))
WITH nodes(p) AS ns, relationships(p) AS rs
RETURN {
  nlst: [n IN ns | {elementId: elementId(n), labels: labels(n), properties: properties(n)}],
  rlst: [r IN rs | {
    elementId: elementId(r),
    startNodeElementId: elementId(startNode(r)),
    endNodeElementId: elementId(endNode(r)),
    type: type(r),
    properties: properties(r)
  }]
} AS provenance`
