package graph

import (
	"fmt"
	"sort"
	"strings"
)

// BuildMergeNode generates the idempotent merge-on-key write for a node:
// MERGE on the primary label and primary key properties, overlay all other
// properties, then attach any extra labels. Returns the Cypher text and its
// parameter map.
//
// Example:
//
//	node := NewNode("FILE").WithProperty("artifact", "a.exe@FILE").WithProperty("process_name", "x")
//	cypher, params, err := BuildMergeNode(node, "FILE", "artifact")
//	// MERGE (n:`FILE` {artifact: $pk.artifact})
//	// SET n += $props
func BuildMergeNode(node Node, primaryLabel string, primaryKeys ...string) (string, map[string]any, error) {
	if primaryLabel == "" {
		return "", nil, fmt.Errorf("%w: merge needs a primary label", ErrInvalidInput)
	}
	if len(primaryKeys) == 0 {
		return "", nil, fmt.Errorf("%w: merge needs at least one primary key", ErrInvalidInput)
	}

	pk := make(map[string]any, len(primaryKeys))
	for _, key := range primaryKeys {
		val, ok := node.Properties[key]
		if !ok {
			return "", nil, fmt.Errorf(
				"%w: merge needs property %q in node properties, got %v",
				ErrInvalidInput, key, propertyKeys(node.Properties))
		}
		pk[key] = val
	}

	clauses := []string{
		fmt.Sprintf("MERGE (n:`%s` {%s})", primaryLabel, keyPattern("pk", primaryKeys)),
		"SET n += $props",
	}
	for _, label := range node.Labels {
		if label != primaryLabel {
			clauses = append(clauses, fmt.Sprintf("SET n:`%s`", label))
		}
	}

	params := map[string]any{"pk": pk, "props": node.Properties}
	return strings.Join(clauses, "\n"), params, nil
}

// BuildMergeRelation generates a single write that merges both endpoint
// nodes by the primary keys configured for their labels, then merges the
// directed edge between them. Edge properties participate in the MERGE
// pattern, so re-running the same write is idempotent while an edge with
// different properties (a repeated action at a later time) is created as a
// distinct relationship. primaryKeys maps node label to its primary key
// property name(s).
func BuildMergeRelation(rel Relationship, primaryKeys map[string][]string) (string, map[string]any, error) {
	startLabel := rel.Start.PrimaryLabel()
	endLabel := rel.End.PrimaryLabel()
	if startLabel == "" || endLabel == "" {
		return "", nil, fmt.Errorf("%w: both relationship endpoints need at least one label", ErrInvalidInput)
	}
	if rel.Type == "" {
		return "", nil, fmt.Errorf("%w: relationship needs a type", ErrInvalidInput)
	}

	startKeys, ok := primaryKeys[startLabel]
	if !ok || len(startKeys) == 0 {
		return "", nil, fmt.Errorf("%w: no primary key mapping for label %q", ErrInvalidInput, startLabel)
	}
	endKeys, ok := primaryKeys[endLabel]
	if !ok || len(endKeys) == 0 {
		return "", nil, fmt.Errorf("%w: no primary key mapping for label %q", ErrInvalidInput, endLabel)
	}

	startID, err := pickKeyValues(rel.Start, startKeys)
	if err != nil {
		return "", nil, err
	}
	endID, err := pickKeyValues(rel.End, endKeys)
	if err != nil {
		return "", nil, err
	}

	clauses := []string{
		fmt.Sprintf("MERGE (s:`%s` {%s})", startLabel, keyPattern("s_id", startKeys)),
		"SET s += $sprops",
	}
	for _, label := range rel.Start.Labels[1:] {
		clauses = append(clauses, fmt.Sprintf("SET s:`%s`", label))
	}
	clauses = append(clauses,
		fmt.Sprintf("MERGE (e:`%s` {%s})", endLabel, keyPattern("e_id", endKeys)),
		"SET e += $eprops",
	)
	for _, label := range rel.End.Labels[1:] {
		clauses = append(clauses, fmt.Sprintf("SET e:`%s`", label))
	}
	if len(rel.Properties) > 0 {
		rkeys := propertyKeys(rel.Properties)
		sort.Strings(rkeys)
		clauses = append(clauses,
			fmt.Sprintf("MERGE (s)-[r:`%s` {%s}]->(e)", rel.Type, keyPattern("rprops", rkeys)))
	} else {
		clauses = append(clauses, fmt.Sprintf("MERGE (s)-[r:`%s`]->(e)", rel.Type))
	}
	clauses = append(clauses, "RETURN elementId(r) AS rid")

	params := map[string]any{
		"s_id":   startID,
		"e_id":   endID,
		"sprops": rel.Start.Properties,
		"eprops": rel.End.Properties,
	}
	if len(rel.Properties) > 0 {
		params["rprops"] = rel.Properties
	}
	return strings.Join(clauses, "\n"), params, nil
}

// keyPattern renders the property pattern of a MERGE clause against a map
// parameter, e.g. "unit_id: $pk.unit_id, trace_id: $pk.trace_id".
func keyPattern(param string, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: $%s.%s", k, param, k))
	}
	return strings.Join(parts, ", ")
}

// pickKeyValues extracts the primary key values from an endpoint node.
func pickKeyValues(node Node, keys []string) (map[string]any, error) {
	id := make(map[string]any, len(keys))
	for _, k := range keys {
		val, ok := node.Properties[k]
		if !ok {
			return nil, fmt.Errorf(
				"%w: endpoint %q is missing primary key property %q",
				ErrInvalidInput, node.PrimaryLabel(), k)
		}
		id[k] = val
	}
	return id, nil
}

func propertyKeys(props map[string]any) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	return keys
}
