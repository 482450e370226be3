package sigraph

import (
	"fmt"

	"github.com/sigraph-ai/sigraph/graph"
)

// RenderedNode is a graph vertex in its serialization-ready form, as the
// full-provenance query returns it.
type RenderedNode struct {
	ElementID  string         `json:"elementId"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// RenderedRelationship is a graph edge in its serialization-ready form.
type RenderedRelationship struct {
	ElementID          string         `json:"elementId"`
	StartNodeElementID string         `json:"startNodeElementId"`
	EndNodeElementID   string         `json:"endNodeElementId"`
	Type               string         `json:"type"`
	Properties         map[string]any `json:"properties"`
}

// RenderedGraph is the full-provenance render: deduplicated node and
// relationship lists suitable for direct JSON serialization.
type RenderedGraph struct {
	Nodes []RenderedNode         `json:"nodes"`
	Rels  []RenderedRelationship `json:"rels"`
}

func renderedNodeFromValue(value any) (RenderedNode, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return RenderedNode{}, fmt.Errorf("rendered node is %T, not a map", value)
	}
	node := RenderedNode{Properties: map[string]any{}}
	var err error
	if node.ElementID, err = graph.AsString(m["elementId"]); err != nil {
		return RenderedNode{}, fmt.Errorf("rendered node elementId: %w", err)
	}
	if node.Labels, err = graph.AsStringSlice(m["labels"]); err != nil {
		return RenderedNode{}, fmt.Errorf("rendered node labels: %w", err)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		node.Properties = props
	}
	return node, nil
}

func renderedRelationshipFromValue(value any) (RenderedRelationship, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return RenderedRelationship{}, fmt.Errorf("rendered relationship is %T, not a map", value)
	}
	rel := RenderedRelationship{Properties: map[string]any{}}
	for field, dst := range map[string]*string{
		"elementId":          &rel.ElementID,
		"startNodeElementId": &rel.StartNodeElementID,
		"endNodeElementId":   &rel.EndNodeElementID,
		"type":               &rel.Type,
	} {
		s, err := graph.AsString(m[field])
		if err != nil {
			return RenderedRelationship{}, fmt.Errorf("rendered relationship %s: %w", field, err)
		}
		*dst = s
	}
	if props, ok := m["properties"].(map[string]any); ok {
		rel.Properties = props
	}
	return rel, nil
}
