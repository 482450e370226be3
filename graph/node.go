package graph

// Node represents a graph vertex as a plain tagged value: a list of labels
// and a property map, decoupled from any driver type. The first label is
// treated as the primary label by the merge primitives.
type Node struct {
	// Labels are the node labels. The first entry is the primary label.
	Labels []string `json:"labels"`

	// Properties contains the key-value properties of the node.
	Properties map[string]any `json:"properties"`
}

// NewNode creates a Node with a single primary label and an initialized
// property map.
func NewNode(label string) Node {
	return Node{
		Labels:     []string{label},
		Properties: make(map[string]any),
	}
}

// WithLabels returns a copy of the node with extra labels appended.
// Duplicate labels are dropped, first occurrence wins.
func (n Node) WithLabels(extra ...string) Node {
	seen := make(map[string]struct{}, len(n.Labels)+len(extra))
	labels := make([]string, 0, len(n.Labels)+len(extra))
	for _, l := range n.Labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		labels = append(labels, l)
	}
	for _, l := range extra {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		labels = append(labels, l)
	}
	return Node{Labels: labels, Properties: copyProps(n.Properties)}
}

// WithProperty returns a copy of the node with one property set.
func (n Node) WithProperty(key string, value any) Node {
	props := copyProps(n.Properties)
	props[key] = value
	return Node{Labels: append([]string(nil), n.Labels...), Properties: props}
}

// WithProperties returns a copy of the node with the given properties
// overlaid on top of the existing ones.
func (n Node) WithProperties(extra map[string]any) Node {
	props := copyProps(n.Properties)
	for k, v := range extra {
		props[k] = v
	}
	return Node{Labels: append([]string(nil), n.Labels...), Properties: props}
}

// PrimaryLabel returns the first label, or "" for an unlabeled node.
func (n Node) PrimaryLabel() string {
	if len(n.Labels) == 0 {
		return ""
	}
	return n.Labels[0]
}

// Relationship represents a directed edge between two full node
// specifications. Both endpoints carry labels and properties so the merge
// primitives can establish endpoint existence together with the edge.
type Relationship struct {
	// Start is the source node specification.
	Start Node `json:"start"`

	// End is the target node specification.
	End Node `json:"end"`

	// Type is the relationship type (e.g. "CONTAINS", "LAUNCH").
	Type string `json:"type"`

	// Properties contains optional edge properties.
	Properties map[string]any `json:"properties,omitempty"`
}

// NewRelationship creates a directed relationship of the given type.
func NewRelationship(start, end Node, relType string) Relationship {
	return Relationship{Start: start, End: end, Type: relType}
}

// WithProperty returns a copy of the relationship with one edge property set.
func (r Relationship) WithProperty(key string, value any) Relationship {
	props := copyProps(r.Properties)
	props[key] = value
	r.Properties = props
	return r
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
