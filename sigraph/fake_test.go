package sigraph

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sigraph-ai/sigraph/graph"
)

// fakeStore is an in-memory Store that applies merges and answers the
// package's queries against its own state, so behavior tests exercise real
// read-merge-write sequences without a database.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]*fakeNode
	rels  []*fakeRel
	keys  map[string][]string
	seq   int

	mergeErr    error
	relationErr error
	runErr      error

	// runOverride handles a query before the built-in matching does.
	runOverride func(cypher string, params map[string]any) ([]map[string]any, bool)
}

type fakeNode struct {
	id     string
	labels []string
	props  map[string]any
}

type fakeRel struct {
	id         string
	start, end string
	typ        string
	props      map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes: make(map[string]*fakeNode),
		keys:  PrimaryKeys(),
	}
}

func (f *fakeStore) MergeNode(ctx context.Context, node graph.Node, primaryLabel string, primaryKeys ...string) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.mergeNodeLocked(node, primaryLabel, primaryKeys)
	return err
}

func (f *fakeStore) mergeNodeLocked(node graph.Node, primaryLabel string, primaryKeys []string) (*fakeNode, error) {
	key := primaryLabel
	for _, k := range primaryKeys {
		v, ok := node.Properties[k]
		if !ok {
			return nil, fmt.Errorf("fake merge: missing key %q", k)
		}
		key += "|" + fmt.Sprint(v)
	}
	existing, ok := f.nodes[key]
	if !ok {
		f.seq++
		existing = &fakeNode{
			id:    "n" + strconv.Itoa(f.seq),
			props: make(map[string]any),
		}
		f.nodes[key] = existing
	}
	for _, label := range node.Labels {
		if !contains(existing.labels, label) {
			existing.labels = append(existing.labels, label)
		}
	}
	for k, v := range node.Properties {
		existing.props[k] = v
	}
	return existing, nil
}

func (f *fakeStore) CreateRelation(ctx context.Context, rel graph.Relationship) error {
	if f.relationErr != nil {
		return f.relationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	start, err := f.mergeEndpointLocked(rel.Start)
	if err != nil {
		return err
	}
	end, err := f.mergeEndpointLocked(rel.End)
	if err != nil {
		return err
	}
	for _, r := range f.rels {
		if r.start == start.id && r.end == end.id && r.typ == rel.Type &&
			reflect.DeepEqual(r.props, rel.Properties) {
			return nil
		}
	}
	f.seq++
	f.rels = append(f.rels, &fakeRel{
		id:    "r" + strconv.Itoa(f.seq),
		start: start.id,
		end:   end.id,
		typ:   rel.Type,
		props: rel.Properties,
	})
	return nil
}

func (f *fakeStore) mergeEndpointLocked(node graph.Node) (*fakeNode, error) {
	label := node.PrimaryLabel()
	keys, ok := f.keys[label]
	if !ok {
		return nil, fmt.Errorf("fake relation: no key mapping for label %q", label)
	}
	return f.mergeNodeLocked(node, label, keys)
}

var labelPattern = regexp.MustCompile("\\(n:`([^`]+)`\\)")
var hopPattern = regexp.MustCompile(`\*1\.\.(\d+)`)

func (f *fakeStore) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if f.runOverride != nil {
		if rows, ok := f.runOverride(cypher, params); ok {
			return rows, nil
		}
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.Contains(cypher, "n.artifact = $artifact"):
		label := labelPattern.FindStringSubmatch(cypher)[1]
		var rows []map[string]any
		for _, n := range f.nodes {
			if contains(n.labels, label) && n.props["artifact"] == params["artifact"] {
				rows = append(rows, map[string]any{"node": f.renderNode(n)})
			}
		}
		return rows, nil

	case strings.Contains(cypher, "n.trace_id = $trace_id"):
		var rows []map[string]any
		for _, n := range f.nodes {
			if contains(n.labels, labelTrace) &&
				n.props["unit_id"] == params["unit_id"] &&
				n.props["trace_id"] == params["trace_id"] {
				rows = append(rows, map[string]any{"node": f.renderNode(n)})
			}
		}
		return rows, nil

	case strings.Contains(cypher, "n.span_count >= 2"):
		var traces []*fakeNode
		for _, n := range f.nodes {
			count, _ := n.props["span_count"].(int64)
			if contains(n.labels, labelTrace) && n.props["unit_id"] == params["unit_id"] && count >= 2 {
				traces = append(traces, n)
			}
		}
		sort.Slice(traces, func(i, j int) bool {
			return fmt.Sprint(traces[i].props["start_time"]) < fmt.Sprint(traces[j].props["start_time"])
		})
		rows := make([]map[string]any, 0, len(traces))
		for _, n := range traces {
			rows = append(rows, map[string]any{"node": f.renderNode(n)})
		}
		return rows, nil

	case strings.Contains(cypher, "DISTINCT t2.trace_id"):
		maxHop, _ := strconv.Atoi(hopPattern.FindStringSubmatch(cypher)[1])
		return f.relatedTracesLocked(params, maxHop), nil
	}
	return nil, fmt.Errorf("fake store: unhandled query: %s", cypher)
}

func (f *fakeStore) Write(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	if !strings.Contains(cypher, "DETACH DELETE") {
		return nil, fmt.Errorf("fake store: unhandled write: %s", cypher)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return []map[string]any{{"pairs": f.cleanDebrisLocked(params["unit_id"])}}, nil
}

func (f *fakeStore) cleanDebrisLocked(unitID any) int64 {
	type pair struct{ traceKey, nodeKey string }
	var victims []pair
	for traceKey, t := range f.nodes {
		if !contains(t.labels, labelTrace) || t.props["unit_id"] != unitID {
			continue
		}
		var contained []string
		for _, r := range f.rels {
			if r.start == t.id && r.typ == relContains {
				contained = append(contained, r.end)
			}
		}
		if len(contained) != 1 {
			continue
		}
		if f.degreeLocked(contained[0]) != 1 {
			continue
		}
		nodeKey := ""
		for k, n := range f.nodes {
			if n.id == contained[0] {
				nodeKey = k
			}
		}
		victims = append(victims, pair{traceKey, nodeKey})
	}
	for _, v := range victims {
		t, n := f.nodes[v.traceKey], f.nodes[v.nodeKey]
		kept := f.rels[:0]
		for _, r := range f.rels {
			if r.start == t.id || r.end == t.id || r.start == n.id || r.end == n.id {
				continue
			}
			kept = append(kept, r)
		}
		f.rels = kept
		delete(f.nodes, v.traceKey)
		delete(f.nodes, v.nodeKey)
	}
	return int64(len(victims))
}

func (f *fakeStore) degreeLocked(nodeID string) int {
	degree := 0
	for _, r := range f.rels {
		if r.start == nodeID || r.end == nodeID {
			degree++
		}
	}
	return degree
}

// relatedTracesLocked walks the stored graph breadth-first, undirected,
// up to maxHop edges from the named trace, and collects every other trace
// of the unit it reaches.
func (f *fakeStore) relatedTracesLocked(params map[string]any, maxHop int) []map[string]any {
	var start *fakeNode
	for _, n := range f.nodes {
		if contains(n.labels, labelTrace) &&
			n.props["unit_id"] == params["unit_id"] &&
			n.props["trace_id"] == params["trace_id"] {
			start = n
		}
	}
	if start == nil {
		return nil
	}

	adjacent := make(map[string][]string)
	for _, r := range f.rels {
		adjacent[r.start] = append(adjacent[r.start], r.end)
		adjacent[r.end] = append(adjacent[r.end], r.start)
	}
	byID := make(map[string]*fakeNode, len(f.nodes))
	for _, n := range f.nodes {
		byID[n.id] = n
	}

	visited := map[string]struct{}{start.id: {}}
	frontier := []string{start.id}
	found := make(map[string]struct{})
	for hop := 0; hop < maxHop && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adjacent[id] {
				if _, ok := visited[neighbor]; ok {
					continue
				}
				visited[neighbor] = struct{}{}
				next = append(next, neighbor)
				n := byID[neighbor]
				if contains(n.labels, labelTrace) && n.props["unit_id"] == params["unit_id"] {
					found[fmt.Sprint(n.props["trace_id"])] = struct{}{}
				}
			}
		}
		frontier = next
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]any{"trace_id": id})
	}
	return rows
}

func (f *fakeStore) renderNode(n *fakeNode) map[string]any {
	props := make(map[string]any, len(n.props))
	for k, v := range n.props {
		props[k] = v
	}
	return map[string]any{
		"elementId":  n.id,
		"labels":     append([]string(nil), n.labels...),
		"properties": props,
	}
}

// node returns the stored node for a label and artifact, or nil.
func (f *fakeStore) node(label, artifact string) *fakeNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[label+"|"+artifact]
}

func (f *fakeStore) trace(unitID, traceID string) *fakeNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[labelTrace+"|"+unitID+"|"+traceID]
}

// relsOfType returns the stored relationships of one type.
func (f *fakeStore) relsOfType(typ string) []*fakeRel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeRel
	for _, r := range f.rels {
		if r.typ == typ {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeStore) counts() (nodes, rels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.nodes), len(f.rels)
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
