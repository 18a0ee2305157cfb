// Package dependency builds resource dependency graphs from relationship
// records and runs the graph algorithms used by impact analysis: topological
// leveling, cycle detection and path enumeration.
package dependency

import (
	"encoding/json"
	"sort"

	"github.com/netcmdb/netcmdb/internal/interfaces"
)

// Node is a resource in the dependency graph. Dependencies are the nodes this
// resource depends on (outgoing edges); Dependents are the nodes that depend
// on it (incoming edges). Both are ordered sets in first-seen order.
type Node struct {
	ID           string   `json:"id"`
	Provider     string   `json:"provider"`
	ResourceType string   `json:"resource_type"`
	ResourceID   string   `json:"resource_id"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Level        int      `json:"level"`
	Critical     bool     `json:"critical"`

	deps       []int
	dependents []int
}

// Ref returns the node's resource reference
func (n *Node) Ref() interfaces.ResourceRef {
	return interfaces.ResourceRef{
		Provider:     n.Provider,
		ResourceType: n.ResourceType,
		ResourceID:   n.ResourceID,
	}
}

// Edge is one relationship record in the graph. Parallel edges between the
// same pair of nodes are allowed.
type Edge struct {
	ID               string  `json:"id"`
	Source           string  `json:"source"`
	Target           string  `json:"target"`
	RelationshipType string  `json:"relationship_type"`
	Strength         int     `json:"strength"`
	Confidence       float64 `json:"confidence"`
	Critical         bool    `json:"critical"`

	src int
	dst int
}

// Graph is an immutable snapshot of resource relationships. Nodes and edges
// live in insertion-ordered arenas and are addressed by index internally.
type Graph struct {
	nodes     []*Node
	nodeIndex map[string]int
	edges     []*Edge
	edgeIndex map[string]int
	outEdges  [][]int

	// Roots are nodes with no dependencies, Leaves nodes with no dependents
	Roots  []string
	Leaves []string

	// Skipped counts input records dropped for invalid identity fields
	Skipped int
	// Unleveled counts nodes the leveler could not settle because of cycles
	Unleveled int
}

func newGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
	}
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Edges returns all edges in insertion order
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Node returns the node with the given canonical key
func (g *Graph) Node(id string) (*Node, bool) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// Edge returns the edge with the given ID
func (g *Graph) Edge(id string) (*Edge, bool) {
	idx, ok := g.edgeIndex[id]
	if !ok {
		return nil, false
	}
	return g.edges[idx], true
}

// HasNode reports whether the resource is in the graph
func (g *Graph) HasNode(ref interfaces.ResourceRef) bool {
	_, ok := g.nodeIndex[ref.Key()]
	return ok
}

// EdgeBetween returns the first edge, in insertion order, from source to target
func (g *Graph) EdgeBetween(source, target string) (*Edge, bool) {
	src, ok := g.nodeIndex[source]
	if !ok {
		return nil, false
	}
	dst, ok := g.nodeIndex[target]
	if !ok {
		return nil, false
	}
	idx := g.edgeBetween(src, dst)
	if idx < 0 {
		return nil, false
	}
	return g.edges[idx], true
}

func (g *Graph) edgeBetween(src, dst int) int {
	for _, e := range g.outEdges[src] {
		if g.edges[e].dst == dst {
			return e
		}
	}
	return -1
}

// ResourceTypes returns the distinct resource types in the graph, sorted
func (g *Graph) ResourceTypes() []string {
	return g.distinct(func(n *Node) string { return n.ResourceType })
}

// Providers returns the distinct providers in the graph, sorted
func (g *Graph) Providers() []string {
	return g.distinct(func(n *Node) string { return n.Provider })
}

// NodesOfType returns the nodes with the given resource type in insertion order
func (g *Graph) NodesOfType(resourceType string) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.ResourceType == resourceType {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) distinct(field func(*Node) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range g.nodes {
		v := field(n)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// upsertNode returns the index of the node for ref, creating it on first sight
func (g *Graph) upsertNode(ref interfaces.ResourceRef) int {
	key := ref.Key()
	if idx, ok := g.nodeIndex[key]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, &Node{
		ID:           key,
		Provider:     ref.Provider,
		ResourceType: ref.ResourceType,
		ResourceID:   ref.ResourceID,
		Dependencies: []string{},
		Dependents:   []string{},
	})
	g.nodeIndex[key] = idx
	return idx
}

// link adds dst to src's dependencies and src to dst's dependents, once
func (g *Graph) link(src, dst int) {
	s := g.nodes[src]
	for _, d := range s.deps {
		if d == dst {
			return
		}
	}
	d := g.nodes[dst]
	s.deps = append(s.deps, dst)
	s.Dependencies = append(s.Dependencies, d.ID)
	d.dependents = append(d.dependents, src)
	d.Dependents = append(d.Dependents, s.ID)
}

type graphJSON struct {
	Nodes     []*Node  `json:"nodes"`
	Edges     []*Edge  `json:"edges"`
	Roots     []string `json:"roots"`
	Leaves    []string `json:"leaves"`
	Skipped   int      `json:"skipped"`
	Unleveled int      `json:"unleveled"`
}

// MarshalJSON implements json.Marshaler
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphJSON{
		Nodes:     nonNilNodes(g.nodes),
		Edges:     nonNilEdges(g.edges),
		Roots:     nonNilStrings(g.Roots),
		Leaves:    nonNilStrings(g.Leaves),
		Skipped:   g.Skipped,
		Unleveled: g.Unleveled,
	})
}

func nonNilNodes(v []*Node) []*Node {
	if v == nil {
		return []*Node{}
	}
	return v
}

func nonNilEdges(v []*Edge) []*Edge {
	if v == nil {
		return []*Edge{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
