package dependency

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/netcmdb/netcmdb/internal/interfaces"
)

// DefaultMaxPathDepth bounds critical path enumeration
const DefaultMaxPathDepth = 10

// PathTTL is how long a computed path stays valid
const PathTTL = 24 * time.Hour

// RelationshipPath is a chain of edges between two resources
type RelationshipPath struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Target         string    `json:"target"`
	EdgeIDs        []string  `json:"edge_ids"`
	Nodes          []string  `json:"nodes"`
	Depth          int       `json:"depth"`
	Confidence     float64   `json:"confidence"`
	Strength       int       `json:"strength"`
	IsCriticalPath bool      `json:"is_critical_path"`
	ComputedAt     time.Time `json:"computed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// CriticalPathOptions controls critical path extraction
type CriticalPathOptions struct {
	MaxDepth int `json:"max_depth" mapstructure:"max_depth"`
	// From restricts the search to pairs involving this resource
	From *interfaces.ResourceRef `json:"from,omitempty" mapstructure:"from"`
	// Now overrides the clock, mainly for tests
	Now func() time.Time `json:"-" mapstructure:"-"`
}

type pathFrame struct {
	node int
	next int
}

// FindPaths enumerates simple paths from source to target following
// dependency edges. Each path is a list of edge IDs. Branches longer than
// maxDepth edges are pruned. A path from a node to itself is never reported.
func FindPaths(ctx context.Context, g *Graph, sourceID, targetID string, maxDepth int) ([][]string, error) {
	if maxDepth < 1 {
		return nil, InvalidOptions("max depth must be at least 1, got %d", maxDepth)
	}
	src, ok := g.nodeIndex[sourceID]
	if !ok {
		return nil, NotFound(sourceID)
	}
	dst, ok := g.nodeIndex[targetID]
	if !ok {
		return nil, NotFound(targetID)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("path search canceled: %w", err)
	}

	paths := [][]string{}
	if src == dst {
		return paths, nil
	}

	onPath := make([]bool, len(g.nodes))
	onPath[src] = true
	stack := []pathFrame{{node: src}}
	var edgePath []int
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("path search canceled: %w", err)
			}
		}

		top := &stack[len(stack)-1]
		deps := g.nodes[top.node].deps
		if top.next >= len(deps) {
			onPath[top.node] = false
			stack = stack[:len(stack)-1]
			if len(edgePath) > 0 {
				edgePath = edgePath[:len(edgePath)-1]
			}
			continue
		}

		neighbor := deps[top.next]
		top.next++
		if onPath[neighbor] || len(edgePath) >= maxDepth {
			continue
		}
		edge := g.edgeBetween(top.node, neighbor)
		if edge < 0 {
			continue
		}

		if neighbor == dst {
			found := make([]string, 0, len(edgePath)+1)
			for _, e := range edgePath {
				found = append(found, g.edges[e].ID)
			}
			paths = append(paths, append(found, g.edges[edge].ID))
			continue
		}

		onPath[neighbor] = true
		edgePath = append(edgePath, edge)
		stack = append(stack, pathFrame{node: neighbor})
	}

	return paths, nil
}

// FindCriticalPaths enumerates paths between every pair of critical nodes.
// Pairs are taken once each in insertion order (i<j) and searched from the
// earlier node to the later one.
func FindCriticalPaths(ctx context.Context, g *Graph, opts CriticalPathOptions) ([]RelationshipPath, error) {
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxPathDepth
	}
	if maxDepth < 1 {
		return nil, InvalidOptions("max depth must be at least 1, got %d", maxDepth)
	}

	from := ""
	if opts.From != nil {
		from = opts.From.Key()
		if _, ok := g.nodeIndex[from]; !ok {
			return nil, NotFound(from)
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var critical []*Node
	for _, n := range g.nodes {
		if n.Critical {
			critical = append(critical, n)
		}
	}

	results := []RelationshipPath{}
	for i := 0; i < len(critical); i++ {
		for j := i + 1; j < len(critical); j++ {
			if from != "" && critical[i].ID != from && critical[j].ID != from {
				continue
			}

			paths, err := FindPaths(ctx, g, critical[i].ID, critical[j].ID, maxDepth)
			if err != nil {
				return nil, err
			}

			for _, edgeIDs := range paths {
				path, err := g.newRelationshipPath(critical[i].ID, critical[j].ID, edgeIDs, now())
				if err != nil {
					return nil, err
				}
				path.IsCriticalPath = true
				results = append(results, path)
			}
		}
	}

	return results, nil
}

// NewRelationshipPath describes an edge chain with aggregate confidence and strength
func (g *Graph) NewRelationshipPath(source, target string, edgeIDs []string, computedAt time.Time) (RelationshipPath, error) {
	return g.newRelationshipPath(source, target, edgeIDs, computedAt)
}

func (g *Graph) newRelationshipPath(source, target string, edgeIDs []string, computedAt time.Time) (RelationshipPath, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return RelationshipPath{}, fmt.Errorf("failed to generate path ID: %w", err)
	}

	path := RelationshipPath{
		ID:         id,
		Source:     source,
		Target:     target,
		EdgeIDs:    append([]string(nil), edgeIDs...),
		Nodes:      []string{source},
		Depth:      len(edgeIDs),
		ComputedAt: computedAt,
		ExpiresAt:  computedAt.Add(PathTTL),
	}

	confidence := 1.0
	totalStrength := 0
	for _, edgeID := range edgeIDs {
		edge, ok := g.Edge(edgeID)
		if !ok {
			continue
		}
		confidence *= edge.Confidence
		totalStrength += edge.Strength
		path.Nodes = append(path.Nodes, edge.Target)
	}
	if len(edgeIDs) > 0 {
		path.Confidence = confidence
		path.Strength = int(math.Round(float64(totalStrength) / float64(len(edgeIDs))))
	}

	return path, nil
}
