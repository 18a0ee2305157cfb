package dependency

import (
	"context"
	"fmt"
	"sort"
)

// DefaultMaxCycleDepth bounds the DFS stack during cycle detection
const DefaultMaxCycleDepth = 1000

// ctxCheckInterval is how many traversal steps run between cancellation checks
const ctxCheckInterval = 256

// BreakImpact rates how disruptive removing an edge would be
type BreakImpact string

// BreakImpact values, least disruptive first
const (
	BreakImpactLow    BreakImpact = "low"
	BreakImpactMedium BreakImpact = "medium"
	BreakImpactHigh   BreakImpact = "high"
)

func (i BreakImpact) rank() int {
	switch i {
	case BreakImpactHigh:
		return 2
	case BreakImpactMedium:
		return 1
	default:
		return 0
	}
}

// refactorStrength is the strength at which a non-critical edge is costly to break
const refactorStrength = 7

// BreakSuggestion proposes removing one edge of a cycle
type BreakSuggestion struct {
	EdgeID string      `json:"edge_id"`
	Reason string      `json:"reason"`
	Impact BreakImpact `json:"impact"`
}

// CyclicDependency is one cycle found in the graph. Cycle is closed: its first
// and last elements are the same node.
type CyclicDependency struct {
	Cycle            []string          `json:"cycle"`
	Strength         float64           `json:"strength"`
	Confidence       float64           `json:"confidence"`
	Critical         bool              `json:"critical"`
	BreakSuggestions []BreakSuggestion `json:"break_suggestions"`
}

// CycleOptions controls cycle detection
type CycleOptions struct {
	// MaxDepth prunes DFS branches deeper than this many nodes
	MaxDepth int `json:"max_depth" mapstructure:"max_depth"`
}

type dfsFrame struct {
	node int
	next int
}

// DetectCycles finds cycles with an iterative depth-first search started from
// every unvisited node in insertion order. Overlapping cycles may be reported
// more than once; the result is a multiset of findings.
func DetectCycles(ctx context.Context, g *Graph, opts CycleOptions) ([]CyclicDependency, error) {
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxCycleDepth
	}
	if maxDepth < 0 {
		return nil, InvalidOptions("max depth must be positive, got %d", maxDepth)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle detection canceled: %w", err)
	}

	n := len(g.nodes)
	visited := make([]bool, n)
	onStack := make([]bool, n)
	pathPos := make([]int, n)

	cycles := []CyclicDependency{}
	steps := 0

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		stack := []dfsFrame{{node: start}}
		path := []int{start}
		visited[start] = true
		onStack[start] = true
		pathPos[start] = 0

		for len(stack) > 0 {
			steps++
			if steps%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("cycle detection canceled: %w", err)
				}
			}

			top := &stack[len(stack)-1]
			deps := g.nodes[top.node].deps
			if top.next >= len(deps) {
				onStack[top.node] = false
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				continue
			}

			neighbor := deps[top.next]
			top.next++

			switch {
			case onStack[neighbor]:
				cycle := append(append([]int(nil), path[pathPos[neighbor]:]...), neighbor)
				cycles = append(cycles, g.describeCycle(cycle))
			case visited[neighbor]:
			case len(stack) >= maxDepth:
			default:
				visited[neighbor] = true
				onStack[neighbor] = true
				pathPos[neighbor] = len(path)
				path = append(path, neighbor)
				stack = append(stack, dfsFrame{node: neighbor})
			}
		}
	}

	return cycles, nil
}

// describeCycle aggregates the edges along a closed node path
func (g *Graph) describeCycle(cycle []int) CyclicDependency {
	ids := make([]string, len(cycle))
	for i, idx := range cycle {
		ids[i] = g.nodes[idx].ID
	}

	result := CyclicDependency{
		Cycle:            ids,
		BreakSuggestions: []BreakSuggestion{},
	}

	totalStrength := 0
	confidence := 1.0
	edgeCount := 0
	for i := 0; i+1 < len(cycle); i++ {
		e := g.edgeBetween(cycle[i], cycle[i+1])
		if e < 0 {
			continue
		}
		edge := g.edges[e]
		edgeCount++
		totalStrength += edge.Strength
		confidence *= edge.Confidence
		if edge.Critical {
			result.Critical = true
		}
		result.BreakSuggestions = append(result.BreakSuggestions, suggestBreak(edge))
	}

	if edgeCount > 0 {
		result.Strength = float64(totalStrength) / float64(edgeCount)
		result.Confidence = confidence
	}

	sort.SliceStable(result.BreakSuggestions, func(i, j int) bool {
		return result.BreakSuggestions[i].Impact.rank() < result.BreakSuggestions[j].Impact.rank()
	})

	return result
}

func suggestBreak(edge *Edge) BreakSuggestion {
	switch {
	case edge.Critical:
		return BreakSuggestion{
			EdgeID: edge.ID,
			Reason: "Critical relationship - breaking may cause service disruption",
			Impact: BreakImpactHigh,
		}
	case edge.Strength >= refactorStrength:
		return BreakSuggestion{
			EdgeID: edge.ID,
			Reason: "Strong relationship - breaking may require refactoring",
			Impact: BreakImpactMedium,
		}
	default:
		return BreakSuggestion{
			EdgeID: edge.ID,
			Reason: "Weak relationship - safe to break",
			Impact: BreakImpactLow,
		}
	}
}
