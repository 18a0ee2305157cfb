package dependency

import (
	"context"
	"fmt"
	"math"

	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

const (
	minStrength = 1
	maxStrength = 10
)

// BuildOptions controls graph construction
type BuildOptions struct {
	// IncludeInactive keeps records whose status is not active
	IncludeInactive bool `json:"include_inactive" mapstructure:"include_inactive"`
}

// Builder converts relationship records into a Graph
type Builder struct {
	logger *logging.Logger
}

// NewBuilder creates a graph builder
func NewBuilder() *Builder {
	return &Builder{logger: logging.Graph}
}

// Build constructs a fresh graph from records. Records with empty or
// malformed identity fields are skipped and counted in Graph.Skipped. A record whose ID was
// already seen replaces the earlier edge in place. Nodes come only from the
// surviving edges.
func (b *Builder) Build(ctx context.Context, records []interfaces.RelationshipRecord, opts BuildOptions) (*Graph, error) {
	g := newGraph()

	var kept []*interfaces.RelationshipRecord
	seen := make(map[string]int)
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("graph build canceled: %w", err)
		}

		rec := &records[i]
		if !opts.IncludeInactive && !rec.Status.IsActive() {
			continue
		}
		if invalid := rec.InvalidFields(); len(invalid) > 0 {
			g.Skipped++
			logging.RecordSkipped(rec.ID, "invalid identity fields", invalid)
			continue
		}

		if idx, ok := seen[rec.ID]; ok {
			b.logger.Debug("Relationship %s seen again, replacing earlier edge", rec.ID)
			kept[idx] = rec
			continue
		}
		seen[rec.ID] = len(kept)
		kept = append(kept, rec)
	}

	for _, rec := range kept {
		src := g.upsertNode(rec.Source)
		dst := g.upsertNode(rec.Target)

		g.edgeIndex[rec.ID] = len(g.edges)
		g.edges = append(g.edges, &Edge{
			ID:               rec.ID,
			Source:           g.nodes[src].ID,
			Target:           g.nodes[dst].ID,
			RelationshipType: rec.RelationshipType,
			Strength:         b.clampStrength(rec),
			Confidence:       b.clampConfidence(rec),
			Critical:         rec.IsCritical,
			src:              src,
			dst:              dst,
		})
	}

	g.finalize()

	b.logger.Debug("Built graph with %d nodes, %d edges (%d records skipped)",
		g.NodeCount(), g.EdgeCount(), g.Skipped)

	return g, nil
}

// finalize derives adjacency, criticality, levels, roots and leaves from the
// final edge set
func (g *Graph) finalize() {
	g.outEdges = make([][]int, len(g.nodes))
	for i, e := range g.edges {
		g.outEdges[e.src] = append(g.outEdges[e.src], i)
		g.link(e.src, e.dst)
		if e.Critical {
			g.nodes[e.src].Critical = true
			g.nodes[e.dst].Critical = true
		}
	}

	g.Unleveled = AssignLevels(g)

	g.Roots = []string{}
	g.Leaves = []string{}
	for _, n := range g.nodes {
		if len(n.deps) == 0 {
			g.Roots = append(g.Roots, n.ID)
		}
		if len(n.dependents) == 0 {
			g.Leaves = append(g.Leaves, n.ID)
		}
	}
}

func (b *Builder) clampStrength(rec *interfaces.RelationshipRecord) int {
	s := rec.Strength
	switch {
	case s < minStrength:
		s = minStrength
	case s > maxStrength:
		s = maxStrength
	default:
		return s
	}
	b.logger.Debug("Relationship %s strength %d clamped to %d", rec.ID, rec.Strength, s)
	return s
}

func (b *Builder) clampConfidence(rec *interfaces.RelationshipRecord) float64 {
	c := rec.Confidence
	switch {
	case math.IsNaN(c) || c < 0:
		c = 0
	case c > 1:
		c = 1
	default:
		return c
	}
	b.logger.Debug("Relationship %s confidence %g clamped to %g", rec.ID, rec.Confidence, c)
	return c
}
