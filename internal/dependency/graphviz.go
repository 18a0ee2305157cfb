package dependency

import (
	"fmt"
	"strings"
)

// ExportGraphViz exports the graph in GraphViz format. Edges point from a
// resource to what it depends on; critical nodes and edges are drawn red.
func ExportGraphViz(g *Graph) string {
	var lines []string
	lines = append(lines, "digraph dependencies {", "  rankdir=LR;")

	for _, n := range g.nodes {
		attrs := fmt.Sprintf("label=%q", n.ResourceType+"\n"+n.ResourceID)
		if n.Critical {
			attrs += ", color=red"
		}
		lines = append(lines, fmt.Sprintf("  %q [%s];", n.ID, attrs))
	}

	for _, e := range g.edges {
		attrs := fmt.Sprintf("label=%q", e.RelationshipType)
		if e.Critical {
			attrs += ", color=red"
		}
		lines = append(lines, fmt.Sprintf("  %q -> %q [%s];", e.Source, e.Target, attrs))
	}

	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}
