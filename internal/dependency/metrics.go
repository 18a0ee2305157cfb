package dependency

// GraphMetrics summarizes a graph and its cycle findings
type GraphMetrics struct {
	TotalNodes        int     `json:"total_nodes"`
	TotalEdges        int     `json:"total_edges"`
	CriticalNodes     int     `json:"critical_nodes"`
	CriticalEdges     int     `json:"critical_edges"`
	RootCount         int     `json:"root_count"`
	LeafCount         int     `json:"leaf_count"`
	MaxLevel          int     `json:"max_level"`
	UnleveledNodes    int     `json:"unleveled_nodes"`
	CycleCount        int     `json:"cycle_count"`
	AverageDegree     float64 `json:"average_degree"`
	Density           float64 `json:"density"`
	AverageConfidence float64 `json:"average_confidence"`
	AverageStrength   float64 `json:"average_strength"`
}

// CalculateMetrics computes summary statistics. An empty graph yields all zeros.
func CalculateMetrics(g *Graph, cycles []CyclicDependency) GraphMetrics {
	m := GraphMetrics{
		TotalNodes:     len(g.nodes),
		TotalEdges:     len(g.edges),
		RootCount:      len(g.Roots),
		LeafCount:      len(g.Leaves),
		MaxLevel:       g.MaxLevel(),
		UnleveledNodes: g.Unleveled,
		CycleCount:     len(cycles),
	}

	for _, n := range g.nodes {
		if n.Critical {
			m.CriticalNodes++
		}
	}

	var totalConfidence float64
	var totalStrength int
	for _, e := range g.edges {
		if e.Critical {
			m.CriticalEdges++
		}
		totalConfidence += e.Confidence
		totalStrength += e.Strength
	}

	if m.TotalNodes > 0 {
		// Each edge contributes one in and one out degree
		m.AverageDegree = 2 * float64(m.TotalEdges) / float64(m.TotalNodes)
	}
	if m.TotalNodes > 1 {
		m.Density = float64(m.TotalEdges) / float64(m.TotalNodes*(m.TotalNodes-1))
	}
	if m.TotalEdges > 0 {
		m.AverageConfidence = totalConfidence / float64(m.TotalEdges)
		m.AverageStrength = float64(totalStrength) / float64(m.TotalEdges)
	}

	return m
}
