package dependency

// AssignLevels sets Node.Level with Kahn's algorithm and returns the number
// of nodes it could not settle.
//
// A node's in-degree is the number of distinct nodes that depend on it, so
// nodes nothing depends on start at level 0 and every dependency sits at
// least one level below its dependent. Nodes on or behind a cycle never reach
// in-degree zero: they keep level 0, or the level they had when propagation
// stalled. Run DetectCycles to find them.
func AssignLevels(g *Graph) int {
	inDegree := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		n.Level = 0
		inDegree[i] = len(n.dependents)
	}

	queue := make([]int, 0, len(g.nodes))
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	settled := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		settled++

		level := g.nodes[current].Level
		for _, dep := range g.nodes[current].deps {
			if next := level + 1; next > g.nodes[dep].Level {
				g.nodes[dep].Level = next
			}
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	return len(g.nodes) - settled
}

// MaxLevel returns the highest assigned level
func (g *Graph) MaxLevel() int {
	maxLevel := 0
	for _, n := range g.nodes {
		if n.Level > maxLevel {
			maxLevel = n.Level
		}
	}
	return maxLevel
}
