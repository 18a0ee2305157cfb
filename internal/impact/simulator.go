package impact

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/netcmdb/netcmdb/internal/dependency"
	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

// Simulator runs wave-based impact propagation over a graph
type Simulator struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewSimulator creates an impact simulator
func NewSimulator() *Simulator {
	return &Simulator{
		logger: logging.Impact,
		now:    time.Now,
	}
}

// reached is a node impacted in some wave, with the edge chain that got there
type reached struct {
	node    *dependency.Node
	path    []string
	edgeIDs []string
}

// Simulate propagates an event from source through its dependents.
//
// Wave 0 is every direct dependent of source at full confidence. Wave k
// follows dependents of wave k-1 whose connecting edge meets the confidence
// threshold, at edge confidence times 0.8^k. A resource is impacted at most
// once, in the earliest wave that reaches it.
//
// opts is used as given; a zero SimulationOptions stops after wave 0. Use
// DefaultSimulationOptions for the standard depth and threshold.
func (s *Simulator) Simulate(ctx context.Context, g *dependency.Graph, source interfaces.ResourceRef,
	scenarioType ScenarioType, opts SimulationOptions,
) (*ImpactPropagationResult, error) {
	if !scenarioType.Valid() {
		return nil, dependency.InvalidOptions("unknown scenario type %q", scenarioType)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sourceNode, ok := g.Node(source.Key())
	if !ok {
		return nil, dependency.NotFound(source.Key())
	}

	result := &ImpactPropagationResult{
		SourceResource:   source,
		ScenarioType:     scenarioType,
		ImmediateImpacts: []ImpactedResource{},
		CascadingImpacts: []ImpactedResource{},
		PropagationPaths: []dependency.RelationshipPath{},
	}

	computedAt := s.now()
	impactType := impactTypeFor(scenarioType)
	visited := map[string]bool{sourceNode.ID: true}

	var frontier []reached
	for _, depID := range sourceNode.Dependents {
		if visited[depID] {
			continue
		}
		node, _ := g.Node(depID)
		visited[depID] = true

		r := reached{node: node, path: []string{sourceNode.ID, depID}}
		if edge, ok := g.EdgeBetween(depID, sourceNode.ID); ok {
			r.edgeIDs = []string{edge.ID}
			if err := s.recordPath(g, result, sourceNode.ID, r, immediateConfidence, computedAt); err != nil {
				return nil, err
			}
		}

		result.ImmediateImpacts = append(result.ImmediateImpacts,
			s.impacted(node, r.path, 0, immediateConfidence, scenarioType, impactType))
		frontier = append(frontier, r)
	}
	if len(frontier) > 0 {
		result.MaxPropagationDepth = 1
	}

	for wave := 1; wave <= opts.MaxPropagationDepth && len(frontier) > 0; wave++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("impact simulation canceled: %w", err)
		}

		decay := math.Pow(waveDecay, float64(wave))
		var next []reached
		for _, current := range frontier {
			for _, depID := range current.node.Dependents {
				if visited[depID] {
					continue
				}
				edge, ok := g.EdgeBetween(depID, current.node.ID)
				if !ok || edge.Confidence < opts.ConfidenceThreshold {
					continue
				}
				node, _ := g.Node(depID)
				visited[depID] = true

				r := reached{
					node:    node,
					path:    appendCopy(current.path, depID),
					edgeIDs: appendCopy(current.edgeIDs, edge.ID),
				}
				confidence := edge.Confidence * decay
				if err := s.recordPath(g, result, sourceNode.ID, r, confidence, computedAt); err != nil {
					return nil, err
				}

				result.CascadingImpacts = append(result.CascadingImpacts,
					s.impacted(node, r.path, wave, confidence, scenarioType, impactType))
				next = append(next, r)
			}
		}

		if len(next) > 0 {
			result.MaxPropagationDepth = wave + 1
		}
		frontier = next
	}

	summarize(result)

	s.logger.Debug("Simulated %s from %s: %d affected, %d critical",
		scenarioType, source, result.TotalAffectedResources, result.CriticalImpactCount)

	return result, nil
}

func (s *Simulator) impacted(node *dependency.Node, path []string, wave int, confidence float64,
	scenarioType ScenarioType, impactType ImpactType,
) ImpactedResource {
	severity := calculateSeverity(node, wave, scenarioType)
	return ImpactedResource{
		ResourceRef:       node.Ref(),
		NodeID:            node.ID,
		ImpactSeverity:    severity,
		ImpactType:        impactType,
		ConfidenceScore:   confidence,
		TimeToImpact:      timeToImpact(wave, scenarioType),
		ImpactDuration:    impactDuration(severity, scenarioType),
		PathFromSource:    path,
		MitigationOptions: mitigationOptions(impactType, severity),
		Wave:              wave,
	}
}

// recordPath adds the propagation path that reached r
func (s *Simulator) recordPath(g *dependency.Graph, result *ImpactPropagationResult, sourceID string,
	r reached, confidence float64, computedAt time.Time,
) error {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return fmt.Errorf("failed to generate path ID: %w", err)
	}

	totalStrength := 0
	critical := false
	for _, edgeID := range r.edgeIDs {
		if edge, ok := g.Edge(edgeID); ok {
			totalStrength += edge.Strength
			critical = critical || edge.Critical
		}
	}

	path := dependency.RelationshipPath{
		ID:             id,
		Source:         sourceID,
		Target:         r.node.ID,
		EdgeIDs:        r.edgeIDs,
		Nodes:          r.path,
		Depth:          len(r.edgeIDs),
		Confidence:     confidence,
		IsCriticalPath: critical,
		ComputedAt:     computedAt,
		ExpiresAt:      computedAt.Add(dependency.PathTTL),
	}
	if len(r.edgeIDs) > 0 {
		path.Strength = int(math.Round(float64(totalStrength) / float64(len(r.edgeIDs))))
	}

	result.PropagationPaths = append(result.PropagationPaths, path)
	return nil
}

// summarize fills the aggregate counters and recovery estimate
func summarize(result *ImpactPropagationResult) {
	maxDuration := 0
	for _, r := range result.AllImpacts() {
		result.TotalAffectedResources++
		if r.ImpactSeverity == SeverityCritical {
			result.CriticalImpactCount++
		}
		if r.ImpactDuration > maxDuration {
			maxDuration = r.ImpactDuration
		}
	}
	result.EstimatedRecoveryTime = int(float64(maxDuration) * (1 + 0.5*float64(result.CriticalImpactCount)))
}

func appendCopy(s []string, v string) []string {
	out := make([]string, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
