//go:build !integration
// +build !integration

package impact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netcmdb/netcmdb/internal/dependency"
	"github.com/netcmdb/netcmdb/internal/interfaces"
)

func res(resourceType, id string) interfaces.ResourceRef {
	return interfaces.ResourceRef{Provider: "aws", ResourceType: resourceType, ResourceID: id}
}

func svc(id string) interfaces.ResourceRef {
	return res("service", id)
}

// dependsOn records that dependent depends on dependency
func dependsOn(id string, dependent, dependency interfaces.ResourceRef, confidence float64, critical bool) interfaces.RelationshipRecord {
	return interfaces.RelationshipRecord{
		ID:               id,
		Source:           dependent,
		Target:           dependency,
		RelationshipType: "depends_on",
		Strength:         5,
		Confidence:       confidence,
		IsCritical:       critical,
		Status:           interfaces.RelationshipStatusActive,
	}
}

func buildGraph(t *testing.T, records ...interfaces.RelationshipRecord) *dependency.Graph {
	t.Helper()
	g, err := dependency.NewBuilder().Build(context.Background(), records, dependency.BuildOptions{})
	require.NoError(t, err)
	return g
}

func simulate(t *testing.T, g *dependency.Graph, source interfaces.ResourceRef, scenarioType ScenarioType) *ImpactPropagationResult {
	t.Helper()
	result, err := NewSimulator().Simulate(context.Background(), g, source, scenarioType, DefaultSimulationOptions(scenarioType))
	require.NoError(t, err)
	return result
}

func impactByID(result *ImpactPropagationResult, ref interfaces.ResourceRef) (ImpactedResource, int) {
	var found ImpactedResource
	count := 0
	for _, r := range result.AllImpacts() {
		if r.ResourceRef == ref {
			found = r
			count++
		}
	}
	return found, count
}
