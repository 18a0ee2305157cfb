//go:build !integration
// +build !integration

package impact

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcmdb/netcmdb/internal/dependency"
	"github.com/netcmdb/netcmdb/internal/interfaces"
)

func chainGraph(t *testing.T, length int) (*dependency.Graph, []interfaces.ResourceRef) {
	t.Helper()
	refs := make([]interfaces.ResourceRef, length)
	for i := range refs {
		refs[i] = svc(fmt.Sprintf("c%d", i))
	}
	var records []interfaces.RelationshipRecord
	for i := 1; i < length; i++ {
		records = append(records, dependsOn(fmt.Sprintf("c%d-c%d", i, i-1), refs[i], refs[i-1], 0.9, false))
	}
	return buildGraph(t, records...), refs
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	g, refs := chainGraph(t, 4)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	analyzer := NewAnalyzer()
	analyzer.now = func() time.Time { return fixed }

	scenario, err := analyzer.AnalyzeFailure(context.Background(), g, refs[0], nil)
	require.NoError(t, err)

	assert.NotEmpty(t, scenario.ScenarioID)
	assert.Equal(t, ScenarioResourceFailure, scenario.ScenarioType)
	assert.Equal(t, refs[0], scenario.AffectedResource)
	assert.Equal(t, fixed, scenario.CreatedAt)
	require.NotNil(t, scenario.ImpactPropagation)
	assert.Equal(t, 3, scenario.ImpactPropagation.TotalAffectedResources)
	assert.Equal(t, 6, scenario.RiskAssessment.OverallRiskScore)
	assert.Equal(t, SeverityLow, scenario.RiskAssessment.RiskLevel)
	assert.NotEmpty(t, scenario.MitigationStrategies)
	assert.Contains(t, scenario.String(), "resource_failure")

	other, err := analyzer.AnalyzeFailure(context.Background(), g, refs[0], nil)
	require.NoError(t, err)
	assert.NotEqual(t, scenario.ScenarioID, other.ScenarioID)
}

func TestAnalyzer_ScenarioWrappers(t *testing.T) {
	t.Parallel()

	g, refs := chainGraph(t, 6)
	analyzer := NewAnalyzer()
	ctx := context.Background()

	change, err := analyzer.AnalyzeChange(ctx, g, refs[0], nil)
	require.NoError(t, err)
	assert.Equal(t, ScenarioResourceChange, change.ScenarioType)
	assert.Equal(t, 5, change.ImpactPropagation.TotalAffectedResources)

	// breach defaults need confidence 0.8 and stop after wave 3
	breach, err := analyzer.AnalyzeSecurityBreach(ctx, g, refs[0], nil)
	require.NoError(t, err)
	assert.Equal(t, ScenarioSecurityBreach, breach.ScenarioType)
	assert.Equal(t, 4, breach.ImpactPropagation.TotalAffectedResources)

	perf, err := analyzer.AnalyzePerformanceDegradation(ctx, g, refs[0], &SimulationOptions{
		MaxPropagationDepth: 1,
		ConfidenceThreshold: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, ScenarioPerformanceDegradation, perf.ScenarioType)
	assert.Equal(t, 2, perf.ImpactPropagation.TotalAffectedResources)
}

func TestAnalyzer_Errors(t *testing.T) {
	t.Parallel()

	g, refs := chainGraph(t, 2)
	analyzer := NewAnalyzer()
	ctx := context.Background()

	_, err := analyzer.AnalyzeFailure(ctx, g, svc("ghost"), nil)
	require.ErrorIs(t, err, dependency.ErrResourceNotFound)
	assert.Equal(t, 404, dependency.HTTPStatusFor(err))

	_, err = analyzer.AnalyzeChange(ctx, g, refs[0], &SimulationOptions{MaxPropagationDepth: -1})
	require.ErrorIs(t, err, dependency.ErrInvalidOptions)
	assert.Equal(t, 400, dependency.HTTPStatusFor(err))
}
