//go:build !integration
// +build !integration

package dependency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMetrics_EmptyGraph(t *testing.T) {
	t.Parallel()

	g := buildGraph(t)
	cycles, err := DetectCycles(context.Background(), g, CycleOptions{})
	require.NoError(t, err)

	assert.Equal(t, GraphMetrics{}, CalculateMetrics(g, cycles))
}

func TestCalculateMetrics(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		rel("ab", "a", "b", 4, 0.8, true),
		rel("bc", "b", "c", 6, 0.6, false),
		rel("ca", "c", "a", 8, 1.0, false),
		rel("cd", "c", "d", 2, 0.4, false),
	)
	cycles, err := DetectCycles(context.Background(), g, CycleOptions{})
	require.NoError(t, err)

	m := CalculateMetrics(g, cycles)
	assert.Equal(t, 4, m.TotalNodes)
	assert.Equal(t, 4, m.TotalEdges)
	assert.Equal(t, 2, m.CriticalNodes)
	assert.Equal(t, 1, m.CriticalEdges)
	assert.Equal(t, 1, m.RootCount)
	assert.Equal(t, 0, m.LeafCount)
	assert.Equal(t, 1, m.CycleCount)
	assert.Equal(t, 4, m.UnleveledNodes)
	assert.InDelta(t, 2.0, m.AverageDegree, 1e-9)
	assert.InDelta(t, 4.0/12.0, m.Density, 1e-9)
	assert.InDelta(t, 0.7, m.AverageConfidence, 1e-9)
	assert.InDelta(t, 5.0, m.AverageStrength, 1e-9)
}

func TestExportGraphViz(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		rel("ab", "a", "b", 5, 0.9, true),
		rel("bc", "b", "c", 5, 0.9, false),
	)

	dot := ExportGraphViz(g)
	assert.True(t, strings.HasPrefix(dot, "digraph dependencies {"))
	assert.True(t, strings.HasSuffix(dot, "}"))
	assert.Contains(t, dot, fmt.Sprintf("%q -> %q", key("a"), key("b")))
	assert.Contains(t, dot, fmt.Sprintf("%q -> %q [label=\"depends_on\"];", key("b"), key("c")))
	assert.Equal(t, 3, strings.Count(dot, "color=red"), "two critical nodes and one critical edge")
}

func TestHTTPStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusOK, HTTPStatusFor(nil))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFor(NotFound("aws:vpc:x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFor(InvalidOptions("bad %s", "depth")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFor(errors.New("boom")))

	wrapped := fmt.Errorf("simulate: %w", NotFound("aws:vpc:x"))
	analysisErr, ok := IsAnalysisError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "RESOURCE_NOT_FOUND", analysisErr.Code)
	assert.Contains(t, wrapped.Error(), "aws:vpc:x")
}
