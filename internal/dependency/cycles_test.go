//go:build !integration
// +build !integration

package dependency

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcmdb/netcmdb/internal/interfaces"
)

func TestDetectCycles_ThreeNodeCycle(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		rel("ab", "a", "b", 4, 0.9, false),
		rel("bc", "b", "c", 8, 0.8, false),
		rel("ca", "c", "a", 6, 0.5, true),
	)

	cycles, err := DetectCycles(context.Background(), g, CycleOptions{})
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	c := cycles[0]
	assert.Equal(t, []string{key("a"), key("b"), key("c"), key("a")}, c.Cycle)
	assert.ElementsMatch(t, []string{key("a"), key("b"), key("c")}, c.Cycle[:3])
	assert.InDelta(t, 6.0, c.Strength, 1e-9)
	assert.InDelta(t, 0.9*0.8*0.5, c.Confidence, 1e-9)
	assert.True(t, c.Critical)

	require.Len(t, c.BreakSuggestions, 3)
	assert.Equal(t, "ab", c.BreakSuggestions[0].EdgeID)
	assert.Equal(t, BreakImpactLow, c.BreakSuggestions[0].Impact)
	assert.Equal(t, "bc", c.BreakSuggestions[1].EdgeID)
	assert.Equal(t, BreakImpactMedium, c.BreakSuggestions[1].Impact)
	assert.Equal(t, "ca", c.BreakSuggestions[2].EdgeID)
	assert.Equal(t, BreakImpactHigh, c.BreakSuggestions[2].Impact)
	assert.Contains(t, c.BreakSuggestions[2].Reason, "service disruption")
}

func TestDetectCycles_EmptyAndAcyclic(t *testing.T) {
	t.Parallel()

	cycles, err := DetectCycles(context.Background(), buildGraph(t), CycleOptions{})
	require.NoError(t, err)
	assert.Empty(t, cycles)
	assert.NotNil(t, cycles)

	g := buildGraph(t,
		rel("r1", "a", "b", 5, 0.9, false),
		rel("r2", "a", "c", 5, 0.9, false),
		rel("r3", "b", "c", 5, 0.9, false),
	)
	cycles, err = DetectCycles(context.Background(), g, CycleOptions{})
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, rel("loop", "a", "a", 2, 0.6, false))

	cycles, err := DetectCycles(context.Background(), g, CycleOptions{})
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{key("a"), key("a")}, cycles[0].Cycle)
	assert.InDelta(t, 0.6, cycles[0].Confidence, 1e-9)
}

func TestDetectCycles_OverlappingCyclesAreAllReported(t *testing.T) {
	t.Parallel()

	// a -> b -> a and a -> b -> c -> a share the a->b edge
	g := buildGraph(t,
		rel("ab", "a", "b", 5, 0.9, false),
		rel("ba", "b", "a", 5, 0.9, false),
		rel("bc", "b", "c", 5, 0.9, false),
		rel("ca", "c", "a", 5, 0.9, false),
	)

	cycles, err := DetectCycles(context.Background(), g, CycleOptions{})
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{key("a"), key("b"), key("a")}, cycles[0].Cycle)
	assert.Equal(t, []string{key("a"), key("b"), key("c"), key("a")}, cycles[1].Cycle)
}

func TestDetectCycles_DepthBoundPrunes(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		rel("ab", "a", "b", 5, 0.9, false),
		rel("bc", "b", "c", 5, 0.9, false),
		rel("ca", "c", "a", 5, 0.9, false),
	)

	cycles, err := DetectCycles(context.Background(), g, CycleOptions{MaxDepth: 2})
	require.NoError(t, err)
	assert.Empty(t, cycles, "the cycle needs a stack of three")

	_, err = DetectCycles(context.Background(), g, CycleOptions{MaxDepth: -1})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestDetectCycles_LongChainDoesNotOverflow(t *testing.T) {
	t.Parallel()

	const length = 5000
	records := make([]interfaces.RelationshipRecord, 0, length)
	for i := 0; i+1 < length; i++ {
		records = append(records, rel(fmt.Sprintf("r%d", i), fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1), 1, 1, false))
	}
	g := buildGraph(t, records...)

	cycles, err := DetectCycles(context.Background(), g, CycleOptions{})
	require.NoError(t, err)
	assert.Empty(t, cycles)
	assert.Equal(t, length-1, g.MaxLevel())
}

func TestDetectCycles_Canceled(t *testing.T) {
	t.Parallel()

	g := buildGraph(t,
		rel("ab", "a", "b", 5, 0.9, false),
		rel("ba", "b", "a", 5, 0.9, false),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DetectCycles(ctx, g, CycleOptions{})
	require.ErrorIs(t, err, context.Canceled)
}
