//go:build !integration
// +build !integration

package dependency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netcmdb/netcmdb/internal/interfaces"
)

// ref builds an aws reference of the given type and id
func ref(resourceType, id string) interfaces.ResourceRef {
	return interfaces.ResourceRef{Provider: "aws", ResourceType: resourceType, ResourceID: id}
}

// key is the canonical node ID for a vpc with the given id
func key(id string) string {
	return ref("vpc", id).Key()
}

// rel builds an active relationship between two vpcs; source depends on target
func rel(id, source, target string, strength int, confidence float64, critical bool) interfaces.RelationshipRecord {
	return interfaces.RelationshipRecord{
		ID:               id,
		Source:           ref("vpc", source),
		Target:           ref("vpc", target),
		RelationshipType: "depends_on",
		Strength:         strength,
		Confidence:       confidence,
		IsCritical:       critical,
		Status:           interfaces.RelationshipStatusActive,
	}
}

func buildGraph(t *testing.T, records ...interfaces.RelationshipRecord) *Graph {
	t.Helper()
	g, err := NewBuilder().Build(context.Background(), records, BuildOptions{})
	require.NoError(t, err)
	return g
}
