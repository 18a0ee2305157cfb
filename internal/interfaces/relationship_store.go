package interfaces

import (
	"context"
	"strings"
)

// RelationshipStore supplies relationship records to the graph builder.
// Persistence is owned by the implementation; the analysis core only reads.
type RelationshipStore interface {
	ListRelationships(ctx context.Context, filter RelationshipFilter) ([]RelationshipRecord, error)
}

// RelationshipFilter narrows the records a store returns. Empty slices match
// everything. A record matches a provider or type filter when either endpoint
// matches.
type RelationshipFilter struct {
	Providers       []string `json:"providers,omitempty" mapstructure:"providers"`
	ResourceTypes   []string `json:"resource_types,omitempty" mapstructure:"resource_types"`
	IncludeInactive bool     `json:"include_inactive" mapstructure:"include_inactive"`
}

// Matches reports whether the record passes the filter
func (f RelationshipFilter) Matches(r *RelationshipRecord) bool {
	if !f.IncludeInactive && !r.Status.IsActive() {
		return false
	}
	if len(f.Providers) > 0 && !containsFold(f.Providers, r.Source.Provider) && !containsFold(f.Providers, r.Target.Provider) {
		return false
	}
	if len(f.ResourceTypes) > 0 && !containsFold(f.ResourceTypes, r.Source.ResourceType) && !containsFold(f.ResourceTypes, r.Target.ResourceType) {
		return false
	}
	return true
}

// Apply returns the records that pass the filter, preserving order
func (f RelationshipFilter) Apply(records []RelationshipRecord) []RelationshipRecord {
	out := make([]RelationshipRecord, 0, len(records))
	for i := range records {
		if f.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
