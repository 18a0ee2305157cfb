// Package interfaces defines the core types and collaborator interfaces for netcmdb
package interfaces

import (
	"fmt"
	"strings"
	"time"
)

// keySeparator joins the parts of a canonical resource key
const keySeparator = ":"

// ResourceRef identifies a cloud resource
type ResourceRef struct {
	Provider     string `json:"provider" yaml:"provider" mapstructure:"provider"`
	ResourceType string `json:"resource_type" yaml:"resource_type" mapstructure:"resource_type"`
	ResourceID   string `json:"resource_id" yaml:"resource_id" mapstructure:"resource_id"`
}

// Key returns the canonical node identity "provider:resourceType:resourceId"
func (r ResourceRef) Key() string {
	return r.Provider + keySeparator + r.ResourceType + keySeparator + r.ResourceID
}

// String implements fmt.Stringer
func (r ResourceRef) String() string {
	return r.Key()
}

// IsZero reports whether any identity field is missing
func (r ResourceRef) IsZero() bool {
	return strings.TrimSpace(r.Provider) == "" ||
		strings.TrimSpace(r.ResourceType) == "" ||
		strings.TrimSpace(r.ResourceID) == ""
}

// ParseResourceRef parses a canonical key. The resource ID may itself contain
// the separator (ARNs do), so only the first two separators split.
func ParseResourceRef(key string) (ResourceRef, error) {
	parts := strings.SplitN(key, keySeparator, 3)
	if len(parts) != 3 {
		return ResourceRef{}, fmt.Errorf("invalid resource key %q: expected provider:type:id", key)
	}
	ref := ResourceRef{Provider: parts[0], ResourceType: parts[1], ResourceID: parts[2]}
	if ref.IsZero() {
		return ResourceRef{}, fmt.Errorf("invalid resource key %q: empty component", key)
	}
	return ref, nil
}

// RelationshipStatus is the lifecycle status of a relationship record
type RelationshipStatus string

// RelationshipStatus constants
const (
	RelationshipStatusActive     RelationshipStatus = "active"
	RelationshipStatusInactive   RelationshipStatus = "inactive"
	RelationshipStatusDeprecated RelationshipStatus = "deprecated"
)

// IsActive reports whether the status is active, ignoring case
func (s RelationshipStatus) IsActive() bool {
	return strings.EqualFold(string(s), string(RelationshipStatusActive))
}

// RelationshipRecord is a directed, typed, weighted dependency between two
// resources as read from a relationship store. Source depends on Target.
type RelationshipRecord struct {
	ID               string             `json:"id" yaml:"id" mapstructure:"id"`
	Source           ResourceRef        `json:"source" yaml:"source" mapstructure:"source"`
	Target           ResourceRef        `json:"target" yaml:"target" mapstructure:"target"`
	RelationshipType string             `json:"relationship_type" yaml:"relationship_type" mapstructure:"relationship_type"`
	Strength         int                `json:"strength" yaml:"strength" mapstructure:"strength"`
	Confidence       float64            `json:"confidence" yaml:"confidence" mapstructure:"confidence"`
	IsCritical       bool               `json:"is_critical" yaml:"is_critical" mapstructure:"is_critical"`
	Status           RelationshipStatus `json:"status" yaml:"status" mapstructure:"status"`
	Metadata         map[string]string  `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
	DiscoveredAt     time.Time          `json:"discovered_at,omitempty" yaml:"discovered_at,omitempty" mapstructure:"discovered_at"`
}

// InvalidFields lists the identity fields that are empty, plus any provider
// or resource type containing the key separator. Such a record cannot map to
// a unique canonical key.
func (r *RelationshipRecord) InvalidFields() []string {
	var invalid []string
	if strings.TrimSpace(r.ID) == "" {
		invalid = append(invalid, "id")
	}
	check := func(prefix string, ref ResourceRef) {
		if strings.TrimSpace(ref.Provider) == "" || strings.Contains(ref.Provider, keySeparator) {
			invalid = append(invalid, prefix+".provider")
		}
		if strings.TrimSpace(ref.ResourceType) == "" || strings.Contains(ref.ResourceType, keySeparator) {
			invalid = append(invalid, prefix+".resource_type")
		}
		if strings.TrimSpace(ref.ResourceID) == "" {
			invalid = append(invalid, prefix+".resource_id")
		}
	}
	check("source", r.Source)
	check("target", r.Target)
	return invalid
}
