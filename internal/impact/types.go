// Package impact simulates how a failure, change or security breach spreads
// through a dependency graph and scores the resulting risk.
package impact

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/netcmdb/netcmdb/internal/dependency"
	"github.com/netcmdb/netcmdb/internal/interfaces"
)

// ScenarioType is the kind of event being simulated
type ScenarioType string

// ScenarioType values
const (
	ScenarioResourceFailure        ScenarioType = "resource_failure"
	ScenarioResourceChange         ScenarioType = "resource_change"
	ScenarioSecurityBreach         ScenarioType = "security_breach"
	ScenarioPerformanceDegradation ScenarioType = "performance_degradation"
)

// ScenarioTypes lists every supported scenario
var ScenarioTypes = []ScenarioType{
	ScenarioResourceFailure,
	ScenarioResourceChange,
	ScenarioSecurityBreach,
	ScenarioPerformanceDegradation,
}

// ParseScenarioType accepts full names and the short forms failure, change,
// breach and performance
func ParseScenarioType(s string) (ScenarioType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ScenarioResourceFailure), "failure":
		return ScenarioResourceFailure, nil
	case string(ScenarioResourceChange), "change":
		return ScenarioResourceChange, nil
	case string(ScenarioSecurityBreach), "breach", "security":
		return ScenarioSecurityBreach, nil
	case string(ScenarioPerformanceDegradation), "performance":
		return ScenarioPerformanceDegradation, nil
	default:
		return "", dependency.InvalidOptions("unknown scenario type %q", s)
	}
}

// Valid reports whether the scenario type is supported
func (s ScenarioType) Valid() bool {
	for _, t := range ScenarioTypes {
		if s == t {
			return true
		}
	}
	return false
}

// ImpactSeverity grades how badly a resource is affected
type ImpactSeverity string

// ImpactSeverity values
const (
	SeverityCritical ImpactSeverity = "critical"
	SeverityHigh     ImpactSeverity = "high"
	SeverityMedium   ImpactSeverity = "medium"
	SeverityLow      ImpactSeverity = "low"
)

// Weight maps severity to 4 (critical) down to 1 (low)
func (s ImpactSeverity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// ImpactType describes the nature of the effect on a resource
type ImpactType string

// ImpactType values
const (
	ImpactServiceDisruption      ImpactType = "service_disruption"
	ImpactPerformanceDegradation ImpactType = "performance_degradation"
	ImpactSecurityCompromise     ImpactType = "security_compromise"
	ImpactDataLossRisk           ImpactType = "data_loss_risk"
)

// ImpactedResource is one resource reached by propagation
type ImpactedResource struct {
	interfaces.ResourceRef
	NodeID            string         `json:"node_id"`
	ImpactSeverity    ImpactSeverity `json:"impact_severity"`
	ImpactType        ImpactType     `json:"impact_type"`
	ConfidenceScore   float64        `json:"confidence_score"`
	TimeToImpact      int            `json:"time_to_impact"`
	ImpactDuration    int            `json:"impact_duration"`
	PathFromSource    []string       `json:"path_from_source"`
	MitigationOptions []string       `json:"mitigation_options"`
	Wave              int            `json:"wave"`
}

// ImpactPropagationResult is the outcome of one simulation. Times are seconds.
type ImpactPropagationResult struct {
	SourceResource         interfaces.ResourceRef        `json:"source_resource"`
	ScenarioType           ScenarioType                  `json:"scenario_type"`
	ImmediateImpacts       []ImpactedResource            `json:"immediate_impacts"`
	CascadingImpacts       []ImpactedResource            `json:"cascading_impacts"`
	PropagationPaths       []dependency.RelationshipPath `json:"propagation_paths"`
	TotalAffectedResources int                           `json:"total_affected_resources"`
	CriticalImpactCount    int                           `json:"critical_impact_count"`
	MaxPropagationDepth    int                           `json:"max_propagation_depth"`
	EstimatedRecoveryTime  int                           `json:"estimated_recovery_time"`
}

// AllImpacts returns immediate then cascading impacts
func (r *ImpactPropagationResult) AllImpacts() []ImpactedResource {
	all := make([]ImpactedResource, 0, len(r.ImmediateImpacts)+len(r.CascadingImpacts))
	all = append(all, r.ImmediateImpacts...)
	return append(all, r.CascadingImpacts...)
}

// SimulationOptions bounds propagation. Every value is taken literally: the
// zero value means immediate impacts only with no confidence filtering.
// Start from DefaultSimulationOptions for the documented bounds.
type SimulationOptions struct {
	MaxPropagationDepth int     `json:"max_propagation_depth" mapstructure:"max_propagation_depth"`
	ConfidenceThreshold float64 `json:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// Default propagation bounds
const (
	DefaultMaxPropagationDepth = 5
	DefaultConfidenceThreshold = 0.7
	BreachMaxPropagationDepth  = 3
	BreachConfidenceThreshold  = 0.8
	MaxAllowedPropagationDepth = 50
)

const (
	waveDecay           = 0.8
	immediateConfidence = 1.0
)

// DefaultSimulationOptions returns the bounds used for a scenario type.
// Security effects travel through fewer, higher-confidence relationships.
func DefaultSimulationOptions(scenarioType ScenarioType) SimulationOptions {
	if scenarioType == ScenarioSecurityBreach {
		return SimulationOptions{
			MaxPropagationDepth: BreachMaxPropagationDepth,
			ConfidenceThreshold: BreachConfidenceThreshold,
		}
	}
	return SimulationOptions{
		MaxPropagationDepth: DefaultMaxPropagationDepth,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// Validate rejects out-of-range options
func (o SimulationOptions) Validate() error {
	if math.IsNaN(o.ConfidenceThreshold) || o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return dependency.InvalidOptions("confidence threshold must be between 0 and 1, got %g", o.ConfidenceThreshold)
	}
	if o.MaxPropagationDepth < 0 || o.MaxPropagationDepth > MaxAllowedPropagationDepth {
		return dependency.InvalidOptions("max propagation depth must be between 0 and %d, got %d",
			MaxAllowedPropagationDepth, o.MaxPropagationDepth)
	}
	return nil
}

// RecoveryTimeEstimate bounds the expected recovery, in seconds
type RecoveryTimeEstimate struct {
	Minimum  int `json:"minimum"`
	Expected int `json:"expected"`
	Maximum  int `json:"maximum"`
}

// BusinessImpact counts impacted resources per impact type
type BusinessImpact struct {
	ServiceDisruption      int `json:"service_disruption"`
	PerformanceDegradation int `json:"performance_degradation"`
	SecurityCompromise     int `json:"security_compromise"`
	DataLossRisk           int `json:"data_loss_risk"`
}

// RiskAssessment scores a propagation result
type RiskAssessment struct {
	OverallRiskScore int                  `json:"overall_risk_score"`
	RiskLevel        ImpactSeverity       `json:"risk_level"`
	RiskFactors      []string             `json:"risk_factors"`
	BusinessImpact   BusinessImpact       `json:"business_impact"`
	RecoveryTime     RecoveryTimeEstimate `json:"recovery_time"`
}

// MitigationPriority orders mitigation strategies
type MitigationPriority string

// MitigationPriority values
const (
	PriorityHigh   MitigationPriority = "high"
	PriorityMedium MitigationPriority = "medium"
	PriorityLow    MitigationPriority = "low"
)

// Score maps priority to 3 (high), 2 (medium) or 1 (low)
func (p MitigationPriority) Score() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// MitigationType classifies a strategy
type MitigationType string

// MitigationType values
const (
	MitigationPreventive MitigationType = "preventive"
	MitigationDetective  MitigationType = "detective"
	MitigationCorrective MitigationType = "corrective"
)

// MitigationStrategy is a recommended response to a scenario
type MitigationStrategy struct {
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	Priority            MitigationPriority `json:"priority"`
	Type                MitigationType     `json:"type"`
	Effort              string             `json:"effort"`
	Timeline            string             `json:"timeline"`
	ApplicableResources []string           `json:"applicable_resources"`
}

// ImpactScenario is the full result of analyzing one scenario
type ImpactScenario struct {
	ScenarioID           string                   `json:"scenario_id"`
	ScenarioType         ScenarioType             `json:"scenario_type"`
	AffectedResource     interfaces.ResourceRef   `json:"affected_resource"`
	ImpactPropagation    *ImpactPropagationResult `json:"impact_propagation"`
	MitigationStrategies []MitigationStrategy     `json:"mitigation_strategies"`
	RiskAssessment       RiskAssessment           `json:"risk_assessment"`
	CreatedAt            time.Time                `json:"created_at"`
}

// String implements fmt.Stringer
func (s *ImpactScenario) String() string {
	return fmt.Sprintf("%s on %s (risk %d, %d affected)", s.ScenarioType, s.AffectedResource,
		s.RiskAssessment.OverallRiskScore, s.ImpactPropagation.TotalAffectedResources)
}
