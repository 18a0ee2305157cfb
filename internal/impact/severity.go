package impact

import (
	"strings"

	"github.com/netcmdb/netcmdb/internal/dependency"
)

// Severity score weights
const (
	criticalNodeScore     = 3
	manyDependentsScore   = 2
	someDependentsScore   = 1
	manyDependents        = 10
	someDependents        = 5
	earlyWaveBonus        = 3
	breachedBoundaryScore = 2

	criticalThreshold = 6
	highThreshold     = 4
	mediumThreshold   = 2
)

// Timing model, in seconds
const (
	baseTimeToImpact       = 60
	breachBaseTimeToImpact = 300
	breachDurationFactor   = 2
)

var baseImpactDuration = map[ImpactSeverity]int{
	SeverityCritical: 7200,
	SeverityHigh:     3600,
	SeverityMedium:   1800,
	SeverityLow:      900,
}

// boundaryResourceType is the resource type that gains severity under breach
const boundaryResourceType = "vpc"

// severityScore grades a node reached in the given wave
func severityScore(node *dependency.Node, wave int, scenarioType ScenarioType) int {
	score := 0
	if node.Critical {
		score += criticalNodeScore
	}
	switch n := len(node.Dependents); {
	case n > manyDependents:
		score += manyDependentsScore
	case n > someDependents:
		score += someDependentsScore
	}
	if bonus := earlyWaveBonus - wave; bonus > 0 {
		score += bonus
	}
	if scenarioType == ScenarioSecurityBreach && strings.EqualFold(node.ResourceType, boundaryResourceType) {
		score += breachedBoundaryScore
	}
	return score
}

// calculateSeverity maps a node's score to a severity band
func calculateSeverity(node *dependency.Node, wave int, scenarioType ScenarioType) ImpactSeverity {
	switch score := severityScore(node, wave, scenarioType); {
	case score >= criticalThreshold:
		return SeverityCritical
	case score >= highThreshold:
		return SeverityHigh
	case score >= mediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// impactTypeFor maps a scenario to the effect it has on resources
func impactTypeFor(scenarioType ScenarioType) ImpactType {
	switch scenarioType {
	case ScenarioResourceChange:
		return ImpactPerformanceDegradation
	case ScenarioSecurityBreach:
		return ImpactSecurityCompromise
	default:
		return ImpactServiceDisruption
	}
}

func timeToImpact(wave int, scenarioType ScenarioType) int {
	if scenarioType == ScenarioSecurityBreach {
		return breachBaseTimeToImpact * wave
	}
	return baseTimeToImpact * wave
}

func impactDuration(severity ImpactSeverity, scenarioType ScenarioType) int {
	d := baseImpactDuration[severity]
	if scenarioType == ScenarioSecurityBreach {
		d *= breachDurationFactor
	}
	return d
}

// mitigationOptions lists per-resource actions for an impact
func mitigationOptions(impactType ImpactType, severity ImpactSeverity) []string {
	var options []string
	urgent := severity == SeverityCritical || severity == SeverityHigh

	switch impactType {
	case ImpactPerformanceDegradation:
		options = append(options, "Schedule change during maintenance window", "Prepare rollback plan")
		if urgent {
			options = append(options, "Stage change in a canary environment")
		}
	case ImpactSecurityCompromise:
		options = append(options, "Restrict security group and network ACL rules", "Rotate credentials and access keys")
		if urgent {
			options = append(options, "Snapshot resource state for forensics")
		}
	case ImpactDataLossRisk:
		options = append(options, "Verify recent backups", "Enable point-in-time recovery")
	default:
		options = append(options, "Enable automatic failover", "Provision redundant capacity")
		if urgent {
			options = append(options, "Page on-call and open an incident")
		}
	}

	return options
}
