package impact

import (
	"fmt"
)

// Risk model weights
const (
	criticalImpactWeight = 20
	affectedWeight       = 2
	maxRiskScore         = 100

	criticalRiskLevel = 80
	highRiskLevel     = 50
	mediumRiskLevel   = 20

	wideBlastRadius   = 10
	deepPropagation   = 3
	minRecoveryFactor = 0.5
	maxRecoveryFactor = 2
)

// AssessRisk scores a propagation result
func AssessRisk(scenarioType ScenarioType, propagation *ImpactPropagationResult) RiskAssessment {
	score := propagation.CriticalImpactCount*criticalImpactWeight + propagation.TotalAffectedResources*affectedWeight
	if score > maxRiskScore {
		score = maxRiskScore
	}

	expected := propagation.EstimatedRecoveryTime
	return RiskAssessment{
		OverallRiskScore: score,
		RiskLevel:        riskLevel(score),
		RiskFactors:      riskFactors(scenarioType, propagation),
		BusinessImpact:   businessImpact(propagation),
		RecoveryTime: RecoveryTimeEstimate{
			Minimum:  int(float64(expected) * minRecoveryFactor),
			Expected: expected,
			Maximum:  expected * maxRecoveryFactor,
		},
	}
}

func riskLevel(score int) ImpactSeverity {
	switch {
	case score >= criticalRiskLevel:
		return SeverityCritical
	case score >= highRiskLevel:
		return SeverityHigh
	case score >= mediumRiskLevel:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func riskFactors(scenarioType ScenarioType, propagation *ImpactPropagationResult) []string {
	factors := []string{}

	if propagation.CriticalImpactCount > 0 {
		factors = append(factors, fmt.Sprintf("%d critical resources impacted", propagation.CriticalImpactCount))
	}
	if propagation.TotalAffectedResources > wideBlastRadius {
		factors = append(factors, fmt.Sprintf("Wide blast radius: %d resources affected", propagation.TotalAffectedResources))
	}
	if propagation.MaxPropagationDepth >= deepPropagation {
		factors = append(factors, fmt.Sprintf("Deep cascading propagation across %d waves", propagation.MaxPropagationDepth))
	}
	if crossesProviders(propagation) {
		factors = append(factors, "Impact crosses cloud provider boundaries")
	}
	if scenarioType == ScenarioSecurityBreach && propagation.TotalAffectedResources > 0 {
		factors = append(factors, "Security boundary compromise may expose dependent resources")
	}

	return factors
}

func crossesProviders(propagation *ImpactPropagationResult) bool {
	for _, r := range propagation.AllImpacts() {
		if r.Provider != propagation.SourceResource.Provider {
			return true
		}
	}
	return false
}

func businessImpact(propagation *ImpactPropagationResult) BusinessImpact {
	var b BusinessImpact
	for _, r := range propagation.AllImpacts() {
		switch r.ImpactType {
		case ImpactServiceDisruption:
			b.ServiceDisruption++
		case ImpactPerformanceDegradation:
			b.PerformanceDegradation++
		case ImpactSecurityCompromise:
			b.SecurityCompromise++
		case ImpactDataLossRisk:
			b.DataLossRisk++
		}
	}
	return b
}
