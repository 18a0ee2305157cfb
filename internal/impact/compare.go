package impact

import (
	"sort"

	"github.com/netcmdb/netcmdb/internal/interfaces"
)

// Mitigation priority buckets
const (
	BucketImmediate = "immediate"
	BucketShortTerm = "short_term"
	BucketLongTerm  = "long_term"

	immediateScore = 2.5
	shortTermScore = 1.5
)

// RankedScenario is one entry of a risk ranking
type RankedScenario struct {
	Rank             int                    `json:"rank"`
	ScenarioID       string                 `json:"scenario_id"`
	ScenarioType     ScenarioType           `json:"scenario_type"`
	AffectedResource interfaces.ResourceRef `json:"affected_resource"`
	RiskScore        int                    `json:"risk_score"`
	RiskLevel        ImpactSeverity         `json:"risk_level"`
}

// CommonVulnerability is a resource impacted by more than one scenario
type CommonVulnerability struct {
	interfaces.ResourceRef
	VulnerabilityCount int      `json:"vulnerability_count"`
	AverageSeverity    float64  `json:"average_severity"`
	ScenarioIDs        []string `json:"scenario_ids"`
}

// PrioritizedMitigation aggregates a strategy across scenarios
type PrioritizedMitigation struct {
	Title         string  `json:"title"`
	PriorityScore float64 `json:"priority_score"`
	ScenarioCount int     `json:"scenario_count"`
	Bucket        string  `json:"bucket"`
}

// ScenarioComparison is the result of comparing several scenarios
type ScenarioComparison struct {
	RiskRanking           []RankedScenario        `json:"risk_ranking"`
	CommonVulnerabilities []CommonVulnerability   `json:"common_vulnerabilities"`
	MitigationPriorities  []PrioritizedMitigation `json:"mitigation_priorities"`
}

// CompareScenarios ranks scenarios by risk, finds resources impacted by more
// than one scenario and aggregates mitigation strategies by title
func CompareScenarios(scenarios []*ImpactScenario) ScenarioComparison {
	return ScenarioComparison{
		RiskRanking:           rankByRisk(scenarios),
		CommonVulnerabilities: commonVulnerabilities(scenarios),
		MitigationPriorities:  mitigationPriorities(scenarios),
	}
}

func rankByRisk(scenarios []*ImpactScenario) []RankedScenario {
	ranking := make([]RankedScenario, 0, len(scenarios))
	for _, s := range scenarios {
		ranking = append(ranking, RankedScenario{
			ScenarioID:       s.ScenarioID,
			ScenarioType:     s.ScenarioType,
			AffectedResource: s.AffectedResource,
			RiskScore:        s.RiskAssessment.OverallRiskScore,
			RiskLevel:        s.RiskAssessment.RiskLevel,
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].RiskScore > ranking[j].RiskScore
	})
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	return ranking
}

func commonVulnerabilities(scenarios []*ImpactScenario) []CommonVulnerability {
	type tally struct {
		ref         interfaces.ResourceRef
		severitySum int
		scenarioIDs []string
	}
	tallies := make(map[string]*tally)
	var order []string

	for _, s := range scenarios {
		if s.ImpactPropagation == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, r := range s.ImpactPropagation.AllImpacts() {
			key := r.ResourceRef.Key()
			if seen[key] {
				continue
			}
			seen[key] = true

			t, ok := tallies[key]
			if !ok {
				t = &tally{ref: r.ResourceRef}
				tallies[key] = t
				order = append(order, key)
			}
			t.severitySum += r.ImpactSeverity.Weight()
			t.scenarioIDs = append(t.scenarioIDs, s.ScenarioID)
		}
	}

	common := []CommonVulnerability{}
	for _, key := range order {
		t := tallies[key]
		if len(t.scenarioIDs) < 2 {
			continue
		}
		common = append(common, CommonVulnerability{
			ResourceRef:        t.ref,
			VulnerabilityCount: len(t.scenarioIDs),
			AverageSeverity:    float64(t.severitySum) / float64(len(t.scenarioIDs)),
			ScenarioIDs:        t.scenarioIDs,
		})
	}

	sort.SliceStable(common, func(i, j int) bool {
		if common[i].VulnerabilityCount != common[j].VulnerabilityCount {
			return common[i].VulnerabilityCount > common[j].VulnerabilityCount
		}
		return common[i].AverageSeverity > common[j].AverageSeverity
	})
	return common
}

func mitigationPriorities(scenarios []*ImpactScenario) []PrioritizedMitigation {
	type tally struct {
		prioritySum int
		scenarios   map[int]bool
		count       int
	}
	tallies := make(map[string]*tally)
	var order []string

	for i, s := range scenarios {
		for _, m := range s.MitigationStrategies {
			t, ok := tallies[m.Title]
			if !ok {
				t = &tally{scenarios: make(map[int]bool)}
				tallies[m.Title] = t
				order = append(order, m.Title)
			}
			t.prioritySum += m.Priority.Score()
			t.count++
			t.scenarios[i] = true
		}
	}

	priorities := make([]PrioritizedMitigation, 0, len(order))
	for _, title := range order {
		t := tallies[title]
		mean := float64(t.prioritySum) / float64(t.count)
		score := mean * float64(len(t.scenarios))
		priorities = append(priorities, PrioritizedMitigation{
			Title:         title,
			PriorityScore: score,
			ScenarioCount: len(t.scenarios),
			Bucket:        priorityBucket(score),
		})
	}

	sort.SliceStable(priorities, func(i, j int) bool {
		return priorities[i].PriorityScore > priorities[j].PriorityScore
	})
	return priorities
}

func priorityBucket(score float64) string {
	switch {
	case score >= immediateScore:
		return BucketImmediate
	case score >= shortTermScore:
		return BucketShortTerm
	default:
		return BucketLongTerm
	}
}
