package impact

import (
	"sort"
	"strings"
)

// GenerateMitigations returns the strategies recommended for a scenario,
// ordered by priority. Applicable resources are node IDs from the propagation.
func GenerateMitigations(scenarioType ScenarioType, propagation *ImpactPropagationResult) []MitigationStrategy {
	all := nodeIDs(propagation.AllImpacts(), func(ImpactedResource) bool { return true })
	immediate := nodeIDs(propagation.ImmediateImpacts, func(ImpactedResource) bool { return true })
	critical := nodeIDs(propagation.AllImpacts(), func(r ImpactedResource) bool {
		return r.ImpactSeverity == SeverityCritical
	})

	var strategies []MitigationStrategy

	switch scenarioType {
	case ScenarioResourceChange:
		strategies = append(strategies,
			MitigationStrategy{
				Title:               "Stage change with canary rollout",
				Description:         "Apply the change to a small slice of dependents first and watch error rates before widening",
				Priority:            PriorityHigh,
				Type:                MitigationPreventive,
				Effort:              "medium",
				Timeline:            "before change",
				ApplicableResources: immediate,
			},
			MitigationStrategy{
				Title:               "Prepare tested rollback plan",
				Description:         "Document and rehearse reverting the change, including configuration snapshots",
				Priority:            PriorityHigh,
				Type:                MitigationCorrective,
				Effort:              "low",
				Timeline:            "before change",
				ApplicableResources: []string{propagation.SourceResource.Key()},
			},
			MitigationStrategy{
				Title:               "Schedule maintenance window",
				Description:         "Notify owners of dependent resources and change outside peak hours",
				Priority:            PriorityMedium,
				Type:                MitigationPreventive,
				Effort:              "low",
				Timeline:            "1 week",
				ApplicableResources: all,
			},
		)
	case ScenarioSecurityBreach:
		strategies = append(strategies,
			MitigationStrategy{
				Title:               "Isolate compromised resource",
				Description:         "Restrict security groups, network ACLs and routes to contain lateral movement",
				Priority:            PriorityHigh,
				Type:                MitigationCorrective,
				Effort:              "low",
				Timeline:            "immediate",
				ApplicableResources: []string{propagation.SourceResource.Key()},
			},
			MitigationStrategy{
				Title:               "Rotate credentials and access keys",
				Description:         "Invalidate credentials reachable from the compromised trust relationships",
				Priority:            PriorityHigh,
				Type:                MitigationCorrective,
				Effort:              "medium",
				Timeline:            "24 hours",
				ApplicableResources: all,
			},
			MitigationStrategy{
				Title:               "Enable flow log analysis",
				Description:         "Turn on VPC flow logs and alert on unexpected east-west traffic",
				Priority:            PriorityMedium,
				Type:                MitigationDetective,
				Effort:              "medium",
				Timeline:            "1 week",
				ApplicableResources: all,
			},
		)
		if vpcs := nodeIDs(propagation.AllImpacts(), func(r ImpactedResource) bool {
			return strings.EqualFold(r.ResourceType, boundaryResourceType)
		}); len(vpcs) > 0 {
			strategies = append(strategies, MitigationStrategy{
				Title:               "Review network segmentation",
				Description:         "Tighten peering and transit routes between impacted VPCs",
				Priority:            PriorityMedium,
				Type:                MitigationPreventive,
				Effort:              "high",
				Timeline:            "2-4 weeks",
				ApplicableResources: vpcs,
			})
		}
	case ScenarioPerformanceDegradation:
		strategies = append(strategies,
			MitigationStrategy{
				Title:               "Scale out affected capacity",
				Description:         "Add capacity to the degraded resource and its busiest dependents",
				Priority:            PriorityHigh,
				Type:                MitigationCorrective,
				Effort:              "medium",
				Timeline:            "immediate",
				ApplicableResources: append([]string{propagation.SourceResource.Key()}, immediate...),
			},
			MitigationStrategy{
				Title:               "Add latency and saturation alerting",
				Description:         "Alert on throughput and latency thresholds before users notice",
				Priority:            PriorityMedium,
				Type:                MitigationDetective,
				Effort:              "low",
				Timeline:            "1 week",
				ApplicableResources: all,
			},
			MitigationStrategy{
				Title:               "Review capacity planning",
				Description:         "Revisit growth forecasts for resources on the propagation paths",
				Priority:            PriorityLow,
				Type:                MitigationPreventive,
				Effort:              "medium",
				Timeline:            "1 month",
				ApplicableResources: all,
			},
		)
	default:
		redundancy := PriorityMedium
		if len(critical) > 0 {
			redundancy = PriorityHigh
		}
		strategies = append(strategies,
			MitigationStrategy{
				Title:               "Implement redundancy for critical resources",
				Description:         "Deploy critical resources across availability zones or regions",
				Priority:            redundancy,
				Type:                MitigationPreventive,
				Effort:              "high",
				Timeline:            "2-4 weeks",
				ApplicableResources: critical,
			},
			MitigationStrategy{
				Title:               "Configure automated failover",
				Description:         "Fail dependents over to standby resources when the source becomes unavailable",
				Priority:            PriorityHigh,
				Type:                MitigationCorrective,
				Effort:              "medium",
				Timeline:            "1-2 weeks",
				ApplicableResources: immediate,
			},
		)
	}

	strategies = append(strategies, MitigationStrategy{
		Title:               "Enhance dependency health monitoring",
		Description:         "Monitor health of resources on the propagation paths and alert on first-wave failures",
		Priority:            PriorityMedium,
		Type:                MitigationDetective,
		Effort:              "low",
		Timeline:            "1 week",
		ApplicableResources: all,
	})

	if propagation.TotalAffectedResources > wideBlastRadius {
		strategies = append(strategies, MitigationStrategy{
			Title:               "Reduce blast radius by decoupling dependencies",
			Description:         "Introduce queues, caches or regional isolation between tightly coupled resources",
			Priority:            PriorityMedium,
			Type:                MitigationPreventive,
			Effort:              "high",
			Timeline:            "1-3 months",
			ApplicableResources: immediate,
		})
	}

	sortStrategies(strategies)
	return strategies
}

// sortStrategies orders by descending priority, keeping catalogue order for ties
func sortStrategies(strategies []MitigationStrategy) {
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Priority.Score() > strategies[j].Priority.Score()
	})
}

func nodeIDs(impacts []ImpactedResource, keep func(ImpactedResource) bool) []string {
	ids := []string{}
	for _, r := range impacts {
		if keep(r) {
			ids = append(ids, r.NodeID)
		}
	}
	return ids
}
