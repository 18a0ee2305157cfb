// Package analysis runs graph analyses over relationships loaded from a
// store. Each call builds one immutable graph and fans independent work out
// to a bounded worker pool.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/dependency"
	"github.com/netcmdb/netcmdb/internal/impact"
	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/internal/metrics"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

const tracerName = "github.com/netcmdb/netcmdb/internal/analysis"

// Service loads relationship records and answers analysis requests
type Service struct {
	store     interfaces.RelationshipStore
	cfg       *config.AnalysisConfig
	builder   *dependency.Builder
	analyzer  *impact.Analyzer
	simulator *impact.Simulator
	metrics   *metrics.Collector
	tracer    trace.Tracer
	logger    *logging.Logger
	now       func() time.Time
}

// NewService creates a service. A nil cfg selects the defaults and a nil
// collector gets a private one.
func NewService(store interfaces.RelationshipStore, cfg *config.AnalysisConfig, collector *metrics.Collector) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("relationship store is required")
	}
	if cfg == nil {
		cfg = config.NewAnalysisConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	return &Service{
		store:     store,
		cfg:       cfg,
		builder:   dependency.NewBuilder(),
		analyzer:  impact.NewAnalyzer(),
		simulator: impact.NewSimulator(),
		metrics:   collector,
		tracer:    otel.Tracer(tracerName),
		logger:    logging.Analysis,
		now:       time.Now,
	}, nil
}

// Metrics returns the collector snapshot
func (s *Service) Metrics() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// GraphReport summarises a freshly built graph
type GraphReport struct {
	Metrics dependency.GraphMetrics       `json:"metrics"`
	Roots   []string                      `json:"roots"`
	Leaves  []string                      `json:"leaves"`
	Skipped int                           `json:"skipped"`
	Cycles  []dependency.CyclicDependency `json:"cycles"`

	Graph *dependency.Graph `json:"-"`
}

// ComparisonReport holds the scenarios of a batch simulation and their comparison
type ComparisonReport struct {
	Scenarios  []*impact.ImpactScenario  `json:"scenarios"`
	Comparison impact.ScenarioComparison `json:"comparison"`
}

// ProviderPairReport describes the relationships from one provider's
// resources to another provider's resources
type ProviderPairReport struct {
	SourceProvider    string   `json:"source_provider"`
	TargetProvider    string   `json:"target_provider"`
	EdgeCount         int      `json:"edge_count"`
	CriticalEdges     int      `json:"critical_edges"`
	AverageConfidence float64  `json:"average_confidence"`
	RelationshipTypes []string `json:"relationship_types"`
	EdgeIDs           []string `json:"edge_ids"`
}

// CrossCloudReport lists every provider pair joined by at least one relationship
type CrossCloudReport struct {
	Providers       []string             `json:"providers"`
	Pairs           []ProviderPairReport `json:"pairs"`
	CrossCloudEdges int                  `json:"cross_cloud_edges"`
}

// TypeImpact is the worst single-resource failure found for a resource type
type TypeImpact struct {
	Resource          string                `json:"resource"`
	AffectedResources int                   `json:"affected_resources"`
	CriticalImpacts   int                   `json:"critical_impacts"`
	RiskScore         int                   `json:"risk_score"`
	RiskLevel         impact.ImpactSeverity `json:"risk_level"`
}

// TypeReport aggregates the nodes of one resource type
type TypeReport struct {
	ResourceType    string      `json:"resource_type"`
	NodeCount       int         `json:"node_count"`
	CriticalNodes   int         `json:"critical_nodes"`
	Providers       []string    `json:"providers"`
	TotalDependents int         `json:"total_dependents"`
	MaxDependents   int         `json:"max_dependents"`
	MaxLevel        int         `json:"max_level"`
	HighestImpact   *TypeImpact `json:"highest_impact,omitempty"`
}

// LoadGraph reads the store and builds a graph
func (s *Service) LoadGraph(ctx context.Context, includeInactive bool) (*dependency.Graph, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.load_graph",
		trace.WithAttributes(attribute.Bool("include_inactive", includeInactive)))
	defer span.End()

	start := time.Now()
	records, err := s.store.ListRelationships(ctx, interfaces.RelationshipFilter{IncludeInactive: includeInactive})
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}

	g, err := s.builder.Build(ctx, records, dependency.BuildOptions{IncludeInactive: includeInactive})
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	s.metrics.RecordGraphBuilt(g.NodeCount(), g.Skipped, time.Since(start))
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("nodes", g.NodeCount()),
		attribute.Int("edges", g.EdgeCount()),
	)
	s.logger.Debug("Built graph from %d records: %d nodes, %d edges, %d skipped",
		len(records), g.NodeCount(), g.EdgeCount(), g.Skipped)
	return g, nil
}

// Report builds the graph and computes its metrics and cycles
func (s *Service) Report(ctx context.Context) (*GraphReport, error) {
	var report *GraphReport
	err := s.run(ctx, "graph_report", nil, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.IncludeInactive)
		if err != nil {
			return err
		}
		cycles, err := s.detectCycles(ctx, g)
		if err != nil {
			return err
		}

		report = &GraphReport{
			Metrics: dependency.CalculateMetrics(g, cycles),
			Roots:   g.Roots,
			Leaves:  g.Leaves,
			Skipped: g.Skipped,
			Cycles:  cycles,
			Graph:   g,
		}
		logging.AnalysisSummary("graph", g.NodeCount(), g.EdgeCount(), len(cycles))
		return nil
	})
	return report, err
}

// Cycles lists the dependency cycles of the current graph
func (s *Service) Cycles(ctx context.Context) ([]dependency.CyclicDependency, error) {
	var cycles []dependency.CyclicDependency
	err := s.run(ctx, "detect_cycles", nil, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.IncludeInactive)
		if err != nil {
			return err
		}
		cycles, err = s.detectCycles(ctx, g)
		if err != nil {
			return err
		}
		logging.AnalysisSummary("cycles", g.NodeCount(), g.EdgeCount(), len(cycles))
		return nil
	})
	return cycles, err
}

// CriticalPaths lists paths between critical resources, optionally only
// those involving from
func (s *Service) CriticalPaths(ctx context.Context, from *interfaces.ResourceRef) ([]dependency.RelationshipPath, error) {
	var attrs []attribute.KeyValue
	if from != nil {
		attrs = append(attrs, attribute.String("from", from.Key()))
	}

	var paths []dependency.RelationshipPath
	err := s.run(ctx, "critical_paths", attrs, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.IncludeInactive)
		if err != nil {
			return err
		}
		paths, err = dependency.FindCriticalPaths(ctx, g, dependency.CriticalPathOptions{
			MaxDepth: s.cfg.MaxPathDepth,
			From:     from,
			Now:      s.now,
		})
		if err != nil {
			return err
		}
		logging.AnalysisSummary("critical_paths", g.NodeCount(), g.EdgeCount(), len(paths))
		return nil
	})
	return paths, err
}

// Paths lists every simple dependency path from one resource to another
func (s *Service) Paths(ctx context.Context, from, to interfaces.ResourceRef) ([]dependency.RelationshipPath, error) {
	attrs := []attribute.KeyValue{attribute.String("from", from.Key()), attribute.String("to", to.Key())}

	paths := []dependency.RelationshipPath{}
	err := s.run(ctx, "find_paths", attrs, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.IncludeInactive)
		if err != nil {
			return err
		}
		chains, err := dependency.FindPaths(ctx, g, from.Key(), to.Key(), s.cfg.MaxPathDepth)
		if err != nil {
			return err
		}
		computedAt := s.now()
		for _, edgeIDs := range chains {
			path, err := g.NewRelationshipPath(from.Key(), to.Key(), edgeIDs, computedAt)
			if err != nil {
				return err
			}
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// Simulate analyses one scenario for one resource
func (s *Service) Simulate(ctx context.Context, source interfaces.ResourceRef, scenarioType impact.ScenarioType,
	overrides config.SimulationOverrides,
) (*impact.ImpactScenario, error) {
	attrs := []attribute.KeyValue{
		attribute.String("source", source.Key()),
		attribute.String("scenario", string(scenarioType)),
	}

	var scenario *impact.ImpactScenario
	err := s.run(ctx, "simulate", attrs, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.WithOverrides(overrides).IncludeInactive)
		if err != nil {
			return err
		}
		opts := simulationOptions(s.cfg, scenarioType, overrides)
		scenario, err = s.analyzer.Analyze(ctx, g, source, scenarioType, &opts)
		s.metrics.RecordSimulation(err)
		return err
	})
	return scenario, err
}

// Compare simulates the same scenario for several resources against one
// graph and compares the outcomes. Scenarios keep the order of sources.
func (s *Service) Compare(ctx context.Context, sources []interfaces.ResourceRef, scenarioType impact.ScenarioType,
	overrides config.SimulationOverrides,
) (*ComparisonReport, error) {
	if len(sources) == 0 {
		return nil, dependency.InvalidOptions("at least one resource is required")
	}
	attrs := []attribute.KeyValue{
		attribute.Int("sources", len(sources)),
		attribute.String("scenario", string(scenarioType)),
	}

	var report *ComparisonReport
	err := s.run(ctx, "compare", attrs, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.WithOverrides(overrides).IncludeInactive)
		if err != nil {
			return err
		}
		opts := simulationOptions(s.cfg, scenarioType, overrides)

		scenarios := make([]*impact.ImpactScenario, len(sources))
		tasks := make([]func(context.Context) error, len(sources))
		for i, source := range sources {
			i, source := i, source
			tasks[i] = func(ctx context.Context) error {
				scenario, err := s.analyzer.Analyze(ctx, g, source, scenarioType, &opts)
				s.metrics.RecordSimulation(err)
				if err != nil {
					return err
				}
				// each task owns its slot
				scenarios[i] = scenario
				return nil
			}
		}
		if err := s.fanOut(ctx, "compare", tasks); err != nil {
			return err
		}

		report = &ComparisonReport{
			Scenarios:  scenarios,
			Comparison: impact.CompareScenarios(scenarios),
		}
		logging.AnalysisSummary("compare", g.NodeCount(), g.EdgeCount(), len(report.Comparison.CommonVulnerabilities))
		return nil
	})
	return report, err
}

// CrossCloud reports relationships that cross provider boundaries, one
// worker task per ordered provider pair
func (s *Service) CrossCloud(ctx context.Context) (*CrossCloudReport, error) {
	var report *CrossCloudReport
	err := s.run(ctx, "cross_cloud", nil, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.IncludeInactive)
		if err != nil {
			return err
		}

		providers := g.Providers()
		var (
			mu    sync.Mutex
			pairs []ProviderPairReport
			tasks []func(context.Context) error
		)
		for _, from := range providers {
			for _, to := range providers {
				if from == to {
					continue
				}
				from, to := from, to
				tasks = append(tasks, func(ctx context.Context) error {
					pair := providerPair(g, from, to)
					if pair.EdgeCount == 0 {
						return nil
					}
					mu.Lock()
					pairs = append(pairs, pair)
					mu.Unlock()
					return nil
				})
			}
		}
		if err := s.fanOut(ctx, "cross_cloud", tasks); err != nil {
			return err
		}

		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i].SourceProvider != pairs[j].SourceProvider {
				return pairs[i].SourceProvider < pairs[j].SourceProvider
			}
			return pairs[i].TargetProvider < pairs[j].TargetProvider
		})

		report = &CrossCloudReport{Providers: providers, Pairs: nonNilPairs(pairs)}
		for _, p := range pairs {
			report.CrossCloudEdges += p.EdgeCount
		}
		logging.AnalysisSummary("cross_cloud", g.NodeCount(), g.EdgeCount(), report.CrossCloudEdges)
		return nil
	})
	return report, err
}

// TypeAnalysis aggregates every resource type and finds the resource of
// each type whose failure affects the most others
func (s *Service) TypeAnalysis(ctx context.Context) ([]TypeReport, error) {
	var reports []TypeReport
	err := s.run(ctx, "type_analysis", nil, func(ctx context.Context) error {
		g, err := s.LoadGraph(ctx, s.cfg.IncludeInactive)
		if err != nil {
			return err
		}
		opts := simulationOptions(s.cfg, impact.ScenarioResourceFailure, config.SimulationOverrides{})

		var mu sync.Mutex
		types := g.ResourceTypes()
		tasks := make([]func(context.Context) error, len(types))
		for i, resourceType := range types {
			i, resourceType := i, resourceType
			tasks[i] = func(ctx context.Context) error {
				report, err := s.typeReport(ctx, g, resourceType, opts)
				if err != nil {
					return err
				}
				mu.Lock()
				reports = append(reports, report)
				mu.Unlock()
				return nil
			}
		}
		if err := s.fanOut(ctx, "type_analysis", tasks); err != nil {
			return err
		}

		sort.Slice(reports, func(i, j int) bool {
			return reports[i].ResourceType < reports[j].ResourceType
		})
		if reports == nil {
			reports = []TypeReport{}
		}
		logging.AnalysisSummary("type_analysis", g.NodeCount(), g.EdgeCount(), len(reports))
		return nil
	})
	return reports, err
}

func (s *Service) typeReport(ctx context.Context, g *dependency.Graph, resourceType string,
	opts impact.SimulationOptions,
) (TypeReport, error) {
	report := TypeReport{ResourceType: resourceType}
	providers := make(map[string]bool)

	for _, n := range g.NodesOfType(resourceType) {
		report.NodeCount++
		if n.Critical {
			report.CriticalNodes++
		}
		providers[n.Provider] = true
		report.TotalDependents += len(n.Dependents)
		if len(n.Dependents) > report.MaxDependents {
			report.MaxDependents = len(n.Dependents)
		}
		if n.Level > report.MaxLevel {
			report.MaxLevel = n.Level
		}

		result, err := s.simulator.Simulate(ctx, g, n.Ref(), impact.ScenarioResourceFailure, opts)
		s.metrics.RecordSimulation(err)
		if err != nil {
			return report, err
		}
		if result.TotalAffectedResources == 0 {
			continue
		}
		if worse(result, report.HighestImpact) {
			risk := impact.AssessRisk(impact.ScenarioResourceFailure, result)
			report.HighestImpact = &TypeImpact{
				Resource:          n.ID,
				AffectedResources: result.TotalAffectedResources,
				CriticalImpacts:   result.CriticalImpactCount,
				RiskScore:         risk.OverallRiskScore,
				RiskLevel:         risk.RiskLevel,
			}
		}
	}

	for p := range providers {
		report.Providers = append(report.Providers, p)
	}
	sort.Strings(report.Providers)
	return report, nil
}

// worse keeps the first resource on ties
func worse(result *impact.ImpactPropagationResult, current *TypeImpact) bool {
	if current == nil {
		return true
	}
	if result.TotalAffectedResources != current.AffectedResources {
		return result.TotalAffectedResources > current.AffectedResources
	}
	return result.CriticalImpactCount > current.CriticalImpacts
}

func providerPair(g *dependency.Graph, from, to string) ProviderPairReport {
	pair := ProviderPairReport{SourceProvider: from, TargetProvider: to, EdgeIDs: []string{}}
	relTypes := make(map[string]bool)
	totalConfidence := 0.0

	for _, e := range g.Edges() {
		src, ok := g.Node(e.Source)
		if !ok || src.Provider != from {
			continue
		}
		dst, ok := g.Node(e.Target)
		if !ok || dst.Provider != to {
			continue
		}
		pair.EdgeCount++
		if e.Critical {
			pair.CriticalEdges++
		}
		totalConfidence += e.Confidence
		relTypes[e.RelationshipType] = true
		pair.EdgeIDs = append(pair.EdgeIDs, e.ID)
	}

	if pair.EdgeCount > 0 {
		pair.AverageConfidence = totalConfidence / float64(pair.EdgeCount)
	}
	for t := range relTypes {
		pair.RelationshipTypes = append(pair.RelationshipTypes, t)
	}
	sort.Strings(pair.RelationshipTypes)
	return pair
}

func (s *Service) detectCycles(ctx context.Context, g *dependency.Graph) ([]dependency.CyclicDependency, error) {
	cycles, err := dependency.DetectCycles(ctx, g, dependency.CycleOptions{MaxDepth: s.cfg.MaxCycleDepth})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCycles(len(cycles))
	return cycles, nil
}

// simulationOptions picks the configured bounds for the scenario and applies
// per-request overrides on top
func simulationOptions(cfg *config.AnalysisConfig, scenarioType impact.ScenarioType,
	overrides config.SimulationOverrides,
) impact.SimulationOptions {
	opts := impact.SimulationOptions{
		MaxPropagationDepth: cfg.MaxPropagationDepth,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}
	if scenarioType == impact.ScenarioSecurityBreach {
		opts = impact.SimulationOptions{
			MaxPropagationDepth: cfg.BreachMaxPropagationDepth,
			ConfidenceThreshold: cfg.BreachConfidenceThreshold,
		}
	}
	if overrides.MaxPropagationDepth != nil {
		opts.MaxPropagationDepth = *overrides.MaxPropagationDepth
	}
	if overrides.ConfidenceThreshold != nil {
		opts.ConfidenceThreshold = *overrides.ConfidenceThreshold
	}
	return opts
}

// run wraps one top-level analysis with the configured timeout, a span and
// the metrics lifecycle
func (s *Service) run(ctx context.Context, operation string, attrs []attribute.KeyValue,
	fn func(ctx context.Context) error,
) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "analysis."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	analysisID, err := uuid.GenerateUUID()
	if err != nil {
		analysisID = fmt.Sprintf("%s-%d", operation, time.Now().UnixNano())
	}
	ctx = logging.WithCorrelationID(ctx, analysisID)

	s.metrics.StartAnalysis(analysisID)
	err = fn(ctx)
	s.metrics.FinishAnalysis(analysisID, err)

	if err != nil {
		recordSpanError(span, err)
		s.logger.Failure(ctx, operation, err)
		return err
	}
	return nil
}

// fanOut runs tasks on a bounded worker pool and waits for all of them.
// Tasks skip once ctx is done; a panicking task fails the batch.
func (s *Service) fanOut(ctx context.Context, name string, tasks []func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}

	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	pool := workerpool.New(workers)
	s.metrics.UpdateActiveWorkers(workers)
	defer s.metrics.UpdateActiveWorkers(0)

	var (
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for i, task := range tasks {
		i, task := i, task
		pool.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("%s task %d panicked: %v", name, i, r)
					fail(fmt.Errorf("%s task %d panicked: %v", name, i, r))
				}
			}()

			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			if err := task(ctx); err != nil {
				fail(err)
			}
		})
	}
	pool.StopWait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func nonNilPairs(v []ProviderPairReport) []ProviderPairReport {
	if v == nil {
		return []ProviderPairReport{}
	}
	return v
}
