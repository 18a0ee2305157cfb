// Package metrics collects counters and timings for graph analysis runs.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxDurations caps the number of retained timings
const maxDurations = 1000

// Snapshot is a point-in-time copy of the collected metrics
type Snapshot struct {
	GraphsBuilt        int64         `json:"graphs_built"`
	RecordsSkipped     int64         `json:"records_skipped"`
	CyclesFound        int64         `json:"cycles_found"`
	SimulationsRun     int64         `json:"simulations_run"`
	SimulationsFailed  int64         `json:"simulations_failed"`
	AnalysesCompleted  int64         `json:"analyses_completed"`
	AnalysesFailed     int64         `json:"analyses_failed"`
	AnalysesInFlight   int           `json:"analyses_in_flight"`
	ActiveWorkers      int           `json:"active_workers"`
	AverageAnalysis    time.Duration `json:"average_analysis"`
	AverageBuildTime   time.Duration `json:"average_build_time"`
	WorkerUtilization  float64       `json:"worker_utilization"`
	Uptime             time.Duration `json:"uptime"`
	LastGraphNodeCount int64         `json:"last_graph_node_count"`
}

// Collector tracks analysis metrics
type Collector struct {
	mu sync.RWMutex

	// Counters
	graphsBuilt       int64
	recordsSkipped    int64
	cyclesFound       int64
	simulationsRun    int64
	simulationsFailed int64
	analysesCompleted int64
	analysesFailed    int64
	lastNodeCount     int64

	// Timing
	analysisDurations []time.Duration
	buildDurations    []time.Duration

	activeWorkers int32
	startTime     time.Time

	// analysisID -> start time
	analysisStartTimes sync.Map
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		startTime:         time.Now(),
		analysisDurations: make([]time.Duration, 0, maxDurations),
		buildDurations:    make([]time.Duration, 0, maxDurations),
	}
}

// RecordGraphBuilt records a finished graph build
func (c *Collector) RecordGraphBuilt(nodes, skipped int, took time.Duration) {
	atomic.AddInt64(&c.graphsBuilt, 1)
	atomic.AddInt64(&c.recordsSkipped, int64(skipped))
	atomic.StoreInt64(&c.lastNodeCount, int64(nodes))

	c.mu.Lock()
	c.buildDurations = appendCapped(c.buildDurations, took)
	c.mu.Unlock()
}

// RecordCycles adds detected cycles
func (c *Collector) RecordCycles(n int) {
	atomic.AddInt64(&c.cyclesFound, int64(n))
}

// RecordSimulation counts one simulation and whether it failed
func (c *Collector) RecordSimulation(err error) {
	atomic.AddInt64(&c.simulationsRun, 1)
	if err != nil {
		atomic.AddInt64(&c.simulationsFailed, 1)
	}
}

// StartAnalysis marks an analysis as in flight
func (c *Collector) StartAnalysis(analysisID string) {
	c.analysisStartTimes.Store(analysisID, time.Now())
}

// FinishAnalysis records the outcome and duration of an analysis started
// with StartAnalysis. Unknown IDs only update the counters.
func (c *Collector) FinishAnalysis(analysisID string, err error) {
	if err != nil {
		atomic.AddInt64(&c.analysesFailed, 1)
	} else {
		atomic.AddInt64(&c.analysesCompleted, 1)
	}

	if start, ok := c.analysisStartTimes.LoadAndDelete(analysisID); ok {
		duration := time.Since(start.(time.Time))
		c.mu.Lock()
		c.analysisDurations = appendCapped(c.analysisDurations, duration)
		c.mu.Unlock()
	}
}

// UpdateActiveWorkers sets the number of busy fan-out workers
func (c *Collector) UpdateActiveWorkers(count int) {
	atomic.StoreInt32(&c.activeWorkers, int32(count)) // #nosec G115 - worker count will never exceed int32 limits
}

// Snapshot returns the current metrics
func (c *Collector) Snapshot() Snapshot {
	inFlight := 0
	c.analysisStartTimes.Range(func(_, _ interface{}) bool {
		inFlight++
		return true
	})

	workers := int(atomic.LoadInt32(&c.activeWorkers))
	var utilization float64
	if workers > 0 {
		utilization = float64(inFlight) / float64(workers)
		if utilization > 1.0 {
			utilization = 1.0
		}
	}

	c.mu.RLock()
	avgAnalysis := averageNoLock(c.analysisDurations)
	avgBuild := averageNoLock(c.buildDurations)
	uptime := time.Since(c.startTime)
	c.mu.RUnlock()

	return Snapshot{
		GraphsBuilt:        atomic.LoadInt64(&c.graphsBuilt),
		RecordsSkipped:     atomic.LoadInt64(&c.recordsSkipped),
		CyclesFound:        atomic.LoadInt64(&c.cyclesFound),
		SimulationsRun:     atomic.LoadInt64(&c.simulationsRun),
		SimulationsFailed:  atomic.LoadInt64(&c.simulationsFailed),
		AnalysesCompleted:  atomic.LoadInt64(&c.analysesCompleted),
		AnalysesFailed:     atomic.LoadInt64(&c.analysesFailed),
		AnalysesInFlight:   inFlight,
		ActiveWorkers:      workers,
		AverageAnalysis:    avgAnalysis,
		AverageBuildTime:   avgBuild,
		WorkerUtilization:  utilization,
		Uptime:             uptime,
		LastGraphNodeCount: atomic.LoadInt64(&c.lastNodeCount),
	}
}

// Reset resets all metrics (useful for testing)
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.graphsBuilt, 0)
	atomic.StoreInt64(&c.recordsSkipped, 0)
	atomic.StoreInt64(&c.cyclesFound, 0)
	atomic.StoreInt64(&c.simulationsRun, 0)
	atomic.StoreInt64(&c.simulationsFailed, 0)
	atomic.StoreInt64(&c.analysesCompleted, 0)
	atomic.StoreInt64(&c.analysesFailed, 0)
	atomic.StoreInt64(&c.lastNodeCount, 0)
	atomic.StoreInt32(&c.activeWorkers, 0)

	c.analysisDurations = c.analysisDurations[:0]
	c.buildDurations = c.buildDurations[:0]
	c.startTime = time.Now()

	c.analysisStartTimes.Range(func(key, _ interface{}) bool {
		c.analysisStartTimes.Delete(key)
		return true
	})
}

// appendCapped keeps only the last maxDurations entries
func appendCapped(durations []time.Duration, d time.Duration) []time.Duration {
	durations = append(durations, d)
	if len(durations) > maxDurations {
		durations = durations[len(durations)-maxDurations:]
	}
	return durations
}

func averageNoLock(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}
