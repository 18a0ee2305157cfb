// Package logging provides structured logging support for netcmdb
package logging

// Component-specific loggers

// Graph logger for graph construction and graph algorithms
var Graph = NewLogger("graph")

// Impact logger for impact simulation and risk assessment
var Impact = NewLogger("impact")

// Store logger for relationship store adapters
var Store = NewLogger("store")

// Discovery logger for live relationship discovery
var Discovery = NewLogger("discovery")

// Analysis logger for the fan-out analysis service
var Analysis = NewLogger("analysis")

// Config logger for configuration operations
var Config = NewLogger("config")

// RecordSkipped logs a relationship record the builder could not use
func RecordSkipped(recordID, reason string, fields []string) {
	Graph.slogLogger.RecordSkipped(recordID, reason, fields)
}

// AnalysisSummary logs an analysis run summary at info level
func AnalysisSummary(analysis string, nodes, edges, findings int) {
	if Analysis.level > INFO {
		return
	}
	Analysis.slogLogger.AnalysisSummary(analysis, nodes, edges, findings)
}

// StoreOperation logs a store read
func StoreOperation(operation, source string, count int) {
	Store.Debug("operation=%s source=%s records=%d", operation, source, count)
}

// StoreError logs a store failure
func StoreError(operation, source string, err interface{}) {
	Store.Error("operation=%s source=%s error=%v", operation, source, err)
}
