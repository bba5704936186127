package metrics

import (
	"sync"
	"time"
)

// Recorder is the side channel every dispatch and breaker call reports to.
// Implementations must never propagate errors back to the caller.
type Recorder interface {
	RecordCall(target string, duration time.Duration, success bool)
}

// Metrics is an in-process Recorder tracking per-target call statistics.
type Metrics struct {
	totalCalls  int64
	totalErrors int64

	targets map[string]*TargetMetrics
	buckets map[string]*LatencyBuckets
	mu      sync.RWMutex
}

// TargetMetrics holds metrics for a specific call target,
// e.g. "dispatch:CACHE.get" or "breaker:home_assistant".
type TargetMetrics struct {
	Calls        int64     `json:"calls"`
	Errors       int64     `json:"errors"`
	TotalLatency int64     `json:"total_latency_ms"`
	MinLatency   int64     `json:"min_latency_ms"`
	MaxLatency   int64     `json:"max_latency_ms"`
	LastCall     time.Time `json:"last_call"`
}

// LatencyBuckets holds latency distribution data
type LatencyBuckets struct {
	Under10ms   int64 `json:"under_10ms"`
	Under50ms   int64 `json:"under_50ms"`
	Under100ms  int64 `json:"under_100ms"`
	Under500ms  int64 `json:"under_500ms"`
	Under1000ms int64 `json:"under_1000ms"`
	Over1000ms  int64 `json:"over_1000ms"`
}

// New creates a new metrics instance
func New() *Metrics {
	return &Metrics{
		targets: make(map[string]*TargetMetrics),
		buckets: make(map[string]*LatencyBuckets),
	}
}

// RecordCall records one call outcome for a target
func (m *Metrics) RecordCall(target string, duration time.Duration, success bool) {
	latencyMs := duration.Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCalls++
	if !success {
		m.totalErrors++
	}

	tm := m.targets[target]
	if tm == nil {
		tm = &TargetMetrics{MinLatency: latencyMs}
		m.targets[target] = tm
	}
	bk := m.buckets[target]
	if bk == nil {
		bk = &LatencyBuckets{}
		m.buckets[target] = bk
	}

	tm.Calls++
	if !success {
		tm.Errors++
	}
	tm.TotalLatency += latencyMs
	tm.LastCall = time.Now()
	if latencyMs < tm.MinLatency {
		tm.MinLatency = latencyMs
	}
	if latencyMs > tm.MaxLatency {
		tm.MaxLatency = latencyMs
	}

	switch {
	case latencyMs < 10:
		bk.Under10ms++
	case latencyMs < 50:
		bk.Under50ms++
	case latencyMs < 100:
		bk.Under100ms++
	case latencyMs < 500:
		bk.Under500ms++
	case latencyMs < 1000:
		bk.Under1000ms++
	default:
		bk.Over1000ms++
	}
}

// GetStats returns current statistics for all targets
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var overallSuccessRate float64
	if m.totalCalls > 0 {
		overallSuccessRate = float64(m.totalCalls-m.totalErrors) / float64(m.totalCalls) * 100
	}

	targetStats := make(map[string]interface{}, len(m.targets))
	for target, tm := range m.targets {
		targetStats[target] = m.targetStatsLocked(target, tm)
	}

	return map[string]interface{}{
		"total_calls":          m.totalCalls,
		"total_errors":         m.totalErrors,
		"overall_success_rate": overallSuccessRate,
		"targets":              targetStats,
	}
}

// GetTargetStats returns statistics for a specific target
func (m *Metrics) GetTargetStats(target string) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tm, exists := m.targets[target]
	if !exists {
		return map[string]interface{}{
			"calls":          int64(0),
			"errors":         int64(0),
			"avg_latency_ms": 0.0,
		}
	}
	return m.targetStatsLocked(target, tm)
}

// targetStatsLocked builds the stats map for one target; callers hold m.mu.
func (m *Metrics) targetStatsLocked(target string, tm *TargetMetrics) map[string]interface{} {
	var avgLatency float64
	if tm.Calls > 0 {
		avgLatency = float64(tm.TotalLatency) / float64(tm.Calls)
	}

	var successRate float64
	if tm.Calls > 0 {
		successRate = float64(tm.Calls-tm.Errors) / float64(tm.Calls) * 100
	}

	return map[string]interface{}{
		"calls":                tm.Calls,
		"errors":               tm.Errors,
		"success_rate":         successRate,
		"avg_latency_ms":       avgLatency,
		"min_latency_ms":       tm.MinLatency,
		"max_latency_ms":       tm.MaxLatency,
		"last_call":            tm.LastCall,
		"latency_distribution": m.buckets[target],
	}
}

// GetTotalCalls returns the total number of recorded calls
func (m *Metrics) GetTotalCalls() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalCalls
}

// GetTotalErrors returns the total number of recorded errors
func (m *Metrics) GetTotalErrors() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCalls = 0
	m.totalErrors = 0
	m.targets = make(map[string]*TargetMetrics)
	m.buckets = make(map[string]*LatencyBuckets)
}
