// Package monitor observes task/knowledge activity and maintains the
// rolling performance metrics described by spec.md §4.5: latency, cache
// hit rate, per-agent workload, coordination timing, and the threshold
// violations that drive alerts.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/CA-git-com-co/ACGS-sub011/internal/blackboard"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
	"github.com/CA-git-com-co/ACGS-sub011/internal/telemetry"
)

const maxSamples = 1000

// Targets are the explicit performance targets from spec.md §4.5, used for
// alerting, not correctness.
type Targets struct {
	P99Millis      float64
	CacheHitRate   float64
	ThroughputOps  float64
}

// Severity mirrors model.ConflictSeverity's vocabulary for alerts that
// aren't tied to a conflict.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is one bottleneck finding, paired with remediation text.
type Alert struct {
	Kind        string
	Severity    Severity
	Description string
	Remediation string
}

// Snapshot is the monitor's point-in-time output.
type Snapshot struct {
	P99Millis                float64
	CacheHitRate             float64
	ActiveCoordinations      int
	CompletedCoordinations   int
	ConstitutionalHash       string
}

// Monitor accumulates rolling latency samples, cache counters, and
// per-agent workload counts, emitting performance_alert knowledge items for
// alerts above warning severity.
type Monitor struct {
	mu sync.Mutex

	targets Targets

	latencies []float64 // bounded ring, last maxSamples

	cacheHits   int64
	cacheMisses int64

	agentWorkload map[string]int64

	activeCoordinations    int
	completedCoordinations int

	store  *blackboard.Store
	logger *slog.Logger

	latencyHist metric.Float64Histogram
}

// New builds a Monitor against targets, publishing alerts through store and
// mirroring its histogram onto the OTEL meter returned by
// telemetry.Meter("acgs.monitor").
func New(targets Targets, store *blackboard.Store, logger *slog.Logger) *Monitor {
	hist, err := telemetry.Meter("acgs.monitor").Float64Histogram(
		"acgs.operation.latency_ms",
		metric.WithDescription("Blackboard operation latency in milliseconds"),
	)
	if err != nil {
		logger.Warn("monitor: create latency histogram", "error", err)
	}
	return &Monitor{
		targets:       targets,
		agentWorkload: make(map[string]int64),
		store:         store,
		logger:        logger,
		latencyHist:   hist,
	}
}

// RecordLatency appends a latency sample (milliseconds), evicting the
// oldest once the bounded deque (last ~1000) is full.
func (m *Monitor) RecordLatency(ctx context.Context, ms float64) {
	m.mu.Lock()
	m.latencies = append(m.latencies, ms)
	if len(m.latencies) > maxSamples {
		m.latencies = m.latencies[len(m.latencies)-maxSamples:]
	}
	m.mu.Unlock()

	if m.latencyHist != nil {
		m.latencyHist.Record(ctx, ms)
	}
}

// RecordCacheHit/RecordCacheMiss update the hit-rate counters.
func (m *Monitor) RecordCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

func (m *Monitor) RecordCacheMiss() {
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()
}

// RecordAgentWork increments agentID's workload counter.
func (m *Monitor) RecordAgentWork(agentID string) {
	m.mu.Lock()
	m.agentWorkload[agentID]++
	m.mu.Unlock()
}

// RecordCoordinationStarted/RecordCoordinationCompleted track in-flight and
// finished governance requests for the snapshot API.
func (m *Monitor) RecordCoordinationStarted() {
	m.mu.Lock()
	m.activeCoordinations++
	m.mu.Unlock()
}

func (m *Monitor) RecordCoordinationCompleted() {
	m.mu.Lock()
	if m.activeCoordinations > 0 {
		m.activeCoordinations--
	}
	m.completedCoordinations++
	m.mu.Unlock()
}

// p99Locked returns the 99th percentile of the current latency samples.
func (m *Monitor) p99Locked() float64 {
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := append([]float64(nil), m.latencies...)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted))*0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (m *Monitor) cacheHitRateLocked() float64 {
	total := m.cacheHits + m.cacheMisses
	if total == 0 {
		return 1
	}
	return float64(m.cacheHits) / float64(total)
}

// Snapshot returns the current P99, cache hit rate, coordination counts,
// and the compliance tag (spec.md §4.5's output contract).
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		P99Millis:              m.p99Locked(),
		CacheHitRate:           m.cacheHitRateLocked(),
		ActiveCoordinations:    m.activeCoordinations,
		CompletedCoordinations: m.completedCoordinations,
		ConstitutionalHash:     model.ComplianceTag,
	}
}

// Scan runs one bottleneck-detection pass and emits performance_alert
// knowledge items (spec.md §4.5) for every alert above warning severity.
func (m *Monitor) Scan(ctx context.Context) []Alert {
	m.mu.Lock()
	p99 := m.p99Locked()
	hitRate := m.cacheHitRateLocked()
	workload := make(map[string]int64, len(m.agentWorkload))
	for k, v := range m.agentWorkload {
		workload[k] = v
	}
	m.mu.Unlock()

	var alerts []Alert

	if p99 > m.targets.P99Millis {
		severity := SeverityHigh
		if p99 > 2*m.targets.P99Millis {
			severity = SeverityCritical
		}
		alerts = append(alerts, Alert{
			Kind:        "p99_latency",
			Severity:    severity,
			Description: fmt.Sprintf("P99 latency %.2fms exceeds target %.2fms", p99, m.targets.P99Millis),
			Remediation: "Enable connection pooling",
		})
	}

	if hitRate < m.targets.CacheHitRate {
		alerts = append(alerts, Alert{
			Kind:        "cache_hit_rate",
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("Cache hit rate %.2f below target %.2f", hitRate, m.targets.CacheHitRate),
			Remediation: "Increase cache TTL or warm frequently-queried knowledge",
		})
	}

	if len(workload) > 0 {
		var min, max int64
		first := true
		for _, v := range workload {
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		if min > 0 && max/min > 3 {
			alerts = append(alerts, Alert{
				Kind:        "agent_workload_imbalance",
				Severity:    SeverityMedium,
				Description: fmt.Sprintf("Agent workload imbalance: max %d vs min %d", max, min),
				Remediation: "Rebalance task type assignments across agents",
			})
		}
	}

	for _, alert := range alerts {
		if alert.Severity == SeverityWarning {
			continue
		}
		m.emitAlert(ctx, alert)
	}
	return alerts
}

func (m *Monitor) emitAlert(ctx context.Context, alert Alert) {
	if m.store == nil {
		return
	}
	item := model.KnowledgeItem{
		Space:         model.SpacePerformance,
		KnowledgeType: "performance_alert",
		Priority:      severityPriority(alert.Severity),
		Content: map[string]any{
			"kind":        alert.Kind,
			"severity":    alert.Severity,
			"description": alert.Description,
			"remediation": alert.Remediation,
		},
	}
	if _, err := m.store.AddKnowledge(ctx, item); err != nil {
		m.logger.Warn("monitor: emit performance_alert", "kind", alert.Kind, "error", err)
	}
}

func severityPriority(s Severity) int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 3
	default:
		return 4
	}
}

// Run scans on interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}
