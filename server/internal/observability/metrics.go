package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for inventory operations.
type Metrics struct {
	mu sync.Mutex

	opsTotal  atomic.Int64
	opsFailed atomic.Int64

	searchHits   atomic.Int64
	searchMisses atomic.Int64
	dedupHits    atomic.Int64
	dedupMisses  atomic.Int64

	ops map[string]*OpMetrics
}

// OpMetrics represents metrics for one operation name, e.g. "list.material".
type OpMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{ops: make(map[string]*OpMetrics)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordOp records one execution of an operation with its duration.
func (m *Metrics) RecordOp(op string, duration time.Duration, err error) {
	om := m.opMetrics(op)
	m.opsTotal.Add(1)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if err != nil {
		m.opsFailed.Add(1)
		om.errorCount.Add(1)
	}
}

func (m *Metrics) RecordSearchHit()  { m.searchHits.Add(1) }
func (m *Metrics) RecordSearchMiss() { m.searchMisses.Add(1) }
func (m *Metrics) RecordDedupHit()   { m.dedupHits.Add(1) }
func (m *Metrics) RecordDedupMiss()  { m.dedupMisses.Add(1) }

// OpCount returns how many times op ran.
func (m *Metrics) OpCount(op string) int64 {
	return m.opMetrics(op).count.Load()
}

func (m *Metrics) opMetrics(op string) *OpMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.ops[op]
	if !ok {
		om = &OpMetrics{}
		m.ops[op] = om
	}
	return om
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.opsTotal.Store(0)
	m.opsFailed.Store(0)
	m.searchHits.Store(0)
	m.searchMisses.Store(0)
	m.dedupHits.Store(0)
	m.dedupMisses.Store(0)

	m.mu.Lock()
	m.ops = make(map[string]*OpMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OpMetricsSnapshot, len(m.ops))
	for name, om := range m.ops {
		s := &OpMetricsSnapshot{
			Count:         om.count.Load(),
			TotalDuration: om.totalDuration.Load(),
			ErrorCount:    om.errorCount.Load(),
		}
		if s.Count > 0 {
			s.AverageDuration = s.TotalDuration / s.Count
		}
		ops[name] = s
	}

	return &MetricsSnapshot{
		OpsTotal:     m.opsTotal.Load(),
		OpsFailed:    m.opsFailed.Load(),
		SearchHits:   m.searchHits.Load(),
		SearchMisses: m.searchMisses.Load(),
		DedupHits:    m.dedupHits.Load(),
		DedupMisses:  m.dedupMisses.Load(),
		Ops:          ops,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	OpsTotal     int64
	OpsFailed    int64
	SearchHits   int64
	SearchMisses int64
	DedupHits    int64
	DedupMisses  int64
	Ops          map[string]*OpMetricsSnapshot
}

// OpMetricsSnapshot represents metrics for one operation.
type OpMetricsSnapshot struct {
	Count           int64
	TotalDuration   int64
	ErrorCount      int64
	AverageDuration int64
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.OpsTotal == 0 {
		return 100.0
	}
	return float64(s.OpsTotal-s.OpsFailed) / float64(s.OpsTotal) * 100.0
}

// OpNames returns the recorded operation names, sorted.
func (s *MetricsSnapshot) OpNames() []string {
	names := make([]string, 0, len(s.Ops))
	for name := range s.Ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
