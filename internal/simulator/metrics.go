package simulator

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome classifies a single tick of a family. Acted ticks mutated
// the store, gated ticks lost the probability roll and idle ticks found
// nothing eligible.
type Outcome string

const (
	OutcomeActed Outcome = "acted"
	OutcomeGated Outcome = "gated"
	OutcomeIdle  Outcome = "idle"
	OutcomeError Outcome = "error"
)

// maxLatencySamples bounds the latency window kept per family. Older
// samples are overwritten once it is full.
const maxLatencySamples = 1024

type familyStats struct {
	Total  int64
	Acted  int64
	Gated  int64
	Idle   int64
	Errors int64

	mu        sync.Mutex
	latencies []time.Duration
	next      int
}

func (fs *familyStats) record(outcome Outcome, latency time.Duration) {
	atomic.AddInt64(&fs.Total, 1)
	switch outcome {
	case OutcomeActed:
		atomic.AddInt64(&fs.Acted, 1)
	case OutcomeGated:
		atomic.AddInt64(&fs.Gated, 1)
		return
	case OutcomeIdle:
		atomic.AddInt64(&fs.Idle, 1)
	case OutcomeError:
		atomic.AddInt64(&fs.Errors, 1)
	}

	fs.mu.Lock()
	if len(fs.latencies) < maxLatencySamples {
		fs.latencies = append(fs.latencies, latency)
	} else {
		fs.latencies[fs.next] = latency
		fs.next = (fs.next + 1) % maxLatencySamples
	}
	fs.mu.Unlock()
}

func (fs *familyStats) stats() (avg, p50, p95, max time.Duration) {
	fs.mu.Lock()
	latencies := make([]time.Duration, len(fs.latencies))
	copy(latencies, fs.latencies)
	fs.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[len(latencies)*95/100]
	max = latencies[len(latencies)-1]
	return avg, p50, p95, max
}

// Metrics counts tick outcomes per family, both in process for Report
// and as Prometheus series.
type Metrics struct {
	ticks    *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu       sync.Mutex
	families map[string]*familyStats
}

// NewMetrics registers the simulator series on reg. A nil reg keeps
// the series unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ticks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "careportal_simulator_ticks_total",
				Help: "Simulator ticks by family and outcome",
			},
			[]string{"family", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "careportal_simulator_action_duration_seconds",
				Help:    "Time spent running a simulator action",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"family"},
		),
		families: make(map[string]*familyStats),
	}
}

func (m *Metrics) family(name string) *familyStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	fs, ok := m.families[name]
	if !ok {
		fs = &familyStats{}
		m.families[name] = fs
	}
	return fs
}

func (m *Metrics) Record(family string, outcome Outcome, latency time.Duration) {
	m.family(family).record(outcome, latency)
	m.ticks.WithLabelValues(family, string(outcome)).Inc()
	if outcome != OutcomeGated {
		m.duration.WithLabelValues(family).Observe(latency.Seconds())
	}
}

// FamilyReport is a point-in-time summary of one family.
type FamilyReport struct {
	Family string
	Total  int64
	Acted  int64
	Gated  int64
	Idle   int64
	Errors int64
	Avg    time.Duration
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
}

// Report summarises every family that has ticked at least once, sorted
// by family name.
func (m *Metrics) Report() []FamilyReport {
	m.mu.Lock()
	names := make([]string, 0, len(m.families))
	for name := range m.families {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)

	out := make([]FamilyReport, 0, len(names))
	for _, name := range names {
		fs := m.family(name)
		avg, p50, p95, max := fs.stats()
		out = append(out, FamilyReport{
			Family: name,
			Total:  atomic.LoadInt64(&fs.Total),
			Acted:  atomic.LoadInt64(&fs.Acted),
			Gated:  atomic.LoadInt64(&fs.Gated),
			Idle:   atomic.LoadInt64(&fs.Idle),
			Errors: atomic.LoadInt64(&fs.Errors),
			Avg:    avg,
			P50:    p50,
			P95:    p95,
			Max:    max,
		})
	}
	return out
}

// PrintReport writes a human readable report to w.
func PrintReport(w io.Writer, elapsed time.Duration, reports []FamilyReport) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "SIMULATION REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Duration: %s\n\n", elapsed)

	for _, r := range reports {
		if r.Total == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", r.Family)
		fmt.Fprintf(w, "  Ticks: %d\n", r.Total)
		fmt.Fprintf(w, "  Acted: %d (%.1f%%)\n", r.Acted, pct(r.Acted, r.Total))
		fmt.Fprintf(w, "  Gated: %d (%.1f%%)\n", r.Gated, pct(r.Gated, r.Total))
		if r.Idle > 0 {
			fmt.Fprintf(w, "  Idle: %d (%.1f%%)\n", r.Idle, pct(r.Idle, r.Total))
		}
		if r.Errors > 0 {
			fmt.Fprintf(w, "  Errors: %d (%.1f%%)\n", r.Errors, pct(r.Errors, r.Total))
		}
		fmt.Fprintf(w, "  Latency: avg=%s p50=%s p95=%s max=%s\n",
			r.Avg.Round(time.Microsecond), r.P50.Round(time.Microsecond),
			r.P95.Round(time.Microsecond), r.Max.Round(time.Microsecond))
		fmt.Fprintln(w)
	}
}

func pct(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}
