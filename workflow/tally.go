package workflow

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Stage names label batch failures and written-record counts.
const (
	StageUsers     = "users"
	StageCatalog   = "catalog"
	StageEvents    = "events"
	StageInventory = "inventory"
	StageOrders    = "orders"
	StageGraph     = "graph"
	StageSessions  = "sessions"
)

// Tally counts the non-fatal anomalies of a run so they can be summarized at
// the end instead of being dropped. It is safe for concurrent use.
type Tally struct {
	registry *prometheus.Registry

	constraintViolations prometheus.Counter
	referentialGaps      prometheus.Counter
	ordersLost           prometheus.Counter
	batchFailures        *prometheus.CounterVec
	recordsWritten       *prometheus.CounterVec

	nConstraint atomic.Int64
	nGaps       atomic.Int64
	nLost       atomic.Int64

	mu       sync.Mutex
	failures map[string]int64
	written  map[string]int64
}

func NewTally() *Tally {
	t := &Tally{
		registry: prometheus.NewRegistry(),
		constraintViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_constraint_violations_total",
			Help: "Rows skipped because their sku (or email) already existed",
		}),
		referentialGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_referential_gaps_total",
			Help: "CONTAINS edges skipped because the Product node was missing",
		}),
		ordersLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_orders_lost_total",
			Help: "Orders rolled back with a failed commit window",
		}),
		batchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_batch_write_failures_total",
			Help: "Chunked writes that failed and were skipped",
		}, []string{"stage"}),
		recordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_records_written_total",
			Help: "Records written per stage",
		}, []string{"stage"}),
		failures: map[string]int64{},
		written:  map[string]int64{},
	}
	t.registry.MustRegister(t.constraintViolations, t.referentialGaps, t.ordersLost, t.batchFailures, t.recordsWritten)
	return t
}

func (t *Tally) Registry() *prometheus.Registry {
	return t.registry
}

func (t *Tally) AddConstraintViolations(n int) {
	if n <= 0 {
		return
	}
	t.nConstraint.Add(int64(n))
	t.constraintViolations.Add(float64(n))
}

func (t *Tally) AddReferentialGaps(n int) {
	if n <= 0 {
		return
	}
	t.nGaps.Add(int64(n))
	t.referentialGaps.Add(float64(n))
}

func (t *Tally) AddOrdersLost(n int) {
	if n <= 0 {
		return
	}
	t.nLost.Add(int64(n))
	t.ordersLost.Add(float64(n))
}

func (t *Tally) AddBatchFailure(stage string) {
	t.mu.Lock()
	t.failures[stage]++
	t.mu.Unlock()
	t.batchFailures.WithLabelValues(stage).Inc()
}

func (t *Tally) AddWritten(stage string, n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.written[stage] += int64(n)
	t.mu.Unlock()
	t.recordsWritten.WithLabelValues(stage).Add(float64(n))
}

type TallySnapshot struct {
	ConstraintViolations int64
	ReferentialGaps      int64
	OrdersLost           int64
	BatchFailures        map[string]int64
	Written              map[string]int64
}

func (s TallySnapshot) TotalBatchFailures() int64 {
	var n int64
	for _, v := range s.BatchFailures {
		n += v
	}
	return n
}

func (t *Tally) Snapshot() TallySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := TallySnapshot{
		ConstraintViolations: t.nConstraint.Load(),
		ReferentialGaps:      t.nGaps.Load(),
		OrdersLost:           t.nLost.Load(),
		BatchFailures:        make(map[string]int64, len(t.failures)),
		Written:              make(map[string]int64, len(t.written)),
	}
	for k, v := range t.failures {
		s.BatchFailures[k] = v
	}
	for k, v := range t.written {
		s.Written[k] = v
	}
	return s
}

// Summary returns one line per counter, stages in name order.
func (t *Tally) Summary() []string {
	s := t.Snapshot()
	lines := []string{
		fmt.Sprintf("constraint violations (skipped rows): %d", s.ConstraintViolations),
		fmt.Sprintf("referential gaps (skipped CONTAINS edges): %d", s.ReferentialGaps),
		fmt.Sprintf("orders lost to rolled back batches: %d", s.OrdersLost),
	}
	for _, stage := range sortedKeys(s.BatchFailures) {
		lines = append(lines, fmt.Sprintf("batch write failures [%s]: %d", stage, s.BatchFailures[stage]))
	}
	for _, stage := range sortedKeys(s.Written) {
		lines = append(lines, fmt.Sprintf("records written [%s]: %d", stage, s.Written[stage]))
	}
	return lines
}

func (t *Tally) LogSummary(logger logrus.FieldLogger) {
	for _, line := range t.Summary() {
		logger.Info(line)
	}
}

// WriteTextfile writes the counters in Prometheus text format for a textfile collector.
func (t *Tally) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, t.registry)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
