package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels runs that produced a report.
	OutcomeSuccess = "success"
	// OutcomeError labels runs that failed while loading, recording or analysing.
	OutcomeError = "error"
)

// Relation list labels for RelationsGauge.
const (
	ListFollowers       = "followers"
	ListFollowing       = "following"
	ListNotReciprocated = "not_reciprocated"
	ListLedger          = "ledger"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "followledger",
			Name:      "runs_total",
			Help:      "Total number of analysis runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "followledger",
			Name:      "run_seconds",
			Help:      "Analysis run latency in seconds.",
			Buckets:   prometheus.ExponentialBucketsRange(0.001, 30, 12),
		},
	)

	relations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "followledger",
			Name:      "relations",
			Help:      "Number of relations in each list of the latest report.",
		},
		[]string{"list"},
	)

	ledgerInsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "followledger",
			Name:      "ledger_inserts_total",
			Help:      "Relations newly written to the ledger, partitioned by table.",
		},
		[]string{"table"},
	)

	skippedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "followledger",
			Name:      "skipped_records_total",
			Help:      "Export records dropped because they could not form a relation.",
		},
	)
)

// Register attaches followledger collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		relations,
		ledgerInsertsTotal,
		skippedRecordsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// SetRelations publishes the size of one relation list.
func SetRelations(list string, n int) {
	relations.WithLabelValues(list).Set(float64(n))
}

// ObserveLedgerInserts counts relations newly stored in a ledger table.
func ObserveLedgerInserts(table string, n int) {
	if n <= 0 {
		return
	}
	ledgerInsertsTotal.WithLabelValues(table).Add(float64(n))
}

// ObserveSkippedRecord counts one dropped export record.
func ObserveSkippedRecord() {
	skippedRecordsTotal.Inc()
}
