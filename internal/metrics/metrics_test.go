package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register should tolerate existing collectors: %v", err)
	}
}

func TestObservations(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeSuccess))
	ObserveRun(-time.Second, "anything")
	if got := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeSuccess)); got != before+1 {
		t.Fatalf("expected unknown outcomes to count as success, got %v", got-before)
	}

	SetRelations(ListNotReciprocated, 7)
	if got := testutil.ToFloat64(relations.WithLabelValues(ListNotReciprocated)); got != 7 {
		t.Fatalf("expected gauge 7, got %v", got)
	}

	inserts := testutil.ToFloat64(ledgerInsertsTotal.WithLabelValues("followers"))
	ObserveLedgerInserts("followers", 0)
	ObserveLedgerInserts("followers", 3)
	if got := testutil.ToFloat64(ledgerInsertsTotal.WithLabelValues("followers")); got != inserts+3 {
		t.Fatalf("expected 3 inserts, got %v", got-inserts)
	}
}
