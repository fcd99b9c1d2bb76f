package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/followledger/followledger/internal/metrics"
	"github.com/followledger/followledger/internal/models"
	"github.com/followledger/followledger/internal/repo"
	"github.com/followledger/followledger/internal/utils"
)

type loaderStub struct {
	snapshot models.Snapshot
	err      error
	calls    int
}

func (l *loaderStub) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	l.calls++
	return l.snapshot, l.err
}

// memoryLedger keeps the first observation of each identity, like the SQLite ledger.
type memoryLedger struct {
	rows map[repo.Table][]models.Relation
	err  error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: make(map[repo.Table][]models.Relation)}
}

func (m *memoryLedger) Record(ctx context.Context, table repo.Table, relations []models.Relation) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	inserted := 0
	for _, r := range relations {
		if models.NewCollection(m.rows[table]).Contains(r) {
			continue
		}
		m.rows[table] = append(m.rows[table], r)
		inserted++
	}
	return inserted, nil
}

func (m *memoryLedger) List(ctx context.Context, table repo.Table) ([]models.Relation, error) {
	return append([]models.Relation(nil), m.rows[table]...), nil
}

type rendererStub struct {
	reports []models.Report
	err     error
}

func (r *rendererStub) WriteReport(report models.Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

var (
	takenAt = time.Date(2024, time.October, 20, 8, 30, 0, 0, time.UTC)
	aug1    = time.Date(2024, time.August, 1, 12, 0, 0, 0, time.UTC).Unix()
	sep15   = time.Date(2024, time.September, 15, 12, 0, 0, 0, time.UTC).Unix()
)

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		Following: models.NewCollection([]models.Relation{
			models.MustRelation("zoe", aug1),
			models.MustRelation("amy", aug1),
			models.MustRelation("bob", sep15),
		}),
		Followers: models.NewCollection([]models.Relation{
			models.MustRelation("bob", aug1),
			models.MustRelation("cy", sep15),
		}),
		TakenAt: takenAt,
	}
}

func newTestService(loader SnapshotLoader, ledger LedgerStore, renderer ReportRenderer) *ReportService {
	return NewReportService(nil, loader, ledger, renderer, nil, ReportServiceConfig{
		Subject:    "carma",
		StartMonth: civil.Date{Year: 2024, Month: time.August, Day: 1},
		Clock:      utils.FixedClock(time.Date(2024, time.October, 20, 9, 0, 0, 0, time.UTC)),
	})
}

func TestRunProducesReport(t *testing.T) {
	renderer := &rendererStub{}
	service := newTestService(&loaderStub{snapshot: testSnapshot()}, newMemoryLedger(), renderer)

	if _, ok := service.Latest(); ok {
		t.Fatalf("expected no report before the first run")
	}

	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RunID == "" || report.Subject != "carma" {
		t.Fatalf("expected run id and subject, got %q %q", report.RunID, report.Subject)
	}
	if got := len(report.NotReciprocated); got != 2 {
		t.Fatalf("expected 2 not reciprocated, got %d", got)
	}
	if report.NotReciprocated[0].Identity() != "amy" || report.NotReciprocated[1].Identity() != "zoe" {
		t.Fatalf("expected sorted not reciprocated list, got %v", report.NotReciprocated)
	}
	if got := len(report.Ledger); got != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", got)
	}
	// August through November 2024.
	if got := len(report.Monthly); got != 4 {
		t.Fatalf("expected 4 months, got %d", got)
	}
	if !report.GeneratedAt.Equal(takenAt) {
		t.Fatalf("expected report stamped with snapshot time, got %v", report.GeneratedAt)
	}
	if len(renderer.reports) != 1 {
		t.Fatalf("expected report to be rendered once, got %d", len(renderer.reports))
	}
	if renderer.reports[0].RunID != report.RunID {
		t.Fatalf("expected rendered report to carry run id %s", report.RunID)
	}

	latest, ok := service.Latest()
	if !ok || latest.RunID != report.RunID {
		t.Fatalf("expected latest report to match run %s", report.RunID)
	}
}

func TestRunLedgerKeepsFormerFollowing(t *testing.T) {
	ledger := newMemoryLedger()
	loader := &loaderStub{snapshot: testSnapshot()}
	service := newTestService(loader, ledger, nil)

	if _, err := service.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loader.snapshot.Following = models.NewCollection([]models.Relation{models.MustRelation("dee", sep15)})
	report, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(report.Ledger); got != 4 {
		t.Fatalf("expected ledger to accumulate 4 accounts, got %d", got)
	}
	if report.FollowingCount != 1 {
		t.Fatalf("expected current following count 1, got %d", report.FollowingCount)
	}
}

func TestRunFailureKeepsPreviousReport(t *testing.T) {
	loader := &loaderStub{snapshot: testSnapshot()}
	service := newTestService(loader, newMemoryLedger(), nil)

	first, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loader.err = errors.New("export missing")
	if _, err := service.Run(context.Background()); err == nil {
		t.Fatalf("expected load failure")
	}

	latest, ok := service.Latest()
	if !ok || latest.RunID != first.RunID {
		t.Fatalf("expected previous report to be retained")
	}
}

func TestRunErrors(t *testing.T) {
	ledgerErr := errors.New("disk full")
	ledger := newMemoryLedger()
	ledger.err = ledgerErr
	service := newTestService(&loaderStub{snapshot: testSnapshot()}, ledger, nil)
	if _, err := service.Run(context.Background()); !errors.Is(err, ledgerErr) {
		t.Fatalf("expected ledger error, got %v", err)
	}

	renderErr := errors.New("read-only")
	service = newTestService(&loaderStub{snapshot: testSnapshot()}, newMemoryLedger(), &rendererStub{err: renderErr})
	if _, err := service.Run(context.Background()); !errors.Is(err, renderErr) {
		t.Fatalf("expected render error, got %v", err)
	}
	if _, ok := service.Latest(); ok {
		t.Fatalf("expected no report after a failed render")
	}

	if _, err := NewReportService(nil, nil, nil, nil, nil, ReportServiceConfig{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for unconfigured service")
	}
}

func TestRunInvalidWindow(t *testing.T) {
	service := NewReportService(nil, &loaderStub{snapshot: testSnapshot()}, newMemoryLedger(), nil, nil, ReportServiceConfig{
		StartMonth: civil.Date{Year: 2030, Month: time.January, Day: 1},
		Clock:      utils.FixedClock(time.Date(2024, time.October, 20, 0, 0, 0, 0, time.UTC)),
	})
	if _, err := service.Run(context.Background()); !errors.Is(err, models.ErrEmptyRange) {
		t.Fatalf("expected ErrEmptyRange, got %v", err)
	}
}

func runsByOutcome(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "followledger_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRunRenderFailureCountsAsError(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("register metrics: %v", err)
	}

	service := newTestService(&loaderStub{snapshot: testSnapshot()}, newMemoryLedger(), &rendererStub{err: errors.New("read-only")})

	successBefore := runsByOutcome(t, reg, metrics.OutcomeSuccess)
	errorBefore := runsByOutcome(t, reg, metrics.OutcomeError)
	if _, err := service.Run(context.Background()); err == nil {
		t.Fatalf("expected render failure")
	}

	if got := runsByOutcome(t, reg, metrics.OutcomeSuccess) - successBefore; got != 0 {
		t.Fatalf("expected no successful runs recorded, got %v", got)
	}
	if got := runsByOutcome(t, reg, metrics.OutcomeError) - errorBefore; got != 1 {
		t.Fatalf("expected one failed run recorded, got %v", got)
	}
}
