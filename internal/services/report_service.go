package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/followledger/followledger/internal/engine"
	"github.com/followledger/followledger/internal/metrics"
	"github.com/followledger/followledger/internal/models"
	"github.com/followledger/followledger/internal/repo"
	"github.com/followledger/followledger/internal/utils"
)

var tracer = otel.Tracer("github.com/followledger/followledger/internal/services")

// SnapshotLoader produces the current relationship snapshot.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (models.Snapshot, error)
}

// LedgerStore accumulates relations across runs.
type LedgerStore interface {
	Record(ctx context.Context, table repo.Table, relations []models.Relation) (int, error)
	List(ctx context.Context, table repo.Table) ([]models.Relation, error)
}

// ReportRenderer persists a finished report.
type ReportRenderer interface {
	WriteReport(report models.Report) error
}

// ReportServiceConfig carries the per-deployment settings of a ReportService.
type ReportServiceConfig struct {
	Subject    string
	StartMonth civil.Date
	Clock      utils.Clock
}

// ReportService runs the load, record, analyse and render steps and keeps the
// most recent successful report for readers.
type ReportService struct {
	logger   *slog.Logger
	loader   SnapshotLoader
	ledger   LedgerStore
	renderer ReportRenderer
	engine   *engine.DiffEngine

	subject    string
	startMonth civil.Date
	clock      utils.Clock

	runMu sync.Mutex

	mu     sync.RWMutex
	latest *models.Report
}

// NewReportService constructs the report service facade. renderer may be nil
// when reports are only served over the API.
func NewReportService(logger *slog.Logger, loader SnapshotLoader, ledger LedgerStore, renderer ReportRenderer, diff *engine.DiffEngine, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if diff == nil {
		diff = engine.NewDiffEngine(logger)
	}
	if cfg.Clock == nil {
		cfg.Clock = utils.SystemClock{}
	}
	if cfg.StartMonth.IsZero() {
		cfg.StartMonth = engine.DefaultStartMonth
	}
	return &ReportService{
		logger:     logger,
		loader:     loader,
		ledger:     ledger,
		renderer:   renderer,
		engine:     diff,
		subject:    cfg.Subject,
		startMonth: cfg.StartMonth,
		clock:      cfg.Clock,
	}
}

// Run produces a fresh report. Runs are serialised; the previous report stays
// available to Latest until the new one succeeds.
func (s *ReportService) Run(ctx context.Context) (models.Report, error) {
	if s.loader == nil || s.ledger == nil {
		return models.Report{}, errors.New("report service not configured")
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))

	ctx, span := tracer.Start(ctx, "ReportService.Run")
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("subject", s.subject))
	defer span.End()

	start := time.Now()
	report, err := s.run(ctx, logger, runID)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveRun(duration, metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("report run failed", slog.Any("error", err))
		return models.Report{}, err
	}
	metrics.ObserveRun(duration, metrics.OutcomeSuccess)

	metrics.SetRelations(metrics.ListFollowers, report.FollowerCount)
	metrics.SetRelations(metrics.ListFollowing, report.FollowingCount)
	metrics.SetRelations(metrics.ListNotReciprocated, len(report.NotReciprocated))
	metrics.SetRelations(metrics.ListLedger, len(report.Ledger))

	s.mu.Lock()
	s.latest = &report
	s.mu.Unlock()

	logger.Info("report run complete",
		slog.Duration("duration", duration),
		slog.Int("followers", report.FollowerCount),
		slog.Int("following", report.FollowingCount),
		slog.Int("not_reciprocated", len(report.NotReciprocated)),
	)
	return report, nil
}

func (s *ReportService) run(ctx context.Context, logger *slog.Logger, runID string) (models.Report, error) {
	snapshot, err := s.loader.LoadSnapshot(ctx)
	if err != nil {
		return models.Report{}, fmt.Errorf("load snapshot: %w", err)
	}

	for _, rec := range []struct {
		table     repo.Table
		relations models.Collection
	}{
		{repo.TableFollowers, snapshot.Followers},
		{repo.TableFollowing, snapshot.Following},
	} {
		inserted, err := s.ledger.Record(ctx, rec.table, rec.relations.Relations())
		if err != nil {
			return models.Report{}, fmt.Errorf("record %s: %w", rec.table, err)
		}
		metrics.ObserveLedgerInserts(string(rec.table), inserted)
		logger.Debug("ledger updated", slog.String("table", string(rec.table)), slog.Int("inserted", inserted))
	}

	everFollowed, err := s.ledger.List(ctx, repo.TableFollowing)
	if err != nil {
		return models.Report{}, fmt.Errorf("list %s: %w", repo.TableFollowing, err)
	}

	window := engine.DefaultWindow(s.clock, s.startMonth)
	report, err := s.engine.Analyze(ctx, snapshot, models.NewCollection(everFollowed), window)
	if err != nil {
		return models.Report{}, err
	}
	report.RunID = runID
	report.Subject = s.subject

	if s.renderer != nil {
		if err := s.renderer.WriteReport(report); err != nil {
			return models.Report{}, fmt.Errorf("render report: %w", err)
		}
	}
	return report, nil
}

// Latest returns the most recent successful report, if any.
func (s *ReportService) Latest() (models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return models.Report{}, false
	}
	return *s.latest, true
}
