package engine

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/followledger/followledger/internal/models"
	"github.com/followledger/followledger/internal/utils"
)

// DiffEngine derives the relationship analytics from a pair of relation
// collections. It keeps no state between calls; every method is a pure
// function of its arguments.
type DiffEngine struct {
	logger *slog.Logger
}

// NewDiffEngine constructs a DiffEngine.
func NewDiffEngine(logger *slog.Logger) *DiffEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiffEngine{logger: logger}
}

// NotReciprocated returns every relation in following whose identity does not
// appear in followers. Timestamps play no part in the match. The result is in
// following's order; sort it with Collection.SortedByIdentity before display.
func (e *DiffEngine) NotReciprocated(following, followers models.Collection) []models.Relation {
	followedBack := followers.Identities()

	var out []models.Relation
	for _, r := range following.Relations() {
		if _, ok := followedBack[models.ByIdentity.Key(r)]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// DailyFollowers counts new followers per calendar day, oldest day first.
func (e *DiffEngine) DailyFollowers(followers models.Collection) ([]models.DateCount, error) {
	return followers.GroupByObservedDate()
}

// MonthlySeries walks the months from startMonth to endMonthInclusive and
// reports, for each month start, how many followers had been observed by then
// and the change against the previous month. Both bounds are normalised to the
// first day of their month.
//
// The first delta is taken against the count one month before startMonth. An
// end before the start yields ErrEmptyRange and no series.
func (e *DiffEngine) MonthlySeries(followers models.Collection, startMonth, endMonthInclusive civil.Date) ([]models.MonthCount, error) {
	start := utils.StartOfMonth(startMonth)
	end := utils.StartOfMonth(endMonthInclusive)
	if end.Before(start) {
		return nil, utils.NewAppError("engine.monthly_series", fmt.Sprintf("end %s precedes start %s", end, start), models.ErrEmptyRange)
	}

	previous, err := followers.CountObservedOnOrBefore(utils.AddMonths(start, -1))
	if err != nil {
		return nil, err
	}

	var series []models.MonthCount
	for m := start; !m.After(end); m = utils.AddMonths(m, 1) {
		cumulative, err := followers.CountObservedOnOrBefore(m)
		if err != nil {
			return nil, err
		}
		series = append(series, models.MonthCount{
			Month:      m,
			Cumulative: cumulative,
			Delta:      cumulative - previous,
		})
		previous = cumulative
	}
	return series, nil
}

// Analyze runs every analysis over one snapshot. ledger is the accumulated list
// of accounts ever followed; it is only sorted for display. The returned
// relation lists are sorted by identity.
func (e *DiffEngine) Analyze(ctx context.Context, snapshot models.Snapshot, ledger models.Collection, window models.Window) (models.Report, error) {
	_, span := tracer.Start(ctx, "DiffEngine.Analyze", trace.WithAttributes(
		attribute.Int("followers", snapshot.Followers.Len()),
		attribute.Int("following", snapshot.Following.Len()),
	))
	defer span.End()

	notBack := models.NewCollection(e.NotReciprocated(snapshot.Following, snapshot.Followers))

	daily, err := e.DailyFollowers(snapshot.Followers)
	if err != nil {
		span.RecordError(err)
		return models.Report{}, fmt.Errorf("daily followers: %w", err)
	}

	monthly, err := e.MonthlySeries(snapshot.Followers, window.Start, window.End)
	if err != nil {
		span.RecordError(err)
		return models.Report{}, fmt.Errorf("monthly series: %w", err)
	}

	e.logger.Debug("analysis complete",
		slog.Int("not_reciprocated", notBack.Len()),
		slog.Int("days", len(daily)),
		slog.Int("months", len(monthly)),
	)

	return models.Report{
		GeneratedAt:     snapshot.TakenAt,
		Window:          window,
		NotReciprocated: notBack.SortedByIdentity(),
		Ledger:          ledger.SortedByIdentity(),
		DailyFollowers:  daily,
		Monthly:         monthly,
		FollowerCount:   snapshot.Followers.Len(),
		FollowingCount:  snapshot.Following.Len(),
	}, nil
}
