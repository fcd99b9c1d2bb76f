package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/followledger/followledger/internal/models"
)

// ReportSource supplies reports to the API.
type ReportSource interface {
	Latest() (models.Report, bool)
	Run(ctx context.Context) (models.Report, error)
}

// ReportHandler implements ReportServiceServer over a ReportSource.
type ReportHandler struct {
	logger *slog.Logger
	source ReportSource
}

// NewReportHandler constructs the gRPC facade.
func NewReportHandler(logger *slog.Logger, source ReportSource) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{logger: logger, source: source}
}

var _ ReportServiceServer = (*ReportHandler)(nil)

// GetNotReciprocated returns followed accounts that do not follow back.
func (h *ReportHandler) GetNotReciprocated(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(func(r models.Report) map[string]any {
		return map[string]any{"relations": relationList(r.NotReciprocated)}
	})
}

// GetLedger returns every account ever followed.
func (h *ReportHandler) GetLedger(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(func(r models.Report) map[string]any {
		return map[string]any{"relations": relationList(r.Ledger)}
	})
}

// GetDailyFollowers returns new followers per day.
func (h *ReportHandler) GetDailyFollowers(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(func(r models.Report) map[string]any {
		days := make([]any, 0, len(r.DailyFollowers))
		for _, d := range r.DailyFollowers {
			days = append(days, map[string]any{"date": d.Date.String(), "count": d.Count})
		}
		return map[string]any{"days": days}
	})
}

// GetMonthlySeries returns the cumulative follower count per month.
func (h *ReportHandler) GetMonthlySeries(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return h.respond(func(r models.Report) map[string]any {
		months := make([]any, 0, len(r.Monthly))
		for _, m := range r.Monthly {
			months = append(months, map[string]any{
				"month":      m.Month.String(),
				"cumulative": m.Cumulative,
				"delta":      m.Delta,
			})
		}
		return map[string]any{
			"window_start": r.Window.Start.String(),
			"window_end":   r.Window.End.String(),
			"months":       months,
		}
	})
}

// Refresh re-runs the analysis and returns a summary of the new report.
func (h *ReportHandler) Refresh(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if h.source == nil {
		return nil, status.Error(codes.FailedPrecondition, "report source not configured")
	}
	report, err := h.source.Run(ctx)
	if err != nil {
		h.logger.Error("refresh failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, fmt.Sprintf("refresh failed: %v", err))
	}
	return toStruct(report, map[string]any{
		"followers":        report.FollowerCount,
		"following":        report.FollowingCount,
		"not_reciprocated": len(report.NotReciprocated),
		"ledger":           len(report.Ledger),
	})
}

func (h *ReportHandler) respond(body func(models.Report) map[string]any) (*structpb.Struct, error) {
	if h.source == nil {
		return nil, status.Error(codes.FailedPrecondition, "report source not configured")
	}
	report, ok := h.source.Latest()
	if !ok {
		return nil, status.Error(codes.FailedPrecondition, "no report available yet")
	}
	return toStruct(report, body(report))
}

// toStruct adds the report header fields to fields and converts the result.
func toStruct(report models.Report, fields map[string]any) (*structpb.Struct, error) {
	fields["run_id"] = report.RunID
	fields["subject"] = report.Subject
	fields["generated_at"] = report.GeneratedAt.UTC().Format(time.RFC3339)
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func relationList(relations []models.Relation) []any {
	out := make([]any, 0, len(relations))
	for _, r := range relations {
		out = append(out, map[string]any{
			"identity":    r.Identity(),
			"observed_at": r.ObservedAt().Format(models.TimestampLayout),
			"timestamp":   r.Timestamp(),
		})
	}
	return out
}
