package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/observability"
	"promptlime/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// SubmitReportInput is a user's complaint about a prompt.
type SubmitReportInput struct {
	ReporterID uint
	PromptID   uint
	Reason     string
	Details    string
}

// ReportPage is one page of the moderation queue.
type ReportPage struct {
	Reports []*models.Report `json:"reports"`
	Total   int64            `json:"total"`
}

// ModerationService runs the report queue: pending reports are either
// resolved (the prompt is deleted) or dismissed.
type ModerationService struct {
	reports repository.ReportRepository
	prompts repository.PromptRepository
	now     func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(reports repository.ReportRepository, prompts repository.PromptRepository) *ModerationService {
	return &ModerationService{reports: reports, prompts: prompts, now: time.Now}
}

// SubmitReport files a pending report. A reporter who already has a pending
// report on the same prompt gets that report back.
func (s *ModerationService) SubmitReport(ctx context.Context, in SubmitReportInput) (*models.Report, error) {
	if in.ReporterID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to report prompts")
	}
	in.Reason = strings.TrimSpace(in.Reason)
	in.Details = strings.TrimSpace(in.Details)
	if in.Reason == "" {
		return nil, models.NewValidationError("Reason is required")
	}
	if len(in.Reason) > 500 {
		return nil, models.NewValidationError("Reason must be at most 500 characters")
	}
	if len(in.Details) > 2000 {
		return nil, models.NewValidationError("Details must be at most 2000 characters")
	}

	if _, err := s.prompts.GetByID(ctx, in.PromptID); err != nil {
		return nil, err
	}

	existing, err := s.reports.FindPending(ctx, in.ReporterID, in.PromptID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	reporterID := in.ReporterID
	report := &models.Report{
		PromptID:   in.PromptID,
		ReporterID: &reporterID,
		Reason:     in.Reason,
		Details:    in.Details,
		Status:     models.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	observability.ReportTransitions.WithLabelValues("submitted").Inc()
	return report, nil
}

// ListPending returns pending reports oldest first.
func (s *ModerationService) ListPending(ctx context.Context, limit, offset int) (*ReportPage, error) {
	return s.ListReports(ctx, models.ReportStatusPending, limit, offset)
}

// ListReports returns reports with the given status.
func (s *ModerationService) ListReports(ctx context.Context, status models.ReportStatus, limit, offset int) (*ReportPage, error) {
	if status == "" {
		status = models.ReportStatusPending
	}
	if !status.Valid() {
		return nil, models.NewValidationError("Unknown report status")
	}
	reports, total, err := s.reports.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	return &ReportPage{Reports: reports, Total: total}, nil
}

// Dismiss closes a pending report without touching the prompt.
func (s *ModerationService) Dismiss(ctx context.Context, reportID, adminID uint) error {
	ok, err := s.reports.Transition(ctx, reportID, models.ReportStatusDismissed, adminID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Pending report", reportID)
	}
	observability.ReportTransitions.WithLabelValues("dismissed").Inc()
	return nil
}

// Resolve deletes the reported prompt and then marks the report resolved. A
// failed deletion leaves the report pending.
func (s *ModerationService) Resolve(ctx context.Context, reportID, adminID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "moderation.resolve",
		attribute.Int64("report.id", int64(reportID)))
	defer func() { observability.EndSpan(span, err) }()

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if report.Status != models.ReportStatusPending {
		return models.NewNotFoundError("Pending report", reportID)
	}

	if err := s.prompts.Delete(ctx, report.PromptID); err != nil {
		if !models.IsCode(err, models.CodeNotFound) {
			return err
		}
		middleware.Logger.InfoContext(ctx, "reported prompt already deleted",
			slog.Uint64("report_id", uint64(reportID)),
			slog.Uint64("prompt_id", uint64(report.PromptID)))
	}

	ok, err := s.reports.Transition(ctx, reportID, models.ReportStatusResolved, adminID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Pending report", reportID)
	}
	observability.ReportTransitions.WithLabelValues("resolved").Inc()
	return nil
}
