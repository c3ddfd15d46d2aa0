package repository

import (
	"context"
	"time"

	"promptlime/internal/models"

	"gorm.io/gorm"
)

// ReportRepository stores moderation reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	FindPending(ctx context.Context, reporterID, promptID uint) (*models.Report, error)
	ListByStatus(ctx context.Context, status models.ReportStatus, limit, offset int) ([]*models.Report, int64, error)
	Transition(ctx context.Context, id uint, to models.ReportStatus, adminID uint, at time.Time) (bool, error)
	CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a ReportRepository backed by db.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Report", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &report, nil
}

// FindPending returns the reporter's open report on the prompt, or nil.
func (r *reportRepository) FindPending(ctx context.Context, reporterID, promptID uint) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Where("reporter_id = ? AND prompt_id = ? AND status = ?", reporterID, promptID, models.ReportStatusPending).
		Order("id ASC").
		First(&report).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &report, nil
}

// ListByStatus returns reports oldest first with prompt and reporter
// resolved. Reports whose prompt is gone are flagged PromptDeleted.
func (r *reportRepository) ListByStatus(ctx context.Context, status models.ReportStatus, limit, offset int) ([]*models.Report, int64, error) {
	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var reports []*models.Report
	if err := q.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := r.hydrate(ctx, reports); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *reportRepository) hydrate(ctx context.Context, reports []*models.Report) error {
	if len(reports) == 0 {
		return nil
	}

	promptIDs := make([]uint, 0, len(reports))
	reporterIDs := make([]uint, 0, len(reports))
	for _, rep := range reports {
		promptIDs = append(promptIDs, rep.PromptID)
		if rep.ReporterID != nil {
			reporterIDs = append(reporterIDs, *rep.ReporterID)
		}
	}

	var prompts []models.Prompt
	if err := r.db.WithContext(ctx).Where("id IN ?", promptIDs).Find(&prompts).Error; err != nil {
		return models.NewInternalError(err)
	}
	promptByID := make(map[uint]*models.Prompt, len(prompts))
	for i := range prompts {
		promptByID[prompts[i].ID] = &prompts[i]
	}

	reporterByID := map[uint]*models.User{}
	if len(reporterIDs) > 0 {
		var users []models.User
		if err := r.db.WithContext(ctx).
			Select("id", "email", "name").
			Where("id IN ?", reporterIDs).
			Find(&users).Error; err != nil {
			return models.NewInternalError(err)
		}
		for i := range users {
			reporterByID[users[i].ID] = &users[i]
		}
	}

	for _, rep := range reports {
		rep.Prompt = promptByID[rep.PromptID]
		rep.PromptDeleted = rep.Prompt == nil
		if rep.ReporterID != nil {
			rep.Reporter = reporterByID[*rep.ReporterID]
		}
	}
	return nil
}

// Transition moves a pending report to a terminal status. It reports false
// when the report is missing or no longer pending.
func (r *reportRepository) Transition(ctx context.Context, id uint, to models.ReportStatus, adminID uint, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":      to,
		"resolved_at": at,
		"updated_at":  at,
	}
	if adminID != 0 {
		updates["resolved_by_id"] = adminID
	}
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportStatusPending).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *reportRepository) CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	var rows []struct {
		Status models.ReportStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Report{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := map[models.ReportStatus]int64{
		models.ReportStatusPending:   0,
		models.ReportStatusResolved:  0,
		models.ReportStatusDismissed: 0,
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
