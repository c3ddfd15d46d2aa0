package service

import (
	"context"

	"promptlime/internal/models"
	"promptlime/internal/repository"
)

// DashboardStats summarizes the marketplace for the admin panel.
type DashboardStats struct {
	Users          int64                         `json:"users"`
	ProUsers       int64                         `json:"pro_users"`
	Prompts        repository.PromptTotals       `json:"prompts"`
	Reports        map[models.ReportStatus]int64 `json:"reports"`
	PendingReports int64                         `json:"pending_reports"`
}

// StatsService aggregates dashboard figures.
type StatsService struct {
	users   repository.UserRepository
	prompts repository.PromptRepository
	reports repository.ReportRepository
}

func NewStatsService(users repository.UserRepository, prompts repository.PromptRepository, reports repository.ReportRepository) *StatsService {
	return &StatsService{users: users, prompts: prompts, reports: reports}
}

func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	total, pro, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.prompts.Totals(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.reports.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = map[models.ReportStatus]int64{}
	}
	return &DashboardStats{
		Users:          total,
		ProUsers:       pro,
		Prompts:        totals,
		Reports:        counts,
		PendingReports: counts[models.ReportStatusPending],
	}, nil
}
