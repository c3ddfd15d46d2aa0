package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"promptlime/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func pendingReports() map[uint]*models.Report {
	return map[uint]*models.Report{
		1: {ID: 1, PromptID: 10, ReporterID: uintPtr(3), Reason: "spam", Status: models.ReportStatusPending},
	}
}

func TestModerationService_SubmitReport(t *testing.T) {
	reports := map[uint]*models.Report{}
	svc := NewModerationService(memoryReportRepo(reports), noopPromptRepo())

	r, err := svc.SubmitReport(context.Background(), SubmitReportInput{ReporterID: 3, PromptID: 10, Reason: "  offensive  "})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, r.Status)
	assert.Equal(t, "offensive", r.Reason)
	require.NotNil(t, r.ReporterID)
	assert.Equal(t, uint(3), *r.ReporterID)

	again, err := svc.SubmitReport(context.Background(), SubmitReportInput{ReporterID: 3, PromptID: 10, Reason: "still offensive"})
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID)
	assert.Len(t, reports, 1)

	other, err := svc.SubmitReport(context.Background(), SubmitReportInput{ReporterID: 4, PromptID: 10, Reason: "spam"})
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, other.ID)
}

func TestModerationService_SubmitReportValidation(t *testing.T) {
	prompts := noopPromptRepo()
	prompts.getByIDFn = func(_ context.Context, id uint) (*models.Prompt, error) {
		if id == 404 {
			return nil, models.NewNotFoundError("Prompt", id)
		}
		return &models.Prompt{ID: id}, nil
	}
	svc := NewModerationService(memoryReportRepo(map[uint]*models.Report{}), prompts)

	tests := []struct {
		name string
		in   SubmitReportInput
		code string
	}{
		{name: "anonymous", in: SubmitReportInput{PromptID: 1, Reason: "spam"}, code: models.CodeUnauthorized},
		{name: "blank reason", in: SubmitReportInput{ReporterID: 1, PromptID: 1, Reason: "   "}, code: models.CodeValidation},
		{name: "reason too long", in: SubmitReportInput{ReporterID: 1, PromptID: 1, Reason: strings.Repeat("x", 501)}, code: models.CodeValidation},
		{name: "missing prompt", in: SubmitReportInput{ReporterID: 1, PromptID: 404, Reason: "spam"}, code: models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitReport(context.Background(), tt.in)
			assertCode(t, err, tt.code)
		})
	}
}

func TestModerationService_DismissTwice(t *testing.T) {
	reports := pendingReports()
	prompts := noopPromptRepo()
	prompts.deleteFn = func(context.Context, uint) error {
		t.Fatal("dismiss must not delete the prompt")
		return nil
	}
	svc := NewModerationService(memoryReportRepo(reports), prompts)

	require.NoError(t, svc.Dismiss(context.Background(), 1, 99))
	assert.Equal(t, models.ReportStatusDismissed, reports[1].Status)
	require.NotNil(t, reports[1].ResolvedByID)
	assert.Equal(t, uint(99), *reports[1].ResolvedByID)

	err := svc.Dismiss(context.Background(), 1, 99)
	assertCode(t, err, models.CodeNotFound)
	assert.Equal(t, models.ReportStatusDismissed, reports[1].Status)
}

func TestModerationService_ResolveDeletesPrompt(t *testing.T) {
	reports := pendingReports()
	prompts := noopPromptRepo()
	var deleted []uint
	prompts.deleteFn = func(_ context.Context, id uint) error {
		deleted = append(deleted, id)
		return nil
	}
	svc := NewModerationService(memoryReportRepo(reports), prompts)

	require.NoError(t, svc.Resolve(context.Background(), 1, 99))
	assert.Equal(t, []uint{10}, deleted)
	assert.Equal(t, models.ReportStatusResolved, reports[1].Status)

	err := svc.Resolve(context.Background(), 1, 99)
	assertCode(t, err, models.CodeNotFound)
	assert.Len(t, deleted, 1)
}

func TestModerationService_ResolveDeleteFailureLeavesPending(t *testing.T) {
	reports := pendingReports()
	prompts := noopPromptRepo()
	prompts.deleteFn = func(context.Context, uint) error {
		return models.NewInternalError(errors.New("disk full"))
	}
	svc := NewModerationService(memoryReportRepo(reports), prompts)

	err := svc.Resolve(context.Background(), 1, 99)
	assertCode(t, err, models.CodeInternal)
	assert.Equal(t, models.ReportStatusPending, reports[1].Status)
}

func TestModerationService_ResolveAlreadyDeletedPrompt(t *testing.T) {
	reports := pendingReports()
	prompts := noopPromptRepo()
	prompts.deleteFn = func(_ context.Context, id uint) error {
		return models.NewNotFoundError("Prompt", id)
	}
	svc := NewModerationService(memoryReportRepo(reports), prompts)

	require.NoError(t, svc.Resolve(context.Background(), 1, 99))
	assert.Equal(t, models.ReportStatusResolved, reports[1].Status)
}

func TestModerationService_ResolveMissingReport(t *testing.T) {
	svc := NewModerationService(memoryReportRepo(map[uint]*models.Report{}), noopPromptRepo())
	assertCode(t, svc.Resolve(context.Background(), 5, 1), models.CodeNotFound)
	assertCode(t, svc.Dismiss(context.Background(), 5, 1), models.CodeNotFound)
}

func TestModerationService_ListReports(t *testing.T) {
	reports := pendingReports()
	reports[2] = &models.Report{ID: 2, PromptID: 11, Reason: "dup", Status: models.ReportStatusDismissed}
	svc := NewModerationService(memoryReportRepo(reports), noopPromptRepo())

	page, err := svc.ListPending(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, page.Reports, 1)
	assert.Equal(t, uint(1), page.Reports[0].ID)

	page, err = svc.ListReports(context.Background(), models.ReportStatusResolved, 20, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Reports)
	assert.Empty(t, page.Reports)

	_, err = svc.ListReports(context.Background(), "archived", 20, 0)
	assertValidationError(t, err)
}
