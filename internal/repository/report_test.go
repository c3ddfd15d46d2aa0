package repository

import (
	"context"
	"testing"
	"time"

	"promptlime/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	reports := NewReportRepository(db)
	prompts := NewPromptRepository(db)
	ctx := context.Background()

	reporter := seedUser(t, db, "reporter@example.com")
	admin := seedUser(t, db, "admin@example.com")
	kept := seedPrompt(t, db, "Kept")
	doomed := seedPrompt(t, db, "Doomed")

	rid := reporter.ID
	first := &models.Report{PromptID: kept.ID, ReporterID: &rid, Reason: "spam"}
	second := &models.Report{PromptID: doomed.ID, ReporterID: &rid, Reason: "offensive"}
	require.NoError(t, reports.Create(ctx, first))
	require.NoError(t, reports.Create(ctx, second))
	assert.Equal(t, models.ReportStatusPending, first.Status)

	existing, err := reports.FindPending(ctx, reporter.ID, kept.ID)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, first.ID, existing.ID)

	require.NoError(t, prompts.Delete(ctx, doomed.ID))

	pending, total, err := reports.ListByStatus(ctx, models.ReportStatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, pending, 2)
	assert.False(t, pending[0].PromptDeleted)
	assert.Equal(t, "Kept", pending[0].Prompt.Title)
	assert.Equal(t, "reporter@example.com", pending[0].Reporter.Email)
	assert.True(t, pending[1].PromptDeleted)
	assert.Nil(t, pending[1].Prompt)

	ok, err := reports.Transition(ctx, first.ID, models.ReportStatusDismissed, admin.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reports.Transition(ctx, first.ID, models.ReportStatusResolved, admin.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "terminal reports cannot transition again")

	loaded, err := reports.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDismissed, loaded.Status)
	require.NotNil(t, loaded.ResolvedByID)
	assert.Equal(t, admin.ID, *loaded.ResolvedByID)

	gone, err := reports.FindPending(ctx, reporter.ID, kept.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	counts, err := reports.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.ReportStatusPending])
	assert.Equal(t, int64(1), counts[models.ReportStatusDismissed])
	assert.Equal(t, int64(0), counts[models.ReportStatusResolved])

	_, err = reports.GetByID(ctx, 404)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
