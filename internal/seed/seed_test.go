package seed

import (
	"testing"

	"promptlime/internal/models"
	"promptlime/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_PopulatesDemoData(t *testing.T) {
	db := testutil.NewTestDB(t)

	summary, err := Seed(db, Options{NumUsers: 6, NumPrompts: 12, MaxDays: 30, RandSeed: 42})
	require.NoError(t, err)

	cat, err := LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Users)
	assert.Equal(t, 6, summary.Notifications)
	assert.Equal(t, 12, summary.Prompts)
	assert.Equal(t, len(cat.Prompts), summary.Curated)

	var users, prompts, likes, reports int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Prompt{}).Count(&prompts).Error)
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Report{}).Count(&reports).Error)
	assert.EqualValues(t, 6, users)
	assert.EqualValues(t, 12+len(cat.Prompts), prompts)
	assert.EqualValues(t, summary.Likes, likes)
	assert.EqualValues(t, summary.Reports, reports)

	// Counter columns agree with the like ledger.
	var mismatched int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM prompts p
		WHERE p.likes < (SELECT COUNT(*) FROM likes l WHERE l.prompt_id = p.id)`).Scan(&mismatched).Error)
	assert.Zero(t, mismatched)
}

func TestSeed_CleanReplacesDemoData(t *testing.T) {
	db := testutil.NewTestDB(t)

	_, err := Seed(db, Options{NumUsers: 3, NumPrompts: 4, RandSeed: 1})
	require.NoError(t, err)
	summary, err := Seed(db, Options{NumUsers: 2, NumPrompts: 2, ShouldClean: true, RandSeed: 2})
	require.NoError(t, err)

	cat, err := LoadCatalog()
	require.NoError(t, err)
	var users, prompts, categories int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Prompt{}).Count(&prompts).Error)
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	assert.EqualValues(t, 2, users)
	assert.EqualValues(t, 2+len(cat.Prompts), prompts)
	assert.EqualValues(t, len(cat.Categories), categories)
	assert.Equal(t, len(cat.Prompts), summary.Curated)
}

func TestSeed_DryRunWritesNothing(t *testing.T) {
	db := testutil.NewTestDB(t)

	summary, err := Seed(db, Options{NumUsers: 4, NumPrompts: 5, DryRun: true, RandSeed: 7})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Users)
	assert.Equal(t, 5, summary.Prompts)
	assert.Zero(t, summary.Curated)

	var rows int64
	require.NoError(t, db.Model(&models.User{}).Count(&rows).Error)
	assert.Zero(t, rows)
	require.NoError(t, db.Model(&models.Prompt{}).Count(&rows).Error)
	assert.Zero(t, rows)
}
