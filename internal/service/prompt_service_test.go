package service

import (
	"context"
	"testing"

	"promptlime/internal/featureflags"
	"promptlime/internal/models"
	"promptlime/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPromptService(repo *promptRepoStub, flags string) *PromptService {
	catalog := NewCatalogService(&catalogRepoStub{
		categories: map[string]bool{"portraits": true},
		tools:      map[string]bool{"midjourney": true},
	})
	return NewPromptService(repo, catalog, featureflags.NewManager(flags))
}

func validPromptInput() PromptInput {
	return PromptInput{
		Title:    "Golden hour portrait",
		Category: "portraits",
		Tool:     "midjourney",
		Tags:     []string{"Warm", "portrait", "warm "},
		Body:     "A portrait at golden hour, 85mm",
	}
}

func TestPromptService_ListAnnotatesLiked(t *testing.T) {
	repo := noopPromptRepo()
	repo.listFn = func(_ context.Context, f repository.PromptFilter) ([]*models.Prompt, int64, error) {
		assert.Equal(t, "portrait", f.Tag)
		assert.Equal(t, models.PromptSortPopular, f.Sort)
		return []*models.Prompt{{ID: 1}, {ID: 2}, {ID: 3}}, 3, nil
	}
	repo.likedPromptIDsFn = func(_ context.Context, userID uint, ids []uint) ([]uint, error) {
		assert.Equal(t, uint(8), userID)
		assert.Equal(t, []uint{1, 2, 3}, ids)
		return []uint{2}, nil
	}
	svc := newPromptService(repo, "")

	page, err := svc.ListPrompts(context.Background(), ListPromptsInput{Tag: " Portrait ", Sort: "popular", CurrentUserID: 8})
	require.NoError(t, err)
	require.Len(t, page.Prompts, 3)
	assert.False(t, page.Prompts[0].Liked)
	assert.True(t, page.Prompts[1].Liked)
	assert.False(t, page.Prompts[2].Liked)
}

func TestPromptService_ListAnonymousSkipsLikeLookup(t *testing.T) {
	repo := noopPromptRepo()
	repo.listFn = func(context.Context, repository.PromptFilter) ([]*models.Prompt, int64, error) {
		return []*models.Prompt{{ID: 1}}, 1, nil
	}
	repo.likedPromptIDsFn = func(context.Context, uint, []uint) ([]uint, error) {
		t.Fatal("anonymous listing must not query likes")
		return nil, nil
	}
	svc := newPromptService(repo, "")

	page, err := svc.ListPrompts(context.Background(), ListPromptsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = svc.ListPrompts(context.Background(), ListPromptsInput{Sort: "random"})
	assertValidationError(t, err)
}

func TestPromptService_GetPrompt(t *testing.T) {
	repo := noopPromptRepo()
	repo.isLikedFn = func(context.Context, uint, uint) (bool, error) { return true, nil }
	svc := newPromptService(repo, "")

	p, err := svc.GetPrompt(context.Background(), 4, 1)
	require.NoError(t, err)
	assert.True(t, p.Liked)

	p, err = svc.GetPrompt(context.Background(), 4, 0)
	require.NoError(t, err)
	assert.False(t, p.Liked)
}

func TestPromptService_CreateNormalizes(t *testing.T) {
	repo := noopPromptRepo()
	var saved *models.Prompt
	repo.createFn = func(_ context.Context, p *models.Prompt) error {
		p.ID = 10
		saved = p
		return nil
	}
	svc := newPromptService(repo, "")

	in := validPromptInput()
	in.IsFeatured = true
	p, err := svc.CreatePrompt(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, uint(10), p.ID)
	assert.Equal(t, []string{"portrait", "warm"}, saved.Tags)
	assert.True(t, saved.IsFeatured)
	assert.Nil(t, saved.SubmittedByID)
}

func TestPromptService_CreateValidation(t *testing.T) {
	svc := newPromptService(noopPromptRepo(), "")

	tests := []struct {
		name   string
		mutate func(*PromptInput)
	}{
		{name: "missing title", mutate: func(in *PromptInput) { in.Title = " " }},
		{name: "missing body", mutate: func(in *PromptInput) { in.Body = "" }},
		{name: "bad category slug", mutate: func(in *PromptInput) { in.Category = "Not A Slug" }},
		{name: "unknown category", mutate: func(in *PromptInput) { in.Category = "landscapes" }},
		{name: "unknown tool", mutate: func(in *PromptInput) { in.Tool = "dalle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validPromptInput()
			tt.mutate(&in)
			_, err := svc.CreatePrompt(context.Background(), in)
			assertValidationError(t, err)
		})
	}
}

func TestPromptService_Submit(t *testing.T) {
	repo := noopPromptRepo()
	var saved *models.Prompt
	repo.createFn = func(_ context.Context, p *models.Prompt) error {
		saved = p
		return nil
	}
	svc := newPromptService(repo, "")

	in := validPromptInput()
	in.IsFeatured = true
	_, err := svc.SubmitPrompt(context.Background(), 6, in)
	require.NoError(t, err)
	require.NotNil(t, saved.SubmittedByID)
	assert.Equal(t, uint(6), *saved.SubmittedByID)
	assert.False(t, saved.IsFeatured)

	_, err = svc.SubmitPrompt(context.Background(), 0, validPromptInput())
	assertCode(t, err, models.CodeUnauthorized)

	closed := newPromptService(noopPromptRepo(), "prompt_submissions=off")
	_, err = closed.SubmitPrompt(context.Background(), 6, validPromptInput())
	assertCode(t, err, models.CodeForbidden)
}

func TestPromptService_UpdateKeepsCounters(t *testing.T) {
	repo := noopPromptRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Prompt, error) {
		return &models.Prompt{ID: id, Title: "old", CopyCount: 9, Likes: 4, Views: 100}, nil
	}
	var saved *models.Prompt
	repo.updateFn = func(_ context.Context, p *models.Prompt) error {
		saved = p
		return nil
	}
	svc := newPromptService(repo, "")

	p, err := svc.UpdatePrompt(context.Background(), 3, validPromptInput())
	require.NoError(t, err)
	assert.Equal(t, "Golden hour portrait", p.Title)
	assert.Equal(t, int64(9), saved.CopyCount)
	assert.Equal(t, int64(4), saved.Likes)
	assert.Equal(t, int64(100), saved.Views)
}
