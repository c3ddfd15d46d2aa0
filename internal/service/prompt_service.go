package service

import (
	"context"
	"strings"

	"promptlime/internal/cache"
	"promptlime/internal/featureflags"
	"promptlime/internal/models"
	"promptlime/internal/repository"
	"promptlime/internal/validation"
)

const featuredLimit = 12

// PromptInput is the editable part of a prompt.
type PromptInput struct {
	Title      string   `json:"title" validate:"required,notblank,max=200"`
	Category   string   `json:"category" validate:"required,slug"`
	Tool       string   `json:"tool" validate:"required,slug"`
	Tags       []string `json:"tags" validate:"max=20,dive,max=40"`
	Body       string   `json:"body" validate:"required,notblank,max=10000"`
	ImageURL   string   `json:"image_url" validate:"omitempty,max=512"`
	IsFeatured bool     `json:"is_featured"`
}

// ListPromptsInput filters the public catalog.
type ListPromptsInput struct {
	Category      string
	Tool          string
	Tag           string
	Query         string
	Sort          string
	Limit         int
	Offset        int
	CurrentUserID uint
}

// PromptPage is one page of the catalog.
type PromptPage struct {
	Prompts []*models.Prompt `json:"prompts"`
	Total   int64            `json:"total"`
}

// PromptService serves the catalog and manages prompt content.
type PromptService struct {
	promptRepo repository.PromptRepository
	catalog    *CatalogService
	flags      *featureflags.Manager
}

func NewPromptService(
	promptRepo repository.PromptRepository,
	catalog *CatalogService,
	flags *featureflags.Manager,
) *PromptService {
	return &PromptService{promptRepo: promptRepo, catalog: catalog, flags: flags}
}

// ListPrompts returns a page of prompts with Liked set for the caller.
func (s *PromptService) ListPrompts(ctx context.Context, in ListPromptsInput) (*PromptPage, error) {
	switch in.Sort {
	case "", models.PromptSortNew, models.PromptSortPopular, models.PromptSortLiked, models.PromptSortViewed:
	default:
		return nil, models.NewValidationError("sort must be one of new, popular, liked, viewed")
	}
	prompts, total, err := s.promptRepo.List(ctx, repository.PromptFilter{
		Category: strings.TrimSpace(in.Category),
		Tool:     strings.TrimSpace(in.Tool),
		Tag:      strings.ToLower(strings.TrimSpace(in.Tag)),
		Query:    strings.TrimSpace(in.Query),
		Sort:     in.Sort,
		Limit:    in.Limit,
		Offset:   in.Offset,
	})
	if err != nil {
		return nil, err
	}
	if err := s.annotateLiked(ctx, prompts, in.CurrentUserID); err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = []*models.Prompt{}
	}
	return &PromptPage{Prompts: prompts, Total: total}, nil
}

// Featured returns the curated front-page prompts.
func (s *PromptService) Featured(ctx context.Context, currentUserID uint) ([]*models.Prompt, error) {
	var prompts []*models.Prompt
	err := cache.Aside(ctx, cache.FeaturedKey, &prompts, cache.FeaturedTTL, func() error {
		var err error
		prompts, _, err = s.promptRepo.List(ctx, repository.PromptFilter{
			Featured: true,
			Sort:     models.PromptSortPopular,
			Limit:    featuredLimit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.annotateLiked(ctx, prompts, currentUserID); err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = []*models.Prompt{}
	}
	return prompts, nil
}

// GetPrompt returns one prompt with Liked set for the caller.
func (s *PromptService) GetPrompt(ctx context.Context, id, currentUserID uint) (*models.Prompt, error) {
	prompt, err := s.promptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if currentUserID != 0 {
		liked, err := s.promptRepo.IsLiked(ctx, currentUserID, id)
		if err != nil {
			return nil, err
		}
		prompt.Liked = liked
	}
	return prompt, nil
}

// CreatePrompt adds a prompt as an administrator.
func (s *PromptService) CreatePrompt(ctx context.Context, in PromptInput) (*models.Prompt, error) {
	prompt, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.promptRepo.Create(ctx, prompt); err != nil {
		return nil, err
	}
	return prompt, nil
}

// SubmitPrompt adds a user-contributed prompt. Submissions cannot mark
// themselves featured.
func (s *PromptService) SubmitPrompt(ctx context.Context, userID uint, in PromptInput) (*models.Prompt, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to submit prompts")
	}
	if !s.flags.Enabled(featureflags.PromptSubmissions, userID) {
		return nil, models.NewForbiddenError("Prompt submissions are currently closed")
	}
	in.IsFeatured = false
	prompt, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	submitter := userID
	prompt.SubmittedByID = &submitter
	if err := s.promptRepo.Create(ctx, prompt); err != nil {
		return nil, err
	}
	return prompt, nil
}

// UpdatePrompt replaces a prompt's editable fields. Counters are untouched.
func (s *PromptService) UpdatePrompt(ctx context.Context, id uint, in PromptInput) (*models.Prompt, error) {
	existing, err := s.promptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	existing.Title = next.Title
	existing.Category = next.Category
	existing.Tool = next.Tool
	existing.Tags = next.Tags
	existing.Body = next.Body
	existing.ImageURL = next.ImageURL
	existing.IsFeatured = next.IsFeatured
	if err := s.promptRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *PromptService) DeletePrompt(ctx context.Context, id uint) error {
	return s.promptRepo.Delete(ctx, id)
}

// Totals aggregates catalog engagement.
func (s *PromptService) Totals(ctx context.Context) (repository.PromptTotals, error) {
	return s.promptRepo.Totals(ctx)
}

func (s *PromptService) build(ctx context.Context, in PromptInput) (*models.Prompt, error) {
	in.Category = strings.TrimSpace(in.Category)
	in.Tool = strings.TrimSpace(in.Tool)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateRefs(ctx, in.Category, in.Tool); err != nil {
		return nil, err
	}
	return &models.Prompt{
		Title:      strings.TrimSpace(in.Title),
		Category:   in.Category,
		Tool:       in.Tool,
		Tags:       models.NormalizeTags(in.Tags),
		Body:       strings.TrimSpace(in.Body),
		ImageURL:   strings.TrimSpace(in.ImageURL),
		IsFeatured: in.IsFeatured,
	}, nil
}

func (s *PromptService) annotateLiked(ctx context.Context, prompts []*models.Prompt, userID uint) error {
	if userID == 0 || len(prompts) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(prompts))
	for _, p := range prompts {
		ids = append(ids, p.ID)
	}
	liked, err := s.promptRepo.LikedPromptIDs(ctx, userID, ids)
	if err != nil {
		return err
	}
	set := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	for _, p := range prompts {
		_, p.Liked = set[p.ID]
	}
	return nil
}
