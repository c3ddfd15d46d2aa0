package service

import (
	"context"

	"promptlime/internal/models"
	"promptlime/internal/observability"
	"promptlime/internal/repository"
)

// LikeResult is the like state after a toggle.
type LikeResult struct {
	PromptID uint  `json:"prompt_id"`
	Liked    bool  `json:"liked"`
	Likes    int64 `json:"likes"`
}

// EngagementService maintains view and like counters.
type EngagementService struct {
	prompts repository.PromptRepository
}

func NewEngagementService(prompts repository.PromptRepository) *EngagementService {
	return &EngagementService{prompts: prompts}
}

// RecordView counts one view of the prompt and returns the new total.
func (s *EngagementService) RecordView(ctx context.Context, promptID uint) (int64, error) {
	views, err := s.prompts.IncrementViews(ctx, promptID)
	if err != nil {
		return 0, err
	}
	observability.EngagementEvents.WithLabelValues("view").Inc()
	return views, nil
}

// SetLike likes or unlikes a prompt for userID. Repeating the current state
// leaves the counter untouched.
func (s *EngagementService) SetLike(ctx context.Context, userID, promptID uint, liked bool) (*LikeResult, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to like prompts")
	}
	likes, err := s.prompts.SetLiked(ctx, userID, promptID, liked)
	if err != nil {
		return nil, err
	}
	kind := "unlike"
	if liked {
		kind = "like"
	}
	observability.EngagementEvents.WithLabelValues(kind).Inc()
	return &LikeResult{PromptID: promptID, Liked: liked, Likes: likes}, nil
}
