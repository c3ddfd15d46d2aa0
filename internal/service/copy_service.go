// Package service holds the application's business rules on top of the
// repositories.
package service

import (
	"context"
	"log/slog"
	"time"

	"promptlime/internal/featureflags"
	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/observability"
	"promptlime/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// LimitSource yields the monthly copy allowance for free users.
type LimitSource interface {
	FreeCopyLimit(ctx context.Context) int
}

// CopyActor identifies who is copying. UserID 0 is an anonymous visitor;
// GuestMarker reports whether the visitor already carries the one-copy cookie.
type CopyActor struct {
	UserID      uint
	GuestMarker bool
}

// Quota is a user's copy allowance for the current month.
type Quota struct {
	Unlimited bool `json:"unlimited"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

// CopyResult is returned when a copy is granted.
type CopyResult struct {
	PromptID        uint   `json:"prompt_id"`
	PromptCopyCount int64  `json:"prompt_copy_count"`
	Body            string `json:"body"`
	Guest           bool   `json:"guest"`
	Quota
}

// CopyService decides whether a copy is permitted and keeps the monthly counter.
type CopyService struct {
	users   repository.UserRepository
	prompts repository.PromptRepository
	limits  LimitSource
	flags   *featureflags.Manager
	loc     *time.Location
	now     func() time.Time
}

// NewCopyService returns a CopyService that evaluates months in loc.
func NewCopyService(
	users repository.UserRepository,
	prompts repository.PromptRepository,
	limits LimitSource,
	flags *featureflags.Manager,
	loc *time.Location,
) *CopyService {
	if loc == nil {
		loc = time.Local
	}
	return &CopyService{
		users:   users,
		prompts: prompts,
		limits:  limits,
		flags:   flags,
		loc:     loc,
		now:     time.Now,
	}
}

// NeedsMonthlyReset reports whether the counter belongs to an earlier
// calendar month than now, compared as (year, month) in loc. A counter that
// was never reset always needs one.
func NeedsMonthlyReset(lastReset *time.Time, now time.Time, loc *time.Location) bool {
	if lastReset == nil || lastReset.IsZero() {
		return true
	}
	ly, lm, _ := lastReset.In(loc).Date()
	ny, nm, _ := now.In(loc).Date()
	return ly != ny || lm != nm
}

// MonthStart is midnight on the first day of now's month in loc.
func MonthStart(now time.Time, loc *time.Location) time.Time {
	y, m, _ := now.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

// RequestCopy applies the copy rules for actor and, when permitted, bumps the
// prompt's copy counter.
func (s *CopyService) RequestCopy(ctx context.Context, actor CopyActor, promptID uint) (_ *CopyResult, err error) {
	ctx, span := observability.StartSpan(ctx, "copy.request",
		attribute.Int64("prompt.id", int64(promptID)),
		attribute.Int64("user.id", int64(actor.UserID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	prompt, err := s.prompts.GetByID(ctx, promptID)
	if err != nil {
		return nil, err
	}

	var quota Quota
	tier := observability.TierGuest
	if actor.UserID == 0 {
		if actor.GuestMarker || !s.flags.Enabled(featureflags.GuestCopy, 0) {
			observability.RecordCopy(tier, false)
			return nil, models.NewQuotaExceededError(true)
		}
		quota = Quota{Used: 1, Limit: 1, Remaining: 0}
	} else {
		quota, tier, err = s.consume(ctx, actor.UserID)
		if err != nil {
			if models.IsCode(err, models.CodeQuotaExceeded) {
				observability.RecordCopy(tier, false)
			}
			return nil, err
		}
	}

	count, err := s.prompts.IncrementCopyCount(ctx, promptID)
	if err != nil {
		return nil, err
	}
	observability.RecordCopy(tier, true)
	observability.EngagementEvents.WithLabelValues("copy").Inc()

	return &CopyResult{
		PromptID:        promptID,
		PromptCopyCount: count,
		Body:            prompt.Body,
		Guest:           actor.UserID == 0,
		Quota:           quota,
	}, nil
}

// consume charges one copy to an authenticated user.
func (s *CopyService) consume(ctx context.Context, userID uint) (Quota, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Quota{}, observability.TierFree, err
	}
	if user.IsPro {
		return Quota{Unlimited: true, Used: user.CopyCount}, observability.TierPro, nil
	}

	now := s.now()
	if NeedsMonthlyReset(user.LastReset, now, s.loc) {
		did, err := s.users.ResetCopies(ctx, userID, MonthStart(now, s.loc), now)
		if err != nil {
			return Quota{}, observability.TierFree, err
		}
		if did {
			middleware.Logger.DebugContext(ctx, "monthly copy counter reset",
				slog.Uint64("user_id", uint64(userID)))
		}
	}

	limit := s.limits.FreeCopyLimit(ctx)
	used, granted, err := s.users.IncrementCopiesBelow(ctx, userID, limit)
	if err != nil {
		return Quota{}, observability.TierFree, err
	}
	if !granted {
		return Quota{}, observability.TierFree, models.NewQuotaExceededError(false)
	}

	used = min(used, limit)
	return Quota{Used: used, Limit: limit, Remaining: limit - used}, observability.TierFree, nil
}

// Quota returns the user's allowance without charging a copy. A counter from
// an earlier month is reported as already reset.
func (s *CopyService) Quota(ctx context.Context, userID uint) (*Quota, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsPro {
		return &Quota{Unlimited: true, Used: user.CopyCount}, nil
	}
	limit := s.limits.FreeCopyLimit(ctx)
	used := user.CopyCount
	if NeedsMonthlyReset(user.LastReset, s.now(), s.loc) {
		used = 0
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &Quota{Used: used, Limit: limit, Remaining: remaining}, nil
}
