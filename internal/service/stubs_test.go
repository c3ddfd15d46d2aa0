package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"promptlime/internal/models"
	"promptlime/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn              func(context.Context, uint) (*models.User, error)
	getByEmailFn           func(context.Context, string) (*models.User, error)
	upsertIdentityFn       func(context.Context, repository.Identity) (*models.User, error)
	resetCopiesFn          func(context.Context, uint, time.Time, time.Time) (bool, error)
	incrementCopiesBelowFn func(context.Context, uint, int) (int, bool, error)
	setProFn               func(context.Context, uint, bool, time.Time) error
	setAdminFn             func(context.Context, uint, bool) error
	deleteFn               func(context.Context, uint) error
	listFn                 func(context.Context, string, int, int) ([]models.User, int64, error)
	listAdminsFn           func(context.Context) ([]models.User, error)
	countFn                func(context.Context) (int64, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) UpsertIdentity(ctx context.Context, id repository.Identity) (*models.User, error) {
	return s.upsertIdentityFn(ctx, id)
}
func (s *userRepoStub) ResetCopies(ctx context.Context, id uint, monthStart, at time.Time) (bool, error) {
	return s.resetCopiesFn(ctx, id, monthStart, at)
}
func (s *userRepoStub) IncrementCopiesBelow(ctx context.Context, id uint, limit int) (int, bool, error) {
	return s.incrementCopiesBelowFn(ctx, id, limit)
}
func (s *userRepoStub) SetPro(ctx context.Context, id uint, pro bool, at time.Time) error {
	return s.setProFn(ctx, id, pro, at)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, id uint, admin bool) error {
	return s.setAdminFn(ctx, id, admin)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, query string, limit, offset int) ([]models.User, int64, error) {
	return s.listFn(ctx, query, limit, offset)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, int64, error) {
	return s.countFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:              func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:           func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		upsertIdentityFn:       func(_ context.Context, _ repository.Identity) (*models.User, error) { return &models.User{ID: 1}, nil },
		resetCopiesFn:          func(_ context.Context, _ uint, _, _ time.Time) (bool, error) { return true, nil },
		incrementCopiesBelowFn: func(_ context.Context, _ uint, _ int) (int, bool, error) { return 1, true, nil },
		setProFn:               func(_ context.Context, _ uint, _ bool, _ time.Time) error { return nil },
		setAdminFn:             func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn:               func(_ context.Context, _ uint) error { return nil },
		listFn:                 func(_ context.Context, _ string, _, _ int) ([]models.User, int64, error) { return nil, 0, nil },
		listAdminsFn:           func(_ context.Context) ([]models.User, error) { return nil, nil },
		countFn:                func(_ context.Context) (int64, int64, error) { return 0, 0, nil },
	}
}

// memoryUserRepo backs the copy accounting methods of userRepoStub with a
// single in-memory user so quota sequences can be exercised.
func memoryUserRepo(user *models.User) *userRepoStub {
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		if id != user.ID {
			return nil, models.NewNotFoundError("User", id)
		}
		cp := *user
		return &cp, nil
	}
	repo.resetCopiesFn = func(_ context.Context, _ uint, monthStart, at time.Time) (bool, error) {
		if user.LastReset != nil && !user.LastReset.Before(monthStart) {
			return false, nil
		}
		user.CopyCount = 0
		user.LastReset = &at
		return true, nil
	}
	repo.incrementCopiesBelowFn = func(_ context.Context, _ uint, limit int) (int, bool, error) {
		if user.CopyCount >= limit {
			return user.CopyCount, false, nil
		}
		user.CopyCount++
		return user.CopyCount, true, nil
	}
	return repo
}

// promptRepoStub is a stub for repository.PromptRepository.
type promptRepoStub struct {
	createFn             func(context.Context, *models.Prompt) error
	getByIDFn            func(context.Context, uint) (*models.Prompt, error)
	listFn               func(context.Context, repository.PromptFilter) ([]*models.Prompt, int64, error)
	updateFn             func(context.Context, *models.Prompt) error
	deleteFn             func(context.Context, uint) error
	incrementViewsFn     func(context.Context, uint) (int64, error)
	incrementCopyCountFn func(context.Context, uint) (int64, error)
	setLikedFn           func(context.Context, uint, uint, bool) (int64, error)
	isLikedFn            func(context.Context, uint, uint) (bool, error)
	likedPromptIDsFn     func(context.Context, uint, []uint) ([]uint, error)
	totalsFn             func(context.Context) (repository.PromptTotals, error)
}

func (s *promptRepoStub) Create(ctx context.Context, p *models.Prompt) error {
	return s.createFn(ctx, p)
}
func (s *promptRepoStub) GetByID(ctx context.Context, id uint) (*models.Prompt, error) {
	return s.getByIDFn(ctx, id)
}
func (s *promptRepoStub) List(ctx context.Context, f repository.PromptFilter) ([]*models.Prompt, int64, error) {
	return s.listFn(ctx, f)
}
func (s *promptRepoStub) Update(ctx context.Context, p *models.Prompt) error {
	return s.updateFn(ctx, p)
}
func (s *promptRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *promptRepoStub) IncrementViews(ctx context.Context, id uint) (int64, error) {
	return s.incrementViewsFn(ctx, id)
}
func (s *promptRepoStub) IncrementCopyCount(ctx context.Context, id uint) (int64, error) {
	return s.incrementCopyCountFn(ctx, id)
}
func (s *promptRepoStub) SetLiked(ctx context.Context, userID, promptID uint, liked bool) (int64, error) {
	return s.setLikedFn(ctx, userID, promptID, liked)
}
func (s *promptRepoStub) IsLiked(ctx context.Context, userID, promptID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, promptID)
}
func (s *promptRepoStub) LikedPromptIDs(ctx context.Context, userID uint, ids []uint) ([]uint, error) {
	return s.likedPromptIDsFn(ctx, userID, ids)
}
func (s *promptRepoStub) Totals(ctx context.Context) (repository.PromptTotals, error) {
	return s.totalsFn(ctx)
}

func noopPromptRepo() *promptRepoStub {
	return &promptRepoStub{
		createFn:             func(_ context.Context, _ *models.Prompt) error { return nil },
		getByIDFn:            func(_ context.Context, id uint) (*models.Prompt, error) { return &models.Prompt{ID: id, Body: "body"}, nil },
		listFn:               func(_ context.Context, _ repository.PromptFilter) ([]*models.Prompt, int64, error) { return nil, 0, nil },
		updateFn:             func(_ context.Context, _ *models.Prompt) error { return nil },
		deleteFn:             func(_ context.Context, _ uint) error { return nil },
		incrementViewsFn:     func(_ context.Context, _ uint) (int64, error) { return 1, nil },
		incrementCopyCountFn: func(_ context.Context, _ uint) (int64, error) { return 1, nil },
		setLikedFn:           func(_ context.Context, _, _ uint, _ bool) (int64, error) { return 0, nil },
		isLikedFn:            func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		likedPromptIDsFn:     func(_ context.Context, _ uint, _ []uint) ([]uint, error) { return nil, nil },
		totalsFn:             func(_ context.Context) (repository.PromptTotals, error) { return repository.PromptTotals{}, nil },
	}
}

// reportRepoStub is a stub for repository.ReportRepository.
type reportRepoStub struct {
	createFn        func(context.Context, *models.Report) error
	getByIDFn       func(context.Context, uint) (*models.Report, error)
	findPendingFn   func(context.Context, uint, uint) (*models.Report, error)
	listByStatusFn  func(context.Context, models.ReportStatus, int, int) ([]*models.Report, int64, error)
	transitionFn    func(context.Context, uint, models.ReportStatus, uint, time.Time) (bool, error)
	countByStatusFn func(context.Context) (map[models.ReportStatus]int64, error)
}

func (s *reportRepoStub) Create(ctx context.Context, r *models.Report) error {
	return s.createFn(ctx, r)
}
func (s *reportRepoStub) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	return s.getByIDFn(ctx, id)
}
func (s *reportRepoStub) FindPending(ctx context.Context, reporterID, promptID uint) (*models.Report, error) {
	return s.findPendingFn(ctx, reporterID, promptID)
}
func (s *reportRepoStub) ListByStatus(ctx context.Context, status models.ReportStatus, limit, offset int) ([]*models.Report, int64, error) {
	return s.listByStatusFn(ctx, status, limit, offset)
}
func (s *reportRepoStub) Transition(ctx context.Context, id uint, to models.ReportStatus, adminID uint, at time.Time) (bool, error) {
	return s.transitionFn(ctx, id, to, adminID, at)
}
func (s *reportRepoStub) CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	return s.countByStatusFn(ctx)
}

// memoryReportRepo keeps reports in a map and applies transitions only to
// pending rows.
func memoryReportRepo(reports map[uint]*models.Report) *reportRepoStub {
	nextID := uint(len(reports) + 1)
	return &reportRepoStub{
		createFn: func(_ context.Context, r *models.Report) error {
			r.ID = nextID
			nextID++
			cp := *r
			reports[r.ID] = &cp
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Report, error) {
			r, ok := reports[id]
			if !ok {
				return nil, models.NewNotFoundError("Report", id)
			}
			cp := *r
			return &cp, nil
		},
		findPendingFn: func(_ context.Context, reporterID, promptID uint) (*models.Report, error) {
			for _, r := range reports {
				if r.ReporterID != nil && *r.ReporterID == reporterID && r.PromptID == promptID && r.Status == models.ReportStatusPending {
					cp := *r
					return &cp, nil
				}
			}
			return nil, nil
		},
		listByStatusFn: func(_ context.Context, status models.ReportStatus, _, _ int) ([]*models.Report, int64, error) {
			var out []*models.Report
			for _, r := range reports {
				if r.Status == status {
					cp := *r
					out = append(out, &cp)
				}
			}
			return out, int64(len(out)), nil
		},
		transitionFn: func(_ context.Context, id uint, to models.ReportStatus, adminID uint, at time.Time) (bool, error) {
			r, ok := reports[id]
			if !ok || r.Status != models.ReportStatusPending {
				return false, nil
			}
			r.Status = to
			r.ResolvedByID = &adminID
			r.ResolvedAt = &at
			return true, nil
		},
		countByStatusFn: func(_ context.Context) (map[models.ReportStatus]int64, error) {
			out := map[models.ReportStatus]int64{}
			for _, r := range reports {
				out[r.Status]++
			}
			return out, nil
		},
	}
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createForAllFn  func(context.Context, string, string) (int64, error)
	createForUserFn func(context.Context, uint, string, string) (*models.Notification, error)
	listForUserFn   func(context.Context, uint, bool, int, int) ([]models.Notification, int64, error)
	unreadCountFn   func(context.Context, uint) (int64, error)
	markReadFn      func(context.Context, uint, uint, time.Time) error
	markAllReadFn   func(context.Context, uint, time.Time) (int64, error)
	deleteFn        func(context.Context, uint, uint) error
}

func (s *notificationRepoStub) CreateForAll(ctx context.Context, title, message string) (int64, error) {
	return s.createForAllFn(ctx, title, message)
}
func (s *notificationRepoStub) CreateForUser(ctx context.Context, userID uint, title, message string) (*models.Notification, error) {
	return s.createForUserFn(ctx, userID, title, message)
}
func (s *notificationRepoStub) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	return s.listForUserFn(ctx, userID, unreadOnly, limit, offset)
}
func (s *notificationRepoStub) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.unreadCountFn(ctx, userID)
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, id, userID uint, at time.Time) error {
	return s.markReadFn(ctx, id, userID, at)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	return s.markAllReadFn(ctx, userID, at)
}
func (s *notificationRepoStub) Delete(ctx context.Context, id, userID uint) error {
	return s.deleteFn(ctx, id, userID)
}

func noopNotificationRepo() *notificationRepoStub {
	return &notificationRepoStub{
		createForAllFn: func(_ context.Context, _, _ string) (int64, error) { return 0, nil },
		createForUserFn: func(_ context.Context, userID uint, title, message string) (*models.Notification, error) {
			return &models.Notification{ID: 1, UserID: userID, Title: title, Message: message}, nil
		},
		listForUserFn: func(_ context.Context, _ uint, _ bool, _, _ int) ([]models.Notification, int64, error) {
			return nil, 0, nil
		},
		unreadCountFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		markReadFn:    func(_ context.Context, _, _ uint, _ time.Time) error { return nil },
		markAllReadFn: func(_ context.Context, _ uint, _ time.Time) (int64, error) { return 0, nil },
		deleteFn:      func(_ context.Context, _, _ uint) error { return nil },
	}
}

// settingRepoStub is a map-backed repository.SettingRepository.
type settingRepoStub struct {
	values map[string]string
	getErr error
}

func (s *settingRepoStub) Get(_ context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}
func (s *settingRepoStub) Set(_ context.Context, key, value string) error {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}
func (s *settingRepoStub) All(_ context.Context) ([]models.SystemSetting, error) {
	out := make([]models.SystemSetting, 0, len(s.values))
	for k, v := range s.values {
		out = append(out, models.SystemSetting{Key: k, Value: v})
	}
	return out, nil
}

// paymentRepoStub is a stub for repository.PaymentRepository.
type paymentRepoStub struct {
	applyFn  func(context.Context, string, string, string, time.Time) (bool, error)
	recordFn func(context.Context, string, string, string, time.Time) (bool, error)
}

func (s *paymentRepoStub) ApplyProUpgrade(ctx context.Context, eventID, eventType, email string, at time.Time) (bool, error) {
	return s.applyFn(ctx, eventID, eventType, email, at)
}
func (s *paymentRepoStub) RecordEvent(ctx context.Context, eventID, eventType, email string, at time.Time) (bool, error) {
	return s.recordFn(ctx, eventID, eventType, email, at)
}

// catalogRepoStub is a stub for repository.CatalogRepository.
type catalogRepoStub struct {
	categories map[string]bool
	tools      map[string]bool
	created    []string
}

func (s *catalogRepoStub) ListCategories(_ context.Context) ([]models.Category, error) {
	return nil, nil
}
func (s *catalogRepoStub) CreateCategory(_ context.Context, c *models.Category) error {
	if s.categories[c.Slug] {
		return models.NewConflictError("Category already exists")
	}
	if s.categories == nil {
		s.categories = map[string]bool{}
	}
	s.categories[c.Slug] = true
	s.created = append(s.created, c.Slug)
	return nil
}
func (s *catalogRepoStub) DeleteCategory(_ context.Context, id uint) error {
	return models.NewNotFoundError("Category", id)
}
func (s *catalogRepoStub) CategoryExists(_ context.Context, slug string) (bool, error) {
	return s.categories[slug], nil
}
func (s *catalogRepoStub) ListTools(_ context.Context) ([]models.Tool, error) {
	return nil, nil
}
func (s *catalogRepoStub) CreateTool(_ context.Context, t *models.Tool) error {
	if s.tools[t.Slug] {
		return models.NewConflictError("Tool already exists")
	}
	if s.tools == nil {
		s.tools = map[string]bool{}
	}
	s.tools[t.Slug] = true
	s.created = append(s.created, t.Slug)
	return nil
}
func (s *catalogRepoStub) DeleteTool(_ context.Context, id uint) error {
	return models.NewNotFoundError("Tool", id)
}
func (s *catalogRepoStub) ToolExists(_ context.Context, slug string) (bool, error) {
	return s.tools[slug], nil
}

// fixedLimit is a LimitSource with a constant allowance.
type fixedLimit int

func (l fixedLimit) FreeCopyLimit(context.Context) int { return int(l) }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
