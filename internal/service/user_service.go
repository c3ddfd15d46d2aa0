package service

import (
	"context"
	"strings"
	"time"

	"promptlime/internal/models"
	"promptlime/internal/repository"
)

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

type UserService struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, now: time.Now}
}

// ListUsers returns users whose email or name contains query.
func (s *UserService) ListUsers(ctx context.Context, query string, limit, offset int) (*UserPage, error) {
	users, total, err := s.userRepo.List(ctx, strings.TrimSpace(query), limit, offset)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return &UserPage{Users: users, Total: total}, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetUserByEmail returns the user with email or NotFound.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	return user, nil
}

// SetPro grants or revokes unlimited copying.
func (s *UserService) SetPro(ctx context.Context, targetID uint, pro bool) (*models.User, error) {
	if err := s.userRepo.SetPro(ctx, targetID, pro, s.now()); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}

// SetAdmin changes a user's role. Admins cannot demote themselves.
func (s *UserService) SetAdmin(ctx context.Context, actorID, targetID uint, isAdmin bool) (*models.User, error) {
	if actorID != 0 && actorID == targetID && !isAdmin {
		return nil, models.NewValidationError("You cannot remove your own admin role")
	}
	if err := s.userRepo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}

// DeleteUser removes a user with their likes and notifications.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	if actorID != 0 && actorID == targetID {
		return models.NewValidationError("You cannot delete your own account from the admin panel")
	}
	return s.userRepo.Delete(ctx, targetID)
}

// ListAdmins returns every user holding the admin role.
func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}
