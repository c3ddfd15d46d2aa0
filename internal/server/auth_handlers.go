package server

import (
	"time"

	"promptlime/internal/featureflags"
	"promptlime/internal/models"
	"promptlime/internal/service"
	"promptlime/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 30 * time.Second

// SignInRequest carries the identity provider's signed assertion.
type SignInRequest struct {
	Assertion string `json:"assertion" validate:"required"`
}

// MeResponse is the signed-in user and their current copy allowance.
type MeResponse struct {
	User  *models.User   `json:"user"`
	Quota *service.Quota `json:"quota"`
}

// SignIn handles POST /api/auth/session
// @Summary Exchange an identity assertion for a session
// @Description Verifies the identity provider assertion, creates the user on first sign-in and issues a session token carrying the role.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Identity assertion"
// @Success 200 {object} service.Session
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/session [post]
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req SignInRequest
	if err := validation.Bind(c, &req); err != nil {
		return respond(c, err)
	}

	session, err := s.sessionService.SignIn(c.UserContext(), req.Assertion)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(session)
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current session token
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims := currentSession(c)
	if claims != nil && claims.ExpiresAt != nil {
		if err := s.sessionService.Revoke(c.UserContext(), claims.ID, claims.ExpiresAt.Time); err != nil {
			return respond(c, err)
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me
// @Summary Current user and copy quota
// @Tags auth
// @Produce json
// @Success 200 {object} MeResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	ctx := c.UserContext()

	user, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			// Deleted while the token was still valid.
			return respond(c, models.NewUnauthorizedError("Account no longer exists"))
		}
		return respond(c, err)
	}

	quota, err := s.copyService.Quota(ctx, userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(MeResponse{User: user, Quota: quota})
}

// GetMyQuota handles GET /api/me/quota
// @Summary Remaining copies this month
// @Tags auth
// @Produce json
// @Success 200 {object} service.Quota
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /me/quota [get]
func (s *Server) GetMyQuota(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	quota, err := s.copyService.Quota(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(quota)
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a single-use WebSocket ticket
// @Tags realtime
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	if s.redis == nil || !s.featureFlags.Enabled(featureflags.RealtimeInbox, userID) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Realtime notifications are unavailable",
		})
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket, userID, wsTicketTTL).Err(); err != nil {
		return respond(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}
