package server

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"promptlime/internal/middleware"
	"promptlime/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	localUserID  = "userID"
	localRole    = "role"
	localSession = "session"

	wsTicketPrefix = "ws_ticket:"
)

// AuthRequired returns the authentication middleware. WebSocket upgrades
// authenticate with a single-use ticket because browsers cannot set headers
// on the handshake.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/ws") && c.Method() == fiber.MethodGet {
			return s.authenticateTicket(c)
		}

		token := middleware.BearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.verifySession(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		s.bindSession(c, claims)
		return c.Next()
	}
}

// OptionalAuth attaches the caller's session when a valid token is presented
// and otherwise treats the request as anonymous.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := middleware.BearerToken(c); token != "" {
			if claims, err := s.verifySession(c.UserContext(), token); err == nil {
				s.bindSession(c, claims)
			}
		}
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
// The role claim is re-checked against the database so a demotion applies
// to tokens already issued.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if role, _ := c.Locals(localRole).(string); role != models.RoleAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		admin, err := s.isAdminByUserID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

func (s *Server) verifySession(ctx context.Context, token string) (*middleware.SessionClaims, error) {
	claims, err := middleware.ParseSessionToken(token, s.config.JWTSecret)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	if s.sessionService.IsRevoked(ctx, claims.ID) {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

func (s *Server) bindSession(c *fiber.Ctx, claims *middleware.SessionClaims) {
	userID, _ := claims.UserID()
	c.Locals(localUserID, userID)
	c.Locals(localRole, claims.Role)
	c.Locals(localSession, claims)
	c.SetUserContext(middleware.WithSession(c.UserContext(), userID, claims.Role))
}

func (s *Server) authenticateTicket(c *fiber.Ctx) error {
	ticket := c.Query("ticket")
	if ticket == "" || s.redis == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("WebSocket ticket required"))
	}

	raw, err := s.redis.GetDel(c.UserContext(), wsTicketPrefix+ticket).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(c.UserContext(), "ws ticket lookup failed")
		}
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
	}

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
	}

	userID := uint(id)
	c.Locals(localUserID, userID)
	c.SetUserContext(middleware.WithSession(c.UserContext(), userID, models.RoleUser))
	return c.Next()
}

// currentUserID returns the authenticated caller, if any.
func currentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(localUserID).(uint)
	return id, ok && id != 0
}

func currentSession(c *fiber.Ctx) *middleware.SessionClaims {
	claims, _ := c.Locals(localSession).(*middleware.SessionClaims)
	return claims
}

func (s *Server) isAdminByUserID(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}
