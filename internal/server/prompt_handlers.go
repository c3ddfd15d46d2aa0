package server

import (
	"time"

	"promptlime/internal/service"
	"promptlime/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultGuestCookieName = "pl_guest_copied"
	guestCookieLifetime    = 365 * 24 * time.Hour
)

// ReportRequest is the body of a prompt report.
type ReportRequest struct {
	Reason  string `json:"reason" validate:"required,notblank,max=500"`
	Details string `json:"details" validate:"max=2000"`
}

// ListPrompts handles GET /api/prompts
// @Summary Browse the prompt catalog
// @Tags prompts
// @Produce json
// @Param category query string false "Category slug"
// @Param tool query string false "Tool slug"
// @Param tag query string false "Tag"
// @Param q query string false "Search text"
// @Param sort query string false "new, popular, liked or viewed"
// @Param limit query int false "Page size" default(24)
// @Param offset query int false "Offset"
// @Success 200 {object} service.PromptPage
// @Failure 400 {object} models.ErrorResponse
// @Router /prompts [get]
func (s *Server) ListPrompts(c *fiber.Ctx) error {
	page := parsePagination(c, 24)
	userID, _ := currentUserID(c)

	result, err := s.promptService.ListPrompts(c.UserContext(), service.ListPromptsInput{
		Category:      c.Query("category"),
		Tool:          c.Query("tool"),
		Tag:           c.Query("tag"),
		Query:         c.Query("q"),
		Sort:          c.Query("sort"),
		Limit:         page.Limit,
		Offset:        page.Offset,
		CurrentUserID: userID,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(result)
}

// GetFeaturedPrompts handles GET /api/prompts/featured
// @Summary Featured prompts
// @Tags prompts
// @Produce json
// @Success 200 {array} models.Prompt
// @Router /prompts/featured [get]
func (s *Server) GetFeaturedPrompts(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	prompts, err := s.promptService.Featured(c.UserContext(), userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(prompts)
}

// GetPrompt handles GET /api/prompts/:id
// @Summary Get a prompt
// @Tags prompts
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} models.Prompt
// @Failure 404 {object} models.ErrorResponse
// @Router /prompts/{id} [get]
func (s *Server) GetPrompt(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	prompt, err := s.promptService.GetPrompt(c.UserContext(), id, userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(prompt)
}

// RecordView handles POST /api/prompts/:id/view
// @Summary Count a prompt view
// @Description Repeated views from the same address are throttled and reported as not counted.
// @Tags prompts
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} object{counted=bool,views=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /prompts/{id}/view [post]
func (s *Server) RecordView(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	views, err := s.engagementService.RecordView(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"counted": true, "views": views})
}

// CopyPrompt handles POST /api/prompts/:id/copy
// @Summary Copy a prompt
// @Description Free accounts may copy a limited number of prompts per calendar month, Pro accounts are unlimited and anonymous visitors get a single copy tracked by cookie.
// @Tags prompts
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} service.CopyResult
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /prompts/{id}/copy [post]
func (s *Server) CopyPrompt(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor := service.CopyActor{}
	if userID, ok := currentUserID(c); ok {
		actor.UserID = userID
	} else {
		actor.GuestMarker = c.Cookies(s.guestCookieName()) != ""
	}

	result, err := s.copyService.RequestCopy(c.UserContext(), actor, id)
	if err != nil {
		return respond(c, err)
	}

	if result.Guest {
		c.Cookie(&fiber.Cookie{
			Name:     s.guestCookieName(),
			Value:    uuid.NewString(),
			Path:     "/",
			Expires:  time.Now().Add(guestCookieLifetime),
			HTTPOnly: true,
			Secure:   s.config.IsProduction(),
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.JSON(result)
}

// LikePrompt handles POST /api/prompts/:id/like
// @Summary Like a prompt
// @Tags prompts
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} service.LikeResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts/{id}/like [post]
func (s *Server) LikePrompt(c *fiber.Ctx) error {
	return s.setLike(c, true)
}

// UnlikePrompt handles DELETE /api/prompts/:id/like
// @Summary Remove a like
// @Tags prompts
// @Produce json
// @Param id path int true "Prompt ID"
// @Success 200 {object} service.LikeResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts/{id}/like [delete]
func (s *Server) UnlikePrompt(c *fiber.Ctx) error {
	return s.setLike(c, false)
}

func (s *Server) setLike(c *fiber.Ctx, liked bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	result, err := s.engagementService.SetLike(c.UserContext(), userID, id, liked)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(result)
}

// ReportPrompt handles POST /api/prompts/:id/reports
// @Summary Report a prompt for moderation
// @Tags prompts
// @Accept json
// @Produce json
// @Param id path int true "Prompt ID"
// @Param request body ReportRequest true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts/{id}/reports [post]
func (s *Server) ReportPrompt(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ReportRequest
	if err := validation.Bind(c, &req); err != nil {
		return respond(c, err)
	}
	userID, _ := currentUserID(c)

	report, err := s.moderationService.SubmitReport(c.UserContext(), service.SubmitReportInput{
		ReporterID: userID,
		PromptID:   id,
		Reason:     req.Reason,
		Details:    req.Details,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// SubmitPrompt handles POST /api/prompts
// @Summary Submit a prompt to the catalog
// @Tags prompts
// @Accept json
// @Produce json
// @Param request body service.PromptInput true "Prompt"
// @Success 201 {object} models.Prompt
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /prompts [post]
func (s *Server) SubmitPrompt(c *fiber.Ctx) error {
	var in service.PromptInput
	if err := validation.DecodeStrict(c.Body(), &in); err != nil {
		return respond(c, err)
	}
	userID, _ := currentUserID(c)

	prompt, err := s.promptService.SubmitPrompt(c.UserContext(), userID, in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(prompt)
}

// CreatePrompt handles POST /api/admin/prompts
// @Summary Create a prompt
// @Tags admin
// @Accept json
// @Produce json
// @Param request body service.PromptInput true "Prompt"
// @Success 201 {object} models.Prompt
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/prompts [post]
func (s *Server) CreatePrompt(c *fiber.Ctx) error {
	var in service.PromptInput
	if err := validation.DecodeStrict(c.Body(), &in); err != nil {
		return respond(c, err)
	}

	prompt, err := s.promptService.CreatePrompt(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(prompt)
}

// UpdatePrompt handles PUT /api/admin/prompts/:id
// @Summary Update a prompt
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Prompt ID"
// @Param request body service.PromptInput true "Prompt"
// @Success 200 {object} models.Prompt
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/prompts/{id} [put]
func (s *Server) UpdatePrompt(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.PromptInput
	if err := validation.DecodeStrict(c.Body(), &in); err != nil {
		return respond(c, err)
	}

	prompt, err := s.promptService.UpdatePrompt(c.UserContext(), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(prompt)
}

// DeletePrompt handles DELETE /api/admin/prompts/:id
// @Summary Delete a prompt
// @Tags admin
// @Param id path int true "Prompt ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/prompts/{id} [delete]
func (s *Server) DeletePrompt(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.promptService.DeletePrompt(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) guestCookieName() string {
	if s.config.GuestCookieName != "" {
		return s.config.GuestCookieName
	}
	return defaultGuestCookieName
}
