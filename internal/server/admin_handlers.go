package server

import (
	"io"

	"promptlime/internal/models"
	"promptlime/internal/service"
	"promptlime/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ToggleRequest flips a boolean account attribute.
type ToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// GetUsers handles GET /api/admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Email or name contains"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {object} service.UserPage
// @Security BearerAuth
// @Router /admin/users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	users, err := s.userService.ListUsers(c.UserContext(), c.Query("q"), page.Limit, page.Offset)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// SetUserPro handles POST /api/admin/users/:id/pro
// @Summary Grant or revoke Pro
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body ToggleRequest true "Pro flag"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/pro [post]
func (s *Server) SetUserPro(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ToggleRequest
	if err := validation.Bind(c, &req); err != nil {
		return respond(c, err)
	}

	user, err := s.userService.SetPro(c.UserContext(), id, *req.Enabled)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// SetUserAdmin handles POST /api/admin/users/:id/admin
// @Summary Grant or revoke the admin role
// @Description Admins cannot demote themselves.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body ToggleRequest true "Admin flag"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/admin [post]
func (s *Server) SetUserAdmin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ToggleRequest
	if err := validation.Bind(c, &req); err != nil {
		return respond(c, err)
	}
	actorID, _ := currentUserID(c)

	user, err := s.userService.SetAdmin(c.UserContext(), actorID, id, *req.Enabled)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/admin/users/:id
// @Summary Delete a user
// @Description Removes the account together with its likes and notifications.
// @Tags admin
// @Param id path int true "User ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actorID, _ := currentUserID(c)
	if err := s.userService.DeleteUser(c.UserContext(), actorID, id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetReports handles GET /api/admin/reports
// @Summary Moderation queue
// @Tags admin
// @Produce json
// @Param status query string false "pending (default), resolved or dismissed"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {object} service.ReportPage
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports [get]
func (s *Server) GetReports(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	var (
		reports *service.ReportPage
		err     error
	)
	if status := c.Query("status"); status != "" {
		reports, err = s.moderationService.ListReports(c.UserContext(), models.ReportStatus(status), page.Limit, page.Offset)
	} else {
		reports, err = s.moderationService.ListPending(c.UserContext(), page.Limit, page.Offset)
	}
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(reports)
}

// ResolveReport handles POST /api/admin/reports/:id/resolve
// @Summary Resolve a report by deleting the prompt
// @Tags admin
// @Param id path int true "Report ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports/{id}/resolve [post]
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	adminID, _ := currentUserID(c)
	if err := s.moderationService.Resolve(c.UserContext(), id, adminID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DismissReport handles POST /api/admin/reports/:id/dismiss
// @Summary Dismiss a report
// @Tags admin
// @Param id path int true "Report ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports/{id}/dismiss [post]
func (s *Server) DismissReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	adminID, _ := currentUserID(c)
	if err := s.moderationService.Dismiss(c.UserContext(), id, adminID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetDashboardStats handles GET /api/admin/stats
// @Summary Dashboard figures
// @Tags admin
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Security BearerAuth
// @Router /admin/stats [get]
func (s *Server) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := s.statsService.Dashboard(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(stats)
}

// UploadPromptImage handles POST /api/admin/images
// @Summary Upload a prompt preview image
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image"
// @Success 201 {object} service.PromptImage
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/images [post]
func (s *Server) UploadPromptImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return respond(c, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return respond(c, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return respond(c, models.NewValidationError("Unable to read uploaded file"))
	}

	image, err := s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(image)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Tags admin
// @Produce json
// @Success 200 {object} object{names=[]string,raw=map[string]string,evaluated=map[string]bool}
// @Security BearerAuth
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"names":     []string{},
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"names":     s.featureFlags.Names(),
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
