package server

import (
	"promptlime/internal/service"
	"promptlime/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SettingRequest is the body of a settings update.
type SettingRequest struct {
	Value string `json:"value"`
}

// GetCategories handles GET /api/categories
// @Summary List categories
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.catalogService.ListCategories(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(categories)
}

// GetTools handles GET /api/tools
// @Summary List AI tools
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Tool
// @Router /tools [get]
func (s *Server) GetTools(c *fiber.Ctx) error {
	tools, err := s.catalogService.ListTools(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(tools)
}

// CreateCategory handles POST /api/admin/categories
// @Summary Create a category
// @Tags admin
// @Accept json
// @Produce json
// @Param request body service.CatalogEntryInput true "Category"
// @Success 201 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var in service.CatalogEntryInput
	if err := validation.DecodeStrict(c.Body(), &in); err != nil {
		return respond(c, err)
	}
	category, err := s.catalogService.CreateCategory(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// DeleteCategory handles DELETE /api/admin/categories/:id
// @Summary Delete a category
// @Tags admin
// @Param id path int true "Category ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.catalogService.DeleteCategory(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateTool handles POST /api/admin/tools
// @Summary Create an AI tool entry
// @Tags admin
// @Accept json
// @Produce json
// @Param request body service.CatalogEntryInput true "Tool"
// @Success 201 {object} models.Tool
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/tools [post]
func (s *Server) CreateTool(c *fiber.Ctx) error {
	var in service.CatalogEntryInput
	if err := validation.DecodeStrict(c.Body(), &in); err != nil {
		return respond(c, err)
	}
	tool, err := s.catalogService.CreateTool(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tool)
}

// DeleteTool handles DELETE /api/admin/tools/:id
// @Summary Delete an AI tool entry
// @Tags admin
// @Param id path int true "Tool ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/tools/{id} [delete]
func (s *Server) DeleteTool(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.catalogService.DeleteTool(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPublicSettings handles GET /api/settings/public
// @Summary Public site settings
// @Tags catalog
// @Produce json
// @Success 200 {object} object{announcement=string,free_copy_limit=int}
// @Router /settings/public [get]
func (s *Server) GetPublicSettings(c *fiber.Ctx) error {
	ctx := c.UserContext()
	announcement, err := s.settingsService.Announcement(ctx)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{
		"announcement":    announcement,
		"free_copy_limit": s.settingsService.FreeCopyLimit(ctx),
	})
}

// GetSettings handles GET /api/admin/settings
// @Summary List system settings
// @Tags admin
// @Produce json
// @Success 200 {array} models.SystemSetting
// @Security BearerAuth
// @Router /admin/settings [get]
func (s *Server) GetSettings(c *fiber.Ctx) error {
	settings, err := s.settingsService.All(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(settings)
}

// UpdateSetting handles PUT /api/admin/settings/:key
// @Summary Update a system setting
// @Tags admin
// @Accept json
// @Produce json
// @Param key path string true "free_copy_limit or announcement"
// @Param request body SettingRequest true "Value"
// @Success 200 {object} object{key=string,value=string}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/settings/{key} [put]
func (s *Server) UpdateSetting(c *fiber.Ctx) error {
	var req SettingRequest
	if err := validation.DecodeStrict(c.Body(), &req); err != nil {
		return respond(c, err)
	}
	key := c.Params("key")
	if err := s.settingsService.Set(c.UserContext(), key, req.Value); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"key": key, "value": req.Value})
}
