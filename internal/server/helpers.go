package server

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"promptlime/internal/middleware"
	"promptlime/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten means a helper already sent the response. Handlers
// return nil when they see it so the error handler leaves the body alone.
var errResponseWritten = errors.New("response already written")

// maxPageSize caps ?limit= on every listing endpoint.
const maxPageSize = 100

// Pagination is a parsed ?limit=&offset= pair.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads ?limit= and ?offset=, falling back to defaultLimit
// for missing or non-positive limits.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", defaultLimit),
		Offset: max(c.QueryInt("offset", 0), 0),
	}
	switch {
	case p.Limit <= 0:
		p.Limit = defaultLimit
	case p.Limit > maxPageSize:
		p.Limit = maxPageSize
	}
	return p
}

// parseID reads a positive numeric route parameter. A bad value gets a 400
// and errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err == nil && id > 0 {
		return uint(id), nil
	}
	_ = models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid "+humanizeParam(param)))
	return 0, errResponseWritten
}

// humanizeParam turns "id" into "ID" and "promptId" into "prompt ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}
	var b strings.Builder
	for i, r := range stem {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	b.WriteString(" ID")
	return b.String()
}

// respond maps err to its HTTP status. 5xx errors are logged and the client
// sees only the generic message.
func respond(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}
