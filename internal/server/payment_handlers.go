package server

import (
	"log/slog"

	"promptlime/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "X-Signature"

// PaymentWebhook handles POST /api/payments/webhook
// @Summary Payment processor callback
// @Description Applies a signed payment event. payment.completed upgrades the buyer to Pro; other event types are acknowledged and ignored. Redelivered events are no-ops.
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Signature header string true "sha256=<hex HMAC of body>"
// @Success 200 {object} service.PaymentResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /payments/webhook [post]
func (s *Server) PaymentWebhook(c *fiber.Ctx) error {
	result, err := s.paymentService.HandleWebhook(c.UserContext(), c.Body(), c.Get(SignatureHeader))
	if err != nil {
		return respond(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "payment webhook processed",
		slog.String("event_id", result.EventID),
		slog.Bool("applied", result.Applied),
		slog.Bool("duplicate", result.Duplicate),
		slog.Bool("ignored", result.Ignored))
	return c.JSON(result)
}
