package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/repository"
	"promptlime/internal/validation"
)

// Payment event types.
const (
	PaymentEventCompleted = "payment.completed"
	signaturePrefix       = "sha256="
)

// PaymentEvent is the webhook body sent by the payment processor.
type PaymentEvent struct {
	ID   string `json:"id" validate:"required,max=255"`
	Type string `json:"type" validate:"required,max=100"`
	Data struct {
		Email string `json:"email" validate:"omitempty,email"`
	} `json:"data"`
}

// PaymentResult reports what a webhook delivery did.
type PaymentResult struct {
	EventID   string `json:"event_id"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate"`
	Ignored   bool   `json:"ignored"`
}

// PaymentService applies payment processor webhooks.
type PaymentService struct {
	repo   repository.PaymentRepository
	secret string
	now    func() time.Time
}

func NewPaymentService(repo repository.PaymentRepository, secret string) *PaymentService {
	return &PaymentService{repo: repo, secret: secret, now: time.Now}
}

// VerifySignature checks "sha256=<hex HMAC-SHA256(body)>" against the
// configured secret. An empty secret rejects every delivery.
func (s *PaymentService) VerifySignature(body []byte, header string) error {
	if s.secret == "" {
		return models.NewUnauthorizedError("Webhook secret not configured")
	}
	sig, ok := strings.CutPrefix(strings.TrimSpace(header), signaturePrefix)
	if !ok {
		return models.NewUnauthorizedError("Missing webhook signature")
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return models.NewUnauthorizedError("Malformed webhook signature")
	}
	if !hmac.Equal(got, Sign(s.secret, body)) {
		return models.NewUnauthorizedError("Invalid webhook signature")
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeader formats the X-Signature value for body.
func SignatureHeader(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(Sign(secret, body))
}

// HandleWebhook verifies and applies one delivery. Only payment.completed
// upgrades the buyer; other event types are recorded and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*PaymentResult, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		return nil, err
	}
	var evt PaymentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, models.NewValidationError("Malformed webhook body")
	}
	return s.Apply(ctx, evt)
}

// Apply processes an already verified event.
func (s *PaymentService) Apply(ctx context.Context, evt PaymentEvent) (*PaymentResult, error) {
	evt.ID = strings.TrimSpace(evt.ID)
	if evt.ID == "" || evt.Type == "" {
		return nil, models.NewValidationError("Event id and type are required")
	}
	if err := validation.Struct(&evt); err != nil {
		return nil, err
	}
	result := &PaymentResult{EventID: evt.ID}
	now := s.now()

	if evt.Type != PaymentEventCompleted {
		inserted, err := s.repo.RecordEvent(ctx, evt.ID, evt.Type, evt.Data.Email, now)
		if err != nil {
			return nil, err
		}
		result.Ignored = true
		result.Duplicate = !inserted
		return result, nil
	}

	if strings.TrimSpace(evt.Data.Email) == "" {
		return nil, models.NewValidationError("Event email is required")
	}
	applied, err := s.repo.ApplyProUpgrade(ctx, evt.ID, evt.Type, evt.Data.Email, now)
	if err != nil {
		return nil, err
	}
	result.Applied = applied
	result.Duplicate = !applied
	if applied {
		middleware.Logger.InfoContext(ctx, "pro upgrade applied",
			slog.String("event_id", evt.ID))
	}
	return result, nil
}
