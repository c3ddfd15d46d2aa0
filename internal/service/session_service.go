package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"promptlime/internal/config"
	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "blacklist:"

// IdentityClaims is the assertion minted by the identity provider bridge
// after a successful OAuth sign-in.
type IdentityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// Session is an issued session token and the user it belongs to.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// SessionService signs users in and issues session tokens.
type SessionService struct {
	users repository.UserRepository
	cfg   *config.Config
	rdb   *redis.Client
	now   func() time.Time
}

// NewSessionService returns a SessionService. rdb may be nil, which disables
// token revocation.
func NewSessionService(users repository.UserRepository, cfg *config.Config, rdb *redis.Client) *SessionService {
	return &SessionService{users: users, cfg: cfg, rdb: rdb, now: time.Now}
}

// VerifyAssertion checks an identity assertion's signature and expiry.
func (s *SessionService) VerifyAssertion(assertion string) (*IdentityClaims, error) {
	if s.cfg.IdentitySecret == "" {
		return nil, models.NewInternalError(errors.New("identity secret not configured"))
	}
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.IdentitySecret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid identity assertion")
	}
	claims.Email = models.NormalizeEmail(claims.Email)
	if claims.Email == "" || !strings.Contains(claims.Email, "@") {
		return nil, models.NewUnauthorizedError("Identity assertion has no email")
	}
	return claims, nil
}

// SignIn exchanges an identity assertion for a session. The first sign-in
// creates the user; emails listed in ADMIN_EMAILS get the admin role.
func (s *SessionService) SignIn(ctx context.Context, assertion string) (*Session, error) {
	identity, err := s.VerifyAssertion(assertion)
	if err != nil {
		return nil, err
	}
	user, err := s.users.UpsertIdentity(ctx, repository.Identity{
		Email: identity.Email,
		Name:  strings.TrimSpace(identity.Name),
		Image: strings.TrimSpace(identity.Picture),
		Admin: s.cfg.IsAdminEmail(identity.Email),
	})
	if err != nil {
		return nil, err
	}
	return s.Issue(user)
}

// Issue signs a session token for user.
func (s *SessionService) Issue(user *models.User) (*Session, error) {
	if s.cfg.JWTSecret == "" {
		return nil, models.NewInternalError(errors.New("JWT secret not configured"))
	}
	now := s.now()
	expires := now.Add(s.cfg.SessionTTL())
	claims := middleware.SessionClaims{
		Email: user.Email,
		Role:  user.Role(),
		Pro:   user.IsPro,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    middleware.TokenIssuer,
			Audience:  jwt.ClaimStrings{middleware.TokenAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}

// Revoke blacklists a token ID until the token would have expired anyway.
func (s *SessionService) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedTokenPrefix+jti, "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked. Redis failures are treated as
// not revoked.
func (s *SessionService) IsRevoked(ctx context.Context, jti string) bool {
	if s.rdb == nil || jti == "" {
		return false
	}
	n, err := s.rdb.Exists(ctx, revokedTokenPrefix+jti).Result()
	return err == nil && n > 0
}
