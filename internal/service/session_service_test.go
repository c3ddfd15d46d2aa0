package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"promptlime/internal/config"
	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret      = "test-session-secret-0123456789abcdef"
	testIdentitySecret = "test-identity-secret"
)

func sessionConfig() *config.Config {
	return &config.Config{
		JWTSecret:       testJWTSecret,
		IdentitySecret:  testIdentitySecret,
		AdminEmails:     "Owner@Example.com",
		SessionTTLHours: 2,
	}
}

func signAssertion(t *testing.T, secret string, claims IdentityClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validAssertion(email string) IdentityClaims {
	return IdentityClaims{
		Email:   email,
		Name:    "Ada",
		Picture: "https://img.example.com/ada.png",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
}

func TestSessionService_SignInIssuesRoleClaims(t *testing.T) {
	users := noopUserRepo()
	var got repository.Identity
	users.upsertIdentityFn = func(_ context.Context, id repository.Identity) (*models.User, error) {
		got = id
		return &models.User{ID: 12, Email: id.Email, Name: id.Name, IsAdmin: id.Admin, IsPro: true}, nil
	}
	svc := NewSessionService(users, sessionConfig(), nil)

	sess, err := svc.SignIn(context.Background(), signAssertion(t, testIdentitySecret, validAssertion("OWNER@example.com ")))
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", got.Email)
	assert.True(t, got.Admin)

	claims, err := middleware.ParseSessionToken(sess.Token, testJWTSecret)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.True(t, claims.Pro)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), sess.ExpiresAt, time.Minute)
}

func TestSessionService_NonAdminEmail(t *testing.T) {
	users := noopUserRepo()
	users.upsertIdentityFn = func(_ context.Context, id repository.Identity) (*models.User, error) {
		assert.False(t, id.Admin)
		return &models.User{ID: 3, Email: id.Email}, nil
	}
	svc := NewSessionService(users, sessionConfig(), nil)

	sess, err := svc.SignIn(context.Background(), signAssertion(t, testIdentitySecret, validAssertion("someone@example.com")))
	require.NoError(t, err)
	claims, err := middleware.ParseSessionToken(sess.Token, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestSessionService_RejectsBadAssertions(t *testing.T) {
	svc := NewSessionService(noopUserRepo(), sessionConfig(), nil)

	expired := validAssertion("a@example.com")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExp := validAssertion("a@example.com")
	noExp.ExpiresAt = nil

	tests := []struct {
		name      string
		assertion string
	}{
		{name: "wrong secret", assertion: signAssertion(t, "other", validAssertion("a@example.com"))},
		{name: "expired", assertion: signAssertion(t, testIdentitySecret, expired)},
		{name: "no expiry", assertion: signAssertion(t, testIdentitySecret, noExp)},
		{name: "no email", assertion: signAssertion(t, testIdentitySecret, validAssertion(""))},
		{name: "garbage", assertion: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignIn(context.Background(), tt.assertion)
			assertCode(t, err, models.CodeUnauthorized)
		})
	}
}

func TestSessionService_Revoke(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewSessionService(noopUserRepo(), sessionConfig(), rdb)
	ctx := context.Background()

	assert.False(t, svc.IsRevoked(ctx, "jti-1"))
	require.NoError(t, svc.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	assert.True(t, svc.IsRevoked(ctx, "jti-1"))
	assert.True(t, strings.HasPrefix(mr.Keys()[0], "blacklist:"))

	mr.FastForward(2 * time.Hour)
	assert.False(t, svc.IsRevoked(ctx, "jti-1"))

	require.NoError(t, svc.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, svc.IsRevoked(ctx, "jti-2"))
}

func TestSessionService_RevokeWithoutRedis(t *testing.T) {
	svc := NewSessionService(noopUserRepo(), sessionConfig(), nil)
	require.NoError(t, svc.Revoke(context.Background(), "jti", time.Now().Add(time.Hour)))
	assert.False(t, svc.IsRevoked(context.Background(), "jti"))
}
