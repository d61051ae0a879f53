package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type stubVerifier struct {
	payload  *ports.TokenPayload
	clientID string
}

func (v *stubVerifier) Verify(_ context.Context, token, clientID string) (*ports.TokenPayload, error) {
	v.clientID = clientID
	if token != "valid-google-token" {
		return nil, errBoom
	}
	return v.payload, nil
}

func newAuthFixture() (*memory.Store, *stubVerifier, *AuthService) {
	store := memory.NewStore()
	verifier := &stubVerifier{payload: &ports.TokenPayload{Email: "ana@example.com", Name: "Ana"}}
	svc := NewAuthService(store.Users(), store.Auth(), verifier, AuthConfig{
		JWTSecret:      "test-secret",
		GoogleClientID: "client-id",
	}, testLogger())
	return store, verifier, svc
}

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()
	store, verifier, svc := newAuthFixture()

	access, refresh, err := svc.LoginWithGoogle(ctx, "valid-google-token")
	require.NoError(t, err)
	assert.NotEmpty(t, refresh)
	assert.Equal(t, "client-id", verifier.clientID)

	user, err := store.Users().GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)

	id, err := svc.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, _, err = svc.LoginWithGoogle(ctx, "valid-google-token")
	require.NoError(t, err)
	again, err := store.Users().GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = svc.LoginWithGoogle(ctx, "forged")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAuthFixture()

	_, refresh, err := svc.LoginWithGoogle(ctx, "valid-google-token")
	require.NoError(t, err)

	access, rotated, err := svc.RefreshAccessToken(ctx, refresh)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, rotated)
	_, err = svc.ParseAccessToken(access)
	require.NoError(t, err)

	// The rotated-out token is spent.
	_, _, err = svc.RefreshAccessToken(ctx, refresh)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	_, _, err = svc.RefreshAccessToken(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	require.NoError(t, svc.Logout(ctx, rotated))
	require.NoError(t, svc.Logout(ctx, "unknown"))

	_, _, err = svc.RefreshAccessToken(ctx, rotated)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

// staleTokens reports an already revoked token on every rotation, as a
// concurrent refresh of the same token would.
type staleTokens struct {
	ports.AuthRepository
}

func (staleTokens) RotateRefreshToken(context.Context, uuid.UUID, *domain.RefreshToken) error {
	return domain.ErrRefreshTokenRevoked
}

func TestRefreshLosesRotationRace(t *testing.T) {
	ctx := context.Background()
	store, verifier, _ := newAuthFixture()
	svc := NewAuthService(store.Users(), staleTokens{store.Auth()}, verifier, AuthConfig{
		JWTSecret:      "test-secret",
		GoogleClientID: "client-id",
	}, testLogger())

	_, refresh, err := svc.LoginWithGoogle(ctx, "valid-google-token")
	require.NoError(t, err)

	_, _, err = svc.RefreshAccessToken(ctx, refresh)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRevoked)
}

func TestRefreshTokenExpires(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newAuthFixture()

	_, refresh, err := svc.LoginWithGoogle(ctx, "valid-google-token")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(RefreshTokenTTL + time.Minute) }
	_, _, err = svc.RefreshAccessToken(ctx, refresh)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestParseAccessToken(t *testing.T) {
	_, _, svc := newAuthFixture()
	subject := uuid.New()

	sign := func(secret string, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	exp := time.Now().Add(time.Minute).Unix()

	id, err := svc.ParseAccessToken(sign("test-secret", jwt.MapClaims{"sub": subject.String(), "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, subject, id)

	tests := map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": sign("other", jwt.MapClaims{"sub": subject.String(), "exp": exp}),
		"expired":      sign("test-secret", jwt.MapClaims{"sub": subject.String(), "exp": time.Now().Add(-time.Minute).Unix()}),
		"bad subject":  sign("test-secret", jwt.MapClaims{"sub": "someone", "exp": exp}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseAccessToken(token)
			assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
		})
	}
}

func TestUserServiceGetByID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewUserService(store.Users())

	user := &domain.User{Email: "u@example.com", Name: "U"}
	require.NoError(t, store.Users().Create(ctx, user))

	got, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "u@example.com", got.Email)

	_, err = svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
