package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type AuthRepository interface {
	StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error
	// RotateRefreshToken revokes oldID and stores next atomically. It fails
	// with domain.ErrRefreshTokenRevoked when oldID was already revoked.
	RotateRefreshToken(ctx context.Context, oldID uuid.UUID, next *domain.RefreshToken) error
}

type TokenPayload struct {
	Email string
	Name  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

type AuthService interface {
	LoginWithGoogle(ctx context.Context, googleToken string) (string, string, error)     // returns access_token, refresh_token, error
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) // returns new access_token, refresh_token
	Logout(ctx context.Context, refreshToken string) error
	// ParseAccessToken resolves an access token into the acting user's id.
	ParseAccessToken(token string) (uuid.UUID, error)
}
