package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

type AuthConfig struct {
	JWTSecret      string
	GoogleClientID string
}

type AuthService struct {
	userRepo            ports.UserRepository
	authRepo            ports.AuthRepository
	googleTokenVerifier ports.TokenVerifier
	jwtSecret           []byte
	googleClientID      string
	log                 *logrus.Entry
	now                 func() time.Time
}

func NewAuthService(userRepo ports.UserRepository, authRepo ports.AuthRepository, googleTokenVerifier ports.TokenVerifier, cfg AuthConfig, log *logrus.Entry) *AuthService {
	log = log.WithField("module", "auth")
	if cfg.JWTSecret == "" {
		log.Warn("JWT secret not set")
	}

	return &AuthService{
		userRepo:            userRepo,
		authRepo:            authRepo,
		googleTokenVerifier: googleTokenVerifier,
		jwtSecret:           []byte(cfg.JWTSecret),
		googleClientID:      cfg.GoogleClientID,
		log:                 log,
		now:                 time.Now,
	}
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (string, string, error) {
	payload, err := s.googleTokenVerifier.Verify(ctx, googleToken, s.googleClientID)
	if err != nil {
		s.log.WithError(err).Info("rejected google token")
		return "", "", fmt.Errorf("%w: invalid google token: %w", domain.ErrAuthenticationRequired, err)
	}

	return s.login(ctx, payload.Email, payload.Name)
}

func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	tokenHash := s.hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	if rtEntity == nil {
		return "", "", fmt.Errorf("%w: refresh token not found", domain.ErrAuthenticationRequired)
	}
	if rtEntity.Revoked {
		return "", "", fmt.Errorf("%w: refresh token revoked", domain.ErrAuthenticationRequired)
	}
	if rtEntity.ExpiresAt.Before(s.now()) {
		return "", "", fmt.Errorf("%w: refresh token expired", domain.ErrAuthenticationRequired)
	}

	user, err := s.userRepo.GetByID(ctx, rtEntity.UserID)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	if user == nil {
		return "", "", domain.ErrUserNotFound
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	next, nextEntity, err := s.newRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}
	if err := s.authRepo.RotateRefreshToken(ctx, rtEntity.ID, nextEntity); err != nil {
		if errors.Is(err, domain.ErrRefreshTokenRevoked) {
			s.log.WithField("user_id", user.ID).Warn("refresh token reused")
			return "", "", fmt.Errorf("%w: %w", domain.ErrAuthenticationRequired, err)
		}
		return "", "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	return accessToken, next, nil
}

// newRefreshToken returns a fresh opaque token and the record storing its
// hash.
func (s *AuthService) newRefreshToken(userID uuid.UUID) (string, *domain.RefreshToken, error) {
	token, err := s.generateRefreshToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return token, &domain.RefreshToken{
		UserID:    userID,
		TokenHash: s.hashToken(token),
		ExpiresAt: s.now().Add(RefreshTokenTTL),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := s.hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}
	if rtEntity == nil {
		return nil
	}

	if err := s.authRepo.RevokeRefreshToken(ctx, rtEntity.ID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	s.log.WithField("user_id", rtEntity.UserID).Info("refresh token revoked")
	return nil
}

// ParseAccessToken validates an HS256 access token and returns its subject.
func (s *AuthService) ParseAccessToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %w", domain.ErrAuthenticationRequired, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", domain.ErrAuthenticationRequired)
	}
	return id, nil
}

func (s *AuthService) login(ctx context.Context, email, name string) (string, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	if user == nil {
		user = &domain.User{
			Email: email,
			Name:  name,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return "", "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
		}
		s.log.WithField("user_id", user.ID).Info("user created on first login")
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, rtEntity, err := s.newRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}
	if err := s.authRepo.StoreRefreshToken(ctx, rtEntity); err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	return accessToken, refreshToken, nil
}

func (s *AuthService) generateAccessToken(user *domain.User) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"exp":   now.Add(AccessTokenTTL).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (s *AuthService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
