package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

const (
	insertRefreshToken = `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, revoked, created_at
	`
	revokeRefreshToken = `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND NOT revoked`
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type authRepository struct {
	db *sql.DB
}

func NewAuthRepository(db *sql.DB) ports.AuthRepository {
	return &authRepository{db: db}
}

func (r *authRepository) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	return insertToken(ctx, r.db, token)
}

func insertToken(ctx context.Context, q queryer, token *domain.RefreshToken) error {
	return q.QueryRowContext(ctx, insertRefreshToken, token.UserID, token.TokenHash, token.ExpiresAt).
		Scan(&token.ID, &token.Revoked, &token.CreatedAt)
}

// GetRefreshTokenByHash returns nil, nil for an unknown hash.
func (r *authRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	token := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Revoked, &token.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (r *authRepository) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, revokeRefreshToken, id)
	return err
}

// RotateRefreshToken revokes oldID and inserts next in one transaction. The
// conditional revoke makes a second rotation of the same token fail, so a
// replayed refresh token cannot mint a second successor.
func (r *authRepository) RotateRefreshToken(ctx context.Context, oldID uuid.UUID, next *domain.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, revokeRefreshToken, oldID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token %s: %w", oldID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrRefreshTokenRevoked
	}

	if err := insertToken(ctx, tx, next); err != nil {
		return fmt.Errorf("failed to store rotated refresh token: %w", err)
	}
	return tx.Commit()
}
