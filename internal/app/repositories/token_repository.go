package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/dberrors"
	"github.com/yigit/madrasa/internal/pkg/logger"
)

// revokedTokenRetention is how long revoked tokens are kept for auditing.
const revokedTokenRetention = 30 * 24 * time.Hour

// TokenRepository handles refresh token database operations
type TokenRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateToken stores a new refresh token for accountID.
func (r *TokenRepository) CreateToken(ctx context.Context, token string, accountID int64, expiryDate time.Time) error {
	return r.createToken(ctx, r.db, token, accountID, expiryDate)
}

func (r *TokenRepository) createToken(ctx context.Context, q db.Querier, token string, accountID int64, expiryDate time.Time) error {
	sql, args, err := r.sb.Insert("refresh_tokens").
		Columns("token", "user_id", "expiry_date", "is_revoked").
		Values(token, accountID, expiryDate, false).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create token query: %w", err)
	}

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "refresh_tokens_token_key") {
			logger.Warn().Int64("accountID", accountID).Msg("Attempted to create duplicate refresh token")
			return apperrors.ErrTokenInvalid
		}
		logger.Error().Err(err).Int64("accountID", accountID).Msg("Error executing create token query")
		return fmt.Errorf("error creating token: %w", err)
	}
	return nil
}

// GetTokenOwner returns the account of a valid refresh token.
// Revoked and expired tokens are reported with their own sentinel errors.
func (r *TokenRepository) GetTokenOwner(ctx context.Context, token string) (int64, error) {
	return r.tokenOwner(ctx, r.db, token, "")
}

func (r *TokenRepository) tokenOwner(ctx context.Context, q db.Querier, token, suffix string) (int64, error) {
	b := r.sb.Select("user_id", "expiry_date", "is_revoked").
		From("refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		Limit(1)
	if suffix != "" {
		b = b.Suffix(suffix)
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build get token query: %w", err)
	}

	var accountID int64
	var expiryDate time.Time
	var isRevoked bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&accountID, &expiryDate, &isRevoked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrTokenNotFound
		}
		return 0, fmt.Errorf("error retrieving token: %w", err)
	}

	if isRevoked {
		return 0, apperrors.ErrTokenRevoked
	}
	if expiryDate.Before(time.Now()) {
		return 0, apperrors.ErrTokenExpired
	}
	return accountID, nil
}

// RotateToken revokes oldToken and stores newToken for the same account in one
// transaction. A token can be rotated only once.
func (r *TokenRepository) RotateToken(ctx context.Context, oldToken, newToken string, expiryDate time.Time) (int64, error) {
	var accountID int64
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		id, err := r.tokenOwner(ctx, tx, oldToken, "FOR UPDATE")
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET is_revoked = TRUE WHERE token = $1`, oldToken); err != nil {
			return fmt.Errorf("error revoking token: %w", err)
		}
		accountID = id
		return r.createToken(ctx, tx, newToken, id, expiryDate)
	})
	return accountID, err
}

// RevokeToken revokes a token
func (r *TokenRepository) RevokeToken(ctx context.Context, token string) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke token query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrTokenNotFound
	}
	return nil
}

// RevokeAllAccountTokens revokes every active token of an account. It is not
// an error when there are none.
func (r *TokenRepository) RevokeAllAccountTokens(ctx context.Context, accountID int64) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"user_id": accountID, "is_revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke account tokens query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("accountID", accountID).Msg("Error revoking account tokens")
		return fmt.Errorf("error revoking account tokens: %w", err)
	}
	return nil
}

// CleanupExpiredTokens removes expired tokens and old revoked ones.
func (r *TokenRepository) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Or{
			squirrel.Lt{"expiry_date": now},
			squirrel.And{
				squirrel.Eq{"is_revoked": true},
				squirrel.Lt{"created_at": now.Add(-revokedTokenRetention)},
			},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build cleanup tokens query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing cleanup tokens query")
		return 0, fmt.Errorf("error cleaning up tokens: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
