package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/logger"
)

// AcademicYearRepository adds the single-active switch to the generic table.
type AcademicYearRepository struct {
	*Table[models.AcademicYear]
	pool *pgxpool.Pool
}

// NewAcademicYearRepository creates a new AcademicYearRepository
func NewAcademicYearRepository(pool *pgxpool.Pool) *AcademicYearRepository {
	return &AcademicYearRepository{
		Table: NewTable(pool, AcademicYearSpec()),
		pool:  pool,
	}
}

// GetActive returns the active academic year.
func (r *AcademicYearRepository) GetActive(ctx context.Context) (*models.AcademicYear, error) {
	year, err := r.getWhere(ctx, r.pool, squirrel.Eq{"is_active": true}, "")
	if apperrors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, apperrors.NewResourceNotFoundError("no academic year is active")
	}
	return year, err
}

// Activate makes id the only active year. Both updates run in one transaction,
// deactivation first so the partial unique index never sees two active rows.
func (r *AcademicYearRepository) Activate(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE academic_years SET is_active = FALSE, updated_at = NOW() WHERE is_active AND id <> $1`, id); err != nil {
			logger.Error().Err(err).Int64("academicYearID", id).Msg("Error deactivating academic years")
			return fmt.Errorf("error deactivating academic years: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE academic_years SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("error activating academic year: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewResourceNotFoundError("academic year not found")
		}
		return nil
	})
}
