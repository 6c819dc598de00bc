package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
)

// StudentGroupRepository keeps a group's capacity at or above its active
// enrollments.
type StudentGroupRepository struct {
	*Table[models.StudentGroup]
	pool *pgxpool.Pool
}

// NewStudentGroupRepository creates a new StudentGroupRepository
func NewStudentGroupRepository(pool *pgxpool.Pool) *StudentGroupRepository {
	return &StudentGroupRepository{
		Table: NewTable(pool, StudentGroupSpec()),
		pool:  pool,
	}
}

// Update locks the group row, the same lock enrollments take for their
// capacity check, and rejects a capacity below the active enrollments.
func (r *StudentGroupRepository) Update(ctx context.Context, g *models.StudentGroup) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx, `SELECT id FROM student_groups WHERE id = $1 FOR UPDATE`, g.ID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewResourceNotFoundError("student group not found")
			}
			return fmt.Errorf("error locking student group: %w", err)
		}

		var active int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM enrollments WHERE group_id = $1 AND status = 'active'`, g.ID).Scan(&active); err != nil {
			return fmt.Errorf("error counting enrollments: %w", err)
		}
		if err := CapacityCovers(g.Capacity, active); err != nil {
			return err
		}

		return r.update(ctx, tx, g)
	})
}

// CapacityCovers fails with a capacity validation error when capacity is
// below the number of active enrollments.
func CapacityCovers(capacity, active int) error {
	if capacity >= active {
		return nil
	}
	msg := fmt.Sprintf("must be at least %d, the number of active enrollments", active)
	return apperrors.NewValidationError("capacity: "+msg, map[string]interface{}{"capacity": msg})
}
