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
	"github.com/yigit/madrasa/internal/pkg/dberrors"
)

// EnrollmentRepository guards group capacity on every write that can add an
// active enrollment.
type EnrollmentRepository struct {
	*Table[models.Enrollment]
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{
		Table: NewTable(pool, EnrollmentSpec()),
		pool:  pool,
	}
}

// Create enrolls a student. The group row is locked for the capacity check,
// so concurrent enrollments into the same group are serialized.
func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND group_id = $2)`,
			e.StudentID, e.GroupID).Scan(&exists); err != nil {
			return fmt.Errorf("error checking enrollment: %w", err)
		}
		if exists {
			return apperrors.ErrAlreadyEnrolled
		}

		if isActiveEnrollment(e) {
			if err := checkCapacity(ctx, tx, e.GroupID, 0); err != nil {
				return err
			}
		}

		values := enrollmentValues(e)
		err := tx.QueryRow(ctx,
			`INSERT INTO enrollments (student_id, group_id, enrolled_at, status) VALUES ($1, $2, $3, $4) RETURNING id`,
			values["student_id"], values["group_id"], values["enrolled_at"], values["status"]).Scan(&id)
		if err != nil {
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrAlreadyEnrolled
			}
			return r.translate(err, "creating")
		}
		return nil
	})
	return id, err
}

// Update changes an enrollment. Re-activating checks capacity again.
func (r *EnrollmentRepository) Update(ctx context.Context, e *models.Enrollment) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if isActiveEnrollment(e) {
			if err := checkCapacity(ctx, tx, e.GroupID, e.ID); err != nil {
				return err
			}
		}

		values := enrollmentValues(e)
		tag, err := tx.Exec(ctx,
			`UPDATE enrollments SET student_id = $1, group_id = $2, enrolled_at = $3, status = $4, updated_at = NOW() WHERE id = $5`,
			values["student_id"], values["group_id"], values["enrolled_at"], values["status"], e.ID)
		if err != nil {
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrAlreadyEnrolled
			}
			return r.translate(err, "updating")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewResourceNotFoundError("enrollment not found")
		}
		return nil
	})
}

func isActiveEnrollment(e *models.Enrollment) bool {
	return e.Status == "" || e.Status == models.EnrollmentActive
}

// checkCapacity locks the group and fails with ErrGroupFull when it has no free
// place. The enrollment being updated, if any, is not counted.
func checkCapacity(ctx context.Context, tx pgx.Tx, groupID, excludeID int64) error {
	var capacity int
	err := tx.QueryRow(ctx, `SELECT capacity FROM student_groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewResourceNotFoundError("student group not found")
		}
		return fmt.Errorf("error locking student group: %w", err)
	}

	var active int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE group_id = $1 AND status = 'active' AND id <> $2`,
		groupID, excludeID).Scan(&active)
	if err != nil {
		return fmt.Errorf("error counting enrollments: %w", err)
	}

	if active >= capacity {
		return fmt.Errorf("%w (%d/%d)", apperrors.ErrGroupFull, active, capacity)
	}
	return nil
}
