package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/dberrors"
	"github.com/yigit/madrasa/internal/pkg/logger"
)

// StudentRepository adds group membership and guardian links to the student table.
type StudentRepository struct {
	*Table[models.Student]
	pool      *pgxpool.Pool
	guardians TableSpec[models.Guardian]
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		Table:     NewTable(pool, StudentSpec()),
		pool:      pool,
		guardians: GuardianSpec(),
	}
}

func qualify(table string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = table + "." + c
	}
	return out
}

// ListByGroup returns the students actively enrolled in groupID, by name.
func (r *StudentRepository) ListByGroup(ctx context.Context, groupID int64) ([]*models.Student, error) {
	query, args, err := r.sb.Select(qualify("s", r.spec.Columns)...).
		From("students s").
		Join("enrollments e ON e.student_id = s.id").
		Where(squirrel.Eq{"e.group_id": groupID, "e.status": models.EnrollmentActive}).
		OrderBy("s.last_name", "s.first_name", "s.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build group students query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Int64("groupID", groupID).Msg("Error listing group students")
		return nil, fmt.Errorf("error listing group students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		s, err := r.spec.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Guardians returns the guardians linked to studentID.
func (r *StudentRepository) Guardians(ctx context.Context, studentID int64) ([]*models.Guardian, error) {
	query, args, err := r.sb.Select(qualify("g", r.guardians.Columns)...).
		From("guardians g").
		Join("student_guardians sg ON sg.guardian_id = g.id").
		Where(squirrel.Eq{"sg.student_id": studentID}).
		OrderBy("g.last_name", "g.first_name", "g.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student guardians query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing student guardians: %w", err)
	}
	defer rows.Close()

	guardians := []*models.Guardian{}
	for rows.Next() {
		g, err := r.guardians.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning guardian row: %w", err)
		}
		guardians = append(guardians, g)
	}
	return guardians, rows.Err()
}

// LinkGuardian links a guardian to a student.
func (r *StudentRepository) LinkGuardian(ctx context.Context, studentID, guardianID int64) error {
	query, args, err := r.sb.Insert("student_guardians").
		Columns("student_id", "guardian_id").
		Values(studentID, guardianID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build link guardian query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		switch {
		case dberrors.IsUniqueViolation(err):
			return fmt.Errorf("%w: guardian is already linked to this student", apperrors.ErrResourceAlreadyExists)
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.NewResourceNotFoundError("student or guardian not found")
		}
		return fmt.Errorf("error linking guardian: %w", err)
	}
	return nil
}

// UnlinkGuardian removes a student-guardian link.
func (r *StudentRepository) UnlinkGuardian(ctx context.Context, studentID, guardianID int64) error {
	query, args, err := r.sb.Delete("student_guardians").
		Where(squirrel.Eq{"student_id": studentID, "guardian_id": guardianID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build unlink guardian query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error unlinking guardian: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("guardian is not linked to this student")
	}
	return nil
}
