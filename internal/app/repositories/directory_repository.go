package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
)

// Each branch yields (id, role, name, email, detail). Staff are reachable by
// their account, everyone else by their person record.
const (
	directoryStaff = `
		SELECT id, role, email, email, 'staff' FROM user_accounts
		WHERE role IN ('admin', 'secretariat') AND is_active`
	directoryTeachers = `
		SELECT id, 'teacher', TRIM(first_name || ' ' || last_name), email, specialization FROM teachers
		WHERE is_active`
	directoryStudents = `
		SELECT id, 'student', TRIM(first_name || ' ' || last_name), email, student_number FROM students
		WHERE status = 'active'`
	directoryGuardians = `
		SELECT id, 'guardian', TRIM(first_name || ' ' || last_name), email, relationship FROM guardians`
)

// DirectoryRepository resolves messaging participants.
type DirectoryRepository struct {
	db *pgxpool.Pool
}

// NewDirectoryRepository creates a new DirectoryRepository
func NewDirectoryRepository(db *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// Entries returns every reachable participant ordered by role and name.
func (r *DirectoryRepository) Entries(ctx context.Context) ([]models.DirectoryEntry, error) {
	query := directoryStaff + " UNION ALL " + directoryTeachers + " UNION ALL " + directoryStudents +
		" UNION ALL " + directoryGuardians + " ORDER BY 2, 3, 1"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing directory: %w", err)
	}
	defer rows.Close()

	entries := []models.DirectoryEntry{}
	for rows.Next() {
		e, err := scanDirectoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Lookup returns the directory entry of p, or ErrUnknownRecipient.
func (r *DirectoryRepository) Lookup(ctx context.Context, p models.Participant) (*models.DirectoryEntry, error) {
	var query string
	switch p.Role {
	case models.RoleAdmin, models.RoleSecretariat:
		query = directoryStaff + " AND id = $1 AND role = $2"
	case models.RoleTeacher:
		query = directoryTeachers + " AND id = $1 AND $2 = 'teacher'"
	case models.RoleStudent:
		query = directoryStudents + " AND id = $1 AND $2 = 'student'"
	case models.RoleGuardian:
		query = directoryGuardians + " WHERE id = $1 AND $2 = 'guardian'"
	default:
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrUnknownRecipient, p.Role)
	}

	e, err := scanDirectoryEntry(r.db.QueryRow(ctx, query, p.ID, string(p.Role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownRecipient, p)
		}
		return nil, err
	}
	return e, nil
}

func scanDirectoryEntry(row pgx.Row) (*models.DirectoryEntry, error) {
	var e models.DirectoryEntry
	var role string
	if err := row.Scan(&e.ID, &role, &e.Name, &e.Email, &e.Detail); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning directory entry: %w", err)
	}
	e.Role = models.Role(role)
	return &e, nil
}
