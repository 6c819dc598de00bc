package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/pkg/report"
)

// Period bounds report data. Nil ends are open.
type Period struct {
	From *time.Time
	To   *time.Time
}

func (p Period) apply(sb squirrel.SelectBuilder, column string) squirrel.SelectBuilder {
	if p.From != nil {
		sb = sb.Where(squirrel.GtOrEq{column: *p.From})
	}
	if p.To != nil {
		sb = sb.Where(squirrel.LtOrEq{column: *p.To})
	}
	return sb
}

// ReportRepository reads the raw records that reports aggregate.
type ReportRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// StudentAttendance returns the attendance of one student, oldest first.
func (r *ReportRepository) StudentAttendance(ctx context.Context, studentID int64, period Period) ([]report.AttendanceEntry, error) {
	sb := r.sb.Select("date", "status", "note").
		From("attendance_records").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("date", "id")
	query, args, err := period.apply(sb, "date").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build attendance query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error reading attendance: %w", err)
	}
	defer rows.Close()

	entries := []report.AttendanceEntry{}
	for rows.Next() {
		var e report.AttendanceEntry
		if err := rows.Scan(&e.Date, &e.Status, &e.Note); err != nil {
			return nil, fmt.Errorf("error scanning attendance row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GroupAttendance returns the attendance in one group keyed by student.
func (r *ReportRepository) GroupAttendance(ctx context.Context, groupID int64, period Period) (map[int64][]report.AttendanceEntry, error) {
	sb := r.sb.Select("student_id", "date", "status", "note").
		From("attendance_records").
		Where(squirrel.Eq{"group_id": groupID}).
		OrderBy("student_id", "date")
	query, args, err := period.apply(sb, "date").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build group attendance query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error reading group attendance: %w", err)
	}
	defer rows.Close()

	byStudent := make(map[int64][]report.AttendanceEntry)
	for rows.Next() {
		var studentID int64
		var e report.AttendanceEntry
		if err := rows.Scan(&studentID, &e.Date, &e.Status, &e.Note); err != nil {
			return nil, fmt.Errorf("error scanning attendance row: %w", err)
		}
		byStudent[studentID] = append(byStudent[studentID], e)
	}
	return byStudent, rows.Err()
}

// Grades returns the grades of a student, optionally limited to one academic year.
func (r *ReportRepository) Grades(ctx context.Context, studentID int64, academicYearID *int64) ([]report.GradeEntry, error) {
	sb := r.sb.Select("subject", "type", "score").
		From("grades").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("subject", "date", "id")
	if academicYearID != nil {
		sb = sb.Where(squirrel.Eq{"academic_year_id": *academicYearID})
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build grades query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error reading grades: %w", err)
	}
	defer rows.Close()

	grades := []report.GradeEntry{}
	for rows.Next() {
		var g report.GradeEntry
		if err := rows.Scan(&g.Subject, &g.Kind, &g.Score); err != nil {
			return nil, fmt.Errorf("error scanning grade row: %w", err)
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// Behavior returns the behaviour records of a student.
func (r *ReportRepository) Behavior(ctx context.Context, studentID int64, period Period) ([]report.BehaviorEntry, error) {
	sb := r.sb.Select("date", "category", "description").
		From("behavior_records").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("date", "id")
	query, args, err := period.apply(sb, "date").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build behavior query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error reading behavior records: %w", err)
	}
	defer rows.Close()

	entries := []report.BehaviorEntry{}
	for rows.Next() {
		var b report.BehaviorEntry
		if err := rows.Scan(&b.Date, &b.Category, &b.Description); err != nil {
			return nil, fmt.Errorf("error scanning behavior row: %w", err)
		}
		entries = append(entries, b)
	}
	return entries, rows.Err()
}

// CurrentGroup returns the name of the newest active group of a student, or "".
func (r *ReportRepository) CurrentGroup(ctx context.Context, studentID int64) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `
		SELECT g.name FROM enrollments e JOIN student_groups g ON g.id = e.group_id
		WHERE e.student_id = $1 AND e.status = 'active'
		ORDER BY e.enrolled_at DESC, e.id DESC LIMIT 1`, studentID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading current group: %w", err)
	}
	return name, nil
}
