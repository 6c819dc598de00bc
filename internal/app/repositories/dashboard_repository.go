package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models/dto"
)

// DashboardRepository computes the headline counts of the dashboard.
type DashboardRepository struct {
	db *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository
func NewDashboardRepository(db *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Counts fills every school-wide count in one round trip.
func (r *DashboardRepository) Counts(ctx context.Context) (dto.DashboardStats, error) {
	var s dto.DashboardStats
	var activeYear *string
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM students WHERE status = 'active'),
			(SELECT COUNT(*) FROM teachers WHERE is_active),
			(SELECT COUNT(*) FROM student_groups WHERE is_active),
			(SELECT COUNT(*) FROM rooms WHERE status = 'available'),
			(SELECT COUNT(*) FROM guardians),
			(SELECT name FROM academic_years WHERE is_active LIMIT 1)`).
		Scan(&s.ActiveStudents, &s.ActiveTeachers, &s.ActiveGroups, &s.AvailableRooms, &s.Guardians, &activeYear)
	if err != nil {
		return s, fmt.Errorf("error counting dashboard stats: %w", err)
	}
	if activeYear != nil {
		s.ActiveYear = *activeYear
	}
	return s, nil
}
