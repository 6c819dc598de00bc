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

// SettingsRepository stores one JSONB document per settings section.
type SettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// All returns every stored section.
func (r *SettingsRepository) All(ctx context.Context) ([]*models.Setting, error) {
	rows, err := r.db.Query(ctx, `SELECT section, data, updated_at FROM settings ORDER BY section`)
	if err != nil {
		return nil, fmt.Errorf("error listing settings: %w", err)
	}
	defer rows.Close()

	settings := []*models.Setting{}
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Section, &s.Values, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning settings row: %w", err)
		}
		settings = append(settings, &s)
	}
	return settings, rows.Err()
}

// Get returns one section.
func (r *SettingsRepository) Get(ctx context.Context, section string) (*models.Setting, error) {
	var s models.Setting
	err := r.db.QueryRow(ctx, `SELECT section, data, updated_at FROM settings WHERE section = $1`, section).
		Scan(&s.Section, &s.Values, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, fmt.Errorf("error retrieving settings: %w", err)
	}
	return &s, nil
}

// Put replaces the values of a section, creating it when missing.
func (r *SettingsRepository) Put(ctx context.Context, section string, values map[string]string) (*models.Setting, error) {
	s := models.Setting{Section: section}
	err := r.db.QueryRow(ctx, `
		INSERT INTO settings (section, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (section) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
		RETURNING data, updated_at`,
		section, values).Scan(&s.Values, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error saving settings: %w", err)
	}
	return &s, nil
}
