package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
)

type memSettings struct {
	sections map[string]map[string]string
	loads    int
	fail     bool
}

func (m *memSettings) All(context.Context) ([]*models.Setting, error) {
	m.loads++
	if m.fail {
		return nil, errors.New("connection refused")
	}
	var out []*models.Setting
	for section, values := range m.sections {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		out = append(out, &models.Setting{Section: section, Values: copied})
	}
	return out, nil
}

func (m *memSettings) Put(_ context.Context, section string, values map[string]string) (*models.Setting, error) {
	if m.sections == nil {
		m.sections = map[string]map[string]string{}
	}
	m.sections[section] = values
	return &models.Setting{Section: section, Values: values, UpdatedAt: time.Now()}, nil
}

func TestSettings_DefaultsFillMissingKeys(t *testing.T) {
	store := &memSettings{sections: map[string]map[string]string{
		models.SettingsGeneral: {"schoolName": "Madrasa Al-Noor", "legacyKey": "dropped"},
	}}
	svc := NewSettingsService(store, newTestCache(), zerolog.Nop())
	ctx := context.Background()

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(SettingSections))
	assert.Equal(t, models.SettingsGeneral, all[0].Section)
	assert.Equal(t, "Madrasa Al-Noor", all[0].Values["schoolName"])
	assert.NotContains(t, all[0].Values, "legacyKey")

	academic, err := svc.Get(ctx, models.SettingsAcademic)
	require.NoError(t, err)
	assert.Equal(t, "80", academic.Values["attendanceThreshold"])

	assert.Equal(t, 8, svc.Int(ctx, models.SettingsSecurity, "minPasswordLength"))
	assert.True(t, svc.Bool(ctx, models.SettingsNotifications, "emailEnabled"))
	assert.Equal(t, "Madrasa Al-Noor", svc.String(ctx, models.SettingsGeneral, "schoolName"))
	assert.Equal(t, 1, store.loads, "reads after the first are served from cache")

	_, err = svc.Get(ctx, "billing")
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestSettings_Update(t *testing.T) {
	tests := []struct {
		name    string
		section string
		values  map[string]string
		field   string
	}{
		{"unknown key", models.SettingsGeneral, map[string]string{"theme": "dark"}, "theme"},
		{"bad email", models.SettingsGeneral, map[string]string{"contactEmail": "office"}, "contactEmail"},
		{"threshold out of range", models.SettingsAcademic, map[string]string{"attendanceThreshold": "0"}, "attendanceThreshold"},
		{"password length not a number", models.SettingsSecurity, map[string]string{"minPasswordLength": "twelve"}, "minPasswordLength"},
		{"lessons end before start", models.SettingsAcademic, map[string]string{"lessonStartTime": "12:00", "lessonEndTime": "09:30"}, "lessonEndTime"},
		{"not a boolean", models.SettingsNotifications, map[string]string{"dailyDigest": "yes"}, "dailyDigest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memSettings{}
			svc := NewSettingsService(store, newTestCache(), zerolog.Nop())

			_, err := svc.Update(context.Background(), tt.section, tt.values)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

			var custom *apperrors.CustomError
			require.True(t, errors.As(err, &custom))
			assert.Contains(t, custom.Details, tt.field)
			assert.Empty(t, store.sections, "nothing is saved")
		})
	}

	t.Run("unknown section", func(t *testing.T) {
		svc := NewSettingsService(&memSettings{}, newTestCache(), zerolog.Nop())
		_, err := svc.Update(context.Background(), "billing", map[string]string{"x": "y"})
		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	})
}

func TestSettings_UpdateInvalidatesCache(t *testing.T) {
	store := &memSettings{}
	svc := NewSettingsService(store, newTestCache(), zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, 8, svc.Int(ctx, models.SettingsSecurity, "minPasswordLength"))

	saved, err := svc.Update(ctx, models.SettingsSecurity, map[string]string{"minPasswordLength": " 12 "})
	require.NoError(t, err)
	assert.Equal(t, "12", saved.Values["minPasswordLength"])
	assert.Equal(t, "60", saved.Values["sessionTimeoutMinutes"], "defaults are merged into the response")

	assert.Equal(t, 12, svc.Int(ctx, models.SettingsSecurity, "minPasswordLength"))
	assert.Equal(t, 2, store.loads)
}

func TestSettings_StoreFailureFallsBackToDefaults(t *testing.T) {
	svc := NewSettingsService(&memSettings{fail: true}, newTestCache(), zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, 8, svc.Int(ctx, models.SettingsSecurity, "minPasswordLength"))
	assert.True(t, svc.Bool(ctx, models.SettingsNotifications, "notifyOnUrgent"))
}
