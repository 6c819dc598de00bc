package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/cache"
	"github.com/yigit/madrasa/internal/pkg/validation"
)

// SettingsStore is the persistence of settings sections.
type SettingsStore interface {
	All(ctx context.Context) ([]*models.Setting, error)
	Put(ctx context.Context, section string, values map[string]string) (*models.Setting, error)
}

// SettingsService reads and replaces the school configuration.
type SettingsService interface {
	All(ctx context.Context) ([]*models.Setting, error)
	Get(ctx context.Context, section string) (*models.Setting, error)
	Update(ctx context.Context, section string, values map[string]string) (*models.Setting, error)

	String(ctx context.Context, section, key string) string
	Int(ctx context.Context, section, key string) int
	Bool(ctx context.Context, section, key string) bool
}

// settingRule validates one key and supplies its default.
type settingRule struct {
	def   string
	check func(value string) bool
	hint  string
}

func anyText(max int) settingRule {
	return settingRule{
		check: func(v string) bool { return validation.NewStringValidation(v).WithRequired(false).WithMaxLength(max).Validate() },
		hint:  fmt.Sprintf("at most %d characters", max),
	}
}

func intRange(def string, min, max int) settingRule {
	return settingRule{
		def:   def,
		check: func(v string) bool { return validation.NewNumericValidation(v).WithRange(min, max).Validate() },
		hint:  fmt.Sprintf("a whole number from %d to %d", min, max),
	}
}

func boolean(def string) settingRule {
	return settingRule{def: def, check: validation.IsBool, hint: "true or false"}
}

func timeOfDay(def string) settingRule {
	return settingRule{
		def:   def,
		check: validation.CompiledPatterns.TimeOfDay.MatchString,
		hint:  "a time as HH:MM",
	}
}

var settingRules = map[string]map[string]settingRule{
	models.SettingsGeneral: {
		"schoolName": anyText(150),
		"contactEmail": {
			check: func(v string) bool { return v == "" || validation.IsEmail(v) },
			hint:  "a valid email address",
		},
		"phone": {
			check: func(v string) bool { return v == "" || validation.CompiledPatterns.Phone.MatchString(v) },
			hint:  "a valid phone number",
		},
		"address": anyText(255),
		"website": anyText(255),
	},
	models.SettingsAcademic: {
		"attendanceThreshold":  intRange("80", 1, 100),
		"defaultGroupCapacity": intRange("20", 1, 100),
		"lessonStartTime":      timeOfDay("09:00"),
		"lessonEndTime":        timeOfDay("13:00"),
	},
	models.SettingsNotifications: {
		"emailEnabled":   boolean("true"),
		"notifyOnUrgent": boolean("true"),
		"dailyDigest":    boolean("false"),
	},
	models.SettingsSecurity: {
		"minPasswordLength":      intRange("8", 8, 128),
		"sessionTimeoutMinutes":  intRange("60", 5, 1440),
		"requireStrongPasswords": boolean("true"),
	},
}

// SettingSections lists the known sections in display order.
var SettingSections = []string{
	models.SettingsGeneral,
	models.SettingsAcademic,
	models.SettingsNotifications,
	models.SettingsSecurity,
}

type settingsServiceImpl struct {
	store  SettingsStore
	cache  *cache.QueryCache
	logger zerolog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(store SettingsStore, queryCache *cache.QueryCache, logger zerolog.Logger) SettingsService {
	return &settingsServiceImpl{store: store, cache: queryCache, logger: logger}
}

// All returns every known section, completed with defaults for keys never saved.
func (s *settingsServiceImpl) All(ctx context.Context) ([]*models.Setting, error) {
	return cache.Remember(ctx, s.cache, ResSettings, "all", func(ctx context.Context) ([]*models.Setting, error) {
		stored, err := s.store.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("error loading settings: %w", err)
		}
		bySection := make(map[string]*models.Setting, len(stored))
		for _, setting := range stored {
			bySection[setting.Section] = setting
		}

		out := make([]*models.Setting, 0, len(SettingSections))
		for _, section := range SettingSections {
			setting := bySection[section]
			if setting == nil {
				setting = &models.Setting{Section: section}
			}
			setting.Values = withDefaults(section, setting.Values)
			out = append(out, setting)
		}
		return out, nil
	})
}

// Get returns one section.
func (s *settingsServiceImpl) Get(ctx context.Context, section string) (*models.Setting, error) {
	if _, ok := settingRules[section]; !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("settings section %q not found", section))
	}
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, setting := range all {
		if setting.Section == section {
			return setting, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("settings section %q not found", section))
}

// Update replaces a section after checking every key and value.
func (s *settingsServiceImpl) Update(ctx context.Context, section string, values map[string]string) (*models.Setting, error) {
	rules, ok := settingRules[section]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("settings section %q not found", section))
	}

	errs := fieldErrors{}
	clean := make(map[string]string, len(values))
	for key, value := range values {
		rule, known := rules[key]
		if !known {
			errs.add(key, fmt.Sprintf("unknown setting, allowed: %s", strings.Join(ruleKeys(rules), ", ")))
			continue
		}
		value = strings.TrimSpace(value)
		if !rule.check(value) {
			errs.add(key, "must be "+rule.hint)
			continue
		}
		clean[key] = value
	}
	if section == models.SettingsAcademic {
		start, end := clean["lessonStartTime"], clean["lessonEndTime"]
		if start != "" && end != "" && end <= start {
			errs.add("lessonEndTime", "must be after lessonStartTime")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	saved, err := s.store.Put(ctx, section, clean)
	if err != nil {
		return nil, fmt.Errorf("error saving settings: %w", err)
	}
	s.cache.Invalidate(ctx, ResSettings)
	s.logger.Info().Str("section", section).Int("keys", len(clean)).Msg("Settings updated")

	saved.Values = withDefaults(section, saved.Values)
	return saved, nil
}

func (s *settingsServiceImpl) value(ctx context.Context, section, key string) string {
	setting, err := s.Get(ctx, section)
	if err != nil {
		s.logger.Warn().Err(err).Str("section", section).Msg("Falling back to default setting")
		return settingRules[section][key].def
	}
	return setting.Values[key]
}

// String returns a setting or its default.
func (s *settingsServiceImpl) String(ctx context.Context, section, key string) string {
	return s.value(ctx, section, key)
}

// Int returns a numeric setting, or its default when unset or malformed.
func (s *settingsServiceImpl) Int(ctx context.Context, section, key string) int {
	if n, err := strconv.Atoi(s.value(ctx, section, key)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(settingRules[section][key].def)
	return n
}

// Bool returns a boolean setting.
func (s *settingsServiceImpl) Bool(ctx context.Context, section, key string) bool {
	return s.value(ctx, section, key) == "true"
}

func withDefaults(section string, values map[string]string) map[string]string {
	out := make(map[string]string, len(settingRules[section]))
	for key, rule := range settingRules[section] {
		out[key] = rule.def
	}
	for key, value := range values {
		if _, known := settingRules[section][key]; known {
			out[key] = value
		}
	}
	return out
}

func ruleKeys(rules map[string]settingRule) []string {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
