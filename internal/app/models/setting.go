package models

import "time"

// Setting sections
const (
	SettingsGeneral       = "general"
	SettingsAcademic      = "academic"
	SettingsNotifications = "notifications"
	SettingsSecurity      = "security"
)

// Setting is one section of the school configuration.
type Setting struct {
	Section   string            `json:"section" db:"section"`
	Values    map[string]string `json:"values" db:"data"`
	UpdatedAt time.Time         `json:"updatedAt" db:"updated_at"`
}
