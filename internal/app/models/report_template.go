package models

import "time"

// ReportTemplate is an ordered selection of report sections.
type ReportTemplate struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" binding:"required,max=150" example:"Rapport eerste periode"`
	Type        string    `json:"type" db:"type" binding:"required,oneof=report_card attendance group_overview" example:"report_card"`
	Description string    `json:"description" db:"description"`
	Sections    []string  `json:"sections" db:"sections" example:"student_info,attendance,grades"`
	IsDefault   bool      `json:"isDefault" db:"is_default"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
