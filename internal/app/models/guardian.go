package models

import "time"

// Guardian relationships
const (
	RelationshipParent   = "parent"
	RelationshipGuardian = "guardian"
	RelationshipOther    = "other"
)

// Guardian is a parent or other caretaker of one or more students.
type Guardian struct {
	ID                       int64     `json:"id" db:"id"`
	FirstName                string    `json:"firstName" db:"first_name" binding:"required,max=100" example:"Fatima"`
	LastName                 string    `json:"lastName" db:"last_name" binding:"required,max=100" example:"de Vries"`
	Relationship             string    `json:"relationship" db:"relationship" binding:"required,oneof=parent guardian other" example:"parent"`
	Email                    string    `json:"email" db:"email" binding:"omitempty,email"`
	Phone                    string    `json:"phone" db:"phone" binding:"omitempty,phone"`
	Address                  string    `json:"address" db:"address"`
	IsEmergencyContact       bool      `json:"isEmergencyContact" db:"is_emergency_contact"`
	EmergencyContactName     string    `json:"emergencyContactName" db:"emergency_contact_name"`
	EmergencyContactPhone    string    `json:"emergencyContactPhone" db:"emergency_contact_phone" binding:"omitempty,phone"`
	EmergencyContactRelation string    `json:"emergencyContactRelation" db:"emergency_contact_relation"`
	Notes                    string    `json:"notes" db:"notes"`
	CreatedAt                time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt                time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name.
func (g *Guardian) FullName() string {
	return joinName(g.FirstName, g.LastName)
}
