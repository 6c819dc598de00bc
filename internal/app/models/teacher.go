package models

import "time"

// Teacher is a member of the teaching staff.
type Teacher struct {
	ID             int64     `json:"id" db:"id"`
	FirstName      string    `json:"firstName" db:"first_name" binding:"required,max=100" example:"Ahmed"`
	LastName       string    `json:"lastName" db:"last_name" binding:"required,max=100" example:"Bakker"`
	Email          string    `json:"email" db:"email" binding:"required,email" example:"a.bakker@madrasa.nl"`
	Phone          string    `json:"phone" db:"phone" binding:"omitempty,phone"`
	Specialization string    `json:"specialization" db:"specialization" example:"Arabisch"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name.
func (t *Teacher) FullName() string {
	return joinName(t.FirstName, t.LastName)
}
