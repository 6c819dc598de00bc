package models

import (
	"strings"
	"time"
)

// Student statuses
const (
	StudentActive    = "active"
	StudentInactive  = "inactive"
	StudentGraduated = "graduated"
)

// Student is an enrolled pupil.
type Student struct {
	ID            int64     `json:"id" db:"id"`
	StudentNumber string    `json:"studentNumber" db:"student_number" binding:"required,max=50" example:"S-0042"`
	FirstName     string    `json:"firstName" db:"first_name" binding:"required,max=100" example:"Yusuf"`
	LastName      string    `json:"lastName" db:"last_name" binding:"required,max=100" example:"El Amrani"`
	DateOfBirth   *Date     `json:"dateOfBirth,omitempty" db:"date_of_birth" swaggertype:"string" example:"2014-03-02"`
	Gender        string    `json:"gender" db:"gender" binding:"omitempty,oneof=male female" example:"male"`
	Email         string    `json:"email" db:"email" binding:"omitempty,email"`
	Phone         string    `json:"phone" db:"phone" binding:"omitempty,phone"`
	Address       string    `json:"address" db:"address"`
	Status        string    `json:"status" db:"status" binding:"omitempty,oneof=active inactive graduated" example:"active"`
	Notes         string    `json:"notes" db:"notes"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name.
func (s *Student) FullName() string {
	return joinName(s.FirstName, s.LastName)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
