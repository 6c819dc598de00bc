package models

import "time"

// StudentGroup is a class within an academic year.
type StudentGroup struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name" binding:"required,max=100" example:"Groep 3A"`
	AcademicYearID int64     `json:"academicYearId" db:"academic_year_id" binding:"required,gt=0"`
	Program        string    `json:"program" db:"program" example:"Koran"`
	InstructorID   *int64    `json:"instructorId,omitempty" db:"instructor_id"`
	Capacity       int       `json:"capacity" db:"capacity" binding:"required,gt=0" example:"20"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	StartDate      *Date     `json:"startDate,omitempty" db:"start_date" swaggertype:"string"`
	EndDate        *Date     `json:"endDate,omitempty" db:"end_date" swaggertype:"string"`
	Description    string    `json:"description" db:"description"`
	EnrolledCount  int       `json:"enrolledCount" db:"enrolled_count"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Enrollment statuses
const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentWithdrawn = "withdrawn"
)

// Enrollment places a student in a group.
type Enrollment struct {
	ID         int64     `json:"id" db:"id"`
	StudentID  int64     `json:"studentId" db:"student_id" binding:"required,gt=0"`
	GroupID    int64     `json:"groupId" db:"group_id" binding:"required,gt=0"`
	EnrolledAt Date      `json:"enrolledAt" db:"enrolled_at" swaggertype:"string"`
	Status     string    `json:"status" db:"status" binding:"omitempty,oneof=active completed withdrawn" example:"active"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
