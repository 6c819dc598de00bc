package models

import "time"

// AttendanceRecord is the status of one student in one lesson day.
type AttendanceRecord struct {
	ID        int64     `json:"id" db:"id"`
	StudentID int64     `json:"studentId" db:"student_id" binding:"required,gt=0"`
	GroupID   int64     `json:"groupId" db:"group_id" binding:"required,gt=0"`
	Date      Date      `json:"date" db:"date" swaggertype:"string" example:"2025-10-04"`
	Status    string    `json:"status" db:"status" binding:"required,oneof=present absent late excused" example:"present"`
	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Grade is one score on a 0..10 scale.
type Grade struct {
	ID             int64     `json:"id" db:"id"`
	StudentID      int64     `json:"studentId" db:"student_id" binding:"required,gt=0"`
	Subject        string    `json:"subject" db:"subject" binding:"required,max=100" example:"Arabisch"`
	Type           string    `json:"type" db:"type" binding:"required,oneof=test task homework" example:"test"`
	Score          float64   `json:"score" db:"score" binding:"gte=0,lte=10" example:"7.5"`
	Date           Date      `json:"date" db:"date" swaggertype:"string"`
	AcademicYearID *int64    `json:"academicYearId,omitempty" db:"academic_year_id"`
	Note           string    `json:"note" db:"note"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// BehaviorRecord is a noted positive, negative or neutral event.
type BehaviorRecord struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   int64     `json:"studentId" db:"student_id" binding:"required,gt=0"`
	Date        Date      `json:"date" db:"date" swaggertype:"string"`
	Category    string    `json:"category" db:"category" binding:"required,oneof=positive negative neutral" example:"positive"`
	Description string    `json:"description" db:"description" binding:"required"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
