package models

import "time"

// Room statuses
const (
	RoomAvailable = "available"
	RoomOccupied  = "occupied"
	RoomReserved  = "reserved"
)

// Room is a classroom.
type Room struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" binding:"required,max=100" example:"Lokaal 1"`
	Capacity  int       `json:"capacity" db:"capacity" binding:"required,gt=0" example:"24"`
	Location  string    `json:"location" db:"location" example:"Eerste verdieping"`
	Status    string    `json:"status" db:"status" binding:"omitempty,oneof=available occupied reserved" example:"available"`
	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
