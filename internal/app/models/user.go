package models

import "time"

// UserAccount is a login for one of the five roles. Non-staff accounts point
// at their person record through PersonID.
type UserAccount struct {
	ID           int64      `json:"id" db:"id" example:"1"`
	Email        string     `json:"email" db:"email" example:"secretariaat@madrasa.nl"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role" example:"secretariat"`
	IsActive     bool       `json:"isActive" db:"is_active" example:"true"`
	PersonID     *int64     `json:"personId,omitempty" db:"person_id" example:"12"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Participant is the identity this account uses in messaging.
func (u *UserAccount) Participant() Participant {
	if !u.Role.IsStaff() && u.PersonID != nil {
		return Participant{ID: *u.PersonID, Role: u.Role}
	}
	return Participant{ID: u.ID, Role: u.Role}
}
