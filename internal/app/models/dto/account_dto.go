package dto

import "github.com/yigit/madrasa/internal/app/models"

// CreateAccountRequest creates one user account. When Password is empty a
// temporary password is generated and returned once.
type CreateAccountRequest struct {
	Email    string      `json:"email" binding:"required,email" example:"ouder@example.nl"`
	Role     models.Role `json:"role" binding:"required,oneof=admin secretariat teacher student guardian" example:"guardian"`
	PersonID *int64      `json:"personId,omitempty" example:"12"`
	Password string      `json:"password,omitempty"`
}

// UpdateAccountRequest replaces the editable account fields
type UpdateAccountRequest struct {
	Email    string      `json:"email" binding:"required,email"`
	Role     models.Role `json:"role" binding:"required,oneof=admin secretariat teacher student guardian"`
	PersonID *int64      `json:"personId,omitempty"`
	IsActive bool        `json:"isActive"`
}

// AccountStatusRequest enables or disables an account
type AccountStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// AccountCreatedResponse carries the generated password exactly once
type AccountCreatedResponse struct {
	Account         *models.UserAccount `json:"account"`
	InitialPassword string              `json:"initialPassword,omitempty"`
}

// BulkCreateAccountsRequest creates accounts for existing persons of one role
type BulkCreateAccountsRequest struct {
	Role      models.Role `json:"role" binding:"required,oneof=teacher student guardian" example:"student"`
	PersonIDs []int64     `json:"personIds" binding:"required,min=1,max=500,dive,gt=0"`
}

// Bulk item statuses
const (
	BulkCreated = "created"
	BulkSkipped = "skipped"
	BulkFailed  = "failed"
)

// BulkItemResult is the outcome for one person
type BulkItemResult struct {
	PersonID        int64  `json:"personId"`
	Status          string `json:"status" example:"created"`
	AccountID       int64  `json:"accountId,omitempty"`
	Email           string `json:"email,omitempty"`
	InitialPassword string `json:"initialPassword,omitempty"`
	Error           string `json:"error,omitempty"`
}

// BulkCreateAccountsResponse lists every item plus totals
type BulkCreateAccountsResponse struct {
	Items   []BulkItemResult `json:"items"`
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
}

// Add records one item and updates the totals.
func (r *BulkCreateAccountsResponse) Add(item BulkItemResult) {
	r.Items = append(r.Items, item)
	switch item.Status {
	case BulkCreated:
		r.Created++
	case BulkSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}
