package dto

import "github.com/yigit/madrasa/internal/app/models"

// SendMessageRequest composes a message from the caller. It binds from JSON or
// from a multipart form carrying an "attachment" file.
type SendMessageRequest struct {
	ReceiverID      int64       `json:"receiverId" form:"receiverId" binding:"required,gt=0" example:"12"`
	ReceiverRole    models.Role `json:"receiverRole" form:"receiverRole" binding:"required,oneof=admin secretariat teacher student guardian" example:"guardian"`
	Title           string      `json:"title" form:"title" binding:"required,max=255" example:"Ouderavond"`
	Content         string      `json:"content" form:"content" binding:"required" example:"Donderdag om 19:00 in de aula."`
	Type            string      `json:"type" form:"type" binding:"omitempty,oneof=general announcement reminder urgent" example:"general"`
	Priority        string      `json:"priority" form:"priority" binding:"omitempty,oneof=low normal high" example:"normal"`
	ParentMessageID *int64      `json:"parentMessageId,omitempty" form:"parentMessageId"`
}

// CommunicationRequest sends one communication to many receivers
type CommunicationRequest struct {
	Receivers []models.Participant `json:"receivers" binding:"required,min=1,max=1000"`
	Title     string               `json:"title" binding:"required,max=255"`
	Content   string               `json:"content" binding:"required"`
	Type      string               `json:"type" binding:"omitempty,oneof=general announcement reminder urgent"`
	Priority  string               `json:"priority" binding:"omitempty,oneof=low normal high"`
}

// Delivery statuses
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// DeliveryResult is the outcome for one receiver of a communication
type DeliveryResult struct {
	ReceiverID   int64       `json:"receiverId"`
	ReceiverRole models.Role `json:"receiverRole"`
	Status       string      `json:"status" example:"sent"`
	MessageID    int64       `json:"messageId,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// CommunicationResponse lists per receiver results
type CommunicationResponse struct {
	Results []DeliveryResult `json:"results"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
}

// ThreadResponse is the chain from the root to a message plus its direct replies
type ThreadResponse struct {
	Ancestors []*models.Message `json:"ancestors"`
	Message   *models.Message   `json:"message"`
	Replies   []*models.Message `json:"replies"`
}

// UnreadCountResponse is the poll fallback payload
type UnreadCountResponse struct {
	Unread int64 `json:"unread" example:"3"`
}
