package models

import "time"

// Message types
const (
	MessageGeneral      = "general"
	MessageAnnouncement = "announcement"
	MessageReminder     = "reminder"
	MessageUrgent       = "urgent"
)

// Message priorities
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Message is a direct message between two participants. Read state only
// moves from unread to read.
type Message struct {
	ID               int64      `json:"id" db:"id"`
	SenderID         int64      `json:"senderId" db:"sender_id"`
	SenderRole       Role       `json:"senderRole" db:"sender_role"`
	SenderName       string     `json:"senderName" db:"sender_name"`
	ReceiverID       int64      `json:"receiverId" db:"receiver_id"`
	ReceiverRole     Role       `json:"receiverRole" db:"receiver_role"`
	ReceiverName     string     `json:"receiverName" db:"receiver_name"`
	Title            string     `json:"title" db:"title"`
	Content          string     `json:"content" db:"content"`
	Type             string     `json:"type" db:"type"`
	Priority         string     `json:"priority" db:"priority"`
	SentAt           time.Time  `json:"sentAt" db:"sent_at"`
	IsRead           bool       `json:"isRead" db:"is_read"`
	ReadAt           *time.Time `json:"readAt,omitempty" db:"read_at"`
	ParentMessageID  *int64     `json:"parentMessageId,omitempty" db:"parent_message_id"`
	AttachmentFileID *int64     `json:"-" db:"attachment_file_id"`
	Attachment       *File      `json:"attachment,omitempty"`
}

// Sender is the sending participant.
func (m *Message) Sender() Participant {
	return Participant{ID: m.SenderID, Role: m.SenderRole}
}

// Receiver is the receiving participant.
func (m *Message) Receiver() Participant {
	return Participant{ID: m.ReceiverID, Role: m.ReceiverRole}
}

// IsParticipant reports whether p sent or received m.
func (m *Message) IsParticipant(p Participant) bool {
	return m.Sender() == p || m.Receiver() == p
}

// NeedsNotification reports whether m warrants an email in addition to the push.
func (m *Message) NeedsNotification() bool {
	return m.Priority == PriorityHigh || m.Type == MessageUrgent
}

// DirectoryEntry is a possible message recipient.
type DirectoryEntry struct {
	ID     int64  `json:"id"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Detail string `json:"detail,omitempty"`
}
