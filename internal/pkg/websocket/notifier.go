package websocket

import (
	"time"

	"github.com/yigit/madrasa/internal/app/models"
)

// Event types pushed to the dashboard
const (
	EventMessageCreated = "message.created"
	EventMessageRead    = "message.read"
)

// MessageNotifier turns message state changes into hub events.
type MessageNotifier struct {
	hub *Hub
}

// NewMessageNotifier creates a notifier on top of hub
func NewMessageNotifier(hub *Hub) *MessageNotifier {
	return &MessageNotifier{hub: hub}
}

// MessageCreated tells the receiver a new message arrived.
func (n *MessageNotifier) MessageCreated(msg *models.Message) {
	n.hub.SendTo(msg.Receiver().Key(), Event{
		Type:      EventMessageCreated,
		Data:      msg,
		Timestamp: msg.SentAt,
	})
}

// MessageRead tells the sender the receiver opened the message.
func (n *MessageNotifier) MessageRead(msg *models.Message) {
	readAt := time.Now()
	if msg.ReadAt != nil {
		readAt = *msg.ReadAt
	}
	n.hub.SendTo(msg.Sender().Key(), Event{
		Type: EventMessageRead,
		Data: map[string]interface{}{
			"id":     msg.ID,
			"readAt": readAt,
		},
		Timestamp: readAt,
	})
}
