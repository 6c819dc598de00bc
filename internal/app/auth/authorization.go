// Package auth holds the access rules of the messaging module. The rules are
// pure functions of the caller and the message, so controllers and services
// apply the same checks.
package auth

import (
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
)

// CanListBox reports whether caller may list the inbox or sent box of owner.
// Participants see only their own boxes; the school office sees all of them.
func CanListBox(caller, owner models.Participant) error {
	if caller == owner || caller.Role.IsStaff() {
		return nil
	}
	return apperrors.NewForbiddenError("you can only view your own messages")
}

// CanView reports whether caller may open msg.
func CanView(caller models.Participant, msg *models.Message) error {
	if msg.IsParticipant(caller) || caller.Role.IsStaff() {
		return nil
	}
	return apperrors.NewForbiddenError("you are not a participant of this message")
}

// CanMarkRead reports whether caller is the receiver, the only one who moves
// a message to read.
func CanMarkRead(caller models.Participant, msg *models.Message) error {
	if msg.Receiver() == caller {
		return nil
	}
	return apperrors.NewForbiddenError("only the receiver can mark a message as read")
}

// CanReply reports whether caller may answer parent.
func CanReply(caller models.Participant, parent *models.Message) error {
	if parent.IsParticipant(caller) {
		return nil
	}
	return apperrors.NewForbiddenError("you can only reply to messages you sent or received")
}

// CanDelete allows the sender and administrators.
func CanDelete(caller models.Participant, msg *models.Message) error {
	if msg.Sender() == caller || caller.Role == models.RoleAdmin {
		return nil
	}
	return apperrors.NewForbiddenError("only the sender or an administrator can delete a message")
}

// CanDownloadAttachment allows the two participants only.
func CanDownloadAttachment(caller models.Participant, msg *models.Message) error {
	if msg.IsParticipant(caller) {
		return nil
	}
	return apperrors.NewForbiddenError("only participants can download the attachment")
}
