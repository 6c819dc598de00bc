package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/madrasa/internal/app/auth"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/repositories"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/email"
	"github.com/yigit/madrasa/internal/pkg/export"
	"github.com/yigit/madrasa/internal/pkg/filestorage"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// MessageStore is the persistence of messages.
type MessageStore interface {
	WithTx(ctx context.Context, fn db.TransactionFn) error
	Create(ctx context.Context, q db.Querier, m *models.Message) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	List(ctx context.Context, scope repositories.MessageScope, q listing.Query) ([]*models.Message, int64, error)
	ListAll(ctx context.Context, scope repositories.MessageScope, q listing.Query) ([]*models.Message, error)
	MarkRead(ctx context.Context, id int64, receiver models.Participant) (time.Time, bool, error)
	Ancestors(ctx context.Context, id int64) ([]*models.Message, error)
	Replies(ctx context.Context, id int64) ([]*models.Message, error)
	UnreadCount(ctx context.Context, p models.Participant) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// AttachmentStore records uploaded attachment metadata.
type AttachmentStore interface {
	Create(ctx context.Context, q db.Querier, file *models.File) (int64, error)
}

// MessageNotifier pushes message events to connected dashboards.
type MessageNotifier interface {
	MessageCreated(msg *models.Message)
	MessageRead(msg *models.Message)
}

// SettingsReader reads boolean school settings.
type SettingsReader interface {
	Bool(ctx context.Context, section, key string) bool
}

// Sender is the author of a message: the messaging identity plus the
// account that uploads attachments.
type Sender struct {
	Participant models.Participant
	AccountID   int64
}

// attachmentDir is the storage subdirectory for message attachments.
const attachmentDir = "messages"

// MessageService implements direct messaging and secretariat communications.
type MessageService interface {
	Send(ctx context.Context, from Sender, req dto.SendMessageRequest, attachment *multipart.FileHeader) (*models.Message, error)
	SendCommunication(ctx context.Context, from Sender, req dto.CommunicationRequest) (*dto.CommunicationResponse, error)

	Box(ctx context.Context, caller models.Participant, scope repositories.MessageScope, q listing.Query) (listing.Page[*models.Message], error)
	Open(ctx context.Context, caller models.Participant, id int64, box repositories.Box) (*models.Message, error)
	MarkRead(ctx context.Context, caller models.Participant, id int64) (*models.Message, error)
	Thread(ctx context.Context, caller models.Participant, id int64) (*dto.ThreadResponse, error)
	UnreadCount(ctx context.Context, caller models.Participant) (int64, error)
	Delete(ctx context.Context, caller models.Participant, id int64) error
	Attachment(ctx context.Context, caller models.Participant, id int64) (*models.File, string, error)
	Export(ctx context.Context, caller models.Participant, scope repositories.MessageScope, q listing.Query) (export.Table, error)
}

type messageServiceImpl struct {
	messages  MessageStore
	files     AttachmentStore
	directory ParticipantLookup
	storage   filestorage.FileStorage
	notifier  MessageNotifier
	mailer    email.EmailService
	settings  SettingsReader
	linkBase  string
	logger    zerolog.Logger
}

// MessageServiceDeps groups the collaborators of the message service.
type MessageServiceDeps struct {
	Messages  MessageStore
	Files     AttachmentStore
	Directory ParticipantLookup
	Storage   filestorage.FileStorage
	Notifier  MessageNotifier
	Mailer    email.EmailService
	Settings  SettingsReader
	// LinkBase is the dashboard URL that notification emails point to.
	LinkBase string
}

// NewMessageService creates a new MessageService
func NewMessageService(deps MessageServiceDeps, logger zerolog.Logger) MessageService {
	return &messageServiceImpl{
		messages:  deps.Messages,
		files:     deps.Files,
		directory: deps.Directory,
		storage:   deps.Storage,
		notifier:  deps.Notifier,
		mailer:    deps.Mailer,
		settings:  deps.Settings,
		linkBase:  strings.TrimRight(deps.LinkBase, "/"),
		logger:    logger,
	}
}

// draft is a message ready to be stored.
type draft struct {
	receiver models.Participant
	title    string
	content  string
	typ      string
	priority string
	parentID *int64
}

func newDraft(receiver models.Participant, title, content, typ, priority string) (*draft, error) {
	d := &draft{
		receiver: receiver,
		title:    strings.TrimSpace(title),
		content:  strings.TrimSpace(content),
		typ:      typ,
		priority: priority,
	}
	errs := fieldErrors{}
	if d.title == "" {
		errs.add("title", "is required")
	}
	if d.content == "" {
		errs.add("content", "is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	if d.typ == "" {
		d.typ = models.MessageGeneral
	}
	if d.priority == "" {
		d.priority = models.PriorityNormal
	}
	return d, nil
}

// Send composes one message from the caller.
func (s *messageServiceImpl) Send(ctx context.Context, from Sender, req dto.SendMessageRequest, attachment *multipart.FileHeader) (*models.Message, error) {
	d, err := newDraft(models.Participant{ID: req.ReceiverID, Role: req.ReceiverRole}, req.Title, req.Content, req.Type, req.Priority)
	if err != nil {
		return nil, err
	}

	if req.ParentMessageID != nil && *req.ParentMessageID > 0 {
		parent, err := s.messages.GetByID(ctx, *req.ParentMessageID)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				return nil, fieldErrors{"parentMessageId": "parent message does not exist"}.err()
			}
			return nil, err
		}
		if err := appauth.CanReply(from.Participant, parent); err != nil {
			return nil, err
		}
		d.parentID = &parent.ID
	}

	return s.deliver(ctx, from, d, attachment)
}

// deliver resolves both names, stores the message with its optional
// attachment in one transaction and notifies the receiver.
func (s *messageServiceImpl) deliver(ctx context.Context, from Sender, d *draft, attachment *multipart.FileHeader) (*models.Message, error) {
	if d.receiver == from.Participant {
		return nil, fieldErrors{"receiverId": "you cannot send a message to yourself"}.err()
	}
	receiver, err := s.directory.Lookup(ctx, d.receiver)
	if err != nil {
		return nil, err
	}
	senderName := from.Participant.Key()
	if sender, err := s.directory.Lookup(ctx, from.Participant); err == nil {
		senderName = sender.Name
	} else if !errors.Is(err, apperrors.ErrUnknownRecipient) {
		return nil, err
	}

	msg := &models.Message{
		SenderID:        from.Participant.ID,
		SenderRole:      from.Participant.Role,
		SenderName:      senderName,
		ReceiverID:      receiver.ID,
		ReceiverRole:    receiver.Role,
		ReceiverName:    receiver.Name,
		Title:           d.title,
		Content:         d.content,
		Type:            d.typ,
		Priority:        d.priority,
		ParentMessageID: d.parentID,
	}

	var stored *filestorage.StoredFile
	if attachment != nil {
		if s.storage == nil {
			return nil, fmt.Errorf("%w: attachments are not enabled", apperrors.ErrBadRequest)
		}
		stored, err = s.storage.Save(attachment, attachmentDir)
		if err != nil {
			if errors.Is(err, filestorage.ErrFileTooLarge) {
				return nil, fieldErrors{"attachment": err.Error()}.err()
			}
			return nil, fmt.Errorf("error storing attachment: %w", err)
		}
	}

	err = s.messages.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if stored != nil {
			file := &models.File{
				FileName: stored.Name,
				FilePath: stored.Path,
				FileURL:  stored.URL,
				FileSize: stored.Size,
				MimeType: stored.MimeType,
			}
			if from.AccountID > 0 {
				file.UploadedBy = &from.AccountID
			}
			fileID, err := s.files.Create(ctx, tx, file)
			if err != nil {
				return err
			}
			file.ID = fileID
			msg.AttachmentFileID = &fileID
			msg.Attachment = file
		}
		_, err := s.messages.Create(ctx, tx, msg)
		return err
	})
	if err != nil {
		if stored != nil {
			if delErr := s.storage.Delete(stored.Path); delErr != nil {
				s.logger.Warn().Err(delErr).Str("path", stored.Path).Msg("Could not remove orphaned attachment")
			}
		}
		return nil, err
	}

	s.logger.Info().Int64("messageID", msg.ID).
		Str("from", msg.Sender().Key()).Str("to", msg.Receiver().Key()).
		Bool("attachment", stored != nil).Msg("Message sent")

	if s.notifier != nil {
		s.notifier.MessageCreated(msg)
	}
	s.notifyByEmail(ctx, msg, receiver)
	return msg, nil
}

// notifyByEmail mails the receiver about high priority and urgent messages.
// The email names the sender and title only, never the content.
func (s *messageServiceImpl) notifyByEmail(ctx context.Context, msg *models.Message, receiver *models.DirectoryEntry) {
	if !msg.NeedsNotification() || s.mailer == nil || !s.mailer.Enabled() || receiver.Email == "" {
		return
	}
	if s.settings != nil {
		if !s.settings.Bool(ctx, models.SettingsNotifications, "emailEnabled") {
			return
		}
		if msg.Type == models.MessageUrgent && msg.Priority != models.PriorityHigh &&
			!s.settings.Bool(ctx, models.SettingsNotifications, "notifyOnUrgent") {
			return
		}
	}

	n := email.MessageNotification{
		ToEmail:    receiver.Email,
		ToName:     receiver.Name,
		SenderName: msg.SenderName,
		Title:      msg.Title,
		Priority:   msg.Priority,
		Type:       msg.Type,
		SentAt:     msg.SentAt,
	}
	if s.linkBase != "" {
		n.LinkURL = fmt.Sprintf("%s/messages/%d", s.linkBase, msg.ID)
	}
	go func() {
		if err := s.mailer.SendMessageNotification(n); err != nil {
			s.logger.Warn().Err(err).Int64("messageID", msg.ID).Msg("Could not send message notification")
		}
	}()
}

// SendCommunication sends the same message to every receiver and reports the
// outcome per receiver. One failed delivery does not stop the others.
func (s *messageServiceImpl) SendCommunication(ctx context.Context, from Sender, req dto.CommunicationRequest) (*dto.CommunicationResponse, error) {
	if !from.Participant.Role.IsStaff() {
		return nil, apperrors.NewForbiddenError("only the school office can send communications")
	}
	if _, err := newDraft(models.Participant{}, req.Title, req.Content, req.Type, req.Priority); err != nil {
		return nil, err
	}

	resp := &dto.CommunicationResponse{Results: make([]dto.DeliveryResult, 0, len(req.Receivers))}
	seen := make(map[models.Participant]bool, len(req.Receivers))
	for _, receiver := range req.Receivers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := dto.DeliveryResult{ReceiverID: receiver.ID, ReceiverRole: receiver.Role}
		if seen[receiver] {
			result.Status, result.Error = dto.DeliveryFailed, "receiver listed more than once"
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}
		seen[receiver] = true

		d, _ := newDraft(receiver, req.Title, req.Content, req.Type, req.Priority)
		msg, err := s.deliver(ctx, from, d, nil)
		if err != nil {
			result.Status, result.Error = dto.DeliveryFailed, deliveryErrorMessage(err)
			resp.Failed++
			if !isClientError(err) {
				s.logger.Error().Err(err).Str("to", receiver.Key()).Msg("Communication delivery failed")
			}
		} else {
			result.Status, result.MessageID = dto.DeliverySent, msg.ID
			resp.Sent++
		}
		resp.Results = append(resp.Results, result)
	}

	s.logger.Info().Int("sent", resp.Sent).Int("failed", resp.Failed).Msg("Communication sent")
	return resp, nil
}

func isClientError(err error) bool {
	return apperrors.Is(err, apperrors.ErrUnknownRecipient, apperrors.ErrValidationFailed, apperrors.ErrPermissionDenied)
}

// deliveryErrorMessage keeps internal details out of per-receiver results.
func deliveryErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnknownRecipient):
		return "receiver not found"
	case errors.Is(err, apperrors.ErrValidationFailed):
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			return custom.Message
		}
		return "invalid receiver"
	}
	return "delivery failed"
}

// Box lists the inbox or sent box of scope.Participant, or every message for
// the school office when scope.Box is BoxAll.
func (s *messageServiceImpl) Box(ctx context.Context, caller models.Participant, scope repositories.MessageScope, q listing.Query) (listing.Page[*models.Message], error) {
	if err := s.checkScope(caller, scope); err != nil {
		return listing.Page[*models.Message]{}, err
	}
	items, total, err := s.messages.List(ctx, scope, q)
	if err != nil {
		return listing.Page[*models.Message]{}, err
	}
	return listing.NewPage(items, total, q), nil
}

func (s *messageServiceImpl) checkScope(caller models.Participant, scope repositories.MessageScope) error {
	switch scope.Box {
	case repositories.BoxInbox, repositories.BoxSent:
		return appauth.CanListBox(caller, scope.Participant)
	case repositories.BoxAll:
		if caller.Role.IsStaff() {
			return nil
		}
		return apperrors.NewForbiddenError("only the school office can list all messages")
	}
	return fieldErrors{"box": fmt.Sprintf("unknown box %q", scope.Box)}.err()
}

// Open returns a message. Opening from the inbox by its receiver marks it read,
// once; every other open leaves the read state alone.
func (s *messageServiceImpl) Open(ctx context.Context, caller models.Participant, id int64, box repositories.Box) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := appauth.CanView(caller, msg); err != nil {
		return nil, err
	}
	if box == repositories.BoxInbox && msg.Receiver() == caller && !msg.IsRead {
		// reading still succeeds when the read flag cannot be stored
		if err := s.markRead(ctx, msg); err != nil {
			s.logger.Error().Err(err).Int64("messageID", msg.ID).Msg("Could not mark opened message read")
		}
	}
	return msg, nil
}

// MarkRead is the explicit inbox-open transition.
func (s *messageServiceImpl) MarkRead(ctx context.Context, caller models.Participant, id int64) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := appauth.CanMarkRead(caller, msg); err != nil {
		return nil, err
	}
	if !msg.IsRead {
		if err := s.markRead(ctx, msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// markRead applies the conditional update and pushes the event only when this
// call performed the transition. When a concurrent request won, msg takes the
// stored read time.
func (s *messageServiceImpl) markRead(ctx context.Context, msg *models.Message) error {
	readAt, changed, err := s.messages.MarkRead(ctx, msg.ID, msg.Receiver())
	if err != nil {
		return fmt.Errorf("error marking message read: %w", err)
	}
	if !changed {
		stored, err := s.messages.GetByID(ctx, msg.ID)
		if err != nil {
			return err
		}
		msg.IsRead, msg.ReadAt = stored.IsRead, stored.ReadAt
		return nil
	}
	msg.IsRead = true
	msg.ReadAt = &readAt
	if s.notifier != nil {
		s.notifier.MessageRead(msg)
	}
	return nil
}

// Thread returns the chain from the root to id and the direct replies.
func (s *messageServiceImpl) Thread(ctx context.Context, caller models.Participant, id int64) (*dto.ThreadResponse, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := appauth.CanView(caller, msg); err != nil {
		return nil, err
	}

	ancestors, err := s.messages.Ancestors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading thread: %w", err)
	}
	replies, err := s.messages.Replies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading replies: %w", err)
	}
	return &dto.ThreadResponse{
		Ancestors: visibleTo(caller, ancestors),
		Message:   msg,
		Replies:   visibleTo(caller, replies),
	}, nil
}

func visibleTo(caller models.Participant, messages []*models.Message) []*models.Message {
	out := make([]*models.Message, 0, len(messages))
	for _, m := range messages {
		if appauth.CanView(caller, m) == nil {
			out = append(out, m)
		}
	}
	return out
}

// UnreadCount counts the unread inbox of caller.
func (s *messageServiceImpl) UnreadCount(ctx context.Context, caller models.Participant) (int64, error) {
	return s.messages.UnreadCount(ctx, caller)
}

// Delete removes a message for its sender or an administrator. The attachment
// file is left for the reaper.
func (s *messageServiceImpl) Delete(ctx context.Context, caller models.Participant, id int64) error {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := appauth.CanDelete(caller, msg); err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("messageID", id).Str("by", caller.Key()).Msg("Message deleted")
	return nil
}

// Attachment returns the attachment metadata and its path on disk.
func (s *messageServiceImpl) Attachment(ctx context.Context, caller models.Participant, id int64) (*models.File, string, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := appauth.CanDownloadAttachment(caller, msg); err != nil {
		return nil, "", err
	}
	if msg.Attachment == nil || s.storage == nil {
		return nil, "", apperrors.ErrNoAttachment
	}
	path, err := s.storage.FullPath(msg.Attachment.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("error resolving attachment: %w", err)
	}
	return msg.Attachment, path, nil
}

// MessageExportHeaders are the columns of a message export.
var MessageExportHeaders = []string{
	"id", "sentAt", "sender", "senderRole", "receiver", "receiverRole",
	"title", "content", "type", "priority", "isRead",
}

// Export returns every matching message of scope as a table.
func (s *messageServiceImpl) Export(ctx context.Context, caller models.Participant, scope repositories.MessageScope, q listing.Query) (export.Table, error) {
	if err := s.checkScope(caller, scope); err != nil {
		return export.Table{}, err
	}
	messages, err := s.messages.ListAll(ctx, scope, q)
	if err != nil {
		return export.Table{}, err
	}
	if len(messages) >= repositories.MaxExportRows {
		s.logger.Warn().Int("rows", len(messages)).Msg("Message export truncated")
	}

	t := export.Table{
		Title:   "Messages",
		Headers: MessageExportHeaders,
		Rows:    make([][]interface{}, 0, len(messages)),
	}
	for _, m := range messages {
		t.Rows = append(t.Rows, []interface{}{
			m.ID, m.SentAt, m.SenderName, string(m.SenderRole), m.ReceiverName, string(m.ReceiverRole),
			m.Title, m.Content, m.Type, m.Priority, m.IsRead,
		})
	}
	return t, nil
}
