package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/dberrors"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/logger"
)

// MaxExportRows bounds a single message export.
const MaxExportRows = 10000

// Box selects which side of a message a listing is about.
type Box string

const (
	BoxInbox Box = "inbox"
	BoxSent  Box = "sent"
	// BoxAll lists every message regardless of participant.
	BoxAll Box = "all"
)

// MessageScope restricts a listing to one participant's box.
type MessageScope struct {
	Box         Box
	Participant models.Participant
}

// MessageSchema is what message lists can be searched, filtered and sorted by.
var MessageSchema = listing.Schema{
	SearchFields: []string{"m.title", "m.content", "m.sender_name", "m.receiver_name"},
	Filters: map[string]listing.FilterField{
		"isRead":       {Column: "m.is_read", Kind: listing.KindBool},
		"type":         {Column: "m.type"},
		"priority":     {Column: "m.priority"},
		"senderRole":   {Column: "m.sender_role"},
		"receiverRole": {Column: "m.receiver_role"},
	},
	Sorts: map[string]string{
		"sentAt":   "m.sent_at",
		"title":    "m.title",
		"priority": "m.priority",
	},
	DefaultSort: "m.sent_at",
	DefaultDesc: true,
}

var messageColumns = []string{
	"m.id", "m.sender_id", "m.sender_role", "m.sender_name", "m.receiver_id", "m.receiver_role", "m.receiver_name",
	"m.title", "m.content", "m.type", "m.priority", "m.sent_at", "m.is_read", "m.read_at", "m.parent_message_id",
	"m.attachment_file_id", "f.file_name", "f.file_path", "f.file_url", "f.file_size", "f.mime_type", "f.uploaded_by", "f.created_at",
}

const messageFrom = "messages m LEFT JOIN files f ON f.id = m.attachment_file_id"

// MessageRepository handles message database operations
type MessageRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	var senderRole, receiverRole string
	var fileName, filePath, fileURL, mimeType *string
	var fileSize *int64
	var uploadedBy *int64
	var fileCreated *time.Time

	err := row.Scan(&m.ID, &m.SenderID, &senderRole, &m.SenderName, &m.ReceiverID, &receiverRole, &m.ReceiverName,
		&m.Title, &m.Content, &m.Type, &m.Priority, &m.SentAt, &m.IsRead, &m.ReadAt, &m.ParentMessageID,
		&m.AttachmentFileID, &fileName, &filePath, &fileURL, &fileSize, &mimeType, &uploadedBy, &fileCreated)
	if err != nil {
		return nil, err
	}
	m.SenderRole, m.ReceiverRole = models.Role(senderRole), models.Role(receiverRole)

	if m.AttachmentFileID != nil && fileName != nil {
		m.Attachment = &models.File{
			ID:         *m.AttachmentFileID,
			FileName:   *fileName,
			FilePath:   deref(filePath),
			FileURL:    deref(fileURL),
			FileSize:   derefInt(fileSize),
			MimeType:   deref(mimeType),
			UploadedBy: uploadedBy,
		}
		if fileCreated != nil {
			m.Attachment.CreatedAt = *fileCreated
		}
	}
	return &m, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func scopeWhere(scope MessageScope) squirrel.Sqlizer {
	switch scope.Box {
	case BoxInbox:
		return squirrel.Eq{"m.receiver_id": scope.Participant.ID, "m.receiver_role": string(scope.Participant.Role)}
	case BoxSent:
		return squirrel.Eq{"m.sender_id": scope.Participant.ID, "m.sender_role": string(scope.Participant.Role)}
	}
	return nil
}

// WithTx runs fn in a transaction on the message pool.
func (r *MessageRepository) WithTx(ctx context.Context, fn db.TransactionFn) error {
	return db.WithTx(ctx, r.db, fn)
}

// Create stores a message on q and returns its id.
func (r *MessageRepository) Create(ctx context.Context, q db.Querier, m *models.Message) (int64, error) {
	query, args, err := r.sb.Insert("messages").
		SetMap(map[string]interface{}{
			"sender_id":          m.SenderID,
			"sender_role":        string(m.SenderRole),
			"sender_name":        m.SenderName,
			"receiver_id":        m.ReceiverID,
			"receiver_role":      string(m.ReceiverRole),
			"receiver_name":      m.ReceiverName,
			"title":              m.Title,
			"content":            m.Content,
			"type":               m.Type,
			"priority":           m.Priority,
			"parent_message_id":  m.ParentMessageID,
			"attachment_file_id": m.AttachmentFileID,
		}).
		Suffix("RETURNING id, sent_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create message query: %w", err)
	}

	if err := q.QueryRow(ctx, query, args...).Scan(&m.ID, &m.SentAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: parent message or attachment does not exist", apperrors.ErrValidationFailed)
		}
		logger.Error().Err(err).Msg("Error creating message")
		return 0, fmt.Errorf("error creating message: %w", err)
	}
	return m.ID, nil
}

// GetByID returns a message with its attachment metadata.
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query, args, err := r.sb.Select(messageColumns...).From(messageFrom).Where(squirrel.Eq{"m.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get message query: %w", err)
	}

	m, err := scanMessage(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("message not found")
		}
		return nil, fmt.Errorf("error retrieving message: %w", err)
	}
	return m, nil
}

// List returns one page of the scoped box and the total number of matches.
func (r *MessageRepository) List(ctx context.Context, scope MessageScope, q listing.Query) ([]*models.Message, int64, error) {
	count := MessageSchema.Apply(r.sb.Select("COUNT(*)").From("messages m"), q)
	if where := scopeWhere(scope); where != nil {
		count = count.Where(where)
	}
	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count messages query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting messages: %w", err)
	}
	if total == 0 {
		return []*models.Message{}, 0, nil
	}

	messages, err := r.query(ctx, MessageSchema.Page(r.selectScoped(scope, q), q))
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ListAll returns every match of the scoped box, newest first, up to MaxExportRows.
func (r *MessageRepository) ListAll(ctx context.Context, scope MessageScope, q listing.Query) ([]*models.Message, error) {
	return r.query(ctx, r.selectScoped(scope, q).OrderBy(MessageSchema.OrderBy(q)...).Limit(MaxExportRows))
}

func (r *MessageRepository) selectScoped(scope MessageScope, q listing.Query) squirrel.SelectBuilder {
	sb := MessageSchema.Apply(r.sb.Select(messageColumns...).From(messageFrom), q)
	if where := scopeWhere(scope); where != nil {
		sb = sb.Where(where)
	}
	return sb
}

func (r *MessageRepository) query(ctx context.Context, sb squirrel.SelectBuilder) ([]*models.Message, error) {
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build messages query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying messages")
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkRead moves an unread message of receiver to read. It reports false
// without error when the message was already read, so the transition happens
// once no matter how many requests race.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64, receiver models.Participant) (time.Time, bool, error) {
	var readAt time.Time
	err := r.db.QueryRow(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND receiver_id = $2 AND receiver_role = $3 AND is_read = FALSE
		RETURNING read_at`,
		id, receiver.ID, string(receiver.Role)).Scan(&readAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("error marking message read: %w", err)
	}
	return readAt, true, nil
}

// Ancestors returns the parent chain of id ordered from the root down,
// excluding id itself.
func (r *MessageRepository) Ancestors(ctx context.Context, id int64) ([]*models.Message, error) {
	ancestors := r.sb.Select(messageColumns...).
		Prefix(`WITH RECURSIVE chain(id, depth) AS (
			SELECT parent_message_id, 1 FROM messages WHERE id = ? AND parent_message_id IS NOT NULL
			UNION ALL
			SELECT p.parent_message_id, c.depth + 1 FROM messages p JOIN chain c ON p.id = c.id
			WHERE p.parent_message_id IS NOT NULL AND c.depth < 100
		)`, id).
		From(messageFrom).
		Join("chain ON chain.id = m.id").
		OrderBy("chain.depth DESC")
	return r.query(ctx, ancestors)
}

// Replies returns the direct replies to id, oldest first.
func (r *MessageRepository) Replies(ctx context.Context, id int64) ([]*models.Message, error) {
	return r.query(ctx, r.sb.Select(messageColumns...).
		From(messageFrom).
		Where(squirrel.Eq{"m.parent_message_id": id}).
		OrderBy("m.sent_at ASC", "m.id ASC"))
}

// UnreadCount counts the unread inbox messages of p.
func (r *MessageRepository) UnreadCount(ctx context.Context, p models.Participant) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND receiver_role = $2 AND NOT is_read`,
		p.ID, string(p.Role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting unread messages: %w", err)
	}
	return count, nil
}

// Delete removes a message. Replies keep existing with their parent cleared.
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("message not found")
	}
	return nil
}
