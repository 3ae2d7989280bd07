package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, receiver_id, group_id, content, file_url, file_type, seen, deleted_for_everyone, created_at`

// MessageRepository defines interactions for messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, draft models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	DirectHistory(ctx context.Context, viewerID int, peerID int) ([]models.Message, error)
	GroupHistory(ctx context.Context, groupID int, viewerID int) ([]models.Message, error)
	AddViewerDeletion(ctx context.Context, messageID int, viewerID int) error
	RedactForEveryone(ctx context.Context, messageID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message addressed to a receiver or a group.
func (r *MessageRepo) CreateMessage(ctx context.Context, draft models.Message) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, receiver_id, group_id, content, file_url, file_type)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		draft.SenderID, draft.ReceiverID, draft.GroupID, draft.Content, draft.FileURL, draft.FileType).
		StructScan(&msg)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DirectHistory returns the 1:1 conversation between viewer and peer, oldest
// first, excluding messages the viewer has hidden. Messages deleted for
// everyone remain and carry their redacted content.
func (r *MessageRepo) DirectHistory(ctx context.Context, viewerID int, peerID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages m
        WHERE ((m.sender_id=$1 AND m.receiver_id=$2) OR (m.sender_id=$2 AND m.receiver_id=$1))
        AND NOT EXISTS (SELECT 1 FROM message_deletions d WHERE d.message_id=m.id AND d.user_id=$1)
        ORDER BY created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, viewerID, peerID)
	return msgs, err
}

// GroupHistory returns a group's messages, oldest first, excluding messages
// the viewer has hidden.
func (r *MessageRepo) GroupHistory(ctx context.Context, groupID int, viewerID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages m
        WHERE m.group_id=$1
        AND NOT EXISTS (SELECT 1 FROM message_deletions d WHERE d.message_id=m.id AND d.user_id=$2)
        ORDER BY created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, groupID, viewerID)
	return msgs, err
}

// AddViewerDeletion hides a message for one viewer. Inserting twice is a no-op.
func (r *MessageRepo) AddViewerDeletion(ctx context.Context, messageID int, viewerID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_deletions (message_id, user_id) VALUES ($1, $2)
        ON CONFLICT (message_id, user_id) DO NOTHING`, messageID, viewerID)
	return err
}

// RedactForEveryone replaces the message content with the redaction marker,
// clears the file reference and marks the message deleted for everyone.
func (r *MessageRepo) RedactForEveryone(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages
        SET deleted_for_everyone = TRUE, content = $2, file_url = NULL, file_type = NULL
        WHERE id=$1`, messageID, models.RedactionMarker)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
