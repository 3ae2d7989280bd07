package models

import "time"

// RedactionMarker replaces the content of a message deleted for everyone.
const RedactionMarker = "This message was deleted"

// Message represents a direct or group message. Exactly one of ReceiverID
// and GroupID is set.
type Message struct {
	ID                 int       `db:"id" json:"id"`
	SenderID           int       `db:"sender_id" json:"sender_id"`
	ReceiverID         *int      `db:"receiver_id" json:"receiver_id,omitempty"`
	GroupID            *int      `db:"group_id" json:"group_id,omitempty"`
	Content            string    `db:"content" json:"content"`
	FileURL            *string   `db:"file_url" json:"file_url,omitempty"`
	FileType           *string   `db:"file_type" json:"file_type,omitempty"`
	Seen               bool      `db:"seen" json:"seen"`
	DeletedForEveryone bool      `db:"deleted_for_everyone" json:"deleted_for_everyone"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// IsDirect reports whether the message targets a single receiver.
func (m Message) IsDirect() bool {
	return m.ReceiverID != nil
}
