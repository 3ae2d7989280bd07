package models

// Event types pushed to live-channel clients.
const (
	EventOnlineUsers   = "online_users"
	EventTyping        = "typing"
	EventStopTyping    = "stop_typing"
	EventMessage       = "message"
	EventQuotaExceeded = "quota_exceeded"
	EventDeleteForAll  = "delete_for_all"
)

// Event is the server-to-client websocket envelope.
type Event struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID int      `json:"message_id,omitempty"`
	SenderID  int      `json:"sender_id,omitempty"`
	Users     []int    `json:"users,omitempty"`
	Text      string   `json:"text,omitempty"`
}

// ClientEvent is the client-to-server websocket envelope.
type ClientEvent struct {
	Type       string  `json:"type"`
	ReceiverID *int    `json:"receiver_id,omitempty"`
	GroupID    *int    `json:"group_id,omitempty"`
	Content    string  `json:"content,omitempty"`
	FileURL    *string `json:"file_url,omitempty"`
	FileType   *string `json:"file_type,omitempty"`
}
