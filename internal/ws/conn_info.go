package ws

import "time"

// ConnInfo is the immutable identity of one live connection, captured at
// handshake time and attached to its lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
