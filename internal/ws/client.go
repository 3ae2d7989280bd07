package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"messenger-service/internal/models"
)

const sendBufferSize = 32

var errConnClosed = errors.New("connection closed")

// Client is one live websocket connection. It owns an outbound channel
// drained by its write pump, so pushes from any goroutine serialize onto the
// wire in order. Client implements presence.Session.
type Client struct {
	conn   *websocket.Conn
	userID int
	info   ConnInfo

	send      chan models.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID int, info ConnInfo) *Client {
	return &Client{
		conn:   conn,
		userID: userID,
		info:   info,
		send:   make(chan models.Event, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// UserID returns the owning user.
func (c *Client) UserID() int {
	return c.userID
}

// Send queues an event for the write pump. It fails fast instead of
// blocking: a closed connection or a full buffer means the peer is gone or
// too slow, and the caller treats it as offline.
func (c *Client) Send(event models.Event) error {
	select {
	case <-c.done:
		return errConnClosed
	case c.send <- event:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the outbound channel onto the connection. A write error
// tears the connection down; the read pump notices and cleans up.
func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.close()
				return
			}
		}
	}
}
