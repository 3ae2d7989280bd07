package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
)

const wsRoutingKey = "ws_events.live"

// Handler upgrades live-channel connections and runs their pumps.
type Handler struct {
	registry   *presence.Registry
	dispatcher *Dispatcher
	secretKey  []byte
}

// NewHandler constructs a Handler.
func NewHandler(registry *presence.Registry, dispatcher *Dispatcher, secretKey []byte) *Handler {
	return &Handler{registry: registry, dispatcher: dispatcher, secretKey: secretKey}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades the connection and starts the read/write
// pumps. The connection joins the presence roster only once the client
// announces itself with a join event.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, userID, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishConnEvent(ctx, info, "ws_connect", "")

	go client.writePump()
	go h.readPump(client)
}

// readPump decodes typed client events and hands them to the dispatcher. It
// owns cleanup: when the read loop ends the session leaves the roster and
// the connection is closed.
func (h *Handler) readPump(client *Client) {
	var closeReason string
	defer func() {
		h.registry.Unregister(client)
		client.close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishConnEvent(context.Background(), client.info, "ws_disconnect", closeReason)
	}()

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishConnEvent(context.Background(), client.info, "ws_error", closeReason)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("malformed client event from user %d: %v", client.UserID(), err)
			continue
		}
		h.dispatcher.Dispatch(context.Background(), client, event)
	}
}

func (h *Handler) validateToken(header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return auth.UserIDFromToken(parts[1], h.secretKey)
	}
	return 0, auth.ErrInvalidToken
}

func (h *Handler) publishConnEvent(ctx context.Context, info ConnInfo, event, reason string) {
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
