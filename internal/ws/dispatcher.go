package ws

import (
	"context"
	"errors"
	"log"

	"messenger-service/internal/delivery"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
)

// Dispatcher reads typed client events off a connection and routes them to
// the presence registry, the delivery coordinator or the signal relay.
type Dispatcher struct {
	registry    *presence.Registry
	coordinator *delivery.Coordinator
	relay       *delivery.Relay
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(registry *presence.Registry, coordinator *delivery.Coordinator, relay *delivery.Relay) *Dispatcher {
	return &Dispatcher{registry: registry, coordinator: coordinator, relay: relay}
}

// Dispatch routes a single inbound event from the given client.
func (d *Dispatcher) Dispatch(ctx context.Context, client *Client, event models.ClientEvent) {
	observability.IncWSEvent(event.Type)

	switch event.Type {
	case "join":
		d.registry.Register(client)

	case "typing":
		if event.ReceiverID != nil {
			d.relay.EmitTyping(client.UserID(), *event.ReceiverID)
		}

	case "stop_typing":
		if event.ReceiverID != nil {
			d.relay.EmitStopTyping(client.UserID(), *event.ReceiverID)
		}

	case "send":
		req := delivery.SendRequest{
			ReceiverID: event.ReceiverID,
			GroupID:    event.GroupID,
			Content:    event.Content,
			FileURL:    event.FileURL,
			FileType:   event.FileType,
		}
		_, err := d.coordinator.Send(ctx, client.UserID(), req, client)
		switch {
		case errors.Is(err, delivery.ErrQuotaExceeded):
			_ = client.Send(models.Event{
				Type: models.EventQuotaExceeded,
				Text: "You reached your daily free message limit.",
			})
		case err != nil:
			log.Printf("live-channel send from user %d failed: %v", client.UserID(), err)
		}

	default:
		log.Printf("unknown client event %q from user %d", event.Type, client.UserID())
	}
}
