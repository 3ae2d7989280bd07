package delivery

import (
	"context"
	"log"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/quota"
	"messenger-service/internal/repositories"
)

// Ledger is the slice of the quota ledger the coordinator consults.
type Ledger interface {
	TryConsume(ctx context.Context, userID int) (quota.Decision, error)
}

// Roster is the slice of the presence registry used for fan-out.
type Roster interface {
	SessionsFor(userID int) []presence.Session
	Discard(s presence.Session)
}

// SendRequest describes an inbound send from either the HTTP path or the
// live channel.
type SendRequest struct {
	ReceiverID *int
	GroupID    *int
	Content    string
	FileURL    *string
	FileType   *string
}

// Coordinator orchestrates a send: quota check, persist, then best-effort
// fan-out to live peers.
type Coordinator struct {
	messages repositories.MessageRepository
	groups   repositories.GroupRepository
	ledger   Ledger
	roster   Roster
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(messages repositories.MessageRepository, groups repositories.GroupRepository, ledger Ledger, roster Roster) *Coordinator {
	return &Coordinator{messages: messages, groups: groups, ledger: ledger, roster: roster}
}

// Send validates the target, spends quota, persists the message and pushes
// it to every resolved live session. The persisted message is returned even
// when no peer was reachable; offline receivers see it on their next fetch.
// origin, when non-nil, is the live session the send came from and is
// skipped during fan-out.
func (c *Coordinator) Send(ctx context.Context, senderID int, req SendRequest, origin presence.Session) (models.Message, error) {
	if (req.ReceiverID == nil) == (req.GroupID == nil) {
		return models.Message{}, ErrInvalidTarget
	}

	decision, err := c.ledger.TryConsume(ctx, senderID)
	if err != nil {
		return models.Message{}, err
	}
	if !decision.Allowed {
		observability.IncQuotaDenied()
		return models.Message{}, ErrQuotaExceeded
	}

	msg, err := c.messages.CreateMessage(ctx, models.Message{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		GroupID:    req.GroupID,
		Content:    req.Content,
		FileURL:    req.FileURL,
		FileType:   req.FileType,
	})
	if err != nil {
		return models.Message{}, err
	}
	observability.IncMessageSent(targetKind(req))

	targets, err := c.resolveTargets(ctx, msg)
	if err != nil {
		// The persist already succeeded; an unreachable member list only
		// degrades realtime delivery.
		log.Printf("fan-out target resolution failed for message %d: %v", msg.ID, err)
		return msg, nil
	}

	event := models.Event{Type: models.EventMessage, Message: &msg}
	for _, userID := range targets {
		c.push(userID, event, origin)
	}
	return msg, nil
}

// Forward creates a fresh message copying content and file reference from an
// existing one. It runs through the full Send path, including the quota
// check, and never mutates the original.
func (c *Coordinator) Forward(ctx context.Context, senderID int, messageID int, target SendRequest) (models.Message, error) {
	original, err := c.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	target.Content = original.Content
	target.FileURL = original.FileURL
	target.FileType = original.FileType
	return c.Send(ctx, senderID, target, nil)
}

// resolveTargets lists the users whose live sessions should receive the
// message: the receiver plus the sender's other devices for a direct
// message, every member except the sender for a group message.
func (c *Coordinator) resolveTargets(ctx context.Context, msg models.Message) ([]int, error) {
	if msg.IsDirect() {
		if *msg.ReceiverID == msg.SenderID {
			return []int{msg.SenderID}, nil
		}
		return []int{*msg.ReceiverID, msg.SenderID}, nil
	}

	members, err := c.groups.MemberIDs(ctx, *msg.GroupID)
	if err != nil {
		return nil, err
	}
	targets := make([]int, 0, len(members))
	for _, id := range members {
		if id != msg.SenderID {
			targets = append(targets, id)
		}
	}
	return targets, nil
}

// push writes the event to each of the user's sessions. A failed write means
// the peer is gone: the session is discarded and the failure is swallowed,
// since the message is already durable.
func (c *Coordinator) push(userID int, event models.Event, origin presence.Session) {
	for _, session := range c.roster.SessionsFor(userID) {
		if session == origin {
			continue
		}
		if err := session.Send(event); err != nil {
			log.Printf("realtime push to user %d failed: %v", userID, err)
			observability.IncPushFailure()
			c.roster.Discard(session)
			continue
		}
		observability.IncPushDelivered()
	}
}

func targetKind(req SendRequest) string {
	if req.GroupID != nil {
		return "group"
	}
	return "direct"
}
