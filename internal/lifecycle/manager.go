package lifecycle

import (
	"context"
	"errors"

	"messenger-service/internal/models"
	"messenger-service/internal/presence"
	"messenger-service/internal/repositories"
)

// ErrForbidden rejects a delete-for-everyone from anyone but the sender.
var ErrForbidden = errors.New("only the sender can delete for everyone")

// Roster is the slice of the presence registry used to notify live peers of
// lifecycle transitions.
type Roster interface {
	SessionsFor(userID int) []presence.Session
	Discard(s presence.Session)
}

// Manager applies message lifecycle transitions: per-viewer soft delete and
// the terminal delete-for-everyone redaction.
type Manager struct {
	messages repositories.MessageRepository
	groups   repositories.GroupRepository
	roster   Roster
}

// NewManager builds a Manager.
func NewManager(messages repositories.MessageRepository, groups repositories.GroupRepository, roster Roster) *Manager {
	return &Manager{messages: messages, groups: groups, roster: roster}
}

// DeleteForViewer hides the message from one viewer. It is idempotent, does
// not require the viewer to be the sender, and is a silent no-op when the
// message does not exist.
func (m *Manager) DeleteForViewer(ctx context.Context, messageID int, viewerID int) error {
	_, err := m.messages.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.messages.AddViewerDeletion(ctx, messageID, viewerID)
}

// DeleteForEveryone redacts the message content and clears its file
// reference for all viewers. Only the original sender may trigger it; the
// transition is one-way and repeating it is a no-op. Live peers are notified
// so connected viewers see the redaction without a refetch.
func (m *Manager) DeleteForEveryone(ctx context.Context, messageID int, requesterID int) error {
	msg, err := m.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return ErrForbidden
	}
	if msg.DeletedForEveryone {
		return nil
	}

	if err := m.messages.RedactForEveryone(ctx, messageID); err != nil {
		return err
	}

	m.notifyDeletion(ctx, msg)
	return nil
}

// notifyDeletion pushes a delete-for-all event to the live sessions of every
// user who can see the message. Best-effort only.
func (m *Manager) notifyDeletion(ctx context.Context, msg models.Message) {
	viewers := []int{msg.SenderID}
	if msg.IsDirect() {
		if *msg.ReceiverID != msg.SenderID {
			viewers = append(viewers, *msg.ReceiverID)
		}
	} else if members, err := m.groups.MemberIDs(ctx, *msg.GroupID); err == nil {
		viewers = members
	}

	event := models.Event{Type: models.EventDeleteForAll, MessageID: msg.ID}
	for _, userID := range viewers {
		for _, session := range m.roster.SessionsFor(userID) {
			if err := session.Send(event); err != nil {
				m.roster.Discard(session)
			}
		}
	}
}
