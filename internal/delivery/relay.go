package delivery

import "messenger-service/internal/models"

// Relay forwards ephemeral typing signals between live peers. It never
// touches storage or the quota ledger, and it does not debounce; rapid
// signals are the originating client's problem.
type Relay struct {
	roster Roster
}

// NewRelay builds a Relay.
func NewRelay(roster Roster) *Relay {
	return &Relay{roster: roster}
}

// EmitTyping pushes a typing signal to the receiver's live sessions.
func (r *Relay) EmitTyping(senderID, receiverID int) {
	r.emit(models.Event{Type: models.EventTyping, SenderID: senderID}, receiverID)
}

// EmitStopTyping pushes a stop-typing signal to the receiver's live sessions.
func (r *Relay) EmitStopTyping(senderID, receiverID int) {
	r.emit(models.Event{Type: models.EventStopTyping, SenderID: senderID}, receiverID)
}

func (r *Relay) emit(event models.Event, receiverID int) {
	for _, session := range r.roster.SessionsFor(receiverID) {
		if err := session.Send(event); err != nil {
			r.roster.Discard(session)
		}
	}
}
