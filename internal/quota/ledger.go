package quota

import (
	"context"
	"sync"
	"time"

	"messenger-service/internal/repositories"
)

// DefaultAllowance is the free-tier daily message budget.
const DefaultAllowance = 10

const dayKeyFormat = "2006-01-02"

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int
}

// Ledger enforces the per-user daily message quota. The read-check-write
// sequence for one user is serialized by a per-user mutex; different users
// never block each other.
type Ledger struct {
	users     repositories.UserRepository
	allowance int
	now       func() time.Time

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewLedger constructs a Ledger with the given daily allowance.
func NewLedger(users repositories.UserRepository, allowance int) *Ledger {
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	return &Ledger{
		users:     users,
		allowance: allowance,
		now:       time.Now,
		locks:     map[int]*sync.Mutex{},
	}
}

func (l *Ledger) userLock(userID int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// TryConsume spends one send from the user's daily budget. A stale window is
// reset and persisted before the decision is taken; an allowed send is
// persisted before returning, so two concurrent sends cannot both spend the
// last slot. Premium users are always allowed and never decremented.
func (l *Ledger) TryConsume(ctx context.Context, userID int) (Decision, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := l.users.GetUser(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	today := l.now().Format(dayKeyFormat)
	state, reset := Advance(State{Day: user.QuotaDay, Remaining: user.QuotaRemaining}, today, l.allowance)
	if reset {
		if err := l.users.UpdateQuota(ctx, userID, state.Day, state.Remaining); err != nil {
			return Decision{}, err
		}
	}

	if user.IsPremium {
		return Decision{Allowed: true, Remaining: state.Remaining}, nil
	}

	if state.Remaining <= 0 {
		return Decision{Allowed: false, Remaining: 0}, nil
	}

	state.Remaining--
	if err := l.users.UpdateQuota(ctx, userID, state.Day, state.Remaining); err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true, Remaining: state.Remaining}, nil
}
