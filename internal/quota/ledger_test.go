package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int]models.User
	updates int
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int]models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return models.User{}, repositories.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) UpdateQuota(ctx context.Context, userID int, day string, remaining int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.QuotaDay = day
	user.QuotaRemaining = remaining
	r.users[userID] = user
	r.updates++
	return nil
}

func fixedDay(t *testing.T, ledger *Ledger, day string) {
	t.Helper()
	parsed, err := time.Parse(dayKeyFormat, day)
	require.NoError(t, err)
	ledger.now = func() time.Time { return parsed }
}

func TestAdvanceResetsOncePerDay(t *testing.T) {
	state, reset := Advance(State{Day: "2024-05-01", Remaining: 3}, "2024-05-02", 10)
	require.True(t, reset)
	require.Equal(t, State{Day: "2024-05-02", Remaining: 10}, state)

	state, reset = Advance(state, "2024-05-02", 10)
	require.False(t, reset)
	require.Equal(t, 10, state.Remaining)
}

func TestTryConsumeDecrementsUntilExhausted(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, QuotaDay: "2024-05-02", QuotaRemaining: 2})
	ledger := NewLedger(repo, 10)
	fixedDay(t, ledger, "2024-05-02")

	d, err := ledger.TryConsume(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, d.Remaining)

	d, err = ledger.TryConsume(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)

	d, err = ledger.TryConsume(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
}

func TestTryConsumeResetsStaleWindow(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, QuotaDay: "2024-05-01", QuotaRemaining: 0})
	ledger := NewLedger(repo, 10)
	fixedDay(t, ledger, "2024-05-02")

	d, err := ledger.TryConsume(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 9, d.Remaining)

	user, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "2024-05-02", user.QuotaDay)
	require.Equal(t, 9, user.QuotaRemaining)
}

func TestTryConsumePremiumExempt(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, IsPremium: true, QuotaDay: "2024-05-02", QuotaRemaining: 0})
	ledger := NewLedger(repo, 10)
	fixedDay(t, ledger, "2024-05-02")

	for i := 0; i < 25; i++ {
		d, err := ledger.TryConsume(context.Background(), 1)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	user, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, user.QuotaRemaining)
}

func TestTryConsumeUnknownUser(t *testing.T) {
	ledger := NewLedger(newFakeUserRepo(), 10)
	fixedDay(t, ledger, "2024-05-02")

	_, err := ledger.TryConsume(context.Background(), 99)
	require.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestTryConsumeConcurrentSendsNeverDoubleSpend(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, QuotaDay: "2024-05-01", QuotaRemaining: 0})
	ledger := NewLedger(repo, 10)
	fixedDay(t, ledger, "2024-05-02")

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := ledger.TryConsume(context.Background(), 1)
			require.NoError(t, err)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, allowed)

	user, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, user.QuotaRemaining)
	require.Equal(t, "2024-05-02", user.QuotaDay)
}
