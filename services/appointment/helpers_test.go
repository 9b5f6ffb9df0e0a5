package appointment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/models"

	"go.uber.org/zap/zaptest"
)

// 2024-06-03 is a Monday.
const (
	monday   = "2024-06-03"
	tuesday  = "2024-06-04"
	saturday = "2024-06-08"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func weekdayCounsellor(id string) models.Counsellor {
	return models.Counsellor{
		ID:              id,
		FirstName:       "Asha",
		LastName:        "Rao",
		WorkingDays:     []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		OfficeStartTime: "09:00",
		OfficeEndTime:   "17:00",
	}
}

func seededStore(users ...string) *appointmentRepo.MemoryStore {
	store := appointmentRepo.NewMemoryStore()
	store.PutCounsellor(weekdayCounsellor("c1"))
	for _, u := range users {
		store.PutUser(models.User{ID: u})
	}
	return store
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("appt-%03d", n.Add(1)) }
}

func newTestService(t *testing.T, store appointmentRepo.Store) *DefaultAppointmentService {
	t.Helper()
	return &DefaultAppointmentService{
		Store:  store,
		Logger: zaptest.NewLogger(t),
		Config: EngineConfig{MaxAttempts: 5, TxnTimeout: time.Second, Backoff: time.Millisecond},
		Now:    func() time.Time { return testNow },
		NewID:  sequentialIDs(),
	}
}

func request(user, date, start string) models.AppointmentRequest {
	return models.AppointmentRequest{
		UserID:       user,
		CounsellorID: "c1",
		Date:         date,
		StartTime:    start,
		Mode:         models.ModeVideo,
	}
}

// flakyStore fails the first n transactions with err before delegating.
type flakyStore struct {
	appointmentRepo.Store
	mu    sync.Mutex
	n     int
	err   error
	calls int
}

func (f *flakyStore) RunTransaction(ctx context.Context, fn func(context.Context, appointmentRepo.Tx) error) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.n
	f.mu.Unlock()
	if fail {
		return f.err
	}
	return f.Store.RunTransaction(ctx, fn)
}

// recordingScheduler captures expiry requests.
type recordingScheduler struct {
	mu    sync.Mutex
	calls map[string]time.Time
}

func (r *recordingScheduler) SchedulePendingExpiry(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]time.Time)
	}
	r.calls[id] = at
	return nil
}

// mapCache is an in-process IdempotencyCache.
type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *mapCache) Lookup(_ context.Context, userID, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.m[userID+":"+key]
	return id, ok
}

func (c *mapCache) Remember(_ context.Context, userID, key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]string)
	}
	c.m[userID+":"+key] = id
}

// lostCommitStore commits the first n transactions on the wrapped store and then
// reports them as unavailable, as a driver does when the commit outcome is unknown.
type lostCommitStore struct {
	appointmentRepo.Store
	mu    sync.Mutex
	n     int
	calls int
}

func (l *lostCommitStore) RunTransaction(ctx context.Context, fn func(context.Context, appointmentRepo.Tx) error) error {
	l.mu.Lock()
	l.calls++
	lose := l.calls <= l.n
	l.mu.Unlock()
	if err := l.Store.RunTransaction(ctx, fn); err != nil || !lose {
		return err
	}
	return fmt.Errorf("commit result unknown: %w", appointmentRepo.ErrUnavailable)
}

func (l *lostCommitStore) setLost(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n, l.calls = n, 0
}
