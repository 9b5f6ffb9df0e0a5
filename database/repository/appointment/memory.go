package appointmentRepo

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"procounsellor/models"
)

type docKey struct {
	collection string
	id         string
}

type observedQuery struct {
	filter AppointmentFilter
	seen   map[string]uint64
}

// MemoryStore keeps documents in process and validates transactions optimistically:
// every document version and query result a transaction observed must be unchanged
// at commit, otherwise the commit fails with ErrConflict.
type MemoryStore struct {
	mu           sync.Mutex
	seq          uint64
	versions     map[docKey]uint64
	counsellors  map[string]models.Counsellor
	users        map[string]models.User
	appointments map[string]models.Appointment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions:     make(map[docKey]uint64),
		counsellors:  make(map[string]models.Counsellor),
		users:        make(map[string]models.User),
		appointments: make(map[string]models.Appointment),
	}
}

// PutCounsellor creates or replaces a counsellor profile.
func (s *MemoryStore) PutCounsellor(c models.Counsellor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.WorkingDays = slices.Clone(c.WorkingDays)
	c.AppointmentIDs = slices.Clone(c.AppointmentIDs)
	s.counsellors[c.ID] = c
	s.bump(docKey{CounsellorsCollection, c.ID})
}

// PutUser creates or replaces a user profile.
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.AppointmentIDs = slices.Clone(u.AppointmentIDs)
	s.users[u.ID] = u
	s.bump(docKey{UsersCollection, u.ID})
}

// PutAppointment stores an appointment as-is, bypassing back-references.
func (s *MemoryStore) PutAppointment(a models.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[a.ID] = a
	s.bump(docKey{AppointmentsCollection, a.ID})
}

func (s *MemoryStore) bump(k docKey) {
	s.seq++
	s.versions[k] = s.seq
}

func (s *MemoryStore) GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _, err := s.counsellorLocked(id)
	return c, err
}

func (s *MemoryStore) counsellorLocked(id string) (*models.Counsellor, uint64, error) {
	k := docKey{CounsellorsCollection, id}
	c, ok := s.counsellors[id]
	if !ok {
		return nil, s.versions[k], fmt.Errorf("counsellor %s: %w", id, ErrNotFound)
	}
	c.WorkingDays = slices.Clone(c.WorkingDays)
	c.AppointmentIDs = slices.Clone(c.AppointmentIDs)
	return &c, s.versions[k], nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, _, err := s.userLocked(id)
	return u, err
}

func (s *MemoryStore) userLocked(id string) (*models.User, uint64, error) {
	k := docKey{UsersCollection, id}
	u, ok := s.users[id]
	if !ok {
		return nil, s.versions[k], fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	u.AppointmentIDs = slices.Clone(u.AppointmentIDs)
	return &u, s.versions[k], nil
}

func (s *MemoryStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, _, err := s.appointmentLocked(id)
	return a, err
}

func (s *MemoryStore) appointmentLocked(id string) (*models.Appointment, uint64, error) {
	k := docKey{AppointmentsCollection, id}
	a, ok := s.appointments[id]
	if !ok {
		return nil, s.versions[k], fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return &a, s.versions[k], nil
}

func (s *MemoryStore) FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(filter), nil
}

// findLocked returns matches ordered by ID so a limited query is repeatable.
func (s *MemoryStore) findLocked(filter AppointmentFilter) []models.Appointment {
	var out []models.Appointment
	for _, a := range s.appointments {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{store: s, reads: make(map[docKey]uint64)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w: %v", ErrUnavailable, err)
	}
	return s.commit(tx)
}

func (s *MemoryStore) commit(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range tx.reads {
		if s.versions[k] != v {
			return fmt.Errorf("%s/%s changed: %w", k.collection, k.id, ErrConflict)
		}
	}
	for _, q := range tx.queries {
		now := s.findLocked(q.filter)
		if len(now) != len(q.seen) {
			return fmt.Errorf("appointment query result changed: %w", ErrConflict)
		}
		for _, a := range now {
			v, ok := q.seen[a.ID]
			if !ok || v != s.versions[docKey{AppointmentsCollection, a.ID}] {
				return fmt.Errorf("appointment query result changed: %w", ErrConflict)
			}
		}
	}

	// Validate every write before applying any of them.
	for _, w := range tx.writes {
		if err := w.check(s); err != nil {
			return err
		}
	}
	for _, w := range tx.writes {
		w.apply(s)
	}
	return nil
}

type memoryWrite struct {
	check func(s *MemoryStore) error
	apply func(s *MemoryStore)
}

type memoryTx struct {
	store   *MemoryStore
	reads   map[docKey]uint64
	queries []observedQuery
	writes  []memoryWrite
}

func (tx *memoryTx) observe(k docKey, v uint64) {
	if _, seen := tx.reads[k]; !seen {
		tx.reads[k] = v
	}
}

func (tx *memoryTx) GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	c, v, err := tx.store.counsellorLocked(id)
	tx.observe(docKey{CounsellorsCollection, id}, v)
	return c, err
}

func (tx *memoryTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	u, v, err := tx.store.userLocked(id)
	tx.observe(docKey{UsersCollection, id}, v)
	return u, err
}

func (tx *memoryTx) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	a, v, err := tx.store.appointmentLocked(id)
	tx.observe(docKey{AppointmentsCollection, id}, v)
	return a, err
}

func (tx *memoryTx) FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	out := tx.store.findLocked(filter)
	q := observedQuery{filter: filter, seen: make(map[string]uint64, len(out))}
	for _, a := range out {
		q.seen[a.ID] = tx.store.versions[docKey{AppointmentsCollection, a.ID}]
	}
	tx.queries = append(tx.queries, q)
	return out, nil
}

func (tx *memoryTx) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	a := *appt
	tx.writes = append(tx.writes, memoryWrite{
		check: func(s *MemoryStore) error {
			if _, exists := s.appointments[a.ID]; exists {
				return fmt.Errorf("appointment %s: %w", a.ID, ErrDuplicate)
			}
			return nil
		},
		apply: func(s *MemoryStore) {
			s.appointments[a.ID] = a
			s.bump(docKey{AppointmentsCollection, a.ID})
		},
	})
	return nil
}

func (tx *memoryTx) AddUserAppointment(ctx context.Context, userID, appointmentID string) error {
	tx.writes = append(tx.writes, memoryWrite{
		check: func(s *MemoryStore) error {
			if _, ok := s.users[userID]; !ok {
				return fmt.Errorf("user %s: %w", userID, ErrNotFound)
			}
			return nil
		},
		apply: func(s *MemoryStore) {
			u := s.users[userID]
			if !slices.Contains(u.AppointmentIDs, appointmentID) {
				u.AppointmentIDs = append(slices.Clone(u.AppointmentIDs), appointmentID)
			}
			s.users[userID] = u
			s.bump(docKey{UsersCollection, userID})
		},
	})
	return nil
}

func (tx *memoryTx) AddCounsellorAppointment(ctx context.Context, counsellorID, appointmentID string) error {
	tx.writes = append(tx.writes, memoryWrite{
		check: func(s *MemoryStore) error {
			if _, ok := s.counsellors[counsellorID]; !ok {
				return fmt.Errorf("counsellor %s: %w", counsellorID, ErrNotFound)
			}
			return nil
		},
		apply: func(s *MemoryStore) {
			c := s.counsellors[counsellorID]
			if !slices.Contains(c.AppointmentIDs, appointmentID) {
				c.AppointmentIDs = append(slices.Clone(c.AppointmentIDs), appointmentID)
			}
			s.counsellors[counsellorID] = c
			s.bump(docKey{CounsellorsCollection, counsellorID})
		},
	})
	return nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, appointmentID string, status models.AppointmentStatus, updatedAt time.Time) error {
	tx.writes = append(tx.writes, memoryWrite{
		check: func(s *MemoryStore) error {
			if _, ok := s.appointments[appointmentID]; !ok {
				return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
			}
			return nil
		},
		apply: func(s *MemoryStore) {
			a := s.appointments[appointmentID]
			a.Status = status
			a.UpdatedAt = updatedAt
			s.appointments[appointmentID] = a
			s.bump(docKey{AppointmentsCollection, appointmentID})
		},
	})
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
