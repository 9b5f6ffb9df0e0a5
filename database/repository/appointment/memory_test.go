package appointmentRepo

import (
	"context"
	"errors"
	"testing"

	"procounsellor/models"
)

type memorySeeder struct{ store *MemoryStore }

func (m memorySeeder) seedCounsellor(_ *testing.T, c models.Counsellor) { m.store.PutCounsellor(c) }
func (m memorySeeder) seedUser(_ *testing.T, u models.User)             { m.store.PutUser(u) }

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemoryStore()
	runStoreSuite(t, store, memorySeeder{store})
}

func seededMemoryStore() *MemoryStore {
	store := NewMemoryStore()
	store.PutCounsellor(models.Counsellor{ID: "c1"})
	store.PutUser(models.User{ID: "u1"})
	store.PutUser(models.User{ID: "u2"})
	return store
}

func TestMemoryStoreQueryConflict(t *testing.T) {
	store := seededMemoryStore()
	ctx := context.Background()
	slot := AppointmentFilter{CounsellorID: "c1", Date: "2024-06-03", StartTime: "10:00", Statuses: models.ActiveStatuses}

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		found, err := tx.FindAppointments(ctx, slot)
		if err != nil || len(found) != 0 {
			t.Fatalf("slot should be free: %v %v", found, err)
		}
		// A competing booking commits between our read and our commit.
		if err := store.RunTransaction(ctx, func(ctx context.Context, other Tx) error {
			return other.CreateAppointment(ctx, sampleAppointment("other", "u2", "c1", "10:00"))
		}); err != nil {
			t.Fatalf("competing transaction failed: %v", err)
		}
		return tx.CreateAppointment(ctx, sampleAppointment("mine", "u1", "c1", "10:00"))
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := store.GetAppointment(ctx, "mine"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("losing transaction must not write, got %v", err)
	}
}

func TestMemoryStoreDocumentConflict(t *testing.T) {
	store := seededMemoryStore()
	ctx := context.Background()

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetCounsellor(ctx, "c1"); err != nil {
			return err
		}
		store.PutCounsellor(models.Counsellor{ID: "c1", OfficeStartTime: "10:00"})
		return tx.AddCounsellorAppointment(ctx, "c1", "x")
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryStoreUnrelatedWritesDoNotConflict(t *testing.T) {
	store := seededMemoryStore()
	ctx := context.Background()
	slot := AppointmentFilter{CounsellorID: "c1", Date: "2024-06-03", StartTime: "10:00", Statuses: models.ActiveStatuses}

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.FindAppointments(ctx, slot); err != nil {
			return err
		}
		store.PutAppointment(*sampleAppointment("elsewhere", "u2", "c1", "15:00"))
		return tx.CreateAppointment(ctx, sampleAppointment("mine", "u1", "c1", "10:00"))
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryStoreDuplicateID(t *testing.T) {
	store := seededMemoryStore()
	ctx := context.Background()
	store.PutAppointment(*sampleAppointment("a1", "u1", "c1", "10:00"))

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateAppointment(ctx, sampleAppointment("a1", "u2", "c1", "11:00"))
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := seededMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateAppointment(ctx, sampleAppointment("a1", "u1", "c1", "10:00"))
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMemoryStoreFindLimitAndOrder(t *testing.T) {
	store := seededMemoryStore()
	for _, id := range []string{"b", "a", "c"} {
		store.PutAppointment(*sampleAppointment(id, "u1", "c1", "10:00"))
	}
	got, err := store.FindAppointments(context.Background(), AppointmentFilter{UserID: "u1", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestAppointmentFilterMatches(t *testing.T) {
	a := *sampleAppointment("a1", "u1", "c1", "10:00")
	tests := []struct {
		name   string
		filter AppointmentFilter
		want   bool
	}{
		{"empty", AppointmentFilter{}, true},
		{"counsellor", AppointmentFilter{CounsellorID: "c1"}, true},
		{"other counsellor", AppointmentFilter{CounsellorID: "c2"}, false},
		{"active", AppointmentFilter{Statuses: models.ActiveStatuses}, true},
		{"confirmed only", AppointmentFilter{Statuses: []models.AppointmentStatus{models.StatusConfirmed}}, false},
		{"slot", AppointmentFilter{CounsellorID: "c1", Date: "2024-06-03", StartTime: "10:00"}, true},
		{"other time", AppointmentFilter{StartTime: "10:30"}, false},
		{"idempotency key", AppointmentFilter{IdempotencyKey: "k"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(a); got != tt.want {
				t.Fatalf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
