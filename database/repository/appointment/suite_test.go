package appointmentRepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"procounsellor/models"

	"github.com/google/uuid"
)

// seeder inserts profile documents directly into a backend.
type seeder interface {
	seedCounsellor(t *testing.T, c models.Counsellor)
	seedUser(t *testing.T, u models.User)
}

func sampleAppointment(id, userID, counsellorID, start string) *models.Appointment {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.Appointment{
		ID:           id,
		UserID:       userID,
		CounsellorID: counsellorID,
		Date:         "2024-06-03",
		StartTime:    start,
		EndTime:      "10:30",
		Mode:         models.ModeCall,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// runStoreSuite checks the Store contract shared by every backend. IDs are unique per
// run so the suite can share a database with earlier runs.
func runStoreSuite(t *testing.T, store Store, seed seeder) {
	ctx := context.Background()
	prefix := uuid.NewString()[:8]
	counsellorID := prefix + "-c"
	userID := prefix + "-u"
	seed.seedCounsellor(t, models.Counsellor{
		ID:              counsellorID,
		FirstName:       "Asha",
		WorkingDays:     []string{"Monday", "Friday"},
		OfficeStartTime: "09:00",
		OfficeEndTime:   "17:00",
	})
	seed.seedUser(t, models.User{ID: userID, FirstName: "Ravi"})

	t.Run("missing documents", func(t *testing.T) {
		if _, err := store.GetCounsellor(ctx, prefix+"-nobody"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("counsellor: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetUser(ctx, prefix+"-nobody"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("user: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetAppointment(ctx, prefix+"-nothing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("appointment: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("profiles round trip", func(t *testing.T) {
		c, err := store.GetCounsellor(ctx, counsellorID)
		if err != nil {
			t.Fatal(err)
		}
		if c.ID != counsellorID || len(c.WorkingDays) != 2 || c.OfficeStartTime != "09:00" || c.OfficeEndTime != "17:00" {
			t.Fatalf("unexpected counsellor %+v", c)
		}
	})

	apptID := prefix + "-a1"
	t.Run("transaction writes all documents", func(t *testing.T) {
		err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.GetCounsellor(ctx, counsellorID); err != nil {
				return err
			}
			if _, err := tx.FindAppointments(ctx, AppointmentFilter{CounsellorID: counsellorID, Statuses: models.ActiveStatuses}); err != nil {
				return err
			}
			if err := tx.CreateAppointment(ctx, sampleAppointment(apptID, userID, counsellorID, "10:00")); err != nil {
				return err
			}
			if err := tx.AddUserAppointment(ctx, userID, apptID); err != nil {
				return err
			}
			return tx.AddCounsellorAppointment(ctx, counsellorID, apptID)
		})
		if err != nil {
			t.Fatalf("transaction failed: %v", err)
		}

		a, err := store.GetAppointment(ctx, apptID)
		if err != nil {
			t.Fatal(err)
		}
		if a.UserID != userID || a.StartTime != "10:00" || a.Status != models.StatusPending {
			t.Fatalf("unexpected appointment %+v", a)
		}
		u, _ := store.GetUser(ctx, userID)
		c, _ := store.GetCounsellor(ctx, counsellorID)
		if len(u.AppointmentIDs) != 1 || u.AppointmentIDs[0] != apptID {
			t.Fatalf("user refs %v", u.AppointmentIDs)
		}
		if len(c.AppointmentIDs) != 1 || c.AppointmentIDs[0] != apptID {
			t.Fatalf("counsellor refs %v", c.AppointmentIDs)
		}
	})

	t.Run("failed function writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		id := prefix + "-a2"
		err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.CreateAppointment(ctx, sampleAppointment(id, userID, counsellorID, "11:00")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := store.GetAppointment(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("appointment should not exist, got %v", err)
		}
	})

	t.Run("missing back-reference target aborts", func(t *testing.T) {
		id := prefix + "-a3"
		err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.CreateAppointment(ctx, sampleAppointment(id, userID, counsellorID, "12:00")); err != nil {
				return err
			}
			return tx.AddUserAppointment(ctx, prefix+"-ghost", id)
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetAppointment(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("appointment should not exist, got %v", err)
		}
	})

	t.Run("back-references are a set", func(t *testing.T) {
		err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			return tx.AddUserAppointment(ctx, userID, apptID)
		})
		if err != nil {
			t.Fatal(err)
		}
		u, _ := store.GetUser(ctx, userID)
		if len(u.AppointmentIDs) != 1 {
			t.Fatalf("duplicate reference added: %v", u.AppointmentIDs)
		}
	})

	t.Run("find filters", func(t *testing.T) {
		got, err := store.FindAppointments(ctx, AppointmentFilter{CounsellorID: counsellorID, Date: "2024-06-03", StartTime: "10:00", Statuses: models.ActiveStatuses})
		if err != nil || len(got) != 1 {
			t.Fatalf("active slot query: %v %v", got, err)
		}
		got, err = store.FindAppointments(ctx, AppointmentFilter{CounsellorID: counsellorID, Statuses: []models.AppointmentStatus{models.StatusConfirmed}})
		if err != nil || len(got) != 0 {
			t.Fatalf("confirmed query: %v %v", got, err)
		}
	})

	t.Run("set status", func(t *testing.T) {
		later := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
		err := store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.GetAppointment(ctx, apptID); err != nil {
				return err
			}
			return tx.SetStatus(ctx, apptID, models.StatusCancelled, later)
		})
		if err != nil {
			t.Fatal(err)
		}
		a, _ := store.GetAppointment(ctx, apptID)
		if a.Status != models.StatusCancelled || !a.UpdatedAt.Equal(later) {
			t.Fatalf("status not updated: %+v", a)
		}

		err = store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
			return tx.SetStatus(ctx, prefix+"-nothing", models.StatusCancelled, later)
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
