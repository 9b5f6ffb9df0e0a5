package appointmentRepo

import (
	"context"
	"errors"
	"time"

	"procounsellor/models"
)

// Collection names shared by every backend.
const (
	AppointmentsCollection = "appointments"
	UsersCollection        = "users"
	CounsellorsCollection  = "counsellors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when the store detects a concurrent write to a document
	// read or written by the transaction. The transaction had no effect and may be retried.
	ErrConflict = errors.New("transaction conflict")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate document")
	// ErrUnavailable is returned for timeouts and connectivity failures.
	ErrUnavailable = errors.New("store unavailable")
)

// CounsellorLookup resolves a counsellor's profile, including the availability window.
type CounsellorLookup interface {
	GetCounsellor(ctx context.Context, id string) (*models.Counsellor, error)
}

// AppointmentFilter selects appointments by equality on every non-empty field.
// Statuses matches any of the listed values. Limit <= 0 means no limit.
type AppointmentFilter struct {
	CounsellorID   string
	UserID         string
	Date           string
	StartTime      string
	IdempotencyKey string
	Statuses       []models.AppointmentStatus
	Limit          int
}

// Matches reports whether a satisfies the filter (Limit is ignored).
func (f AppointmentFilter) Matches(a models.Appointment) bool {
	if f.CounsellorID != "" && a.CounsellorID != f.CounsellorID {
		return false
	}
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	if f.StartTime != "" && a.StartTime != f.StartTime {
		return false
	}
	if f.IdempotencyKey != "" && a.IdempotencyKey != f.IdempotencyKey {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// Tx is the handle passed to a transaction function. Reads observe one consistent
// snapshot; writes are staged and become visible together on commit. Backends that
// require it (Firestore) expect every read to happen before the first write.
type Tx interface {
	CounsellorLookup
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)

	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	AddUserAppointment(ctx context.Context, userID, appointmentID string) error
	AddCounsellorAppointment(ctx context.Context, counsellorID, appointmentID string) error
	SetStatus(ctx context.Context, appointmentID string, status models.AppointmentStatus, updatedAt time.Time) error
}

// Store is the persistence layer behind the booking engine.
type Store interface {
	CounsellorLookup
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	// FindAppointments is a non-transactional listing; conflict checks must use Tx.
	FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)

	// RunTransaction runs fn once. Staged writes commit atomically only if no document
	// fn read or wrote was modified concurrently; otherwise ErrConflict is returned and
	// nothing is written. Retrying is the caller's decision.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close(ctx context.Context) error
}
