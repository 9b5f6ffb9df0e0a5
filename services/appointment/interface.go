package appointment

import (
	"context"
	"time"

	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppointmentService is the booking engine exposed to handlers and workers.
type AppointmentService interface {
	Book(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error)
	GetByCounsellor(ctx context.Context, counsellorID string) ([]models.Appointment, error)
	GetByID(ctx context.Context, appointmentID string) (*models.Appointment, error)
	GetByUser(ctx context.Context, userID string) ([]models.Appointment, error)
	GetUpcomingByUser(ctx context.Context, userID string) ([]models.Appointment, error)
	Transition(ctx context.Context, appointmentID string, to models.AppointmentStatus) (*models.Appointment, error)
	Cancel(ctx context.Context, userID, appointmentID string) (*models.Appointment, error)
	ExpirePending(ctx context.Context, appointmentID string) (bool, error)
}

// Defaults used when the corresponding EngineConfig field is zero.
const (
	DefaultMaxAttempts = 5
	DefaultTxnTimeout  = 5 * time.Second
	DefaultBackoff     = 50 * time.Millisecond
)

// EngineConfig tunes the booking transaction coordinator.
type EngineConfig struct {
	MaxAttempts int
	TxnTimeout  time.Duration
	Backoff     time.Duration
	Location    *time.Location
}

// ExpiryScheduler arranges for a pending appointment to be expired once its slot starts.
type ExpiryScheduler interface {
	SchedulePendingExpiry(ctx context.Context, appointmentID string, at time.Time) error
}

// DefaultAppointmentService implements AppointmentService on top of an appointment store.
// Idempotency and Expiry are optional.
type DefaultAppointmentService struct {
	Store       appointmentRepo.Store
	Idempotency IdempotencyCache
	Expiry      ExpiryScheduler
	Logger      *zap.Logger
	Config      EngineConfig

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

func (s *DefaultAppointmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultAppointmentService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *DefaultAppointmentService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *DefaultAppointmentService) location() *time.Location {
	if s.Config.Location != nil {
		return s.Config.Location
	}
	return time.UTC
}

func (s *DefaultAppointmentService) maxAttempts() int {
	if s.Config.MaxAttempts > 0 {
		return s.Config.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (s *DefaultAppointmentService) txnTimeout() time.Duration {
	if s.Config.TxnTimeout > 0 {
		return s.Config.TxnTimeout
	}
	return DefaultTxnTimeout
}

func (s *DefaultAppointmentService) backoff() time.Duration {
	if s.Config.Backoff > 0 {
		return s.Config.Backoff
	}
	return DefaultBackoff
}
