package appointment

import (
	"context"
	"errors"
	"fmt"

	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/models"

	"go.uber.org/zap"
)

// errNoop ends a transition transaction without writing.
var errNoop = errors.New("no transition needed")

// Transition moves an appointment to a new status inside a transaction.
func (s *DefaultAppointmentService) Transition(ctx context.Context, appointmentID string, to models.AppointmentStatus) (*models.Appointment, error) {
	if !to.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", to))
	}
	return s.transition(ctx, appointmentID, to, nil)
}

// Cancel lets the owner of a pending appointment withdraw it. Appointments owned by
// someone else are reported as not found.
func (s *DefaultAppointmentService) Cancel(ctx context.Context, userID, appointmentID string) (*models.Appointment, error) {
	return s.transition(ctx, appointmentID, models.StatusCancelled, func(a *models.Appointment) error {
		if a.UserID != userID {
			return ErrAppointmentNotFound
		}
		return nil
	})
}

// ExpirePending rejects an appointment that is still pending. It reports whether the
// status changed; appointments that moved on in the meantime are left alone.
func (s *DefaultAppointmentService) ExpirePending(ctx context.Context, appointmentID string) (bool, error) {
	_, err := s.transition(ctx, appointmentID, models.StatusRejected, func(a *models.Appointment) error {
		if a.Status != models.StatusPending {
			return errNoop
		}
		return nil
	})
	switch {
	case errors.Is(err, errNoop), errors.Is(err, ErrAppointmentNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	s.logger().Info("pending appointment expired", zap.String("appointmentID", appointmentID))
	return true, nil
}

func (s *DefaultAppointmentService) transition(ctx context.Context, appointmentID string, to models.AppointmentStatus, guard func(*models.Appointment) error) (*models.Appointment, error) {
	if appointmentID == "" {
		return nil, invalid("appointmentId", "is required")
	}
	var (
		updated *models.Appointment
		written bool
	)
	err := s.runInTransaction(ctx, "transition", func(ctx context.Context, tx appointmentRepo.Tx) error {
		appt, err := tx.GetAppointment(ctx, appointmentID)
		if errors.Is(err, appointmentRepo.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		if err != nil {
			return err
		}
		// A previous attempt wrote the status but its commit was reported as failed.
		if written && appt.Status == to {
			updated = appt
			return nil
		}
		if guard != nil {
			if err := guard(appt); err != nil {
				return err
			}
		}
		if !models.CanTransition(appt.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
		}
		now := s.now().UTC()
		if err := tx.SetStatus(ctx, appointmentID, to, now); err != nil {
			if errors.Is(err, appointmentRepo.ErrNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}
		appt.Status = to
		appt.UpdatedAt = now
		updated = appt
		written = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("appointment status changed",
		zap.String("appointmentID", appointmentID),
		zap.String("status", string(to)))
	return updated, nil
}
