package appointment

import (
	"context"
	"errors"
	"fmt"

	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/models"

	"go.uber.org/zap"
)

// GetByCounsellor lists every appointment of a counsellor, in any status.
func (s *DefaultAppointmentService) GetByCounsellor(ctx context.Context, counsellorID string) ([]models.Appointment, error) {
	if counsellorID == "" {
		return nil, invalid("counsellorId", "is required")
	}
	appts, err := s.Store.FindAppointments(ctx, appointmentRepo.AppointmentFilter{CounsellorID: counsellorID})
	if err != nil {
		s.logger().Error("failed to list counsellor appointments", zap.String("counsellorID", counsellorID), zap.Error(err))
		return nil, storeErr(err, ErrAppointmentNotFound)
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	return appts, nil
}

// GetByID fetches a single appointment.
func (s *DefaultAppointmentService) GetByID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	if appointmentID == "" {
		return nil, invalid("appointmentId", "is required")
	}
	appt, err := s.Store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, storeErr(err, ErrAppointmentNotFound)
	}
	return appt, nil
}

// GetByUser resolves the user's appointment back-references in order. References to
// appointments that no longer resolve are skipped. An unknown user has no appointments.
func (s *DefaultAppointmentService) GetByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	if userID == "" {
		return nil, invalid("userId", "is required")
	}
	user, err := s.Store.GetUser(ctx, userID)
	if errors.Is(err, appointmentRepo.ErrNotFound) {
		return []models.Appointment{}, nil
	}
	if err != nil {
		return nil, storeErr(err, ErrUserNotFound)
	}

	logger := s.logger().With(zap.String("userID", userID))
	out := make([]models.Appointment, 0, len(user.AppointmentIDs))
	for _, id := range user.AppointmentIDs {
		appt, err := s.Store.GetAppointment(ctx, id)
		if errors.Is(err, appointmentRepo.ErrNotFound) {
			logger.Warn("dangling appointment reference", zap.String("appointmentID", id))
			continue
		}
		if err != nil {
			return nil, storeErr(err, ErrAppointmentNotFound)
		}
		out = append(out, *appt)
	}
	return out, nil
}

// GetUpcomingByUser returns the user's appointments whose start is strictly after now.
// Appointments with an unparsable date or start time are logged and left out.
func (s *DefaultAppointmentService) GetUpcomingByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	all, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	loc := s.location()
	upcoming := make([]models.Appointment, 0, len(all))
	for _, appt := range all {
		start, err := appt.Start(loc)
		if err != nil {
			s.logger().Error("skipping appointment with malformed date or time",
				zap.String("appointmentID", appt.ID),
				zap.String("date", appt.Date),
				zap.String("startTime", appt.StartTime),
				zap.Error(fmt.Errorf("parse start: %w", err)))
			continue
		}
		if start.After(now) {
			upcoming = append(upcoming, appt)
		}
	}
	return upcoming, nil
}
