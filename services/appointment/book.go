package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/models"

	"go.uber.org/zap"
)

const (
	MaxNotesLength          = 2000
	MaxIdempotencyKeyLength = 128
)

var validModes = map[string]bool{
	models.ModeCall:     true,
	models.ModeVideo:    true,
	models.ModeInPerson: true,
}

func validateRequest(req *models.AppointmentRequest) error {
	req.UserID = strings.TrimSpace(req.UserID)
	req.CounsellorID = strings.TrimSpace(req.CounsellorID)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))

	if req.UserID == "" {
		return invalid("userId", "is required")
	}
	if req.CounsellorID == "" {
		return invalid("counsellorId", "is required")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return &RequestError{Field: "date", Message: "must be a calendar date in YYYY-MM-DD format", Err: ErrInvalidDate}
	}
	req.Date = date.Format(models.DateLayout)
	start, err := time.Parse(models.TimeLayout, req.StartTime)
	if err != nil {
		return invalid("startTime", "must be a time in HH:mm format")
	}
	req.StartTime = start.Format(models.TimeLayout)
	if !validModes[req.Mode] {
		return invalid("mode", "must be one of call, video, in-person")
	}
	if utf8.RuneCountInString(req.Notes) > MaxNotesLength {
		return invalid("notes", "must be at most 2000 characters")
	}
	if len(req.IdempotencyKey) > MaxIdempotencyKeyLength {
		return invalid("idempotencyKey", "must be at most 128 characters")
	}
	return nil
}

// Book reserves a counsellor slot for a user. The availability check, both conflict
// queries and all three writes (appointment plus the user and counsellor
// back-references) run in one transaction, so either everything is written or nothing.
// Conflicting transactions are retried with backoff. The appointment ID is fixed before
// the first attempt, so a retry that finds it already stored treats the earlier commit
// as the outcome. A request that repeats an idempotency key returns the appointment
// created the first time.
func (s *DefaultAppointmentService) Book(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	logger := s.logger().With(
		zap.String("userID", req.UserID),
		zap.String("counsellorID", req.CounsellorID),
		zap.String("date", req.Date),
		zap.String("startTime", req.StartTime),
	)

	if appt := s.replayFromCache(ctx, req); appt != nil {
		logger.Info("idempotent replay served from cache", zap.String("appointmentID", appt.ID))
		return appt, nil
	}

	var (
		booked   *models.Appointment
		replayed bool
	)
	id := s.newID()
	err := s.runInTransaction(ctx, "book", func(ctx context.Context, tx appointmentRepo.Tx) error {
		appt, replay, err := s.bookInTx(ctx, tx, id, req)
		if err != nil {
			return err
		}
		booked, replayed = appt, replay
		return nil
	})
	if err != nil {
		logBookingFailure(logger, err)
		return nil, err
	}

	s.rememberIdempotency(ctx, req, booked.ID)
	if replayed {
		logger.Info("idempotent replay", zap.String("appointmentID", booked.ID))
		return booked, nil
	}

	logger.Info("appointment booked", zap.String("appointmentID", booked.ID))
	s.scheduleExpiry(ctx, booked)
	return booked, nil
}

func (s *DefaultAppointmentService) bookInTx(ctx context.Context, tx appointmentRepo.Tx, id string, req models.AppointmentRequest) (*models.Appointment, bool, error) {
	// An earlier attempt may have committed before its result was lost.
	existing, err := tx.GetAppointment(ctx, id)
	switch {
	case err == nil && existing.UserID == req.UserID && sameSlot(*existing, req):
		return existing, false, nil
	case err == nil:
		return nil, false, fmt.Errorf("appointment id %s already in use", id)
	case !errors.Is(err, appointmentRepo.ErrNotFound):
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		prior, err := tx.FindAppointments(ctx, appointmentRepo.AppointmentFilter{
			UserID:         req.UserID,
			IdempotencyKey: req.IdempotencyKey,
			Limit:          1,
		})
		if err != nil {
			return nil, false, err
		}
		if len(prior) > 0 {
			if !sameSlot(prior[0], req) {
				return nil, false, invalid("idempotencyKey", "was already used for a different appointment")
			}
			return &prior[0], true, nil
		}
	}

	counsellor, err := tx.GetCounsellor(ctx, req.CounsellorID)
	if errors.Is(err, appointmentRepo.ErrNotFound) {
		return nil, false, ErrCounsellorNotFound
	}
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	slot, err := CheckSlot(*counsellor, req.Date, req.StartTime, now, s.location())
	if err != nil {
		return nil, false, err
	}

	if _, err := tx.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, appointmentRepo.ErrNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, err
	}

	conflicts, err := FindConflicts(ctx, tx, req.UserID, req.CounsellorID, slot.Date, slot.StartTime)
	if err != nil {
		return nil, false, err
	}
	if conflicts.SlotTaken {
		return nil, false, ErrSlotTaken
	}
	if conflicts.CallerHasPending {
		return nil, false, ErrDuplicatePending
	}

	appt := &models.Appointment{
		ID:             id,
		UserID:         req.UserID,
		CounsellorID:   req.CounsellorID,
		Date:           slot.Date,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		Mode:           req.Mode,
		Notes:          req.Notes,
		Status:         models.StatusPending,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := tx.CreateAppointment(ctx, appt); err != nil {
		return nil, false, err
	}
	if err := tx.AddUserAppointment(ctx, req.UserID, appt.ID); err != nil {
		return nil, false, backRefErr(err, ErrUserNotFound)
	}
	if err := tx.AddCounsellorAppointment(ctx, req.CounsellorID, appt.ID); err != nil {
		return nil, false, backRefErr(err, ErrCounsellorNotFound)
	}
	return appt, false, nil
}

func backRefErr(err, notFound error) error {
	if errors.Is(err, appointmentRepo.ErrNotFound) {
		return notFound
	}
	return err
}

func sameSlot(a models.Appointment, req models.AppointmentRequest) bool {
	return a.CounsellorID == req.CounsellorID && a.Date == req.Date && a.StartTime == req.StartTime
}

func logBookingFailure(logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrTransactionConflict):
		logger.Error("booking failed", zap.Error(err))
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrOutsidePolicy),
		errors.Is(err, ErrSlotTaken), errors.Is(err, ErrDuplicatePending),
		errors.Is(err, ErrCounsellorNotFound), errors.Is(err, ErrUserNotFound):
		logger.Info("booking rejected", zap.Error(err))
	default:
		logger.Error("booking failed with unexpected error", zap.Error(err))
	}
}

func (s *DefaultAppointmentService) scheduleExpiry(ctx context.Context, appt *models.Appointment) {
	if s.Expiry == nil {
		return
	}
	start, err := appt.Start(s.location())
	if err != nil {
		return
	}
	if err := s.Expiry.SchedulePendingExpiry(ctx, appt.ID, start); err != nil {
		s.logger().Warn("failed to schedule pending expiry",
			zap.String("appointmentID", appt.ID), zap.Error(err))
	}
}
