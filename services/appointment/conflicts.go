package appointment

import (
	"context"

	appointmentRepo "procounsellor/database/repository/appointment"
	"procounsellor/models"
)

// AppointmentFinder is the read capability the conflict detector needs. Inside a
// booking it is the transaction handle, so the reads join the transaction's read set.
type AppointmentFinder interface {
	FindAppointments(ctx context.Context, filter appointmentRepo.AppointmentFilter) ([]models.Appointment, error)
}

// Conflicts reports which booking rules a candidate appointment would break.
type Conflicts struct {
	// SlotTaken is set when an active appointment already holds (counsellor, date, startTime).
	SlotTaken bool
	// CallerHasPending is set when the user already has a pending appointment with the counsellor.
	CallerHasPending bool
}

// Any reports whether at least one conflict was found.
func (c Conflicts) Any() bool {
	return c.SlotTaken || c.CallerHasPending
}

// FindConflicts runs the two conflict queries for a candidate appointment.
func FindConflicts(ctx context.Context, finder AppointmentFinder, userID, counsellorID, date, startTime string) (Conflicts, error) {
	var c Conflicts

	taken, err := finder.FindAppointments(ctx, appointmentRepo.AppointmentFilter{
		CounsellorID: counsellorID,
		Date:         date,
		StartTime:    startTime,
		Statuses:     models.ActiveStatuses,
		Limit:        1,
	})
	if err != nil {
		return c, err
	}
	c.SlotTaken = len(taken) > 0

	pending, err := finder.FindAppointments(ctx, appointmentRepo.AppointmentFilter{
		UserID:       userID,
		CounsellorID: counsellorID,
		Statuses:     []models.AppointmentStatus{models.StatusPending},
		Limit:        1,
	})
	if err != nil {
		return c, err
	}
	c.CallerHasPending = len(pending) > 0

	return c, nil
}
