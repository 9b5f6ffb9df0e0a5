package models

import "time"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusRejected  AppointmentStatus = "rejected"
)

// ActiveStatuses block a slot from being booked again.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

// IsActive reports whether the status still holds its slot.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed: {StatusCompleted},
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment is one reservation of a counsellor slot. Appointments are never deleted,
// only transitioned.
type Appointment struct {
	ID             string            `bson:"id" json:"appointmentId" firestore:"appointmentId"`
	UserID         string            `bson:"userId" json:"userId" firestore:"userId"`
	CounsellorID   string            `bson:"counsellorId" json:"counsellorId" firestore:"counsellorId"`
	Date           string            `bson:"date" json:"date" firestore:"date"`                // "2006-01-02"
	StartTime      string            `bson:"startTime" json:"startTime" firestore:"startTime"` // "15:04"
	EndTime        string            `bson:"endTime" json:"endTime" firestore:"endTime"`
	Mode           string            `bson:"mode" json:"mode" firestore:"mode"`
	Notes          string            `bson:"notes,omitempty" json:"notes,omitempty" firestore:"notes,omitempty"`
	Status         AppointmentStatus `bson:"status" json:"status" firestore:"status"`
	IdempotencyKey string            `bson:"idempotencyKey,omitempty" json:"-" firestore:"idempotencyKey,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt      time.Time         `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

// Start combines the stored date and start time in loc.
func (a Appointment) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.StartTime, loc)
}
