package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidDate         = errors.New("invalid date")
	ErrCounsellorNotFound  = errors.New("counsellor not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrOutsidePolicy       = errors.New("slot outside counsellor availability")
	ErrSlotTaken           = errors.New("selected slot is already booked")
	ErrDuplicatePending    = errors.New("you already have a pending appointment with this counsellor")
	ErrTransactionConflict = errors.New("booking transaction kept conflicting, please retry")
	ErrStoreUnavailable    = errors.New("appointment store unavailable")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// RequestError describes a malformed request field.
type RequestError struct {
	Field   string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func invalid(field, message string) error {
	return &RequestError{Field: field, Message: message}
}

// PolicyReason says why a slot was rejected by the availability policy.
type PolicyReason string

const (
	ReasonWrongDay     PolicyReason = "wrong_day"
	ReasonOutsideHours PolicyReason = "outside_hours"
	ReasonOffGrid      PolicyReason = "off_grid"
	ReasonInPast       PolicyReason = "in_past"
)

// PolicyError is returned when a slot falls outside the counsellor's working window.
type PolicyError struct {
	Reason  PolicyReason
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrOutsidePolicy
}

func outsidePolicy(reason PolicyReason, format string, args ...any) error {
	return &PolicyError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
