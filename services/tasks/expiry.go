package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeAppointmentExpire = "appointment:expire"

// ExpirePayload identifies the appointment to expire.
type ExpirePayload struct {
	AppointmentID string `json:"appointmentId"`
}

// NewExpireTask builds a task that fires when the appointment's slot starts. The
// task id is derived from the appointment so a duplicate enqueue is rejected.
func NewExpireTask(appointmentID string, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ExpirePayload{AppointmentID: appointmentID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeAppointmentExpire, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID("expire:" + appointmentID),
		asynq.MaxRetry(10),
	}
	return task, opts, nil
}

// ParseExpirePayload decodes a task payload.
func ParseExpirePayload(task *asynq.Task) (ExpirePayload, error) {
	var p ExpirePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid expire payload: %w", err)
	}
	if p.AppointmentID == "" {
		return p, errors.New("expire payload missing appointmentId")
	}
	return p, nil
}

// Enqueuer is the subset of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExpiryScheduler enqueues appointment expiry tasks on asynq.
type ExpiryScheduler struct {
	Client Enqueuer
}

func NewExpiryScheduler(client Enqueuer) *ExpiryScheduler {
	return &ExpiryScheduler{Client: client}
}

func (s *ExpiryScheduler) SchedulePendingExpiry(ctx context.Context, appointmentID string, at time.Time) error {
	task, opts, err := NewExpireTask(appointmentID, at)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue expiry for %s: %w", appointmentID, err)
	}
	return nil
}
