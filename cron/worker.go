package cron

import (
	"context"
	"time"

	"procounsellor/services/appointment"
	"procounsellor/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ExpiryWorker processes appointment expiry tasks.
type ExpiryWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewExpiryWorker wires the expiry handler onto an asynq server.
func NewExpiryWorker(redisOpts asynq.RedisClientOpt, svc appointment.AppointmentService, logger *zap.Logger) *ExpiryWorker {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeAppointmentExpire, HandleExpireTask(svc, logger))

	return &ExpiryWorker{srv: srv, mux: mux, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *ExpiryWorker) Start() {
	go func() {
		w.logger.Info("starting expiry worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("failed to start expiry worker",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("expiry worker disabled after max attempts")
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

// Shutdown stops fetching new tasks and waits for in-flight ones.
func (w *ExpiryWorker) Shutdown() {
	w.srv.Shutdown()
}

// HandleExpireTask rejects the appointment if it is still pending when its slot starts.
func HandleExpireTask(svc appointment.AppointmentService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseExpirePayload(task)
		if err != nil {
			logger.Error("dropping malformed expiry task", zap.Error(err))
			return asynq.SkipRetry
		}

		changed, err := svc.ExpirePending(ctx, p.AppointmentID)
		if err != nil {
			logger.Warn("failed to expire appointment",
				zap.String("appointmentID", p.AppointmentID), zap.Error(err))
			return err
		}
		if changed {
			logger.Info("expired pending appointment", zap.String("appointmentID", p.AppointmentID))
		}
		return nil
	}
}
