package appointment

import (
	"context"
	"errors"
	"time"

	"procounsellor/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// IdempotencyCache maps (user, idempotency key) to the appointment it produced. It is
// only a fast path; the transaction re-checks the stored key.
type IdempotencyCache interface {
	Lookup(ctx context.Context, userID, key string) (string, bool)
	Remember(ctx context.Context, userID, key, appointmentID string)
}

const idempotencyPrefix = "booking:idem:"

// RedisIdempotencyCache stores idempotency keys in Redis with a TTL.
type RedisIdempotencyCache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *zap.Logger
}

func NewRedisIdempotencyCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisIdempotencyCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisIdempotencyCache{Client: client, TTL: ttl, Logger: logger}
}

func idempotencyCacheKey(userID, key string) string {
	return idempotencyPrefix + userID + ":" + key
}

func (c *RedisIdempotencyCache) Lookup(ctx context.Context, userID, key string) (string, bool) {
	id, err := c.Client.Get(ctx, idempotencyCacheKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.Logger.Warn("idempotency cache lookup failed", zap.Error(err))
		return "", false
	}
	return id, true
}

func (c *RedisIdempotencyCache) Remember(ctx context.Context, userID, key, appointmentID string) {
	if err := c.Client.Set(ctx, idempotencyCacheKey(userID, key), appointmentID, c.TTL).Err(); err != nil {
		c.Logger.Warn("idempotency cache write failed", zap.Error(err))
	}
}

func (s *DefaultAppointmentService) replayFromCache(ctx context.Context, req models.AppointmentRequest) *models.Appointment {
	if s.Idempotency == nil || req.IdempotencyKey == "" {
		return nil
	}
	id, ok := s.Idempotency.Lookup(ctx, req.UserID, req.IdempotencyKey)
	if !ok {
		return nil
	}
	appt, err := s.Store.GetAppointment(ctx, id)
	if err != nil || appt.UserID != req.UserID || !sameSlot(*appt, req) {
		return nil
	}
	return appt
}

func (s *DefaultAppointmentService) rememberIdempotency(ctx context.Context, req models.AppointmentRequest, appointmentID string) {
	if s.Idempotency == nil || req.IdempotencyKey == "" {
		return
	}
	s.Idempotency.Remember(ctx, req.UserID, req.IdempotencyKey, appointmentID)
}
