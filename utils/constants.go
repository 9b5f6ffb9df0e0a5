package utils

// ContextUserIDKey is the gin context key holding the authenticated user id.
const ContextUserIDKey = "userID"

// IdempotencyKeyHeader carries the client's retry key on booking requests.
const IdempotencyKeyHeader = "Idempotency-Key"
