package security

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 3, time.Minute)

	mock.ExpectIncr("ratelimit:mutation:user:alice").SetVal(1)
	mock.ExpectExpire("ratelimit:mutation:user:alice", time.Minute).SetVal(true)

	assert.True(t, limiter.Allow(context.Background(), "user:alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 3, time.Minute)

	mock.ExpectIncr("ratelimit:mutation:user:alice").SetVal(4)

	assert.False(t, limiter.Allow(context.Background(), "user:alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 3, time.Minute)

	mock.ExpectIncr("ratelimit:mutation:user:alice").SetErr(assert.AnError)

	assert.True(t, limiter.Allow(context.Background(), "user:alice"))
}
