package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lockout:"

// staleCheck is shared by both scripts. It deletes the record when its lock
// has expired, or when it is unlocked and idle for the configured TTL, and
// reports whether it did.
const staleCheck = `
local function clear_if_stale(key, now, window, idle)
	local since = tonumber(redis.call('HGET', key, 'locked_since'))
	if since then
		if now - since >= window then
			redis.call('DEL', key)
			return true
		end
		return false
	end
	local last = tonumber(redis.call('HGET', key, 'last_failure'))
	if idle > 0 and last and now - last >= idle then
		redis.call('DEL', key)
		return true
	end
	return false
end
`

// statusScript reads a record and clears it if stale in one step.
// KEYS[1] record hash; ARGV: now (unix ms), window (ms), idle ttl (ms).
// Returns {failure_count, locked_since_ms or -1, last_failure_ms or -1}.
var statusScript = redis.NewScript(staleCheck + `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local idle = tonumber(ARGV[3])

if clear_if_stale(key, now, window, idle) then
	return {0, -1, -1}
end

local count = tonumber(redis.call('HGET', key, 'count')) or 0
local since = tonumber(redis.call('HGET', key, 'locked_since')) or -1
local last = tonumber(redis.call('HGET', key, 'last_failure')) or -1
return {count, since, last}
`)

// recordFailureScript performs the whole read-modify-write of one failure.
// KEYS[1] record hash; ARGV: now (unix ms), max attempts, window (ms), idle ttl (ms).
// Returns {failure_count, locked_since_ms or -1, newly_locked}.
var recordFailureScript = redis.NewScript(staleCheck + `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local max = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local idle = tonumber(ARGV[4])

clear_if_stale(key, now, window, idle)
local since = tonumber(redis.call('HGET', key, 'locked_since'))

local count = redis.call('HINCRBY', key, 'count', 1)
redis.call('HSET', key, 'last_failure', now)

local newly = 0
if (not since) and count >= max then
	since = now
	newly = 1
	redis.call('HSET', key, 'locked_since', now)
	redis.call('PEXPIRE', key, window)
elseif (not since) and idle > 0 then
	redis.call('PEXPIRE', key, idle)
end

return {count, since or -1, newly}
`)

// RedisStore keeps attempt records in Redis so that several instances share
// one lockout view. Lock timestamps come from the caller's clock; the key TTL
// only reclaims storage once a record is stale.
type RedisStore struct {
	client redis.UniversalClient
	policy Policy
}

// NewRedisStore creates a RedisStore on an existing client
func NewRedisStore(client redis.UniversalClient, policy Policy) *RedisStore {
	return &RedisStore{
		client: client,
		policy: policy,
	}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

// Status reads the record for key, deleting it in the same script if stale
func (s *RedisStore) Status(ctx context.Context, key string, now time.Time) (Record, error) {
	res, err := statusScript.Run(ctx, s.client,
		[]string{redisKey(key)},
		now.UnixMilli(), s.policy.Window.Milliseconds(), s.policy.IdleTTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Record{}, fmt.Errorf("failed to read attempt record: %w", err)
	}
	if len(res) != 3 {
		return Record{}, fmt.Errorf("unexpected script reply length %d", len(res))
	}

	rec := Record{FailureCount: int(res[0])}
	if res[1] >= 0 {
		rec.LockedSince = time.UnixMilli(res[1])
	}
	if res[2] >= 0 {
		rec.LastFailure = time.UnixMilli(res[2])
	}
	return rec, nil
}

// RecordFailure runs the failure script atomically for key
func (s *RedisStore) RecordFailure(ctx context.Context, key string, now time.Time) (Record, bool, error) {
	res, err := recordFailureScript.Run(ctx, s.client,
		[]string{redisKey(key)},
		now.UnixMilli(), s.policy.MaxAttempts, s.policy.Window.Milliseconds(), s.policy.IdleTTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to record failed attempt: %w", err)
	}
	if len(res) != 3 {
		return Record{}, false, fmt.Errorf("unexpected script reply length %d", len(res))
	}

	rec := Record{FailureCount: int(res[0]), LastFailure: time.UnixMilli(now.UnixMilli())}
	if res[1] >= 0 {
		rec.LockedSince = time.UnixMilli(res[1])
	}

	return rec, res[2] == 1, nil
}

// Reset deletes the record for key
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset attempt record: %w", err)
	}
	return nil
}

// Policy returns the thresholds this store enforces
func (s *RedisStore) Policy() Policy {
	return s.policy
}

// HealthCheck pings the Redis server
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
