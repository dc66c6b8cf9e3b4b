package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is used when NewMemoryStore is given a non-positive count
const DefaultShardCount = 32

type shard struct {
	mu      sync.Mutex
	records map[string]*Record
}

// MemoryStore keeps attempt records in process memory, split across shards
// that each own a mutex. State is lost on restart and is not shared between
// instances.
type MemoryStore struct {
	shards []*shard
	policy Policy
}

// NewMemoryStore creates a MemoryStore with the given policy and shard count
func NewMemoryStore(policy Policy, shardCount int) *MemoryStore {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{records: make(map[string]*Record)}
	}

	return &MemoryStore{
		shards: shards,
		policy: policy,
	}
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := murmur3.Sum32([]byte(key))
	return s.shards[h%uint32(len(s.shards))]
}

// Status returns the record for key, dropping it if it is stale
func (s *MemoryStore) Status(_ context.Context, key string, now time.Time) (Record, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		return Record{}, nil
	}
	if s.policy.Stale(*rec, now) {
		delete(sh.records, key)
		return Record{}, nil
	}
	return *rec, nil
}

// RecordFailure increments the failure count for key under its shard lock
func (s *MemoryStore) RecordFailure(_ context.Context, key string, now time.Time) (Record, bool, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if ok && s.policy.Stale(*rec, now) {
		ok = false
	}
	if !ok {
		rec = &Record{}
		sh.records[key] = rec
	}

	rec.FailureCount++
	rec.LastFailure = now

	newlyLocked := false
	if !rec.Locked() && rec.FailureCount >= s.policy.MaxAttempts {
		rec.LockedSince = now
		newlyLocked = true
	}

	return *rec, newlyLocked, nil
}

// Reset removes the record for key
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.records, key)
	sh.mu.Unlock()
	return nil
}

// Sweep drops stale records and returns how many were removed. Stale records
// already read as Clean, so this only reclaims memory. Without an IdleTTL,
// Warning records are kept until a successful login resets them.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, rec := range sh.records {
			if s.policy.Stale(*rec, now) {
				delete(sh.records, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Policy returns the thresholds this store enforces
func (s *MemoryStore) Policy() Policy {
	return s.policy
}

// Len returns the number of tracked identifiers
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}
