package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordMinutesRemaining(t *testing.T) {
	since := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{FailureCount: 5, LockedSince: since}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{name: "just locked", elapsed: 0, want: 15},
		{name: "one second in", elapsed: time.Second, want: 15},
		{name: "partial minute rounds up", elapsed: 5*time.Minute + 30*time.Second, want: 10},
		{name: "exact minute boundary", elapsed: 10 * time.Minute, want: 5},
		{name: "seconds left floors to one", elapsed: 14*time.Minute + 50*time.Second, want: 1},
		{name: "already expired floors to one", elapsed: 20 * time.Minute, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rec.MinutesRemaining(since.Add(tt.elapsed), LockoutDuration))
		})
	}
}

func TestRecordExpired(t *testing.T) {
	since := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{FailureCount: 5, LockedSince: since}

	assert.False(t, rec.Expired(since.Add(LockoutDuration-time.Nanosecond), LockoutDuration))
	assert.True(t, rec.Expired(since.Add(LockoutDuration), LockoutDuration))
	assert.False(t, Record{FailureCount: 3}.Expired(since.Add(time.Hour), LockoutDuration))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 15*time.Minute, p.Window)
}
