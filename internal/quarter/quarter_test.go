package quarter

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestIsCurrent(t *testing.T) {
	// Freeze "now" in the middle of Q2 2025.
	now := time.Date(2025, time.May, 15, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	testCases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"same instant", now, true},
		{"start of current quarter", time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), true},
		{"end of current quarter", time.Date(2025, time.June, 30, 23, 59, 59, 0, time.UTC), true},
		{"previous quarter", time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC), false},
		{"next quarter", time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), false},
		{"same quarter previous year", time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC), false},
		{"non-UTC instant in current quarter", time.Date(2025, time.May, 15, 20, 0, 0, 0, time.FixedZone("UTC+8", 8*3600)), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsCurrent(tc.at))
		})
	}
}

func TestIndex(t *testing.T) {
	assert.Equal(t, 0, Index(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, Index(time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, Index(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, Index(time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)))
}

func TestLockFlipsAsClockAdvances(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, time.June, 30, 23, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	at := time.Date(2025, time.June, 30, 22, 0, 0, 0, time.UTC)
	assert.True(t, IsCurrent(at))

	// Crossing the quarter boundary locks the record with no writes involved.
	fake.Advance(2 * time.Hour)
	assert.False(t, IsCurrent(at))
}
