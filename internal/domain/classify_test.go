package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, time.March, 12, 12, 0, 0, 0, time.UTC)
	buckets := BuildWeekBuckets(now)

	cases := []struct {
		name       string
		occurredAt time.Time
		wantToday  bool
		wantBucket int
	}{
		{
			name:       "late tonight counts toward today",
			occurredAt: time.Date(2025, time.March, 12, 23, 59, 59, 0, time.UTC),
			wantToday:  true,
			wantBucket: 6,
		},
		{
			name:       "first instant of today belongs to today",
			occurredAt: time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
			wantToday:  true,
			wantBucket: 6,
		},
		{
			name:       "midnight six days ago opens the oldest bucket",
			occurredAt: time.Date(2025, time.March, 6, 0, 0, 0, 0, time.UTC),
			wantToday:  false,
			wantBucket: 0,
		},
		{
			name:       "seven days ago falls outside the window",
			occurredAt: time.Date(2025, time.March, 5, 23, 59, 59, 0, time.UTC),
			wantToday:  false,
			wantBucket: -1,
		},
		{
			name:       "clock-skewed future record belongs nowhere",
			occurredAt: time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC),
			wantToday:  false,
			wantBucket: -1,
		},
		{
			name:       "missing timestamp belongs nowhere",
			occurredAt: time.Time{},
			wantToday:  false,
			wantBucket: -1,
		},
		{
			name:       "mid-window record lands in its own bucket only",
			occurredAt: time.Date(2025, time.March, 9, 18, 30, 0, 0, time.UTC),
			wantToday:  false,
			wantBucket: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.occurredAt, now, buckets)
			require.Equal(t, tc.wantToday, got.Today)
			require.Equal(t, tc.wantBucket, got.BucketIndex)
		})
	}
}

func TestClassifyUsesLocalCalendarDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2025, time.March, 12, 12, 0, 0, 0, loc)
	buckets := BuildWeekBuckets(now)

	// 01:30 UTC on March 13 is still March 12 in New York.
	got := Classify(time.Date(2025, time.March, 13, 1, 30, 0, 0, time.UTC), now, buckets)
	require.True(t, got.Today)
	require.Equal(t, 6, got.BucketIndex)
}
