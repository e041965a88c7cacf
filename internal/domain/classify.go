package domain

import "time"

// Classification reports how one record participates in the dashboard:
// whether it counts toward today's totals, and which weekly bucket (if any)
// receives its minutes. The two memberships are independent.
type Classification struct {
	Today       bool
	BucketIndex int // -1 when no bucket date matches
}

// Classify places occurredAt relative to now's calendar day and the bucket
// skeleton. Day membership uses closed-open intervals: the first instant of a
// day belongs to that day, the next midnight to the following one. A zero
// occurredAt (the store's representation of a missing or unparseable
// timestamp) belongs nowhere; a timestamp outside the window is not an error,
// it is simply out of range.
func Classify(occurredAt, now time.Time, buckets []DayBucket) Classification {
	c := Classification{BucketIndex: -1}
	if occurredAt.IsZero() {
		return c
	}

	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)
	if !occurredAt.Before(dayStart) && occurredAt.Before(dayEnd) {
		c.Today = true
	}

	y, m, d := occurredAt.In(now.Location()).Date()
	for i := range buckets {
		by, bm, bd := buckets[i].Date.Date()
		if y == by && m == bm && d == bd {
			c.BucketIndex = i
			break
		}
	}
	return c
}
