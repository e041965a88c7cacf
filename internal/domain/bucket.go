package domain

import "time"

// weekDays is the width of the trailing dashboard window.
const weekDays = 7

// DayBucket is one calendar day's aggregation slot in the trailing week.
type DayBucket struct {
	Label        string
	Date         time.Time // midnight at the start of the bucket's day
	TotalMinutes int
	IsToday      bool
}

// BuildWeekBuckets returns the seven-day bucket skeleton ending on now's
// calendar date, oldest first. Dates step by calendar day (AddDate), not by
// fixed 24h offsets, so the window stays correct across DST transitions and
// month or year rollover. Only the last bucket has IsToday set.
func BuildWeekBuckets(now time.Time) []DayBucket {
	today := startOfDay(now)
	buckets := make([]DayBucket, weekDays)
	for i := range buckets {
		date := today.AddDate(0, 0, i-(weekDays-1))
		buckets[i] = DayBucket{
			Label: narrowWeekday(date.Weekday()),
			Date:  date,
		}
	}
	buckets[weekDays-1].IsToday = true
	return buckets
}

// narrowWeekday renders the single-letter day marker used by the weekly chart.
func narrowWeekday(d time.Weekday) string {
	return d.String()[:1]
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
