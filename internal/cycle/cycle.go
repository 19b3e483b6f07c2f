// Package cycle derives the identifiers that partition photos into
// "current" buckets: the Today feature's daily date key and its
// posting window. All functions are pure; callers pass the clock in.
package cycle

import "time"

// DateKey returns the local calendar date for now as YYYY-MM-DD.
// It must be recomputed on every read; caching a key across a day
// boundary would let posts leak into the wrong cycle.
func DateKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// Window returns the Today posting window containing now: local
// midnight through 23:59:59.999. A photo belongs to the cycle iff its
// creation time falls inside the window, which by construction agrees
// with DateKey equality.
func Window(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end = time.Date(y, m, d, 23, 59, 59, 999000000, now.Location())
	return start, end
}

// Contains reports whether t falls inside the window [start, end].
func Contains(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
