package timeutil

import "time"

// Now returns the current time in UTC.
// Always use this instead of time.Now() to ensure timezone consistency.
func Now() time.Time {
	return time.Now().UTC()
}

// ToUTC converts a time.Time to UTC if it isn't already.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// ExpiresAfter returns the expiry instant for a session opened now with the
// given time-to-live.
func ExpiresAfter(now time.Time, ttl time.Duration) time.Time {
	return now.UTC().Add(ttl)
}
