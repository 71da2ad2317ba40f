package utils

import "time"

// UTCNow is the clock every timestamp the service writes is taken from
func UTCNow() time.Time {
	return time.Now().UTC()
}

// TimeToUTCPtr returns a UTC copy of t, keeping nil as nil
func TimeToUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
