package utils

import "time"

// NowRFC3339 returns the current UTC time in RFC3339 format, the timestamp
// format stored throughout the table. UTC keeps sort keys ordered.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// EpochTTL returns a Unix-epoch TTL value the given duration from now, for
// rows the table expires on its own.
func EpochTTL(d time.Duration) int64 {
	return time.Now().Add(d).Unix()
}
