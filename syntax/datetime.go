package syntax

import (
	"time"
)

const (
	// Preferred atproto Datetime string syntax, for use with [time.Format].
	AtprotoDatetimeLayout = "2006-01-02T15:04:05.999Z"
)

// Formats a time as an atproto Datetime string, normalized to UTC.
func DatetimeString(t time.Time) string {
	return t.UTC().Format(AtprotoDatetimeLayout)
}
