package services

import "time"

// timestampLayout is RFC3339 with a fixed-width nanosecond fraction.
// Fixed width keeps lexical order equal to chronological order, which
// the DynamoDB range key relies on.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t as the sortable form used for DynamoDB range
// keys.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp. Zero time on failure.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
