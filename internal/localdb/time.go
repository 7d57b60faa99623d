package localdb

import "time"

// SQLite has no native timestamp type; timestamps are stored as RFC3339Nano
// strings in UTC so lexicographic ORDER BY matches chronological order.

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
