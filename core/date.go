package core

import (
	"strconv"
	"strings"
	"time"
)

// dateFormats is the prioritized pattern list from §4.E, expressed as Go
// reference-time layouts in the same "try each format in turn" style as
// the teacher's scm/date.go parse_date.
var dateFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
}

// parseDateTime tries the prioritized layout list, then falls back to
// Unix epoch seconds/milliseconds, returning a Unix-seconds timestamp.
func parseDateTime(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch len(s) {
		case 10:
			return n, true
		case 13:
			return n / 1000, true
		}
	}
	return 0, false
}

func civilComponents(unixSeconds int64) (dow, month, hour int) {
	t := time.Unix(unixSeconds, 0).UTC()
	return int(t.Weekday()), int(t.Month()) - 1, t.Hour()
}
