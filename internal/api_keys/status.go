package api_keys

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// timestampLayout is ISO-8601 in UTC with millisecond precision, the format
// of created_at and log entry times.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t the way created_at and log times are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ISO date-only forms are UTC midnight rather than local.
var isoDateLayouts = []string{
	time.DateOnly,
	"2006-01",
	"2006",
}

// Forms dateparse does not recognise, read in local time.
var fallbackLayouts = []string{
	"2006-01-02T15:04",
	"Jan 2 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseExpiry parses a stored expiry string. ok is false when the value is
// not a recognisable date.
//
// An integer other than a four digit year is epoch milliseconds. ISO dates
// without a time are UTC midnight. Everything else goes through dateparse,
// with local time for values that carry no zone.
func ParseExpiry(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ms, ok := epochMillis(s); ok {
		return time.UnixMilli(ms), true
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseIn(s, time.Local); err == nil {
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func epochMillis(s string) (int64, bool) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || len(digits) == 4 {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	return ms, err == nil
}

// Evaluate classifies a record at instant now. The checks run in a fixed
// order: absent, deleted, expired, valid. A deleted key that is also past its
// expiry reports deleted.
//
// An expiry that cannot be parsed never compares as past, so such a key stays
// valid until it is deleted.
func Evaluate(rec *KeyRecord, now time.Time) Status {
	if rec == nil {
		return StatusInvalid
	}
	if rec.Deleted {
		return StatusDeleted
	}
	if expiry, ok := ParseExpiry(rec.Expired); ok && now.After(expiry) {
		return StatusExpired
	}
	return StatusValid
}
