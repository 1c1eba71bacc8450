package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// isoLayout matches the millisecond UTC form used by the stored records.
const isoLayout = "2006-01-02T15:04:05.000Z"

// DisplayLayout is used by FormatTimestamp.
const DisplayLayout = "Jan 2, 2006 3:04 PM"

// FormatISO renders t as a millisecond-precision UTC ISO-8601 string.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseTime accepts an ISO-8601 string or a Unix millisecond number.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return time.Time{}, false
		}
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, true
		}
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		if f, err := t.Float64(); err == nil {
			return time.UnixMilli(int64(f)).UTC(), true
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}

// FloorMinutes returns floor(d / 1m), rounding toward negative infinity.
func FloorMinutes(d time.Duration) int {
	m := d / time.Minute
	if d < 0 && d%time.Minute != 0 {
		m--
	}
	return int(m)
}

// FormatDuration renders whole minutes as "2h 5m", "2h" or "45m".
// Zero and negative values render as "0m".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// FormatRemaining describes how long a session has left.
func FormatRemaining(info *Info) string {
	switch {
	case info == nil:
		return "Not logged in"
	case info.IsExpired:
		return "Expired"
	default:
		return FormatDuration(info.RemainingMinutes) + " remaining"
	}
}

// FormatActiveRemaining is FormatRemaining for a caller that knows whether
// someone is signed in. A signed-in source without a window never expires.
func FormatActiveRemaining(info *Info, loggedIn bool) string {
	if info == nil && loggedIn {
		return "No expiry"
	}
	return FormatRemaining(info)
}

// FormatTimestamp renders t for display in loc (time.Local when nil).
// The zero time renders as "".
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DisplayLayout)
}
