package util

import (
	"fmt"
	"strings"
	"time"
)

// placeholders are tried in order at each position, so longer tokens come first.
var placeholders = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"hh", "15",
	"mm", "04",
	"ss", "05",
)

// FormatDateTpl formats t using a template with placeholders.
//
// Supported placeholders: YYYY, YY, MM, DD, hh, mm, ss.
// A zero time formats as an empty string.
//
// Example:
//
//	FormatDateTpl(t, "YYYY-MM-DD hh:mm") // "2023-11-10 00:00"
func FormatDateTpl(t time.Time, tpl string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(placeholders.Replace(tpl))
}

// FormatDuration renders d as "1d 2h 3m 4s", omitting leading zero units.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Truncate(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", int64(days)))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", int64(hours)))
	}
	if days > 0 || hours > 0 || minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", int64(minutes)))
	}
	parts = append(parts, fmt.Sprintf("%ds", int64(seconds)))
	return strings.Join(parts, " ")
}
