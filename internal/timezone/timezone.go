// Package timezone provides timezone utilities for the analysis engine.
//
// All user-facing time math happens in the user's IANA timezone and is
// converted to UTC at the engine boundary.
package timezone

import (
	"fmt"
	"time"

	"github.com/ayatoki/kiroku/internal/errors"
)

// UTC is the coordinated universal time timezone.
var UTC = time.UTC

// Parse parses an IANA timezone identifier (e.g., "Asia/Tokyo").
// If the timezone is invalid, returns UTC and a typed conversion error.
func Parse(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, errors.TimezoneConversionFailed(tz, err)
	}

	return loc, nil
}

// MustParse parses a timezone or panics if invalid.
// Use this for constants that are known to be valid at compile time.
func MustParse(tz string) *time.Location {
	loc, err := Parse(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValid checks if a timezone identifier is valid.
func IsValid(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}

	_, err := time.LoadLocation(tz)
	return err == nil
}

// FormatLocalTime formats an instant as "2006-01-02 15:04" in the given timezone.
// This is the display format fed to the semantic classifier.
func FormatLocalTime(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	return t.In(tz).Format("2006-01-02 15:04")
}

// FormatLogForContext formats one history entry for classifier context.
// Format: "content @ 2006-01-02 15:04"
func FormatLogForContext(content string, ts time.Time, tz *time.Location) string {
	return fmt.Sprintf("%s @ %s", content, FormatLocalTime(ts, tz))
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the given timezone.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, tz)
}

// BusinessDate returns the user-facing calendar date a log belongs to,
// computed from local time, not the UTC date.
func BusinessDate(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	return t.In(tz).Format("2006-01-02")
}

// Common timezone constants
const (
	// TimezoneUTC is the UTC timezone identifier
	TimezoneUTC = "UTC"

	// TimezoneAsiaTokyo is the Japan Standard Time timezone
	TimezoneAsiaTokyo = "Asia/Tokyo"
)

// LocationAsiaTokyo is the pre-loaded Asia/Tokyo location.
var LocationAsiaTokyo = MustParse(TimezoneAsiaTokyo)
