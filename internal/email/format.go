package email

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// FormatTime renders an HH:MM[:SS] value on a 12-hour clock, e.g. "6:30 pm".
func FormatTime(value string) (string, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", errors.Newf("invalid time %q", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", errors.Newf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return "", errors.Newf("invalid minute in %q", value)
	}

	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minute, suffix), nil
}

// FormatTimeRange renders "6:30 pm - 9:00 pm".
func FormatTimeRange(start, end string) (string, error) {
	s, err := FormatTime(start)
	if err != nil {
		return "", err
	}
	e, err := FormatTime(end)
	if err != nil {
		return "", err
	}
	return s + " - " + e, nil
}

// FormatDate renders a YYYY-MM-DD date in long form, e.g. "Saturday, March 15, 2025".
// The date is a calendar day, so no time zone conversion happens.
func FormatDate(value string) (string, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return "", errors.Wrapf(err, "invalid date %q", value)
	}
	return d.Format("Monday, January 2, 2006"), nil
}
