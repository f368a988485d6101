// Package datetime parses the date and time forms accepted in content fields:
//
//	YYYY-MM-DD
//	HH:MM[:SS] [AM|PM]
//	YYYY-MM-DD HH:MM[:SS] [AM|PM]
//
// All values are interpreted in UTC.
package datetime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("datetime: invalid value")

var (
	dateRe  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	timeRe  = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?(?:\s*([AaPp][Mm]))?$`)
	splitRe = regexp.MustCompile(`^(\S+)\s+(.+)$`)
)

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// String formats c as HH:MM:SS.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Duration returns the offset of c from midnight.
func (c Clock) Duration() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute + time.Duration(c.Second)*time.Second
}

// ParseDate parses YYYY-MM-DD into midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalid, s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values; reject those instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: date %q out of range", ErrInvalid, s)
	}
	return t, nil
}

// ParseTime parses HH:MM[:SS] with an optional AM/PM suffix. With a suffix
// the hour must be between 1 and 12; 12 AM is midnight and 12 PM is noon.
func ParseTime(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, fmt.Errorf("%w: time %q", ErrInvalid, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	if meridiem := strings.ToUpper(m[4]); meridiem != "" {
		if hour < 1 || hour > 12 {
			return Clock{}, fmt.Errorf("%w: time %q: hour must be 1-12 with %s", ErrInvalid, s, meridiem)
		}
		switch {
		case meridiem == "PM" && hour < 12:
			hour += 12
		case meridiem == "AM" && hour == 12:
			hour = 0
		}
	}

	if hour > 23 || minute > 59 || second > 59 {
		return Clock{}, fmt.Errorf("%w: time %q out of range", ErrInvalid, s)
	}
	return Clock{Hour: hour, Minute: minute, Second: second}, nil
}

// ParseDateTime parses a date, optionally followed by whitespace and a time.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	datePart, timePart := s, ""
	if m := splitRe.FindStringSubmatch(s); m != nil {
		datePart, timePart = m[1], m[2]
	}
	d, err := ParseDate(datePart)
	if err != nil {
		return time.Time{}, err
	}
	if timePart == "" {
		return d, nil
	}
	c, err := ParseTime(timePart)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(c.Duration()), nil
}
