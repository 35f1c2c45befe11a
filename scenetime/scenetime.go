// Package scenetime carries the wall-clock moment a scene is staged at: a
// calendar date, a local time of day, and the fixed UTC offset anchoring it.
// The ephemeris, the run manifest, and scenario files all consume the same
// Moment value, so parsing and conversion live here rather than in any of
// them.
package scenetime

import (
	"fmt"
	"time"
)

// Moment is a scene timestamp in local civil time.
type Moment struct {
	Year  int
	Month int
	Day   int

	Hour   int
	Minute int

	// UTCOffsetHours is the fixed offset of the local clock from UTC,
	// e.g. +2 for CEST. Fractional-hour zones are not supported.
	UTCOffsetHours int
}

// New parses a "YYYY-MM-DD" date and a "HH:MM" clock into a Moment with the
// given UTC offset.
func New(date, clock string, utcOffsetHours int) (Moment, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return Moment{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	c, err := time.Parse("15:04", clock)
	if err != nil {
		return Moment{}, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	if utcOffsetHours < -12 || utcOffsetHours > 14 {
		return Moment{}, fmt.Errorf("utc offset %+d out of range [-12, +14]", utcOffsetHours)
	}
	return Moment{
		Year:           d.Year(),
		Month:          int(d.Month()),
		Day:            d.Day(),
		Hour:           c.Hour(),
		Minute:         c.Minute(),
		UTCOffsetHours: utcOffsetHours,
	}, nil
}

// Local returns the instant in its fixed local zone.
func (m Moment) Local() time.Time {
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", m.UTCOffsetHours), m.UTCOffsetHours*3600)
	return time.Date(m.Year, time.Month(m.Month), m.Day, m.Hour, m.Minute, 0, 0, zone)
}

// UTC returns the instant converted to UTC.
func (m Moment) UTC() time.Time {
	return m.Local().UTC()
}

// IsZero reports whether the moment was never set.
func (m Moment) IsZero() bool {
	return m == Moment{}
}

// String formats like "2022-06-14 12:00 UTC+2".
func (m Moment) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d UTC%+d",
		m.Year, m.Month, m.Day, m.Hour, m.Minute, m.UTCOffsetHours)
}
