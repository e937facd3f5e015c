package astrotime

import (
	"fmt"
	"time"
)

// DateTime is a plain calendar value: no time zone is stored. Whether the
// fields describe local time or UTC is a convention of the caller; Utc
// converts a local value and UtcNow produces a UTC one.
//
// Fields outside their calendar ranges are allowed to exist. IsValid
// reports whether the value can be trusted by the ephemeris functions.
type DateTime struct {
	Year        int
	Month       int // 1-12
	Day         int // 1-31
	Hour        int // 0-23
	Minute      int // 0-59
	Second      int // 0-59
	Millisecond int
}

// New creates a DateTime from its fields without normalizing them.
func New(year, month, day, hour, minute, second, millisecond int) DateTime {
	return DateTime{
		Year:        year,
		Month:       month,
		Day:         day,
		Hour:        hour,
		Minute:      minute,
		Second:      second,
		Millisecond: millisecond,
	}
}

// FromTime copies the calendar fields of t as seen in t's own location.
func FromTime(t time.Time) DateTime {
	return DateTime{
		Year:        t.Year(),
		Month:       int(t.Month()),
		Day:         t.Day(),
		Hour:        t.Hour(),
		Minute:      t.Minute(),
		Second:      t.Second(),
		Millisecond: t.Nanosecond() / int(time.Millisecond),
	}
}

// Now returns the current local calendar time.
func Now() DateTime {
	return FromTime(time.Now())
}

// UtcNow returns the current UTC calendar time.
func UtcNow() DateTime {
	return FromTime(time.Now().UTC())
}

// Utc converts a local calendar value to UTC using the host's zone rules
// at that instant.
func Utc(local DateTime) DateTime {
	return FromTime(local.In(time.Local).UTC())
}

// Local converts a UTC calendar value to the host's local time.
func Local(utc DateTime) DateTime {
	return FromTime(utc.In(time.UTC).Local())
}

// In interprets the fields in loc. Out-of-range fields are normalized the
// way time.Date does.
func (d DateTime) In(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day,
		d.Hour, d.Minute, d.Second, d.Millisecond*int(time.Millisecond), loc)
}

// Unix returns the POSIX time of d interpreted as local time.
func (d DateTime) Unix() int64 {
	return d.In(time.Local).Unix()
}

// Difference returns b - a in whole seconds. Both values must be in the
// same zone for the result to mean anything.
func Difference(a, b DateTime) int64 {
	return b.Unix() - a.Unix()
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in month of year, or 0 if the
// month is out of range.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	}
	return 0
}

// IsValid reports whether every field is inside its calendar range.
func (d DateTime) IsValid() bool {
	if d.Year < 0 || d.Year > 9999 {
		return false
	}
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	if d.Day < 1 || d.Day > DaysInMonth(d.Year, d.Month) {
		return false
	}
	if d.Hour < 0 || d.Hour > 23 {
		return false
	}
	if d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return false
	}
	return d.Millisecond >= 0
}

// normalize carries overflow and underflow of every field into the next
// larger unit. UTC is used so that no wall-clock gaps exist.
func (d DateTime) normalize() DateTime {
	return FromTime(d.In(time.UTC))
}

// AddMilliseconds returns d shifted by n milliseconds.
func (d DateTime) AddMilliseconds(n int) DateTime {
	d.Millisecond += n
	return d.normalize()
}

// AddSeconds returns d shifted by n seconds.
func (d DateTime) AddSeconds(n int) DateTime {
	d.Second += n
	return d.normalize()
}

// AddMinutes returns d shifted by n minutes.
func (d DateTime) AddMinutes(n int) DateTime {
	d.Minute += n
	return d.normalize()
}

// AddHours returns d shifted by n hours.
func (d DateTime) AddHours(n int) DateTime {
	d.Hour += n
	return d.normalize()
}

// AddDays returns d shifted by n days.
func (d DateTime) AddDays(n int) DateTime {
	d.Day += n
	return d.normalize()
}

// AddMonths returns d shifted by n months. A day that does not exist in
// the target month rolls over into the following month (Jan 31 + 1 month
// is Mar 3 or Mar 2).
func (d DateTime) AddMonths(n int) DateTime {
	d.Month += n
	return d.normalize()
}

// AddYears returns d shifted by n years. Feb 29 rolls over to Mar 1 in
// non-leap target years.
func (d DateTime) AddYears(n int) DateTime {
	d.Year += n
	return d.normalize()
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to
// or after o, field by field from Year down to Millisecond.
func (d DateTime) Compare(o DateTime) int {
	a := [...]int{d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.Millisecond}
	b := [...]int{o.Year, o.Month, o.Day, o.Hour, o.Minute, o.Second, o.Millisecond}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Before reports whether d is strictly earlier than o.
func (d DateTime) Before(o DateTime) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly later than o.
func (d DateTime) After(o DateTime) bool { return d.Compare(o) > 0 }

// Equal reports whether all fields of d and o match.
func (d DateTime) Equal(o DateTime) bool { return d.Compare(o) == 0 }

// String formats d as "YYYY-MM-DD hh:mm:ss.mmm".
func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%03d",
		d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.Millisecond)
}

// JulianDayNumber is the JulianDayNumber of d.
func (d DateTime) JulianDayNumber() float64 { return JulianDayNumber(d) }

// MeanJulianDayNumber is the MeanJulianDayNumber of d.
func (d DateTime) MeanJulianDayNumber() float64 { return MeanJulianDayNumber(d) }

// JulianCenturies is the JulianCenturies of d.
func (d DateTime) JulianCenturies() float64 { return JulianCenturies(d, false) }

// GreenwichMeanSiderealTime treats d as UTC and returns GMST in degrees.
func (d DateTime) GreenwichMeanSiderealTime() float64 { return GreenwichMeanSiderealTime(d) }
