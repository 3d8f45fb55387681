package domain

import (
	"fmt"
	"math"
	"time"
)

// DTGLayout is the reference-time layout YYYYMMDDHH.
const DTGLayout = "2006010215"

// DuplicateWindow is the Julian-day tolerance under which two records with
// the same technique are the same product.
const DuplicateWindow = 1.0 / 24.0

// julianEpsilon absorbs float64 rounding near JD 2.46e6 (about 1 ms), so
// products exactly one hour apart stay distinct.
const julianEpsilon = 1e-8

// SameProductTime reports whether two Julian dates fall inside DuplicateWindow.
func SameProductTime(a, b float64) bool {
	return math.Abs(a-b) < DuplicateWindow-julianEpsilon
}

// ToJulianDay converts a proleptic Gregorian calendar date plus fractional
// hour into a continuous day count. The integer part is the Julian Day Number.
func ToJulianDay(month, day, year int, hour float64) float64 {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	return float64(jdn) + hour/24.0
}

// JulianFromTime converts t (in UTC) to a Julian day.
func JulianFromTime(t time.Time) float64 {
	t = t.UTC()
	hour := float64(t.Hour()) + float64(t.Minute())/60.0
	return ToJulianDay(int(t.Month()), t.Day(), t.Year(), hour)
}

// ParseDTG parses a YYYYMMDDHH reference time.
func ParseDTG(dtg string) (time.Time, error) {
	if len(dtg) != len(DTGLayout) {
		return time.Time{}, fmt.Errorf("%w: dtg %q: want YYYYMMDDHH", ErrParse, dtg)
	}
	t, err := time.ParseInLocation(DTGLayout, dtg, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dtg %q: %v", ErrParse, dtg, err)
	}
	return t, nil
}

// FormatDTG renders t as YYYYMMDDHH in UTC.
func FormatDTG(t time.Time) string {
	return t.UTC().Format(DTGLayout)
}

// JulianFromDTG parses dtg and returns its Julian day.
func JulianFromDTG(dtg string) (float64, error) {
	t, err := ParseDTG(dtg)
	if err != nil {
		return 0, err
	}
	return JulianFromTime(t), nil
}

// ResolveMonth assigns a year and month to a bulletin that reports only its
// day of month. A day after today's day belongs to the previous month.
func ResolveMonth(day int, today time.Time) (int, time.Month) {
	year, month := today.Year(), today.Month()
	if day > today.Day() {
		month--
		if month < time.January {
			month = time.December
			year--
		}
	}
	return year, month
}

// BulletinTime resolves a day/hour pair against the package clock.
func BulletinTime(day, hour int) (time.Time, error) {
	if day < 1 || day > 31 || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: day %d hour %d out of range", ErrParse, day, hour)
	}
	year, month := ResolveMonth(day, Now())
	t := time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
	if t.Month() != month {
		return time.Time{}, fmt.Errorf("%w: day %d does not exist in %s %d", ErrParse, day, month, year)
	}
	return t, nil
}
