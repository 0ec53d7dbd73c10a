package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ISOLayout is the persisted and wire format of a Date.
const ISOLayout = "2006-01-02"

// ErrInvalidDate is returned for strings that are not YYYY-MM-DD calendar dates.
var ErrInvalidDate = errors.New("date must be a valid YYYY-MM-DD calendar date")

// Date is a calendar date without a time of day or zone.
// Day N of the calendar falls on StartDate + N - 1.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseISO parses a YYYY-MM-DD string.
// PRE: none
// POST: Returns ErrInvalidDate for malformed or impossible dates (e.g. 2026-02-30)
func ParseISO(s string) (Date, error) {
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return FromTime(t), nil
}

// FromTime takes the wall-clock date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date on the wall clock of loc.
// Using the user's zone rather than UTC keeps days from shifting near midnight.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(now.In(loc))
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// AddDays returns the date n days later, following month and year boundaries.
// INVARIANT: Arithmetic is on civil dates; no zone or DST shift can move the result
func (d Date) AddDays(n int) Date {
	return FromTime(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// ForDay maps a calendar day number to a concrete date.
// PRE: day >= 1
func (d Date) ForDay(day int) Date {
	return d.AddDays(day - 1)
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

var (
	monthsID        = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}
	monthsShortID   = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}
	weekdaysShortID = [...]string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"}
)

// FormatShort renders "15 Okt" for day cells.
func (d Date) FormatShort() string {
	if d.Month < time.January || d.Month > time.December {
		return fmt.Sprintf("%d/%d", d.Day, int(d.Month))
	}
	return fmt.Sprintf("%02d %s", d.Day, monthsShortID[d.Month-1])
}

// FormatLong renders "Kam, 15 Oktober 2026" for headers and the day detail.
func (d Date) FormatLong() string {
	if d.Month < time.January || d.Month > time.December {
		return d.String()
	}
	return fmt.Sprintf("%s, %02d %s %d", weekdaysShortID[d.Weekday()], d.Day, monthsID[d.Month-1], d.Year)
}
