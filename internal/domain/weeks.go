package domain

import (
	"errors"
	"fmt"
	"time"
)

// maxWeeksPerMonth bounds the week enumeration. no real month needs more.
const maxWeeksPerMonth = 6

var ErrInvalidWeek = errors.New("week must start on a sunday listed in the week catalog")

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the lowercase spanish name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// WeekDescriptor describes one Sunday-aligned week within a month's catalog.
// purely derived, never persisted.
type WeekDescriptor struct {
	WeekNumber     int          `json:"weekNumber"`
	Label          string       `json:"label"`
	DateRangeLabel string       `json:"dateRangeLabel"`
	Start          CalendarDate `json:"start"`
	End            CalendarDate `json:"end"`
	Month          time.Month   `json:"month"`
	Year           int          `json:"year"`
}

// Contains reports whether d falls within the week.
func (w WeekDescriptor) Contains(d CalendarDate) bool {
	return !d.IsZero() && !d.Before(w.Start) && !d.After(w.End)
}

// WeeksOfMonth enumerates the Sunday-aligned weeks overlapping the given month,
// starting with the week that contains the 1st. week numbers are 1-based within
// the month, not ISO week numbers. an invalid month yields nil.
func WeeksOfMonth(year int, month time.Month) []WeekDescriptor {
	ym := YearMonth{Year: year, Month: month}
	if !ym.IsValid() {
		return nil
	}
	first, last := ym.Start(), ym.End()

	weeks := make([]WeekDescriptor, 0, maxWeeksPerMonth)
	start := first.WeekStart()
	for len(weeks) < maxWeeksPerMonth {
		end := start.AddDays(6)
		overlaps := !end.Before(first) && !start.After(last)
		if overlaps || len(weeks) == 0 {
			n := len(weeks) + 1
			weeks = append(weeks, WeekDescriptor{
				WeekNumber:     n,
				Label:          fmt.Sprintf("Semana %d de %s", n, MonthName(month)),
				DateRangeLabel: DateRangeLabel(start, end),
				Start:          start,
				End:            end,
				Month:          month,
				Year:           year,
			})
		}
		start = start.AddDays(7)
		if start.After(last) {
			break
		}
	}
	return weeks
}

// DateRangeLabel formats a week range for display. the format depends on
// whether start and end share a (year, month):
//
//	same month:        3/3-9/3
//	cross-month:       25/02-02/03
//	cross-year:        29/12/2024-04/01/2025
func DateRangeLabel(start, end CalendarDate) string {
	switch {
	case start.Year() != end.Year():
		return fmt.Sprintf("%02d/%02d/%d-%02d/%02d/%d",
			start.Day(), int(start.Month()), start.Year(), end.Day(), int(end.Month()), end.Year())
	case start.Month() != end.Month():
		return fmt.Sprintf("%02d/%02d-%02d/%02d",
			start.Day(), int(start.Month()), end.Day(), int(end.Month()))
	default:
		return fmt.Sprintf("%d/%d-%d/%d",
			start.Day(), int(start.Month()), end.Day(), int(end.Month()))
	}
}

// FindWeek returns the descriptor starting at start.
func FindWeek(weeks []WeekDescriptor, start CalendarDate) (WeekDescriptor, bool) {
	for _, w := range weeks {
		if w.Start.Equal(start) {
			return w, true
		}
	}
	return WeekDescriptor{}, false
}

// ValidateWeek checks that start is a legitimate week key: a Sunday listed in
// the catalog of its own month.
func ValidateWeek(start CalendarDate) (WeekDescriptor, error) {
	if start.IsZero() || start.Weekday() != time.Sunday {
		return WeekDescriptor{}, ErrInvalidWeek
	}
	w, ok := FindWeek(WeeksOfMonth(start.Year(), start.Month()), start)
	if !ok {
		return WeekDescriptor{}, ErrInvalidWeek
	}
	return w, nil
}

// CurrentWeek returns the catalog entry of the week containing today.
func CurrentWeek(today CalendarDate) WeekDescriptor {
	weeks := WeeksOfMonth(today.Year(), today.Month())
	if w, ok := FindWeek(weeks, today.WeekStart()); ok {
		return w
	}
	return weeks[len(weeks)-1]
}
