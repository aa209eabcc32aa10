// Package dateutils provides common date operations used throughout the application.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutFull     = "2006-01-02 15:04:05"
	DateLayoutDayFirst = "02/01/2006"
	DateLayoutEuropean = "02.01.2006"
)

var whitespace = regexp.MustCompile(`\s+`)

// CommonFormats lists the layouts tried, in order, when parsing extracted dates.
// Day-first layouts are preferred over month-first ones.
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutFull,
	time.RFC3339,
	DateLayoutISO + "T15:04:05",
	DateLayoutDayFirst,
	"02-01-2006",
	DateLayoutEuropean,
	"2/1/2006",
	"2006/01/02",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 02, 2006",
}

// ParseDate parses a date string using CommonFormats and returns the date at
// midnight in loc (UTC when loc is nil) together with the layout that matched.
func ParseDate(dateStr string, loc *time.Location) (time.Time, string, error) {
	if loc == nil {
		loc = time.UTC
	}
	cleaned := CleanDateString(dateStr)
	if cleaned == "" {
		return time.Time{}, "", fmt.Errorf("empty date")
	}

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return StartOfDay(t, loc), format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseDateOr parses dateStr, returning fallback when it is empty or unparseable.
func ParseDateOr(dateStr string, fallback time.Time) time.Time {
	t, _, err := ParseDate(dateStr, fallback.Location())
	if err != nil {
		return fallback
	}
	return t
}

// CleanDateString trims and collapses whitespace in a date string.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// StartOfDay returns midnight of date's calendar day, interpreted in loc.
func StartOfDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = date.Location()
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// CompareDates compares the calendar days of two dates and returns:
//
//	-1 if date1 is before date2
//	 0 if date1 is equal to date2
//	 1 if date1 is after date2
func CompareDates(date1, date2 time.Time) int {
	date1 = time.Date(date1.Year(), date1.Month(), date1.Day(), 0, 0, 0, 0, time.UTC)
	date2 = time.Date(date2.Year(), date2.Month(), date2.Day(), 0, 0, 0, 0, time.UTC)

	if date1.Before(date2) {
		return -1
	} else if date1.After(date2) {
		return 1
	}
	return 0
}

// IsAfterDay reports whether date falls on a later calendar day than reference.
func IsAfterDay(date, reference time.Time) bool {
	return CompareDates(date, reference) > 0
}
