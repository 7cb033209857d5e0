// Package calendar provides the month partitions the roster is built on:
// calendar weeks (Monday-start) and billing weeks (fixed 7-day blocks from
// day 1). All functions are pure.
package calendar

import "time"

// Day is one day of the target month together with its weekday index
// (0=Monday .. 6=Sunday).
type Day struct {
	Day     int
	Weekday int
}

// DaysInMonth returns the number of days in the month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WeekdayIndex converts a time.Weekday to the Monday-first index used
// throughout the roster.
func WeekdayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// DateOf returns midnight UTC of the given day of the month.
func DateOf(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// WeeksOfMonth partitions the month into calendar weeks. Each week holds only
// days of the target month, so the first and last week may be shorter than
// seven days.
func WeeksOfMonth(year, month int) [][]Day {
	numDays := DaysInMonth(year, month)
	first := WeekdayIndex(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday())

	var weeks [][]Day
	week := make([]Day, 0, 7)
	weekday := first
	for d := 1; d <= numDays; d++ {
		week = append(week, Day{Day: d, Weekday: weekday})
		if weekday == 6 {
			weeks = append(weeks, week)
			week = make([]Day, 0, 7)
		}
		weekday = (weekday + 1) % 7
	}
	if len(week) > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

// BillingWeeksOfMonth partitions the month into consecutive 7-day blocks
// starting at day 1, regardless of which weekday day 1 falls on. The last
// block may be shorter. Weekly hour and rest limits align to these blocks,
// not to calendar weeks.
func BillingWeeksOfMonth(year, month int) [][]Day {
	days := Flatten(WeeksOfMonth(year, month))

	var weeks [][]Day
	for start := 0; start < len(days); start += 7 {
		end := min(start+7, len(days))
		weeks = append(weeks, days[start:end])
	}
	return weeks
}

// Flatten concatenates the weeks back into a single ordered day list.
func Flatten(weeks [][]Day) []Day {
	var days []Day
	for _, w := range weeks {
		days = append(days, w...)
	}
	return days
}

// WeekdayLetter returns the single-letter abbreviation used when printing
// schedule boards.
func WeekdayLetter(weekday int) string {
	switch weekday {
	case 0:
		return "M"
	case 1, 3:
		return "T"
	case 2:
		return "W"
	case 4:
		return "F"
	case 5, 6:
		return "S"
	}
	return "?"
}
