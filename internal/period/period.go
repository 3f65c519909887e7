// Package period implements budget window arithmetic: where the current
// tracking window starts, when it resets, and how far away the reset is.
// Weekly windows are Monday-aligned; monthly and yearly windows follow
// calendar boundaries.
package period

import (
	"time"

	"quid/internal/models"
)

// NextReset returns the instant the window starting at start rolls over.
//   - weekly: midnight of the next Monday strictly after start
//   - monthly: midnight of the first day of the next calendar month
//   - yearly: midnight of Jan 1 of the next year
func NextReset(p models.BudgetPeriod, start time.Time) time.Time {
	year, month, day := start.Date()
	loc := start.Location()

	switch p {
	case models.BudgetPeriodWeekly:
		days := (8 - int(start.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return time.Date(year, month, day+days, 0, 0, 0, 0, loc)
	case models.BudgetPeriodMonthly:
		return time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	case models.BudgetPeriodYearly:
		return time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return start
	}
}

// Advance rolls periodStart forward across every boundary that now has
// passed and returns the new window start plus the number of rollovers.
// Advancing once per elapsed period keeps the window aligned even when
// several periods went by since the budget was last refreshed.
func Advance(p models.BudgetPeriod, periodStart, now time.Time) (time.Time, int) {
	rollovers := 0
	for {
		next := NextReset(p, periodStart)
		if !next.After(periodStart) {
			// Unknown period type; refuse to loop forever.
			return periodStart, rollovers
		}
		if now.Before(next) {
			return periodStart, rollovers
		}
		periodStart = next
		rollovers++
	}
}

// DaysRemaining returns the number of whole days from now until the
// window's next reset, floored at zero.
func DaysRemaining(p models.BudgetPeriod, periodStart, now time.Time) int {
	next := NextReset(p, periodStart)
	if !next.After(now) {
		return 0
	}
	return int(next.Sub(now) / (24 * time.Hour))
}

// Window returns the half-open interval [start, end) of the window that
// begins at periodStart.
func Window(p models.BudgetPeriod, periodStart time.Time) (time.Time, time.Time) {
	return periodStart, NextReset(p, periodStart)
}
