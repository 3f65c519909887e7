// Package recurrence expands a recurring transaction template into the
// deterministic sequence of future instances it implies. Generation is
// pure and rerunnable: callers pass the set of already-materialized
// dates and only missing instances are produced.
package recurrence

import (
	"time"

	"quid/internal/models"
)

// Generation is bounded so a far-future horizon cannot expand a daily
// schedule without limit in one call.
const maxInstancesPerRun = 1000

// DateKey normalizes a date to the calendar-day key used to deduplicate
// generated instances of one origin.
func DateKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// DateAt returns the date of the n-th occurrence after the origin date.
// Month-based intervals anchor on the origin's day-of-month and clamp to
// the end of shorter months, so a Jan 31 monthly schedule yields
// Feb 28 (29 in leap years), Mar 31, Apr 30.
func DateAt(origin time.Time, interval models.RecurrenceInterval, n int) time.Time {
	switch interval {
	case models.RecurrenceDaily:
		return origin.AddDate(0, 0, n)
	case models.RecurrenceWeekly:
		return origin.AddDate(0, 0, 7*n)
	case models.RecurrenceBiweekly:
		return origin.AddDate(0, 0, 14*n)
	case models.RecurrenceMonthly:
		return addMonthsClamped(origin, n)
	case models.RecurrenceQuarterly:
		return addMonthsClamped(origin, 3*n)
	case models.RecurrenceYearly:
		return addMonthsClamped(origin, 12*n)
	default:
		return origin
	}
}

// addMonthsClamped adds months to t, preserving the day-of-month where
// possible and clamping to the last day of the target month otherwise.
// time.AddDate is unsuitable here: it normalizes Jan 31 + 1 month to
// Mar 2/3 instead of Feb 28/29.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// Instances generates the missing future instances of origin up to and
// including horizon. Instances whose calendar day already appears in
// existing are skipped. The origin must satisfy IsRecurrenceOrigin;
// anything else yields no instances, so a generated child can never fan
// out a second generation.
//
// Each instance copies the origin's monetary fields, carries the
// advanced date and the origin's id as parent, and is itself
// non-recurring. Pool assignment is not inherited: pool effects are
// applied when a transaction is explicitly assigned.
func Instances(origin models.Transaction, horizon time.Time, existing map[string]bool) []models.Transaction {
	if !origin.IsRecurrenceOrigin() {
		return nil
	}

	var out []models.Transaction
	for n := 1; n <= maxInstancesPerRun; n++ {
		date := DateAt(origin.Date, origin.RecurrenceInterval, n)
		if date.After(horizon) {
			break
		}
		if origin.RecurrenceEndDate != nil && date.After(*origin.RecurrenceEndDate) {
			break
		}
		if existing[DateKey(date)] {
			continue
		}

		parentID := origin.ID
		instance := models.Transaction{
			UserID:               origin.UserID,
			AccountID:            origin.AccountID,
			CategoryID:           origin.CategoryID,
			Type:                 origin.Type,
			Amount:               origin.Amount,
			Description:          origin.Description,
			Date:                 date,
			ToAccountID:          origin.ToAccountID,
			IsSplit:              origin.IsSplit,
			SplitFriendName:      origin.SplitFriendName,
			SplitFriendAmount:    origin.SplitFriendAmount,
			SplitSettleAccountID: origin.SplitSettleAccountID,
			SplitSettleLabel:     origin.SplitSettleLabel,
			IsRecurring:          false,
			RecurrenceInterval:   models.RecurrenceNone,
			ParentTransactionID:  &parentID,
		}
		out = append(out, instance)
	}
	return out
}
