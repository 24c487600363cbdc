// internal/domain/catalog/deadline.go
package catalog

import "time"

// Deadline resolves the due date for the given target period under the
// type's deadline policy. The boolean reports whether a deadline exists at
// all: a SPECIFIC_DAY policy without a configured day (and any unknown
// policy value) yields none, and callers must skip the pair rather than
// treat it as a failure.
//
// Dates are pure calendar dates, constructed at midnight UTC.
func (t *ObligationType) Deadline(year int, month time.Month) (time.Time, bool) {
	switch t.DeadlinePolicy {
	case DeadlineLastDayOfMonth:
		return lastDayOfMonth(year, month), true
	case DeadlineLastDayOfPreviousMonth:
		// time.Date normalizes month 0 to December of the prior year.
		return lastDayOfMonth(year, month-1), true
	case DeadlineLastDayOfNextMonth:
		return lastDayOfMonth(year, month+1), true
	case DeadlineSpecificDay:
		if !t.SpecificDay.Valid {
			return time.Time{}, false
		}
		day := int(t.SpecificDay.Int16)
		// A configured day beyond the month's length (the 31st in February)
		// means the month's last day, never a roll-over into the next month.
		if last := lastDayOfMonth(year, month).Day(); day > last {
			day = last
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

// lastDayOfMonth uses the day-zero normalization trick: day 0 of the
// following month is the last day of this one. Leap years fall out of the
// standard library's calendar arithmetic.
func lastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}
