// internal/app/period.go
package app

import "time"

// NextPeriod returns the calendar month after the one containing now. It is
// the default generation target: the batch prepares next month's work-items
// before that month begins.
func NextPeriod(now time.Time) (int, time.Month) {
	t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return t.Year(), t.Month()
}
