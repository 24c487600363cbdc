// internal/domain/monthly/obligation.go
package monthly

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Obligation is one generated work-item: a specific obligation type due for
// a specific client in a specific period. Corresponds to the
// 'monthly_obligations' table, where (client_id, obligation_type_id, year,
// month) carries a unique constraint — the idempotency key of the whole
// generation engine.
type Obligation struct {
	ID            int64
	ClientID      int64
	TypeID        int64 // Foreign key to obligation_types.id
	Year          int
	Month         time.Month
	Deadline      time.Time // calendar date, midnight UTC
	Status        Status
	CompletedDate sql.NullTime
	CompletedBy   sql.NullString // acting operator, free-form
	Notes         sql.NullString
	TimeSpent     decimal.NullDecimal // hours
	HourlyRate    decimal.NullDecimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Key is the idempotency key: at most one row may exist per combination.
type Key struct {
	ClientID int64
	TypeID   int64
	Year     int
	Month    time.Month
}

// Key returns the row's idempotency key.
func (o *Obligation) Key() Key {
	return Key{ClientID: o.ClientID, TypeID: o.TypeID, Year: o.Year, Month: o.Month}
}

// RefreshStatus applies the save-time derivation: an open row whose deadline
// has passed becomes OVERDUE. Completed rows are never touched, whatever
// their deadline says. Every writer calls this immediately before
// persisting.
func (o *Obligation) RefreshStatus(today time.Time) {
	if o.Status == StatusCompleted {
		return
	}
	if o.Deadline.Before(dateOnly(today)) {
		o.Status = StatusOverdue
	}
}

// Complete marks the row done, recording when and by whom. completedOn is
// truncated to a calendar date; an empty completedBy leaves the actor
// unset.
func (o *Obligation) Complete(completedOn time.Time, completedBy string) {
	o.Status = StatusCompleted
	o.CompletedDate = sql.NullTime{Time: dateOnly(completedOn), Valid: true}
	if completedBy != "" {
		o.CompletedBy = sql.NullString{String: completedBy, Valid: true}
	} else {
		o.CompletedBy = sql.NullString{}
	}
}

// Reopen reverts a completed row to PENDING and clears the completion
// fields. A past deadline will flip it straight to OVERDUE on the next
// save, which is the intended outcome.
func (o *Obligation) Reopen() {
	o.Status = StatusPending
	o.CompletedDate = sql.NullTime{}
	o.CompletedBy = sql.NullString{}
}

// Cost is the tracked effort in money terms: hours spent times the hourly
// rate. The boolean is false when either figure is missing — cost is
// undefined then, not zero.
func (o *Obligation) Cost() (decimal.Decimal, bool) {
	if !o.TimeSpent.Valid || !o.HourlyRate.Valid {
		return decimal.Decimal{}, false
	}
	return o.TimeSpent.Decimal.Mul(o.HourlyRate.Decimal), true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
