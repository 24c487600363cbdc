package monthly_test

import (
	"testing"
	"time"

	"obligation_engine/internal/domain/monthly"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openObligation(status monthly.Status, deadline time.Time) *monthly.Obligation {
	return &monthly.Obligation{
		ID:       1,
		ClientID: 7,
		TypeID:   3,
		Year:     deadline.Year(),
		Month:    deadline.Month(),
		Deadline: deadline,
		Status:   status,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestRefreshStatus_PendingPastDeadlineBecomesOverdue(t *testing.T) {
	o := openObligation(monthly.StatusPending, day(2025, time.March, 31))

	o.RefreshStatus(day(2025, time.April, 1))

	assert.Equal(t, monthly.StatusOverdue, o.Status)
}

func TestRefreshStatus_CompletedNeverFlaggedOverdue(t *testing.T) {
	o := openObligation(monthly.StatusCompleted, day(2025, time.March, 31))

	o.RefreshStatus(day(2025, time.June, 1))

	assert.Equal(t, monthly.StatusCompleted, o.Status)
}

func TestRefreshStatus_DeadlineTodayStaysPending(t *testing.T) {
	// Overdue means strictly past the deadline; the deadline day itself is
	// still on time.
	o := openObligation(monthly.StatusPending, day(2025, time.March, 31))

	o.RefreshStatus(time.Date(2025, time.March, 31, 18, 45, 0, 0, time.UTC))

	assert.Equal(t, monthly.StatusPending, o.Status)
}

func TestRefreshStatus_OverdueStaysOverdue(t *testing.T) {
	o := openObligation(monthly.StatusOverdue, day(2025, time.March, 31))

	o.RefreshStatus(day(2025, time.April, 2))

	assert.Equal(t, monthly.StatusOverdue, o.Status)
}

func TestComplete_RecordsDateAndActor(t *testing.T) {
	o := openObligation(monthly.StatusOverdue, day(2025, time.March, 31))

	o.Complete(time.Date(2025, time.April, 3, 15, 4, 5, 0, time.UTC), "maria")

	assert.Equal(t, monthly.StatusCompleted, o.Status)
	require.True(t, o.CompletedDate.Valid)
	assert.Equal(t, day(2025, time.April, 3), o.CompletedDate.Time, "completion date is a calendar date, time of day dropped")
	require.True(t, o.CompletedBy.Valid)
	assert.Equal(t, "maria", o.CompletedBy.String)
}

func TestComplete_EmptyActorLeftUnset(t *testing.T) {
	o := openObligation(monthly.StatusPending, day(2025, time.March, 31))

	o.Complete(day(2025, time.March, 20), "")

	assert.False(t, o.CompletedBy.Valid)
}

func TestReopen_ClearsCompletionFields(t *testing.T) {
	o := openObligation(monthly.StatusPending, day(2025, time.March, 31))
	o.Complete(day(2025, time.March, 20), "maria")

	o.Reopen()

	assert.Equal(t, monthly.StatusPending, o.Status)
	assert.False(t, o.CompletedDate.Valid)
	assert.False(t, o.CompletedBy.Valid)
}

func TestCost_DefinedOnlyWithBothFigures(t *testing.T) {
	o := openObligation(monthly.StatusCompleted, day(2025, time.March, 31))

	_, ok := o.Cost()
	assert.False(t, ok, "no figures at all")

	o.TimeSpent = decimal.NullDecimal{Decimal: decimal.NewFromFloat(2.5), Valid: true}
	_, ok = o.Cost()
	assert.False(t, ok, "rate still missing")

	o.HourlyRate = decimal.NullDecimal{Decimal: decimal.NewFromInt(40), Valid: true}
	cost, ok := o.Cost()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(100).Equal(cost), "2.5h x 40 = 100, got %s", cost)
}

func TestPickSurvivor_CompletedBeatsOpenRows(t *testing.T) {
	rows := []*monthly.Obligation{
		{ID: 11, Status: monthly.StatusPending},
		{ID: 12, Status: monthly.StatusCompleted},
		{ID: 13, Status: monthly.StatusOverdue},
	}

	got := monthly.PickSurvivor(rows)

	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.ID)
}

func TestPickSurvivor_OverdueBeatsPending(t *testing.T) {
	rows := []*monthly.Obligation{
		{ID: 11, Status: monthly.StatusPending},
		{ID: 12, Status: monthly.StatusOverdue},
	}

	got := monthly.PickSurvivor(rows)

	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.ID)
}

func TestPickSurvivor_TieGoesToOldestRow(t *testing.T) {
	rows := []*monthly.Obligation{
		{ID: 31, Status: monthly.StatusPending},
		{ID: 4, Status: monthly.StatusPending},
		{ID: 19, Status: monthly.StatusPending},
	}

	got := monthly.PickSurvivor(rows)

	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.ID)
}

func TestPickSurvivor_EmptySet(t *testing.T) {
	assert.Nil(t, monthly.PickSurvivor(nil))
}
