package catalog_test

import (
	"testing"
	"time"

	"obligation_engine/internal/domain/catalog"

	"github.com/stretchr/testify/assert"
)

func typeWithFrequency(freq catalog.Frequency, months ...time.Month) *catalog.ObligationType {
	return &catalog.ObligationType{
		Code:             "TEST",
		Name:             "Test obligation",
		Frequency:        freq,
		DeadlinePolicy:   catalog.DeadlineLastDayOfMonth,
		ApplicableMonths: months,
		IsActive:         true,
	}
}

func TestAppliesToMonth_Monthly_EveryMonth(t *testing.T) {
	ot := typeWithFrequency(catalog.FrequencyMonthly)
	for m := time.January; m <= time.December; m++ {
		assert.True(t, ot.AppliesToMonth(m), "month %s", m)
	}
}

func TestAppliesToMonth_Quarterly_DefaultsToQuarterEnds(t *testing.T) {
	ot := typeWithFrequency(catalog.FrequencyQuarterly)

	for _, m := range []time.Month{time.January, time.April, time.July, time.October} {
		assert.True(t, ot.AppliesToMonth(m), "month %s", m)
	}
	assert.False(t, ot.AppliesToMonth(time.May))
	assert.False(t, ot.AppliesToMonth(time.December))
}

func TestAppliesToMonth_Quarterly_ExplicitMonthsWin(t *testing.T) {
	// A shifted quarterly calendar (e.g. fiscal quarters ending one month
	// later) overrides the default quarter-end months entirely.
	ot := typeWithFrequency(catalog.FrequencyQuarterly, time.February, time.May, time.August, time.November)

	assert.True(t, ot.AppliesToMonth(time.May))
	assert.False(t, ot.AppliesToMonth(time.April))
	assert.False(t, ot.AppliesToMonth(time.January))
}

func TestAppliesToMonth_Annual_ExplicitMonth(t *testing.T) {
	ot := typeWithFrequency(catalog.FrequencyAnnual, time.June)

	assert.True(t, ot.AppliesToMonth(time.June))
	assert.False(t, ot.AppliesToMonth(time.July))
}

func TestAppliesToMonth_Annual_EmptyMonthsAppliesEveryMonth(t *testing.T) {
	// Intended but surprising: an annual type with no configured month
	// applies to all twelve months. The permissive fallback keeps a
	// misconfigured type visible instead of silently never generating; the
	// seed catalog always sets an explicit month for annual types.
	ot := typeWithFrequency(catalog.FrequencyAnnual)

	for m := time.January; m <= time.December; m++ {
		assert.True(t, ot.AppliesToMonth(m), "month %s", m)
	}
}

func TestAppliesToMonth_FollowsCycle_NoRestriction(t *testing.T) {
	ot := typeWithFrequency(catalog.FrequencyFollowsCycle)

	assert.True(t, ot.AppliesToMonth(time.March))
	assert.True(t, ot.AppliesToMonth(time.November))
}

func TestAppliesToMonth_UnknownFrequency_NoRestriction(t *testing.T) {
	ot := typeWithFrequency(catalog.Frequency("BIWEEKLY"))

	assert.True(t, ot.AppliesToMonth(time.March))
}
