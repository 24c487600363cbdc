// internal/domain/catalog/shared_types.go
package catalog

// Frequency describes how often an obligation type recurs.
type Frequency string

const (
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnual    Frequency = "ANNUAL"
	// FrequencyFollowsCycle marks types whose cadence is driven by another
	// obligation (e.g. a payment that tracks its declaration). No month
	// restriction is enforced for them.
	FrequencyFollowsCycle Frequency = "FOLLOWS_CYCLE"
)

// DeadlinePolicy selects how the due date is derived from a (year, month) pair.
type DeadlinePolicy string

const (
	DeadlineLastDayOfMonth         DeadlinePolicy = "LAST_DAY_OF_MONTH"
	DeadlineLastDayOfPreviousMonth DeadlinePolicy = "LAST_DAY_OF_PREVIOUS_MONTH"
	DeadlineLastDayOfNextMonth     DeadlinePolicy = "LAST_DAY_OF_NEXT_MONTH"
	DeadlineSpecificDay            DeadlinePolicy = "SPECIFIC_DAY" // uses ObligationType.SpecificDay
)
