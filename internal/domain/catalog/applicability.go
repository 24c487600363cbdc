// internal/domain/catalog/applicability.go
package catalog

import "time"

// quarterEndMonths is the default filing calendar for quarterly types:
// the month after each quarter closes.
var quarterEndMonths = []time.Month{time.January, time.April, time.July, time.October}

// AppliesToMonth reports whether the type is due at all in the given
// calendar month. An explicit ApplicableMonths list always wins; the
// fallback when the list is empty depends on the frequency:
//
//   - MONTHLY: every month.
//   - QUARTERLY: January, April, July, October (filing for the quarter
//     that just ended).
//   - ANNUAL: every month. Permissive on purpose: an annual type without
//     a configured month keeps generating until the catalog is fixed,
//     which is preferable to it silently never appearing.
//   - FOLLOWS_CYCLE and anything unrecognized: every month; no restriction
//     is enforced, and callers must not read a guarantee into that.
func (t *ObligationType) AppliesToMonth(month time.Month) bool {
	switch t.Frequency {
	case FrequencyMonthly:
		return true
	case FrequencyQuarterly:
		if len(t.ApplicableMonths) > 0 {
			return t.hasMonth(month)
		}
		for _, m := range quarterEndMonths {
			if m == month {
				return true
			}
		}
		return false
	case FrequencyAnnual:
		if len(t.ApplicableMonths) > 0 {
			return t.hasMonth(month)
		}
		return true
	case FrequencyFollowsCycle:
		return true
	default:
		return true
	}
}

func (t *ObligationType) hasMonth(month time.Month) bool {
	for _, m := range t.ApplicableMonths {
		if m == month {
			return true
		}
	}
	return false
}
