// internal/domain/catalog/obligation_type.go
package catalog

import (
	"database/sql"
	"sort"
	"time"
)

// ObligationType is one catalog entry describing a recurring fiscal duty
// (e.g. monthly VAT filing). Rows live in the 'obligation_types' table.
type ObligationType struct {
	ID             int64
	Code           string // short unique key, used by downstream archiving
	Name           string
	Description    sql.NullString
	Frequency      Frequency
	DeadlinePolicy DeadlinePolicy
	SpecificDay    sql.NullInt16 // 1..31, set iff DeadlinePolicy is SPECIFIC_DAY
	// ApplicableMonths restricts generation to the listed months.
	// Empty means no restriction; see AppliesToMonth for the per-frequency
	// interpretation.
	ApplicableMonths []time.Month
	GroupID          sql.NullInt64 // exclusion group membership, at most one
	Priority         int           // display / tie-break ordering, lower first
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Group is a set of obligation types that are mutually exclusive for a
// client: at most one member may be active per client at any time. The
// constraint is enforced on the assignment path, not by the schema.
type Group struct {
	ID          int64
	Name        string
	Description sql.NullString
	CreatedAt   time.Time
}

// Profile is a named bundle of obligation types that activate together
// (e.g. "Payroll package"). Membership is a many-to-many relation kept in
// 'obligation_profile_types'.
type Profile struct {
	ID          int64
	Name        string
	Description sql.NullString
	CreatedAt   time.Time
}

// SortTypes orders types by priority, then code, for deterministic
// processing and reporting. Aggregation itself gives no ordering guarantee.
func SortTypes(types []*ObligationType) {
	sort.Slice(types, func(i, j int) bool {
		if types[i].Priority != types[j].Priority {
			return types[i].Priority < types[j].Priority
		}
		return types[i].Code < types[j].Code
	})
}
