// internal/domain/monthly/status.go
package monthly

// Status is the lifecycle state of a generated obligation.
type Status string

const (
	StatusPending   Status = "PENDING"   // initial
	StatusCompleted Status = "COMPLETED" // terminal unless explicitly reopened
	StatusOverdue   Status = "OVERDUE"   // derived from PENDING when the deadline passes
)

// survivorRank orders duplicate rows for reconciliation. Completed rows
// record human work and are never discarded in favour of an open row;
// overdue ranks above pending because it carries the later-derived state.
// Unrecognized statuses sort last.
func survivorRank(s Status) int {
	switch s {
	case StatusCompleted:
		return 0
	case StatusOverdue:
		return 1
	case StatusPending:
		return 2
	default:
		return 3
	}
}

// PickSurvivor selects the one row reconciliation keeps out of a set of
// duplicates sharing a key: best status rank wins, ties go to the smallest
// id, i.e. the oldest row (later rows are the accidental copies). Returns
// nil for an empty set.
func PickSurvivor(rows []*Obligation) *Obligation {
	if len(rows) == 0 {
		return nil
	}
	best := rows[0]
	for _, r := range rows[1:] {
		br, rr := survivorRank(best.Status), survivorRank(r.Status)
		if rr < br || (rr == br && r.ID < best.ID) {
			best = r
		}
	}
	return best
}
