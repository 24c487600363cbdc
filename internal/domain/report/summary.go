package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TypeStats is the per-obligation-type breakdown of one generation run.
type TypeStats struct {
	TypeID  int64
	Code    string
	Name    string
	Created int
	Skipped int
	Errors  int
}

// RunError records one failed (client, type) pair. Pair failures never
// abort the batch; they are collected here and reported at the end.
type RunError struct {
	ClientID int64
	TypeID   int64
	TypeCode string
	Message  string
}

// RunSummary is the outcome of one generation run, always produced even
// when some pairs failed.
type RunSummary struct {
	RunID            uuid.UUID
	Year             int
	Month            time.Month
	DryRun           bool
	Force            bool
	StartedAt        time.Time
	Duration         time.Duration
	ClientsProcessed int
	Created          int
	Skipped          int // rows that already existed for their key
	NotApplicable    int // pairs filtered out by month rules or a missing deadline
	PerType          []*TypeStats // sorted by code
	Errors           []RunError
}

// Period renders the target period as YYYY-MM.
func (s *RunSummary) Period() string {
	return fmt.Sprintf("%04d-%02d", s.Year, int(s.Month))
}

// Text renders the summary as the plain-text report sent to operators and
// printed by the CLI.
func (s *RunSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Obligation generation for %s\n", s.Period())
	fmt.Fprintf(&b, "Run %s, started %s, took %s\n", s.RunID, s.StartedAt.Format(time.RFC3339), s.Duration.Round(time.Millisecond))
	if s.DryRun {
		b.WriteString("Mode: DRY RUN, no rows were written\n")
	} else if s.Force {
		b.WriteString("Mode: FORCE, existing rows were recreated\n")
	}
	fmt.Fprintf(&b, "Clients processed: %d\n", s.ClientsProcessed)
	fmt.Fprintf(&b, "Created: %d, skipped: %d, not applicable: %d, errors: %d\n", s.Created, s.Skipped, s.NotApplicable, len(s.Errors))
	if len(s.PerType) > 0 {
		b.WriteString("\nPer obligation type:\n")
		for _, ts := range s.PerType {
			fmt.Fprintf(&b, "  %-12s %-40s created %-4d skipped %-4d errors %d\n",
				ts.Code, ts.Name, ts.Created, ts.Skipped, ts.Errors)
		}
	}
	if len(s.Errors) > 0 {
		b.WriteString("\nFailed pairs:\n")
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  client %d, type %s (%d): %s\n", e.ClientID, e.TypeCode, e.TypeID, e.Message)
		}
	}
	return b.String()
}

// ReconcileSummary is the outcome of one duplicate-reconciliation pass.
type ReconcileSummary struct {
	GroupsFound int
	Deleted     int64
	RowsBefore  int64
	RowsAfter   int64
}

// Text renders the reconciliation outcome for CLI output.
func (s *ReconcileSummary) Text() string {
	return fmt.Sprintf("Duplicate groups found: %d, rows deleted: %d (rows before: %d, after: %d)",
		s.GroupsFound, s.Deleted, s.RowsBefore, s.RowsAfter)
}
