package report

import "context"

// Sender delivers run reports to the office operators. Delivery is
// best-effort by contract: callers log a failure and carry on, it must
// never fail the batch that produced the report.
type Sender interface {
	SendRunReport(ctx context.Context, summary *RunSummary) error
}
