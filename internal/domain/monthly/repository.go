// internal/domain/monthly/repository.go
package monthly

import (
	"context"
	"time"
)

// Store is the row-level operation set, shared by the plain repository and
// an open transaction.
type Store interface {
	// Create inserts the row as a single constrained insert: the unique
	// (client_id, obligation_type_id, year, month) key rejects duplicates
	// atomically, and the infra layer reports the conflict as
	// ErrDuplicateObligation. Batch callers count that as "skipped", never
	// as a failure.
	Create(ctx context.Context, o *Obligation) error
	GetByID(ctx context.Context, id int64) (*Obligation, error)
	GetByKey(ctx context.Context, key Key) (*Obligation, error)
	Update(ctx context.Context, o *Obligation) error
	// DeleteByKey removes whatever rows exist under the key (force
	// regeneration). Returns the number of rows removed.
	DeleteByKey(ctx context.Context, key Key) (int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	ListByPeriod(ctx context.Context, year int, month time.Month) ([]*Obligation, error)
	ListByClient(ctx context.Context, clientID int64) ([]*Obligation, error)
	// ListDuplicates returns every row whose key is shared with at least one
	// other row, ordered by key. Callers group them via Obligation.Key.
	ListDuplicates(ctx context.Context) ([]*Obligation, error)
	// MarkOverdue flags every open row past its deadline in one set-based
	// update and returns how many rows were flagged.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

// Repository adds transaction control to Store.
type Repository interface {
	Store

	// Begin opens a transactional view. The generation engine runs a dry-run
	// entirely inside one transaction and rolls it back: counts come from
	// real constraint behavior while no write survives, even on a crash.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one open transaction over the store. Exactly one of Commit or
// Rollback must be called. Writes inside the transaction are isolated per
// statement, so one failed write does not poison the rest of the run.
type Tx interface {
	Store

	Commit() error
	Rollback() error
}
