// internal/infra/database/postgres_monthly_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"obligation_engine/internal/domain/monthly"

	"github.com/lib/pq"
)

// Custom errors specific to the monthly obligation repository
var ErrMonthlyObligationNotFound = fmt.Errorf("monthly obligation not found")
var ErrDuplicateObligation = fmt.Errorf("monthly obligation already exists for this client, type and period")

// queryer is satisfied by both *sql.DB and *sql.Tx, so the same statement
// set serves plain calls and transactional (dry-run) calls.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type monthlyStore struct {
	q queryer
}

type PostgresMonthlyRepository struct {
	monthlyStore
	db *sql.DB
}

func NewPostgresMonthlyRepository(db *sql.DB) *PostgresMonthlyRepository {
	return &PostgresMonthlyRepository{monthlyStore: monthlyStore{q: db}, db: db}
}

// Begin opens a transaction for a dry-run view of the store. Writes inside
// it are savepoint-guarded so one failed statement does not abort the whole
// transaction.
func (r *PostgresMonthlyRepository) Begin(ctx context.Context) (monthly.Tx, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin monthly obligation transaction: %w", err)
	}
	return &monthlyTx{monthlyStore: monthlyStore{q: txn}, txn: txn}, nil
}

const monthlyObligationColumns = `id, client_id, obligation_type_id, year, month, deadline, status,
               completed_date, completed_by, notes, time_spent, hourly_rate, created_at, updated_at`

// --- Store Methods ---

func (s monthlyStore) Create(ctx context.Context, o *monthly.Obligation) error {
	// Single constrained insert: the unique period key decides atomically
	// whether the row is new. No separate existence check, so concurrent
	// generators cannot race past each other.
	query := `INSERT INTO monthly_obligations (client_id, obligation_type_id, year, month, deadline, status, completed_date, completed_by, notes, time_spent, hourly_rate)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
               ON CONFLICT (client_id, obligation_type_id, year, month) DO NOTHING
               RETURNING id, created_at, updated_at`
	err := s.q.QueryRowContext(ctx, query,
		o.ClientID, o.TypeID, o.Year, int(o.Month), o.Deadline, o.Status,
		o.CompletedDate, o.CompletedBy, o.Notes, o.TimeSpent, o.HourlyRate,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			// DO NOTHING swallowed the insert: a row already holds the key.
			return ErrDuplicateObligation
		}
		return fmt.Errorf("error creating monthly obligation: %w", err)
	}
	return nil
}

func (s monthlyStore) GetByID(ctx context.Context, id int64) (*monthly.Obligation, error) {
	query := `SELECT ` + monthlyObligationColumns + ` FROM monthly_obligations WHERE id = $1`
	return s.getObligation(ctx, query, id)
}

func (s monthlyStore) GetByKey(ctx context.Context, key monthly.Key) (*monthly.Obligation, error) {
	query := `SELECT ` + monthlyObligationColumns + `
               FROM monthly_obligations
               WHERE client_id = $1 AND obligation_type_id = $2 AND year = $3 AND month = $4`
	return s.getObligation(ctx, query, key.ClientID, key.TypeID, key.Year, int(key.Month))
}

func (s monthlyStore) getObligation(ctx context.Context, query string, args ...any) (*monthly.Obligation, error) {
	o := &monthly.Obligation{}
	err := s.q.QueryRowContext(ctx, query, args...).Scan(
		&o.ID, &o.ClientID, &o.TypeID, &o.Year, &o.Month, &o.Deadline, &o.Status,
		&o.CompletedDate, &o.CompletedBy, &o.Notes, &o.TimeSpent, &o.HourlyRate,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMonthlyObligationNotFound
		}
		return nil, fmt.Errorf("error getting monthly obligation: %w", err)
	}
	return o, nil
}

func (s monthlyStore) Update(ctx context.Context, o *monthly.Obligation) error {
	query := `UPDATE monthly_obligations
               SET deadline = $1, status = $2, completed_date = $3, completed_by = $4,
                   notes = $5, time_spent = $6, hourly_rate = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`
	err := s.q.QueryRowContext(ctx, query,
		o.Deadline, o.Status, o.CompletedDate, o.CompletedBy, o.Notes, o.TimeSpent, o.HourlyRate, o.ID,
	).Scan(&o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrMonthlyObligationNotFound
		}
		return fmt.Errorf("error updating monthly obligation: %w", err)
	}
	return nil
}

func (s monthlyStore) DeleteByKey(ctx context.Context, key monthly.Key) (int64, error) {
	query := `DELETE FROM monthly_obligations
               WHERE client_id = $1 AND obligation_type_id = $2 AND year = $3 AND month = $4`
	res, err := s.q.ExecContext(ctx, query, key.ClientID, key.TypeID, key.Year, int(key.Month))
	if err != nil {
		return 0, fmt.Errorf("error deleting monthly obligation by key: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting deleted monthly obligations: %w", err)
	}
	return deleted, nil
}

func (s monthlyStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM monthly_obligations WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("error deleting monthly obligations by ids: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting deleted monthly obligations: %w", err)
	}
	return deleted, nil
}

func (s monthlyStore) ListByPeriod(ctx context.Context, year int, month time.Month) ([]*monthly.Obligation, error) {
	query := `SELECT ` + monthlyObligationColumns + `
               FROM monthly_obligations
               WHERE year = $1 AND month = $2
               ORDER BY client_id, obligation_type_id`
	rows, err := s.q.QueryContext(ctx, query, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("error listing monthly obligations by period: %w", err)
	}
	defer rows.Close()
	return scanMonthlyObligations(rows)
}

func (s monthlyStore) ListByClient(ctx context.Context, clientID int64) ([]*monthly.Obligation, error) {
	query := `SELECT ` + monthlyObligationColumns + `
               FROM monthly_obligations
               WHERE client_id = $1
               ORDER BY year, month, obligation_type_id`
	rows, err := s.q.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("error listing monthly obligations by client: %w", err)
	}
	defer rows.Close()
	return scanMonthlyObligations(rows)
}

func (s monthlyStore) ListDuplicates(ctx context.Context) ([]*monthly.Obligation, error) {
	query := `SELECT ` + monthlyObligationColumns + `
               FROM monthly_obligations
               WHERE (client_id, obligation_type_id, year, month) IN (
                   SELECT client_id, obligation_type_id, year, month
                   FROM monthly_obligations
                   GROUP BY client_id, obligation_type_id, year, month
                   HAVING COUNT(*) > 1)
               ORDER BY client_id, obligation_type_id, year, month, id`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing duplicate monthly obligations: %w", err)
	}
	defer rows.Close()
	return scanMonthlyObligations(rows)
}

func (s monthlyStore) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	// Set-based sweep; the date cast keeps rows due today out of scope,
	// overdue starts the day after the deadline.
	query := `UPDATE monthly_obligations
               SET status = $1, updated_at = NOW()
               WHERE status = $2 AND deadline < CAST($3 AS date)`
	res, err := s.q.ExecContext(ctx, query, monthly.StatusOverdue, monthly.StatusPending, today)
	if err != nil {
		return 0, fmt.Errorf("error flagging overdue obligations: %w", err)
	}
	flagged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting flagged obligations: %w", err)
	}
	return flagged, nil
}

func (s monthlyStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM monthly_obligations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting monthly obligations: %w", err)
	}
	return count, nil
}

func scanMonthlyObligations(rows *sql.Rows) ([]*monthly.Obligation, error) {
	obligations := make([]*monthly.Obligation, 0)
	for rows.Next() {
		o := &monthly.Obligation{}
		if err := rows.Scan(
			&o.ID, &o.ClientID, &o.TypeID, &o.Year, &o.Month, &o.Deadline, &o.Status,
			&o.CompletedDate, &o.CompletedBy, &o.Notes, &o.TimeSpent, &o.HourlyRate,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning monthly obligation: %w", err)
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly obligations: %w", err)
	}
	return obligations, nil
}

// --- Transaction ---

type monthlyTx struct {
	monthlyStore
	txn *sql.Tx
}

func (t *monthlyTx) Commit() error {
	return t.txn.Commit()
}

func (t *monthlyTx) Rollback() error {
	return t.txn.Rollback()
}

// Write operations are re-declared on the transaction to wrap them in a
// savepoint: PostgreSQL aborts the whole transaction after any failed
// statement, and without the guard one bad pair would poison the rest of a
// dry run.

func (t *monthlyTx) Create(ctx context.Context, o *monthly.Obligation) error {
	return t.guarded(ctx, func() error { return t.monthlyStore.Create(ctx, o) })
}

func (t *monthlyTx) Update(ctx context.Context, o *monthly.Obligation) error {
	return t.guarded(ctx, func() error { return t.monthlyStore.Update(ctx, o) })
}

func (t *monthlyTx) DeleteByKey(ctx context.Context, key monthly.Key) (int64, error) {
	var deleted int64
	err := t.guarded(ctx, func() error {
		var innerErr error
		deleted, innerErr = t.monthlyStore.DeleteByKey(ctx, key)
		return innerErr
	})
	return deleted, err
}

func (t *monthlyTx) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64
	err := t.guarded(ctx, func() error {
		var innerErr error
		deleted, innerErr = t.monthlyStore.DeleteByIDs(ctx, ids)
		return innerErr
	})
	return deleted, err
}

func (t *monthlyTx) guarded(ctx context.Context, fn func() error) error {
	if _, err := t.txn.ExecContext(ctx, "SAVEPOINT write_guard"); err != nil {
		return fmt.Errorf("error opening savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := t.txn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT write_guard"); rbErr != nil {
			return fmt.Errorf("error rolling back savepoint after %v: %w", err, rbErr)
		}
		return err
	}
	if _, err := t.txn.ExecContext(ctx, "RELEASE SAVEPOINT write_guard"); err != nil {
		return fmt.Errorf("error releasing savepoint: %w", err)
	}
	return nil
}
