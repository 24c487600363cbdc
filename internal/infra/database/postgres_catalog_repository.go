// internal/infra/database/postgres_catalog_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"obligation_engine/internal/domain/catalog"

	"github.com/lib/pq"
)

// Custom errors specific to the catalog repository
var ErrObligationTypeNotFound = fmt.Errorf("obligation type not found")
var ErrGroupNotFound = fmt.Errorf("obligation group not found")
var ErrProfileNotFound = fmt.Errorf("obligation profile not found")
var ErrDuplicateType = fmt.Errorf("obligation type with this code or name already exists")
var ErrDuplicateGroup = fmt.Errorf("obligation group with this name already exists")
var ErrDuplicateProfile = fmt.Errorf("obligation profile with this name already exists")

type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

const obligationTypeColumns = `id, code, name, description, frequency, deadline_policy, specific_day,
               applicable_months, group_id, priority, is_active, created_at, updated_at`

// --- ObligationType Methods ---

func (r *PostgresCatalogRepository) CreateType(ctx context.Context, t *catalog.ObligationType) error {
	query := `INSERT INTO obligation_types (code, name, description, frequency, deadline_policy, specific_day, applicable_months, group_id, priority, is_active)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		t.Code, t.Name, t.Description, t.Frequency, t.DeadlinePolicy, t.SpecificDay,
		monthsToArray(t.ApplicableMonths), t.GroupID, t.Priority, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrDuplicateType
		}
		return fmt.Errorf("error creating obligation type: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepository) GetTypeByID(ctx context.Context, id int64) (*catalog.ObligationType, error) {
	query := `SELECT ` + obligationTypeColumns + ` FROM obligation_types WHERE id = $1`
	return r.getType(ctx, query, id)
}

func (r *PostgresCatalogRepository) GetTypeByCode(ctx context.Context, code string) (*catalog.ObligationType, error) {
	query := `SELECT ` + obligationTypeColumns + ` FROM obligation_types WHERE code = $1`
	return r.getType(ctx, query, code)
}

func (r *PostgresCatalogRepository) getType(ctx context.Context, query string, arg any) (*catalog.ObligationType, error) {
	t := &catalog.ObligationType{}
	var months pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.Code, &t.Name, &t.Description, &t.Frequency, &t.DeadlinePolicy, &t.SpecificDay,
		&months, &t.GroupID, &t.Priority, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrObligationTypeNotFound
		}
		return nil, fmt.Errorf("error getting obligation type: %w", err)
	}
	t.ApplicableMonths = arrayToMonths(months)
	return t, nil
}

func (r *PostgresCatalogRepository) UpdateType(ctx context.Context, t *catalog.ObligationType) error {
	query := `UPDATE obligation_types
               SET code = $1, name = $2, description = $3, frequency = $4, deadline_policy = $5,
                   specific_day = $6, applicable_months = $7, group_id = $8, priority = $9, is_active = $10,
                   updated_at = NOW()
               WHERE id = $11
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		t.Code, t.Name, t.Description, t.Frequency, t.DeadlinePolicy, t.SpecificDay,
		monthsToArray(t.ApplicableMonths), t.GroupID, t.Priority, t.IsActive, t.ID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrObligationTypeNotFound
		}
		if isUniqueViolation(err, "") {
			return ErrDuplicateType
		}
		return fmt.Errorf("error updating obligation type: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepository) ListActiveTypes(ctx context.Context) ([]*catalog.ObligationType, error) {
	query := `SELECT ` + obligationTypeColumns + ` FROM obligation_types WHERE is_active = TRUE ORDER BY priority, code`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing active obligation types: %w", err)
	}
	defer rows.Close()
	return scanObligationTypes(rows)
}

func (r *PostgresCatalogRepository) ListAllTypes(ctx context.Context) ([]*catalog.ObligationType, error) {
	query := `SELECT ` + obligationTypeColumns + ` FROM obligation_types ORDER BY priority, code`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing obligation types: %w", err)
	}
	defer rows.Close()
	return scanObligationTypes(rows)
}

func scanObligationTypes(rows *sql.Rows) ([]*catalog.ObligationType, error) {
	types := make([]*catalog.ObligationType, 0)
	for rows.Next() {
		t := &catalog.ObligationType{}
		var months pq.Int64Array
		if err := rows.Scan(
			&t.ID, &t.Code, &t.Name, &t.Description, &t.Frequency, &t.DeadlinePolicy, &t.SpecificDay,
			&months, &t.GroupID, &t.Priority, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning obligation type: %w", err)
		}
		t.ApplicableMonths = arrayToMonths(months)
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating obligation types: %w", err)
	}
	return types, nil
}

// --- Group Methods ---

func (r *PostgresCatalogRepository) CreateGroup(ctx context.Context, g *catalog.Group) error {
	query := `INSERT INTO obligation_groups (name, description)
               VALUES ($1, $2)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, g.Name, g.Description).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrDuplicateGroup
		}
		return fmt.Errorf("error creating obligation group: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepository) GetGroupByID(ctx context.Context, id int64) (*catalog.Group, error) {
	query := `SELECT id, name, description, created_at FROM obligation_groups WHERE id = $1`
	g := &catalog.Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("error getting obligation group by ID: %w", err)
	}
	return g, nil
}

func (r *PostgresCatalogRepository) ListGroups(ctx context.Context) ([]*catalog.Group, error) {
	query := `SELECT id, name, description, created_at FROM obligation_groups ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing obligation groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*catalog.Group, 0)
	for rows.Next() {
		g := &catalog.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning obligation group: %w", err)
		}
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating obligation groups: %w", err)
	}
	return groups, nil
}

// --- Profile Methods ---

func (r *PostgresCatalogRepository) CreateProfile(ctx context.Context, p *catalog.Profile) error {
	query := `INSERT INTO obligation_profiles (name, description)
               VALUES ($1, $2)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Description).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrDuplicateProfile
		}
		return fmt.Errorf("error creating obligation profile: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepository) GetProfileByID(ctx context.Context, id int64) (*catalog.Profile, error) {
	query := `SELECT id, name, description, created_at FROM obligation_profiles WHERE id = $1`
	p := &catalog.Profile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("error getting obligation profile by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresCatalogRepository) ListProfiles(ctx context.Context) ([]*catalog.Profile, error) {
	query := `SELECT id, name, description, created_at FROM obligation_profiles ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing obligation profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*catalog.Profile, 0)
	for rows.Next() {
		p := &catalog.Profile{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning obligation profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating obligation profiles: %w", err)
	}
	return profiles, nil
}

func (r *PostgresCatalogRepository) SetProfileTypes(ctx context.Context, profileID int64, typeIDs []int64) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for profile members: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if _, err := txn.ExecContext(ctx, `DELETE FROM obligation_profile_types WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("error clearing profile members: %w", err)
	}

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO obligation_profile_types (profile_id, obligation_type_id) VALUES ($1, $2)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for profile members: %w", err)
	}
	defer stmt.Close()

	for _, typeID := range typeIDs {
		if _, err := stmt.ExecContext(ctx, profileID, typeID); err != nil {
			return fmt.Errorf("error adding type %d to profile %d: %w", typeID, profileID, err)
		}
	}

	return txn.Commit()
}

func (r *PostgresCatalogRepository) ProfileTypeIDs(ctx context.Context, profileIDs []int64) (map[int64][]int64, error) {
	members := make(map[int64][]int64, len(profileIDs))
	if len(profileIDs) == 0 {
		return members, nil
	}

	query := `SELECT profile_id, obligation_type_id
               FROM obligation_profile_types
               WHERE profile_id = ANY($1)
               ORDER BY profile_id, obligation_type_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(profileIDs))
	if err != nil {
		return nil, fmt.Errorf("error loading profile members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var profileID, typeID int64
		if err := rows.Scan(&profileID, &typeID); err != nil {
			return nil, fmt.Errorf("error scanning profile member: %w", err)
		}
		members[profileID] = append(members[profileID], typeID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile members: %w", err)
	}
	return members, nil
}

// monthsToArray converts applicable months for the INT[] column; NULL is
// never stored, an unrestricted type keeps an empty array.
func monthsToArray(months []time.Month) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(months))
	for _, m := range months {
		arr = append(arr, int64(m))
	}
	return arr
}

func arrayToMonths(arr pq.Int64Array) []time.Month {
	if len(arr) == 0 {
		return nil
	}
	months := make([]time.Month, 0, len(arr))
	for _, v := range arr {
		months = append(months, time.Month(v))
	}
	return months
}
