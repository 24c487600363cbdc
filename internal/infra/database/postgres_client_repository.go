// internal/infra/database/postgres_client_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"obligation_engine/internal/domain/client"

	"github.com/lib/pq"
)

// Custom errors specific to the client repository
var ErrClientNotFound = fmt.Errorf("client not found")
var ErrClientObligationNotFound = fmt.Errorf("client obligation record not found")
var ErrDuplicateTaxID = fmt.Errorf("client with this tax id already exists")
var ErrDuplicateClientObligation = fmt.Errorf("client already has an obligation record")

type PostgresClientRepository struct {
	db *sql.DB
}

func NewPostgresClientRepository(db *sql.DB) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

// --- Client Methods ---

func (r *PostgresClientRepository) CreateClient(ctx context.Context, c *client.Client) error {
	query := `INSERT INTO clients (name, tax_id, email, is_active)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.TaxID, c.Email, c.IsActive).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "clients_tax_id_key") {
			return ErrDuplicateTaxID
		}
		return fmt.Errorf("error creating client: %w", err)
	}
	return nil
}

func (r *PostgresClientRepository) GetClientByID(ctx context.Context, id int64) (*client.Client, error) {
	query := `SELECT id, name, tax_id, email, is_active, created_at, updated_at
               FROM clients WHERE id = $1`
	c := &client.Client{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.TaxID, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("error getting client by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresClientRepository) UpdateClient(ctx context.Context, c *client.Client) error {
	query := `UPDATE clients
               SET name = $1, tax_id = $2, email = $3, is_active = $4, updated_at = NOW()
               WHERE id = $5
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.TaxID, c.Email, c.IsActive, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrClientNotFound
		}
		if isUniqueViolation(err, "clients_tax_id_key") {
			return ErrDuplicateTaxID
		}
		return fmt.Errorf("error updating client: %w", err)
	}
	return nil
}

func (r *PostgresClientRepository) ListActiveClients(ctx context.Context) ([]*client.Client, error) {
	query := `SELECT id, name, tax_id, email, is_active, created_at, updated_at
               FROM clients WHERE is_active = TRUE ORDER BY name`
	return r.listClients(ctx, query)
}

func (r *PostgresClientRepository) ListAllClients(ctx context.Context) ([]*client.Client, error) {
	query := `SELECT id, name, tax_id, email, is_active, created_at, updated_at
               FROM clients ORDER BY id`
	return r.listClients(ctx, query)
}

func (r *PostgresClientRepository) listClients(ctx context.Context, query string) ([]*client.Client, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*client.Client, 0)
	for rows.Next() {
		c := &client.Client{}
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxID, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning client: %w", err)
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, nil
}

// --- ClientObligation Methods ---

// clientObligationSelect pulls the record together with both assignment sets
// in one round-trip; the ARRAY subqueries come back empty, never NULL.
const clientObligationSelect = `SELECT co.id, co.client_id, co.is_active, co.created_at, co.updated_at,
               ARRAY(SELECT ct.obligation_type_id FROM client_obligation_types ct WHERE ct.client_obligation_id = co.id ORDER BY ct.obligation_type_id),
               ARRAY(SELECT cp.profile_id FROM client_obligation_profiles cp WHERE cp.client_obligation_id = co.id ORDER BY cp.profile_id)
               FROM client_obligations co`

func (r *PostgresClientRepository) CreateObligation(ctx context.Context, co *client.ClientObligation) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for client obligation: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `INSERT INTO client_obligations (client_id, is_active)
               VALUES ($1, $2)
               RETURNING id, created_at, updated_at`
	err = txn.QueryRowContext(ctx, query, co.ClientID, co.IsActive).Scan(&co.ID, &co.CreatedAt, &co.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "client_obligations_client_id_key") {
			return ErrDuplicateClientObligation
		}
		return fmt.Errorf("error creating client obligation record: %w", err)
	}

	if err := insertAssignments(ctx, txn, co); err != nil {
		return err
	}
	return txn.Commit()
}

func (r *PostgresClientRepository) GetObligationByClientID(ctx context.Context, clientID int64) (*client.ClientObligation, error) {
	query := clientObligationSelect + ` WHERE co.client_id = $1`
	co := &client.ClientObligation{}
	var typeIDs, profileIDs pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(&co.ID, &co.ClientID, &co.IsActive, &co.CreatedAt, &co.UpdatedAt, &typeIDs, &profileIDs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClientObligationNotFound
		}
		return nil, fmt.Errorf("error getting client obligation record: %w", err)
	}
	co.TypeIDs = []int64(typeIDs)
	co.ProfileIDs = []int64(profileIDs)
	return co, nil
}

func (r *PostgresClientRepository) UpdateObligation(ctx context.Context, co *client.ClientObligation) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for client obligation: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `UPDATE client_obligations
               SET is_active = $1, updated_at = NOW()
               WHERE id = $2
               RETURNING updated_at`
	err = txn.QueryRowContext(ctx, query, co.IsActive, co.ID).Scan(&co.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrClientObligationNotFound
		}
		return fmt.Errorf("error updating client obligation record: %w", err)
	}

	if _, err := txn.ExecContext(ctx, `DELETE FROM client_obligation_types WHERE client_obligation_id = $1`, co.ID); err != nil {
		return fmt.Errorf("error clearing assigned types: %w", err)
	}
	if _, err := txn.ExecContext(ctx, `DELETE FROM client_obligation_profiles WHERE client_obligation_id = $1`, co.ID); err != nil {
		return fmt.Errorf("error clearing assigned profiles: %w", err)
	}

	if err := insertAssignments(ctx, txn, co); err != nil {
		return err
	}
	return txn.Commit()
}

func insertAssignments(ctx context.Context, txn *sql.Tx, co *client.ClientObligation) error {
	if len(co.TypeIDs) > 0 {
		stmt, err := txn.PrepareContext(ctx, `INSERT INTO client_obligation_types (client_obligation_id, obligation_type_id) VALUES ($1, $2)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement for assigned types: %w", err)
		}
		defer stmt.Close()
		for _, typeID := range co.TypeIDs {
			if _, err := stmt.ExecContext(ctx, co.ID, typeID); err != nil {
				return fmt.Errorf("error assigning type %d to client %d: %w", typeID, co.ClientID, err)
			}
		}
	}
	if len(co.ProfileIDs) > 0 {
		stmt, err := txn.PrepareContext(ctx, `INSERT INTO client_obligation_profiles (client_obligation_id, profile_id) VALUES ($1, $2)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement for assigned profiles: %w", err)
		}
		defer stmt.Close()
		for _, profileID := range co.ProfileIDs {
			if _, err := stmt.ExecContext(ctx, co.ID, profileID); err != nil {
				return fmt.Errorf("error assigning profile %d to client %d: %w", profileID, co.ClientID, err)
			}
		}
	}
	return nil
}

func (r *PostgresClientRepository) ListActiveObligations(ctx context.Context) ([]*client.ClientObligation, error) {
	query := clientObligationSelect + `
               JOIN clients c ON c.id = co.client_id
               WHERE co.is_active = TRUE AND c.is_active = TRUE
               ORDER BY co.client_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing active client obligations: %w", err)
	}
	defer rows.Close()
	return scanClientObligations(rows)
}

func (r *PostgresClientRepository) ListActiveObligationsByClientIDs(ctx context.Context, clientIDs []int64) ([]*client.ClientObligation, error) {
	if len(clientIDs) == 0 {
		return []*client.ClientObligation{}, nil
	}
	query := clientObligationSelect + `
               JOIN clients c ON c.id = co.client_id
               WHERE co.is_active = TRUE AND c.is_active = TRUE AND co.client_id = ANY($1)
               ORDER BY co.client_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(clientIDs))
	if err != nil {
		return nil, fmt.Errorf("error listing client obligations by clients: %w", err)
	}
	defer rows.Close()
	return scanClientObligations(rows)
}

func scanClientObligations(rows *sql.Rows) ([]*client.ClientObligation, error) {
	records := make([]*client.ClientObligation, 0)
	for rows.Next() {
		co := &client.ClientObligation{}
		var typeIDs, profileIDs pq.Int64Array
		if err := rows.Scan(&co.ID, &co.ClientID, &co.IsActive, &co.CreatedAt, &co.UpdatedAt, &typeIDs, &profileIDs); err != nil {
			return nil, fmt.Errorf("error scanning client obligation record: %w", err)
		}
		co.TypeIDs = []int64(typeIDs)
		co.ProfileIDs = []int64(profileIDs)
		records = append(records, co)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client obligation records: %w", err)
	}
	return records, nil
}
