package client

import (
	"context"
)

// Repository defines operations for Client and ClientObligation records.
type Repository interface {
	// Client methods
	CreateClient(ctx context.Context, c *Client) error
	GetClientByID(ctx context.Context, id int64) (*Client, error)
	UpdateClient(ctx context.Context, c *Client) error
	ListActiveClients(ctx context.Context) ([]*Client, error)
	ListAllClients(ctx context.Context) ([]*Client, error) // For admin purposes

	// ClientObligation methods
	CreateObligation(ctx context.Context, co *ClientObligation) error
	GetObligationByClientID(ctx context.Context, clientID int64) (*ClientObligation, error)
	// UpdateObligation persists the flag and replaces both assignment sets
	// wholesale (the join tables are rewritten in one transaction).
	UpdateObligation(ctx context.Context, co *ClientObligation) error
	// ListActiveObligations returns every subscription record that
	// participates in generation: its own IsActive flag set and the owning
	// client active.
	ListActiveObligations(ctx context.Context) ([]*ClientObligation, error)
	// ListActiveObligationsByClientIDs is the same restricted to a
	// caller-supplied client population.
	ListActiveObligationsByClientIDs(ctx context.Context, clientIDs []int64) ([]*ClientObligation, error)
}
