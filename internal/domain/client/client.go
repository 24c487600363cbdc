package client

import (
	"database/sql"
	"time"
)

// Client represents one accounting-office client.
type Client struct {
	ID        int64
	Name      string
	TaxID     string         // fiscal identifier (AFM), unique
	Email     sql.NullString // optional contact for reminder automation
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
