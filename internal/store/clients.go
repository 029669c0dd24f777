package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/lexrelay/messaging-be/shared/postgresql"
)

// ClientDirectory reads client snapshots from the CRM-owned clients table.
// The scheduler only reads the fields it matches and sends with.
type ClientDirectory struct {
	db *sqlx.DB
}

// NewClientDirectory creates a new ClientDirectory instance
func NewClientDirectory(pg *postgresql.Client) *ClientDirectory {
	return &ClientDirectory{
		db: pg.GetDB(),
	}
}

// GetClient looks up a client snapshot by id. Nullable CRM columns come
// back as empty strings so matching treats them as wildcard-only values.
func (d *ClientDirectory) GetClient(ctx context.Context, clientID int64) (*domain.ClientSnapshot, error) {
	query := `
		SELECT
			id, name, phone,
			COALESCE(status_text, '') AS status_text,
			COALESCE(office, '') AS office,
			COALESCE(case_type, '') AS case_type,
			COALESCE(appointment_type, '') AS appointment_type,
			COALESCE(language, '') AS language
		FROM clients
		WHERE id = $1
	`

	var client domain.ClientSnapshot
	err := d.db.GetContext(ctx, &client, query, clientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return &client, nil
}
