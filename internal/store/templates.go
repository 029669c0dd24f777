package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lexrelay/messaging-be/internal/template"
	"github.com/lexrelay/messaging-be/shared/postgresql"
)

// TemplateSource reads active message templates from the CRM-owned
// templates table.
type TemplateSource struct {
	db *sqlx.DB
}

// NewTemplateSource creates a new TemplateSource instance
func NewTemplateSource(pg *postgresql.Client) *TemplateSource {
	return &TemplateSource{
		db: pg.GetDB(),
	}
}

// ListActive returns all active templates. Matching against the client
// snapshot happens in the enqueuer, not in SQL, so the filter semantics
// live in one place.
func (s *TemplateSource) ListActive(ctx context.Context) ([]template.Template, error) {
	query := `
		SELECT
			id,
			COALESCE(status_filter, '') AS status_filter,
			COALESCE(office_filter, '') AS office_filter,
			COALESCE(case_type_filter, '') AS case_type_filter,
			COALESCE(appointment_type_filter, '') AS appointment_type_filter,
			COALESCE(language_filter, '') AS language_filter,
			delay_minutes, body, active
		FROM templates
		WHERE active = TRUE
		ORDER BY id ASC
	`

	var templates []template.Template
	err := s.db.SelectContext(ctx, &templates, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active templates: %w", err)
	}

	return templates, nil
}
