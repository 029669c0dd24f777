package template

import (
	"strings"
	"time"

	"github.com/lexrelay/messaging-be/internal/domain"
)

// Template is one follow-up message rule. Filter fields are exact-match
// against the client snapshot; an empty filter matches any value.
type Template struct {
	ID             int64  `db:"id"`
	StatusFilter   string `db:"status_filter"`
	OfficeFilter   string `db:"office_filter"`
	CaseTypeFilter string `db:"case_type_filter"`
	ApptTypeFilter string `db:"appointment_type_filter"`
	LanguageFilter string `db:"language_filter"`
	DelayMinutes   int64  `db:"delay_minutes"`
	Body           string `db:"body"`
	Active         bool   `db:"active"`
}

// Delay is how long after the trigger the rendered message should be sent.
func (t Template) Delay() time.Duration {
	return time.Duration(t.DelayMinutes) * time.Minute
}

// Matches reports whether every filter field is either empty or exactly
// equal to the corresponding client field. Missing client fields compare
// as the empty string, so they only ever match wildcard filters.
func (t Template) Matches(c domain.ClientSnapshot) bool {
	return matchField(t.StatusFilter, c.Status) &&
		matchField(t.OfficeFilter, c.Office) &&
		matchField(t.CaseTypeFilter, c.CaseType) &&
		matchField(t.ApptTypeFilter, c.AppointmentType) &&
		matchField(t.LanguageFilter, c.Language)
}

func matchField(filter, value string) bool {
	return filter == "" || filter == value
}

// Render substitutes client fields into the template body. Placeholders
// use the {{field}} syntax the office staff write in the template editor.
func (t Template) Render(c domain.ClientSnapshot) string {
	r := strings.NewReplacer(
		"{{name}}", c.Name,
		"{{office}}", c.Office,
		"{{case_type}}", c.CaseType,
		"{{appointment_type}}", c.AppointmentType,
		"{{language}}", c.Language,
	)
	return r.Replace(t.Body)
}
