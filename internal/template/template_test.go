package template

import (
	"testing"
	"time"

	"github.com/lexrelay/messaging-be/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTemplate_Matches(t *testing.T) {
	client := domain.ClientSnapshot{
		ID:       1,
		Name:     "Jane",
		Status:   "No Show",
		Office:   "PHX",
		CaseType: "Immigration",
		Language: "ENG",
	}

	tests := []struct {
		name     string
		template Template
		want     bool
	}{
		{
			name:     "all wildcard filters match any client",
			template: Template{},
			want:     true,
		},
		{
			name:     "status filter matches",
			template: Template{StatusFilter: "No Show"},
			want:     true,
		},
		{
			name:     "status filter mismatch",
			template: Template{StatusFilter: "Retained"},
			want:     false,
		},
		{
			name: "every filter set and matching",
			template: Template{
				StatusFilter:   "No Show",
				OfficeFilter:   "PHX",
				CaseTypeFilter: "Immigration",
				LanguageFilter: "ENG",
			},
			want: true,
		},
		{
			name: "one mismatched filter rejects",
			template: Template{
				StatusFilter: "No Show",
				OfficeFilter: "TUC",
			},
			want: false,
		},
		{
			name:     "specific filter never matches missing client field",
			template: Template{ApptTypeFilter: "In Person"},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.template.Matches(client))
		})
	}
}

func TestTemplate_Render(t *testing.T) {
	client := domain.ClientSnapshot{
		Name:   "Jane",
		Office: "PHX",
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "name placeholder",
			body: "Hi {{name}}, sorry we missed you.",
			want: "Hi Jane, sorry we missed you.",
		},
		{
			name: "multiple placeholders",
			body: "{{name}} - {{office}} office",
			want: "Jane - PHX office",
		},
		{
			name: "missing field renders empty",
			body: "Your {{case_type}} case",
			want: "Your  case",
		},
		{
			name: "no placeholders",
			body: "Plain reminder",
			want: "Plain reminder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Template{Body: tt.body}.Render(client)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplate_Delay(t *testing.T) {
	assert.Equal(t, time.Duration(0), Template{}.Delay())
	assert.Equal(t, 90*time.Minute, Template{DelayMinutes: 90}.Delay())
}
