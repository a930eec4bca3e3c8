package workspace

import (
	"testing"

	"github.com/nhle/task-alerts/internal/monday"
)

func TestDiscoverColumns(t *testing.T) {
	cases := []struct {
		name         string
		columns      []monday.Column
		wantDate     string
		wantAssignee string
	}{
		{
			name: "keyword date column preferred over earlier date column",
			columns: []monday.Column{
				{ID: "date_1", Title: "Created", Type: "date"},
				{ID: "date_2", Title: "Deadline", Type: "date"},
				{ID: "people_1", Title: "Owner", Type: "people"},
			},
			wantDate:     "date_2",
			wantAssignee: "people_1",
		},
		{
			name: "due keyword matched case-insensitively",
			columns: []monday.Column{
				{ID: "d", Title: "DUE BY", Type: "date"},
			},
			wantDate: "d",
		},
		{
			name: "falls back to first date column without keywords",
			columns: []monday.Column{
				{ID: "status", Title: "Status", Type: "status"},
				{ID: "d1", Title: "Kickoff", Type: "date"},
				{ID: "d2", Title: "Review", Type: "date"},
			},
			wantDate: "d1",
		},
		{
			name: "first people column wins",
			columns: []monday.Column{
				{ID: "p1", Title: "Assignee", Type: "people"},
				{ID: "p2", Title: "Reviewer", Type: "people"},
				{ID: "d", Title: "Due date", Type: "date"},
			},
			wantDate:     "d",
			wantAssignee: "p1",
		},
		{
			name: "no date columns at all",
			columns: []monday.Column{
				{ID: "status", Title: "Status", Type: "status"},
				{ID: "text", Title: "Notes", Type: "text"},
			},
		},
		{
			name: "title containing date substring",
			columns: []monday.Column{
				{ID: "d", Title: "Target Date", Type: "date"},
			},
			wantDate: "d",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			date, assignee := DiscoverColumns(tc.columns)
			if date != tc.wantDate {
				t.Errorf("date column = %q, want %q", date, tc.wantDate)
			}
			if assignee != tc.wantAssignee {
				t.Errorf("assignee column = %q, want %q", assignee, tc.wantAssignee)
			}
		})
	}
}
