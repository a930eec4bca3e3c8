package workspace

import (
	"strings"

	"github.com/nhle/task-alerts/internal/monday"
)

// dateTitleKeywords are title fragments that mark a date column as the
// board's due-date column during auto-discovery.
var dateTitleKeywords = []string{"deadline", "due", "date"}

// DiscoverColumns inspects a board's columns and returns the ids of the
// due-date column and the assignee column. The due-date column is the
// first date-typed column whose title contains a deadline/due/date
// keyword, falling back to the first date-typed column at all. The
// assignee column is the first people-typed column. Either id may be
// empty when no suitable column exists.
func DiscoverColumns(columns []monday.Column) (dateColumnID, assigneeColumnID string) {
	var firstDate string

	for _, col := range columns {
		switch col.Type {
		case "date":
			if firstDate == "" {
				firstDate = col.ID
			}
			if dateColumnID == "" && titleMatchesDate(col.Title) {
				dateColumnID = col.ID
			}
		case "people":
			if assigneeColumnID == "" {
				assigneeColumnID = col.ID
			}
		}
	}

	if dateColumnID == "" {
		dateColumnID = firstDate
	}
	return dateColumnID, assigneeColumnID
}

func titleMatchesDate(title string) bool {
	lowered := strings.ToLower(title)
	for _, kw := range dateTitleKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
