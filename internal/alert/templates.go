package alert

import (
	"fmt"
	"regexp"
	"sort"
)

// Template pairs a task-name pattern with reminder messages keyed by a
// days-before-due threshold, and an optional preparation checklist.
// Templates are evaluated in order, first match wins, so more specific
// patterns belong earlier in the list.
type Template struct {
	Name    string
	Pattern *regexp.Regexp

	// Messages maps a days-before threshold to the reminder text. The
	// message chosen is the one at the closest threshold >= the days
	// remaining.
	Messages map[int]string

	// Checklist holds suggested preparation items, most important first.
	Checklist []string
}

// Matches reports whether the template applies to a task name.
func (t *Template) Matches(taskName string) bool {
	return t.Pattern.MatchString(taskName)
}

// MessageFor picks the message at the closest threshold at or above the
// remaining days. Returns empty when remaining exceeds every threshold.
func (t *Template) MessageFor(daysRemaining int) string {
	thresholds := make([]int, 0, len(t.Messages))
	for d := range t.Messages {
		thresholds = append(thresholds, d)
	}
	sort.Ints(thresholds)

	for _, d := range thresholds {
		if d >= daysRemaining {
			return t.Messages[d]
		}
	}
	return ""
}

// DefaultTemplates are the built-in contextual reminder templates.
func DefaultTemplates() []Template {
	return []Template{
		{
			Name:    "meeting",
			Pattern: regexp.MustCompile(`(?i)\b(meeting|roundtable|sync|standup|workshop|presentation)\b`),
			Messages: map[int]string{
				7: "One week to go. Lock in the agenda and confirm attendees.",
				3: "Three days out. Circulate pre-reads and finalize the run sheet.",
				1: "Tomorrow. Double-check the room or call link and send a reminder.",
				0: "Happening today. Have the agenda and materials at hand.",
			},
			Checklist: []string{
				"Confirm attendees and send calendar invites",
				"Prepare and circulate the agenda",
				"Gather supporting documents and pre-reads",
				"Book the room or set up the call link",
			},
		},
		{
			Name:    "report",
			Pattern: regexp.MustCompile(`(?i)\b(report|review|audit|retro|retrospective)\b`),
			Messages: map[int]string{
				7: "A week left. Start pulling the numbers together now.",
				3: "Three days left. Draft should be taking shape for early feedback.",
				1: "Due tomorrow. Finish the draft and get a second pair of eyes on it.",
				0: "Due today. Final proofread and submit.",
			},
			Checklist: []string{
				"Collect source data and figures",
				"Write the first draft",
				"Request feedback from a reviewer",
				"Final proofread and formatting pass",
			},
		},
		{
			Name:    "launch",
			Pattern: regexp.MustCompile(`(?i)\b(launch|release|rollout|go-live|golive)\b`),
			Messages: map[int]string{
				7: "Launch is a week away. Run through the release checklist.",
				3: "Three days to launch. Freeze scope and verify the rollback plan.",
				1: "Launching tomorrow. Confirm sign-offs and the comms plan.",
				0: "Launch day. Monitor closely and keep the rollback plan ready.",
			},
			Checklist: []string{
				"Verify the release checklist is complete",
				"Confirm stakeholder sign-offs",
				"Prepare the announcement/comms",
				"Review the rollback plan",
			},
		},
	}
}

// overdueMessage buckets days-overdue into escalating reminder text.
func overdueMessage(daysOverdue int) string {
	switch {
	case daysOverdue <= 0:
		return "This task slipped past its due date today."
	case daysOverdue == 1:
		return "This task is 1 day overdue."
	case daysOverdue <= 3:
		return fmt.Sprintf("This task is %d days overdue. Worth a look soon.", daysOverdue)
	case daysOverdue <= 7:
		return fmt.Sprintf("This task is %d days overdue. It needs attention.", daysOverdue)
	default:
		return fmt.Sprintf("This task is %d days overdue. Consider rescheduling or closing it.", daysOverdue)
	}
}

// genericMessage is the fallback when no template matches.
func genericMessage(daysRemaining int) string {
	switch {
	case daysRemaining <= 0:
		return "Due today."
	case daysRemaining == 1:
		return "Due tomorrow."
	default:
		return fmt.Sprintf("Due in %d days.", daysRemaining)
	}
}
