package model

import "time"

// AlertType classifies why a task is being surfaced.
type AlertType string

const (
	AlertDueToday      AlertType = "due_today"
	AlertDueThisWeek   AlertType = "due_this_week"
	AlertOverdue       AlertType = "overdue"
	AlertUpcomingEvent AlertType = "upcoming_event"
)

// Alert priority constants.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// TaskAlert is a generated, persisted alert for a single task. At most one
// alert exists per task per civil day; after creation only SentAt is ever
// updated.
type TaskAlert struct {
	// ID is the synthetic alert identifier (UUID).
	ID string `json:"id"`

	// TaskID references the source task.
	TaskID string `json:"task_id"`

	// Denormalized task fields, captured at generation time.
	TaskName      string `json:"task_name"`
	TaskURL       string `json:"task_url"`
	BoardID       string `json:"board_id"`
	BoardName     string `json:"board_name"`
	WorkspaceName string `json:"workspace_name"`
	GroupTitle    string `json:"group_title"`

	// AssigneeID is the work-management user id, AssigneeName the display
	// name, and SlackUserID the resolved chat-platform id (empty when the
	// assignee has no mapping).
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
	SlackUserID  string `json:"slack_user_id"`

	// DueDate is the task's due-date instant.
	DueDate time.Time `json:"due_date"`

	// Status is the task's status label at generation time.
	Status string `json:"status"`

	// Type classifies the alert (due today, due this week, overdue,
	// upcoming event).
	Type AlertType `json:"type"`

	// Documents are related documents resolved by the correlator.
	Documents []DocumentLink `json:"documents,omitempty"`

	// ContextMessage is the synthesized reminder text, empty when no
	// template applied.
	ContextMessage string `json:"context_message,omitempty"`

	// Priority is high, medium, or low.
	Priority string `json:"priority"`

	// SentAt is stamped once delivery succeeds; nil until then.
	SentAt *time.Time `json:"sent_at,omitempty"`

	// CreatedAt is when the alert was generated.
	CreatedAt time.Time `json:"created_at"`
}
