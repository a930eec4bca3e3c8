package model

import "time"

// Task is the canonical representation of a board item, rebuilt fresh on
// every fetch from the remote API and never mutated in place. A Task with
// a nil DueDate is excluded from all alerting but still participates in
// free-text search.
type Task struct {
	// ID is the item's identifier in the work-management service.
	ID string `json:"id"`

	// Name is the item's title.
	Name string `json:"name"`

	// BoardID and BoardName reference the board the item lives on.
	BoardID   string `json:"board_id"`
	BoardName string `json:"board_name"`

	// WorkspaceID and WorkspaceName reference the owning workspace.
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`

	// GroupTitle is the board group/category label the item belongs to.
	GroupTitle string `json:"group_title"`

	// DueDate is the parsed due-date instant, nil when the item has no
	// due-date value or the value failed to parse.
	DueDate *time.Time `json:"due_date,omitempty"`

	// AssigneeID and AssigneeName identify the first assigned person,
	// empty when the item is unassigned.
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`

	// Status is the status column label; StatusColor its display color.
	Status      string `json:"status"`
	StatusColor string `json:"status_color"`

	// URL is the direct link back to the item.
	URL string `json:"url"`

	// CreatedAt and UpdatedAt are the item's timestamps in the source.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Attachments are files attached to the item, merged from item
	// assets, file-typed columns, and update attachments.
	Attachments []Attachment `json:"attachments,omitempty"`

	// Updates holds the plain-text bodies of the item's updates/comments,
	// used for relevance scoring.
	Updates []string `json:"updates,omitempty"`

	// ColumnValues maps column id to the raw column value, keyed for
	// generic field matching during search.
	ColumnValues map[string]ColumnValue `json:"column_values,omitempty"`
}

// Attachment is a file attached to a task.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Extension string `json:"extension"`
}

// ColumnValue is a generic column entry preserved on the Task for search
// and client-side filtering.
type ColumnValue struct {
	// Title is the column's display label.
	Title string `json:"title"`

	// Text is the rendered text of the value.
	Text string `json:"text"`

	// Value is the raw JSON payload of the value.
	Value string `json:"value"`

	// Type is the column type (date, people, status, file, ...).
	Type string `json:"type"`
}
