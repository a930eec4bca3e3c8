// Package store persists generated alerts and user mappings. Two
// backends are provided: an embedded SQLite database for single-host
// deployments and PostgreSQL for shared ones.
package store

import (
	"context"
	"time"

	"github.com/nhle/task-alerts/internal/model"
)

// AlertStore defines the persistence interface for task alerts and
// user mappings.
type AlertStore interface {
	// InsertAlerts persists a batch of alerts. Inserting an alert whose
	// ID already exists is a no-op, so re-running a generation pass with
	// the same alerts never duplicates rows.
	InsertAlerts(ctx context.Context, alerts []model.TaskAlert) error

	// AlertsDueBetween returns alerts whose task due date falls in
	// [start, end], ordered by due date ascending.
	AlertsDueBetween(ctx context.Context, start, end time.Time) ([]model.TaskAlert, error)

	// AlertsCreatedBetween returns alerts generated in [start, end],
	// ordered by creation time ascending.
	AlertsCreatedBetween(ctx context.Context, start, end time.Time) ([]model.TaskAlert, error)

	// MarkSent stamps a single alert's sent_at with the current time.
	MarkSent(ctx context.Context, id string) error

	// MarkManySent stamps a batch of alerts as sent.
	MarkManySent(ctx context.Context, ids []string) error

	// SlackIDFor resolves a monday.com user id to a Slack user id via
	// the user_mappings table. The bool reports whether an active
	// mapping exists.
	SlackIDFor(ctx context.Context, mondayUserID string) (string, bool, error)

	// UpsertUserMappings inserts or replaces user mapping rows.
	UpsertUserMappings(ctx context.Context, mappings []model.UserMapping) error

	// PruneAlertsBefore deletes alerts created before cutoff and returns
	// the number of rows removed.
	PruneAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the underlying database resources.
	Close() error
}
