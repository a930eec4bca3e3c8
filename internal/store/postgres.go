package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nhle/task-alerts/internal/model"
)

// postgresSchema creates the tables and indexes used by PostgresStore.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS task_alerts (
	id              TEXT PRIMARY KEY,
	task_id         TEXT NOT NULL,
	task_name       TEXT NOT NULL,
	task_url        TEXT NOT NULL DEFAULT '',
	board_id        TEXT NOT NULL DEFAULT '',
	board_name      TEXT NOT NULL DEFAULT '',
	workspace_name  TEXT NOT NULL DEFAULT '',
	group_title     TEXT NOT NULL DEFAULT '',
	assignee_id     TEXT NOT NULL DEFAULT '',
	assignee_name   TEXT NOT NULL DEFAULT '',
	slack_user_id   TEXT NOT NULL DEFAULT '',
	due_date        TIMESTAMPTZ NOT NULL,
	status          TEXT NOT NULL DEFAULT '',
	alert_type      TEXT NOT NULL,
	documents       JSONB NOT NULL DEFAULT '[]',
	context_message TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT 'low',
	sent_at         TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_mappings (
	monday_user_id TEXT PRIMARY KEY,
	slack_user_id  TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	display_name   TEXT NOT NULL DEFAULT '',
	active         BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_task_alerts_task_id ON task_alerts(task_id);
CREATE INDEX IF NOT EXISTS idx_task_alerts_due_date ON task_alerts(due_date);
CREATE INDEX IF NOT EXISTS idx_task_alerts_created_at ON task_alerts(created_at);
`

// PostgresStore implements AlertStore on a PostgreSQL connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// InsertAlerts inserts a batch of alerts, skipping any whose ID is
// already present.
func (s *PostgresStore) InsertAlerts(ctx context.Context, alerts []model.TaskAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO task_alerts (
			id, task_id, task_name, task_url,
			board_id, board_name, workspace_name, group_title,
			assignee_id, assignee_name, slack_user_id,
			due_date, status, alert_type,
			documents, context_message, priority,
			sent_at, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14,
			$15, $16, $17,
			$18, $19
		)
		ON CONFLICT (id) DO NOTHING`

	for _, a := range alerts {
		docs, err := json.Marshal(a.Documents)
		if err != nil {
			return fmt.Errorf("marshaling documents for alert %s: %w", a.ID, err)
		}

		_, err = tx.Exec(ctx, query,
			a.ID, a.TaskID, a.TaskName, a.TaskURL,
			a.BoardID, a.BoardName, a.WorkspaceName, a.GroupTitle,
			a.AssigneeID, a.AssigneeName, a.SlackUserID,
			a.DueDate.UTC(), a.Status, string(a.Type),
			string(docs), a.ContextMessage, a.Priority,
			a.SentAt, a.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// AlertsDueBetween retrieves alerts with a due date in [start, end].
func (s *PostgresStore) AlertsDueBetween(
	ctx context.Context,
	start, end time.Time,
) ([]model.TaskAlert, error) {
	return s.queryAlerts(ctx,
		selectAlertColumns+" WHERE due_date >= $1 AND due_date <= $2 ORDER BY due_date ASC",
		start.UTC(), end.UTC(),
	)
}

// AlertsCreatedBetween retrieves alerts generated in [start, end].
func (s *PostgresStore) AlertsCreatedBetween(
	ctx context.Context,
	start, end time.Time,
) ([]model.TaskAlert, error) {
	return s.queryAlerts(ctx,
		selectAlertColumns+" WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at ASC",
		start.UTC(), end.UTC(),
	)
}

// MarkSent stamps a single alert's sent_at with the current time.
func (s *PostgresStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE task_alerts SET sent_at = NOW() WHERE id = $1", id,
	)
	if err != nil {
		return fmt.Errorf("marking alert %s sent: %w", id, err)
	}
	return nil
}

// MarkManySent stamps a batch of alerts as sent.
func (s *PostgresStore) MarkManySent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		"UPDATE task_alerts SET sent_at = NOW() WHERE id = ANY($1)", ids,
	)
	if err != nil {
		return fmt.Errorf("marking alerts sent: %w", err)
	}
	return nil
}

// SlackIDFor resolves a monday.com user id to an active Slack mapping.
func (s *PostgresStore) SlackIDFor(
	ctx context.Context,
	mondayUserID string,
) (string, bool, error) {
	var slackID string
	err := s.pool.QueryRow(ctx,
		"SELECT slack_user_id FROM user_mappings WHERE monday_user_id = $1 AND active",
		mondayUserID,
	).Scan(&slackID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving slack id for %s: %w", mondayUserID, err)
	}
	return slackID, true, nil
}

// UpsertUserMappings inserts or replaces user mapping rows.
func (s *PostgresStore) UpsertUserMappings(
	ctx context.Context,
	mappings []model.UserMapping,
) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO user_mappings (
			monday_user_id, slack_user_id, email, display_name, active
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (monday_user_id) DO UPDATE SET
			slack_user_id = EXCLUDED.slack_user_id,
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			active = EXCLUDED.active`

	for _, m := range mappings {
		if _, err := tx.Exec(ctx, query,
			m.MondayUserID, m.SlackUserID, m.Email, m.DisplayName, m.Active,
		); err != nil {
			return fmt.Errorf("upserting mapping for %s: %w", m.MondayUserID, err)
		}
	}

	return tx.Commit(ctx)
}

// PruneAlertsBefore deletes alerts created before cutoff.
func (s *PostgresStore) PruneAlertsBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM task_alerts WHERE created_at < $1", cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}

const selectAlertColumns = `
	SELECT id, task_id, task_name, task_url,
		board_id, board_name, workspace_name, group_title,
		assignee_id, assignee_name, slack_user_id,
		due_date, status, alert_type,
		documents, context_message, priority,
		sent_at, created_at
	FROM task_alerts`

func (s *PostgresStore) queryAlerts(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]model.TaskAlert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.TaskAlert
	for rows.Next() {
		var (
			a         model.TaskAlert
			alertType string
			docs      []byte
			sentAt    *time.Time
		)
		err := rows.Scan(
			&a.ID, &a.TaskID, &a.TaskName, &a.TaskURL,
			&a.BoardID, &a.BoardName, &a.WorkspaceName, &a.GroupTitle,
			&a.AssigneeID, &a.AssigneeName, &a.SlackUserID,
			&a.DueDate, &a.Status, &alertType,
			&docs, &a.ContextMessage, &a.Priority,
			&sentAt, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}

		a.Type = model.AlertType(alertType)
		a.SentAt = sentAt
		if len(docs) > 0 {
			if err := json.Unmarshal(docs, &a.Documents); err != nil {
				return nil, fmt.Errorf("unmarshaling documents: %w", err)
			}
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
