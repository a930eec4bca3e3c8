package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/task-alerts/internal/model"
)

// SQLiteStore implements AlertStore using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// InsertAlerts inserts a batch of alerts, skipping any whose ID is
// already present.
func (s *SQLiteStore) InsertAlerts(ctx context.Context, alerts []model.TaskAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR IGNORE INTO task_alerts (
			id, task_id, task_name, task_url,
			board_id, board_name, workspace_name, group_title,
			assignee_id, assignee_name, slack_user_id,
			due_date, status, alert_type,
			documents, context_message, priority,
			sent_at, created_at
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		docs, err := json.Marshal(a.Documents)
		if err != nil {
			return fmt.Errorf("marshaling documents for alert %s: %w", a.ID, err)
		}

		var sentAt interface{}
		if a.SentAt != nil {
			sentAt = a.SentAt.UTC()
		}

		_, err = stmt.ExecContext(ctx,
			a.ID, a.TaskID, a.TaskName, a.TaskURL,
			a.BoardID, a.BoardName, a.WorkspaceName, a.GroupTitle,
			a.AssigneeID, a.AssigneeName, a.SlackUserID,
			a.DueDate.UTC(), a.Status, string(a.Type),
			string(docs), a.ContextMessage, a.Priority,
			sentAt, a.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// AlertsDueBetween retrieves alerts with a due date in [start, end].
func (s *SQLiteStore) AlertsDueBetween(
	ctx context.Context,
	start, end time.Time,
) ([]model.TaskAlert, error) {
	return s.queryAlerts(ctx,
		"SELECT * FROM task_alerts WHERE due_date >= ? AND due_date <= ? ORDER BY due_date ASC",
		start.UTC(), end.UTC(),
	)
}

// AlertsCreatedBetween retrieves alerts generated in [start, end].
func (s *SQLiteStore) AlertsCreatedBetween(
	ctx context.Context,
	start, end time.Time,
) ([]model.TaskAlert, error) {
	return s.queryAlerts(ctx,
		"SELECT * FROM task_alerts WHERE created_at >= ? AND created_at <= ? ORDER BY created_at ASC",
		start.UTC(), end.UTC(),
	)
}

// MarkSent stamps a single alert's sent_at with the current time.
func (s *SQLiteStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE task_alerts SET sent_at = ? WHERE id = ?", time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking alert %s sent: %w", id, err)
	}
	return nil
}

// MarkManySent stamps a batch of alerts as sent in a single transaction.
func (s *SQLiteStore) MarkManySent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE task_alerts SET sent_at = ? WHERE id = ?", now, id,
		); err != nil {
			return fmt.Errorf("marking alert %s sent: %w", id, err)
		}
	}

	return tx.Commit()
}

// SlackIDFor resolves a monday.com user id to an active Slack mapping.
func (s *SQLiteStore) SlackIDFor(
	ctx context.Context,
	mondayUserID string,
) (string, bool, error) {
	var slackID string
	err := s.db.GetContext(ctx, &slackID,
		"SELECT slack_user_id FROM user_mappings WHERE monday_user_id = ? AND active = 1",
		mondayUserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving slack id for %s: %w", mondayUserID, err)
	}
	return slackID, true, nil
}

// UpsertUserMappings inserts or replaces user mapping rows.
func (s *SQLiteStore) UpsertUserMappings(
	ctx context.Context,
	mappings []model.UserMapping,
) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range mappings {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO user_mappings (
				monday_user_id, slack_user_id, email, display_name, active
			) VALUES (?, ?, ?, ?, ?)`,
			m.MondayUserID, m.SlackUserID, m.Email, m.DisplayName,
			boolToInt(m.Active),
		)
		if err != nil {
			return fmt.Errorf("upserting mapping for %s: %w", m.MondayUserID, err)
		}
	}

	return tx.Commit()
}

// PruneAlertsBefore deletes alerts created before cutoff.
func (s *SQLiteStore) PruneAlertsBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM task_alerts WHERE created_at < ?", cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning alerts: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) queryAlerts(
	ctx context.Context,
	query string,
	args ...interface{},
) ([]model.TaskAlert, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.TaskAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// scanAlert scans an alert row from a sqlx.Rows result set.
func scanAlert(rows *sqlx.Rows) (model.TaskAlert, error) {
	var (
		a         model.TaskAlert
		alertType string
		docs      string
		dueDate   time.Time
		sentAt    sql.NullTime
		createdAt time.Time
	)

	err := rows.Scan(
		&a.ID, &a.TaskID, &a.TaskName, &a.TaskURL,
		&a.BoardID, &a.BoardName, &a.WorkspaceName, &a.GroupTitle,
		&a.AssigneeID, &a.AssigneeName, &a.SlackUserID,
		&dueDate, &a.Status, &alertType,
		&docs, &a.ContextMessage, &a.Priority,
		&sentAt, &createdAt,
	)
	if err != nil {
		return model.TaskAlert{}, fmt.Errorf("scanning alert row: %w", err)
	}

	a.Type = model.AlertType(alertType)
	a.DueDate = dueDate
	a.CreatedAt = createdAt
	if sentAt.Valid {
		t := sentAt.Time
		a.SentAt = &t
	}

	if docs != "" {
		if err := json.Unmarshal([]byte(docs), &a.Documents); err != nil {
			return model.TaskAlert{}, fmt.Errorf("unmarshaling documents: %w", err)
		}
	}

	return a, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
