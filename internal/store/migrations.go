package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of SQLite schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

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
	due_date        DATETIME NOT NULL,
	status          TEXT NOT NULL DEFAULT '',
	alert_type      TEXT NOT NULL,
	documents       TEXT NOT NULL DEFAULT '[]',
	context_message TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT 'low',
	sent_at         DATETIME,
	created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_mappings (
	monday_user_id TEXT PRIMARY KEY,
	slack_user_id  TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	display_name   TEXT NOT NULL DEFAULT '',
	active         INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_task_alerts_task_id ON task_alerts(task_id);
CREATE INDEX IF NOT EXISTS idx_task_alerts_due_date ON task_alerts(due_date);
CREATE INDEX IF NOT EXISTS idx_task_alerts_created_at ON task_alerts(created_at);
CREATE INDEX IF NOT EXISTS idx_task_alerts_type ON task_alerts(alert_type);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
