package model

// WorkspaceConfig holds the configuration for a single monday.com
// workspace. It is built from the application config at process start and
// immutable afterward.
type WorkspaceConfig struct {
	// ID is the workspace identifier in the work-management service.
	ID string `mapstructure:"id" yaml:"id"`

	// Name is the user-facing workspace label.
	Name string `mapstructure:"name" yaml:"name"`

	// APIToken is the credential used for API calls. Loaded from the
	// environment or the system keyring, never from the config file.
	APIToken string `mapstructure:"-" yaml:"-"`

	// Subdomain is the tenant subdomain used to build item URLs.
	Subdomain string `mapstructure:"subdomain" yaml:"subdomain"`

	// Boards lists the boards to monitor. When empty, boards and their
	// date/assignee columns are auto-discovered at initialization.
	Boards []BoardConfig `mapstructure:"boards" yaml:"boards"`
}

// BoardConfig identifies a monitored board and its relevant columns.
type BoardConfig struct {
	// BoardID is the board identifier.
	BoardID string `mapstructure:"board_id" yaml:"board_id"`

	// Name is the board's display name.
	Name string `mapstructure:"name" yaml:"name"`

	// DateColumnID is the column holding the due date.
	DateColumnID string `mapstructure:"date_column_id" yaml:"date_column_id"`

	// AssigneeColumnID is the people column holding the assignee. May be
	// empty when the board has no people column.
	AssigneeColumnID string `mapstructure:"assignee_column_id" yaml:"assignee_column_id"`
}

// UserMapping links a work-management user to a chat-platform user. Rows
// are maintained by an external sync process and consumed read-only here
// for assignee resolution.
type UserMapping struct {
	MondayUserID string `json:"monday_user_id" db:"monday_user_id"`
	SlackUserID  string `json:"slack_user_id" db:"slack_user_id"`
	Email        string `json:"email" db:"email"`
	DisplayName  string `json:"display_name" db:"display_name"`
	Active       bool   `json:"active" db:"active"`
}
