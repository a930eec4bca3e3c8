package monday

import "encoding/json"

// GraphQL response envelope. The v2 API reports request-level problems
// either through the errors array or through error_message/status_code.
type envelope struct {
	Data         json.RawMessage `json:"data"`
	Errors       []graphQLError  `json:"errors"`
	ErrorMessage string          `json:"error_message"`
	StatusCode   int             `json:"status_code"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Column describes a board column's id, label, and type.
type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Workspace identifies the workspace a board belongs to.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Board is a board summary with its columns.
type Board struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Workspace *Workspace `json:"workspace"`
	Columns   []Column   `json:"columns"`
}

// ColumnValue is an item's value in one column.
type ColumnValue struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Value string `json:"value"`
	Type  string `json:"type"`
	Column struct {
		Title string `json:"title"`
	} `json:"column"`
}

// Asset is a file attached to an item or update.
type Asset struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PublicURL     string `json:"public_url"`
	FileExtension string `json:"file_extension"`
}

// Update is a comment/update posted on an item.
type Update struct {
	ID       string  `json:"id"`
	TextBody string  `json:"text_body"`
	Assets   []Asset `json:"assets"`
}

// Item is a board item (task) as returned by the API.
type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group struct {
		Title string `json:"title"`
	} `json:"group"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
	ColumnValues []ColumnValue `json:"column_values"`
	Assets       []Asset       `json:"assets"`
	Updates      []Update      `json:"updates"`
}

// ItemsPage is one page of a cursor-paginated item query.
type ItemsPage struct {
	Cursor string `json:"cursor"`
	Items  []Item `json:"items"`
}

// User is a workspace member from the user directory.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Enabled bool   `json:"enabled"`
}
