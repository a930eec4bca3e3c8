package workspace

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/nhle/task-alerts/internal/civiltime"
	"github.com/nhle/task-alerts/internal/model"
	"github.com/nhle/task-alerts/internal/monday"
)

// API is the subset of the monday client used by the manager, abstracted
// for tests.
type API interface {
	Query(
		ctx context.Context,
		query string,
		variables map[string]interface{},
		result interface{},
	) error
}

// ClientFactory builds an API client for a workspace token.
type ClientFactory func(token string) API

// defaultClientFactory returns the production monday client.
func defaultClientFactory(token string) API {
	return monday.NewClient(token)
}

// itemFields is the GraphQL selection used for every item fetch.
const itemFields = `
	id
	name
	group { title }
	created_at
	updated_at
	column_values { id text value type column { title } }
	assets { id name public_url file_extension }
	updates (limit: 25) {
		id
		text_body
		assets { id name public_url file_extension }
	}`

// workspaceState holds one initialized workspace: its client, resolved
// board configs, and the read-only user directory cache.
type workspaceState struct {
	cfg    model.WorkspaceConfig
	client API
	boards []model.BoardConfig
	users  map[string]string
}

// Manager owns the configured workspaces, their discovered board/column
// mappings, and the user directory caches. All caches are populated once
// during Initialize and read-only afterward.
type Manager struct {
	calc    *civiltime.Calculator
	configs []model.WorkspaceConfig
	factory ClientFactory

	workspaces []*workspaceState
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClientFactory overrides how API clients are constructed.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) { m.factory = f }
}

// NewManager creates a Manager for the given workspace configurations.
// Call Initialize before fetching tasks.
func NewManager(
	configs []model.WorkspaceConfig,
	calc *civiltime.Calculator,
	opts ...Option,
) *Manager {
	m := &Manager{
		calc:    calc,
		configs: configs,
		factory: defaultClientFactory,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize prepares every configured workspace: creates its client,
// auto-discovers boards and columns when none were configured, and loads
// the user directory. A workspace that fails to initialize is logged and
// excluded; it never blocks the others.
func (m *Manager) Initialize(ctx context.Context) {
	for _, cfg := range m.configs {
		state, err := m.initWorkspace(ctx, cfg)
		if err != nil {
			log.Printf("workspace %s (%s): initialization failed, excluding: %v",
				cfg.ID, cfg.Name, err)
			continue
		}
		m.workspaces = append(m.workspaces, state)
	}
}

// WorkspaceCount returns how many workspaces initialized successfully.
func (m *Manager) WorkspaceCount() int { return len(m.workspaces) }

// initWorkspace builds the state for a single workspace.
func (m *Manager) initWorkspace(
	ctx context.Context,
	cfg model.WorkspaceConfig,
) (*workspaceState, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("no API token configured")
	}

	state := &workspaceState{
		cfg:    cfg,
		client: m.factory(cfg.APIToken),
		boards: cfg.Boards,
	}

	if len(state.boards) == 0 {
		boards, err := m.discoverBoards(ctx, state.client, cfg.ID)
		if err != nil {
			return nil, fmt.Errorf("discovering boards: %w", err)
		}
		state.boards = boards
	}

	users, err := m.loadUsers(ctx, state.client)
	if err != nil {
		// Assignee names degrade to ids without the directory; the
		// workspace stays usable.
		log.Printf("workspace %s: loading user directory failed: %v", cfg.ID, err)
		users = map[string]string{}
	}
	state.users = users

	return state, nil
}

// discoverBoards queries the workspace's boards and derives their
// date/assignee columns heuristically.
func (m *Manager) discoverBoards(
	ctx context.Context,
	client API,
	workspaceID string,
) ([]model.BoardConfig, error) {
	const query = `query {
		boards (limit: 100) {
			id
			name
			workspace { id name }
			columns { id title type }
		}
	}`

	var result struct {
		Boards []monday.Board `json:"boards"`
	}
	if err := client.Query(ctx, query, nil, &result); err != nil {
		return nil, err
	}

	var boards []model.BoardConfig
	for _, b := range result.Boards {
		if workspaceID != "" &&
			(b.Workspace == nil || b.Workspace.ID != workspaceID) {
			continue
		}

		dateCol, assigneeCol := DiscoverColumns(b.Columns)
		if dateCol == "" {
			// A board without any date column cannot contribute due
			// tasks; skip it rather than fetch unusable items.
			log.Printf("board %s (%s): no date column found, skipping", b.ID, b.Name)
			continue
		}

		boards = append(boards, model.BoardConfig{
			BoardID:          b.ID,
			Name:             b.Name,
			DateColumnID:     dateCol,
			AssigneeColumnID: assigneeCol,
		})
	}
	return boards, nil
}

// loadUsers fetches the workspace's user directory into an id->name map.
func (m *Manager) loadUsers(
	ctx context.Context,
	client API,
) (map[string]string, error) {
	const query = `query {
		users (kind: non_guests) { id name email enabled }
	}`

	var result struct {
		Users []monday.User `json:"users"`
	}
	if err := client.Query(ctx, query, nil, &result); err != nil {
		return nil, err
	}

	users := make(map[string]string, len(result.Users))
	for _, u := range result.Users {
		users[u.ID] = u.Name
	}
	return users, nil
}

// TasksDueInRange fetches all tasks across every board of every
// initialized workspace whose due date falls inside [start, end].
// Individual board failures are logged and contribute zero tasks. The
// result is sorted ascending by due date.
func (m *Manager) TasksDueInRange(
	ctx context.Context,
	start, end time.Time,
) ([]model.Task, error) {
	var tasks []model.Task

	for _, ws := range m.workspaces {
		for _, board := range ws.boards {
			boardTasks, err := m.fetchBoardTasks(ctx, ws, board, &start, &end)
			if err != nil {
				log.Printf("board %s (%s): fetch failed, skipping: %v",
					board.BoardID, board.Name, err)
				continue
			}
			for _, task := range boardTasks {
				if task.DueDate == nil {
					continue
				}
				if task.DueDate.Before(start) || task.DueDate.After(end) {
					continue
				}
				tasks = append(tasks, task)
			}
		}
	}

	sortByDueDate(tasks)
	return tasks, nil
}

// AllTasks fetches every item on every board, including tasks without a
// due date. Used as the corpus for free-text search.
func (m *Manager) AllTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task

	for _, ws := range m.workspaces {
		for _, board := range ws.boards {
			boardTasks, err := m.fetchBoardTasks(ctx, ws, board, nil, nil)
			if err != nil {
				log.Printf("board %s (%s): fetch failed, skipping: %v",
					board.BoardID, board.Name, err)
				continue
			}
			tasks = append(tasks, boardTasks...)
		}
	}

	sortByDueDate(tasks)
	return tasks, nil
}

// TaskByID linearly searches all boards across all workspaces for the
// item with the given id. Returns nil when not found.
func (m *Manager) TaskByID(ctx context.Context, id string) (*model.Task, error) {
	for _, ws := range m.workspaces {
		for _, board := range ws.boards {
			boardTasks, err := m.fetchBoardTasks(ctx, ws, board, nil, nil)
			if err != nil {
				log.Printf("board %s (%s): fetch failed, skipping: %v",
					board.BoardID, board.Name, err)
				continue
			}
			for i := range boardTasks {
				if boardTasks[i].ID == id {
					return &boardTasks[i], nil
				}
			}
		}
	}
	return nil, nil
}

// fetchBoardTasks fetches a board's items, preferring a server-side
// date-range filter when a range is given, falling back to an unfiltered
// fetch with client-side filtering when that query shape fails.
func (m *Manager) fetchBoardTasks(
	ctx context.Context,
	ws *workspaceState,
	board model.BoardConfig,
	start, end *time.Time,
) ([]model.Task, error) {
	var items []monday.Item
	var err error

	if start != nil && end != nil {
		items, err = m.fetchItemsFiltered(ctx, ws.client, board, *start, *end)
		if err != nil {
			log.Printf("board %s: date-filtered query failed, falling back to full fetch: %v",
				board.BoardID, err)
			items, err = m.fetchItemsAll(ctx, ws.client, board.BoardID)
		}
	} else {
		items, err = m.fetchItemsAll(ctx, ws.client, board.BoardID)
	}
	if err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, m.normalizeItem(item, ws, board))
	}
	return tasks, nil
}

// fetchItemsFiltered runs a server-side date-range query on one board,
// following the pagination cursor until exhausted.
func (m *Manager) fetchItemsFiltered(
	ctx context.Context,
	client API,
	board model.BoardConfig,
	start, end time.Time,
) ([]monday.Item, error) {
	loc := m.calc.Location()
	from := start.In(loc).Format("2006-01-02")
	to := end.In(loc).Format("2006-01-02")

	firstQuery := fmt.Sprintf(`query ($boardID: [ID!]) {
		boards (ids: $boardID) {
			items_page (
				limit: 100,
				query_params: {rules: [{
					column_id: %q,
					compare_value: [%q, %q],
					operator: between
				}]}
			) {
				cursor
				items {%s}
			}
		}
	}`, board.DateColumnID, from, to, itemFields)

	return monday.CollectPages(ctx,
		func(ctx context.Context, cursor string) (*monday.ItemsPage, error) {
			if cursor == "" {
				var result struct {
					Boards []struct {
						ItemsPage monday.ItemsPage `json:"items_page"`
					} `json:"boards"`
				}
				err := client.Query(ctx, firstQuery,
					map[string]interface{}{"boardID": []string{board.BoardID}},
					&result)
				if err != nil {
					return nil, err
				}
				if len(result.Boards) == 0 {
					return &monday.ItemsPage{}, nil
				}
				return &result.Boards[0].ItemsPage, nil
			}
			return m.fetchNextPage(ctx, client, cursor)
		},
	)
}

// fetchItemsAll fetches every item on a board without a filter.
func (m *Manager) fetchItemsAll(
	ctx context.Context,
	client API,
	boardID string,
) ([]monday.Item, error) {
	firstQuery := fmt.Sprintf(`query ($boardID: [ID!]) {
		boards (ids: $boardID) {
			items_page (limit: 100) {
				cursor
				items {%s}
			}
		}
	}`, itemFields)

	return monday.CollectPages(ctx,
		func(ctx context.Context, cursor string) (*monday.ItemsPage, error) {
			if cursor == "" {
				var result struct {
					Boards []struct {
						ItemsPage monday.ItemsPage `json:"items_page"`
					} `json:"boards"`
				}
				err := client.Query(ctx, firstQuery,
					map[string]interface{}{"boardID": []string{boardID}},
					&result)
				if err != nil {
					return nil, err
				}
				if len(result.Boards) == 0 {
					return &monday.ItemsPage{}, nil
				}
				return &result.Boards[0].ItemsPage, nil
			}
			return m.fetchNextPage(ctx, client, cursor)
		},
	)
}

// fetchNextPage continues a cursor-paginated item query.
func (m *Manager) fetchNextPage(
	ctx context.Context,
	client API,
	cursor string,
) (*monday.ItemsPage, error) {
	query := fmt.Sprintf(`query ($cursor: String!) {
		next_items_page (cursor: $cursor, limit: 100) {
			cursor
			items {%s}
		}
	}`, itemFields)

	var result struct {
		NextItemsPage monday.ItemsPage `json:"next_items_page"`
	}
	err := client.Query(ctx, query,
		map[string]interface{}{"cursor": cursor}, &result)
	if err != nil {
		return nil, err
	}
	return &result.NextItemsPage, nil
}

// normalizeItem converts a raw API item into the canonical Task. Column
// values that fail to parse are treated as absent, never fatal.
func (m *Manager) normalizeItem(
	item monday.Item,
	ws *workspaceState,
	board model.BoardConfig,
) model.Task {
	task := model.Task{
		ID:            item.ID,
		Name:          item.Name,
		BoardID:       board.BoardID,
		BoardName:     board.Name,
		WorkspaceID:   ws.cfg.ID,
		WorkspaceName: ws.cfg.Name,
		GroupTitle:    item.Group.Title,
		URL:           itemURL(ws.cfg.Subdomain, board.BoardID, item.ID),
		CreatedAt:     parseAPITime(item.CreatedAt),
		UpdatedAt:     parseAPITime(item.UpdatedAt),
		ColumnValues:  make(map[string]model.ColumnValue, len(item.ColumnValues)),
	}

	for _, cv := range item.ColumnValues {
		task.ColumnValues[cv.ID] = model.ColumnValue{
			Title: cv.Column.Title,
			Text:  cv.Text,
			Value: cv.Value,
			Type:  cv.Type,
		}

		switch {
		case cv.ID == board.DateColumnID:
			due, err := parseDateValue(cv.Value, m.calc.Location())
			if err == nil {
				task.DueDate = due
			}
		case cv.ID == board.AssigneeColumnID:
			personID, err := parsePeopleValue(cv.Value)
			if err == nil && personID != "" {
				task.AssigneeID = personID
				task.AssigneeName = ws.users[personID]
			}
		case cv.Type == "status" && task.Status == "":
			task.Status, task.StatusColor = parseStatusValue(cv)
		case cv.Type == "file":
			attachments, err := parseFilesValue(cv.Value)
			if err == nil {
				task.Attachments = append(task.Attachments, attachments...)
			}
		}
	}

	for _, asset := range item.Assets {
		task.Attachments = append(task.Attachments, model.Attachment{
			ID:        asset.ID,
			Name:      asset.Name,
			URL:       asset.PublicURL,
			Extension: asset.FileExtension,
		})
	}

	for _, update := range item.Updates {
		if update.TextBody != "" {
			task.Updates = append(task.Updates, update.TextBody)
		}
		for _, asset := range update.Assets {
			task.Attachments = append(task.Attachments, model.Attachment{
				ID:        asset.ID,
				Name:      asset.Name,
				URL:       asset.PublicURL,
				Extension: asset.FileExtension,
			})
		}
	}

	return task
}

// itemURL builds the browser link to an item.
func itemURL(subdomain, boardID, itemID string) string {
	if subdomain == "" {
		subdomain = "app"
	}
	return fmt.Sprintf("https://%s.monday.com/boards/%s/pulses/%s",
		subdomain, boardID, itemID)
}

// sortByDueDate orders tasks ascending by due date, undated tasks last.
func sortByDueDate(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
