package workspace

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nhle/task-alerts/internal/civiltime"
	"github.com/nhle/task-alerts/internal/model"
	"github.com/nhle/task-alerts/internal/monday"
)

// fakeAPI serves canned responses for the query shapes the manager
// issues, routed by distinctive fragments of the query text.
type fakeAPI struct {
	boards       []monday.Board
	users        []monday.User
	itemsByBoard map[string][]monday.Item

	failFiltered bool
	failBoards   map[string]bool

	filteredCalls int
	fullCalls     int
}

func (f *fakeAPI) Query(
	ctx context.Context,
	query string,
	vars map[string]interface{},
	result interface{},
) error {
	switch {
	case strings.Contains(query, "users (kind"):
		return writeJSON(result, map[string]interface{}{"users": f.users})

	case strings.Contains(query, "columns { id title type }"):
		return writeJSON(result, map[string]interface{}{"boards": f.boards})

	case strings.Contains(query, "query_params"):
		f.filteredCalls++
		if f.failFiltered {
			return &monday.FatalError{Message: "unsupported query shape"}
		}
		return f.itemsResponse(vars, result)

	case strings.Contains(query, "next_items_page"):
		return writeJSON(result, map[string]interface{}{
			"next_items_page": monday.ItemsPage{},
		})

	default:
		f.fullCalls++
		return f.itemsResponse(vars, result)
	}
}

func (f *fakeAPI) itemsResponse(vars map[string]interface{}, result interface{}) error {
	boardID := vars["boardID"].([]string)[0]
	if f.failBoards[boardID] {
		return &monday.TransientError{Message: "board unavailable"}
	}
	return writeJSON(result, map[string]interface{}{
		"boards": []interface{}{
			map[string]interface{}{
				"items_page": monday.ItemsPage{Items: f.itemsByBoard[boardID]},
			},
		},
	})
}

func writeJSON(result, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, result)
}

func newTestManager(t *testing.T, api *fakeAPI, cfgs []model.WorkspaceConfig) *Manager {
	t.Helper()
	calc, err := civiltime.NewCalculator("Australia/Sydney")
	if err != nil {
		t.Fatalf("creating calculator: %v", err)
	}
	m := NewManager(cfgs, calc, WithClientFactory(func(token string) API {
		return api
	}))
	m.Initialize(context.Background())
	return m
}

func boardItem(id, name, dueRaw string) monday.Item {
	item := monday.Item{ID: id, Name: name}
	item.CreatedAt = "2026-06-01T00:00:00Z"
	item.UpdatedAt = "2026-06-10T00:00:00Z"
	item.ColumnValues = []monday.ColumnValue{
		{ID: "due", Value: dueRaw, Type: "date"},
		{ID: "owner", Value: `{"personsAndTeams":[{"id":4471,"kind":"person"}]}`, Type: "people"},
		{ID: "status", Text: "Working on it", Value: `{"color":"#fdab3d"}`, Type: "status"},
	}
	return item
}

func configuredWorkspace() model.WorkspaceConfig {
	return model.WorkspaceConfig{
		ID:        "ws1",
		Name:      "Operations",
		APIToken:  "token",
		Subdomain: "acme",
		Boards: []model.BoardConfig{{
			BoardID:          "b1",
			Name:             "Projects",
			DateColumnID:     "due",
			AssigneeColumnID: "owner",
		}},
	}
}

func TestInitialize_DiscoversBoardsAndColumns(t *testing.T) {
	api := &fakeAPI{
		boards: []monday.Board{
			{
				ID:        "b1",
				Name:      "Projects",
				Workspace: &monday.Workspace{ID: "ws1", Name: "Operations"},
				Columns: []monday.Column{
					{ID: "c_created", Title: "Created", Type: "date"},
					{ID: "c_due", Title: "Due Date", Type: "date"},
					{ID: "c_owner", Title: "Owner", Type: "people"},
				},
			},
			{
				// No date column: must be skipped, not fail discovery.
				ID:        "b2",
				Name:      "Notes",
				Workspace: &monday.Workspace{ID: "ws1", Name: "Operations"},
				Columns: []monday.Column{
					{ID: "c_text", Title: "Body", Type: "text"},
				},
			},
			{
				// Different workspace: filtered out.
				ID:        "b3",
				Name:      "Other",
				Workspace: &monday.Workspace{ID: "ws9", Name: "Elsewhere"},
				Columns: []monday.Column{
					{ID: "c_due", Title: "Deadline", Type: "date"},
				},
			},
		},
	}

	cfg := model.WorkspaceConfig{ID: "ws1", Name: "Operations", APIToken: "token"}
	m := newTestManager(t, api, []model.WorkspaceConfig{cfg})

	if m.WorkspaceCount() != 1 {
		t.Fatalf("expected 1 workspace, got %d", m.WorkspaceCount())
	}
	boards := m.workspaces[0].boards
	if len(boards) != 1 {
		t.Fatalf("expected 1 discovered board, got %d", len(boards))
	}
	if boards[0].DateColumnID != "c_due" {
		t.Errorf("date column = %q, want c_due", boards[0].DateColumnID)
	}
	if boards[0].AssigneeColumnID != "c_owner" {
		t.Errorf("assignee column = %q, want c_owner", boards[0].AssigneeColumnID)
	}
}

func TestInitialize_MissingTokenExcludesWorkspaceOnly(t *testing.T) {
	api := &fakeAPI{}
	cfgs := []model.WorkspaceConfig{
		{ID: "ws_bad", Name: "No token"},
		configuredWorkspace(),
	}
	m := newTestManager(t, api, cfgs)

	if m.WorkspaceCount() != 1 {
		t.Fatalf("expected 1 initialized workspace, got %d", m.WorkspaceCount())
	}
	if m.workspaces[0].cfg.ID != "ws1" {
		t.Errorf("wrong workspace survived: %s", m.workspaces[0].cfg.ID)
	}
}

func TestTasksDueInRange_FiltersNormalizesAndSorts(t *testing.T) {
	api := &fakeAPI{
		users: []monday.User{{ID: "4471", Name: "Dana Wu", Enabled: true}},
		itemsByBoard: map[string][]monday.Item{
			"b1": {
				boardItem("11", "Later task", `{"date":"2026-06-19"}`),
				boardItem("12", "Sooner task", `{"date":"2026-06-16"}`),
				boardItem("13", "Out of range", `{"date":"2026-07-01"}`),
				boardItem("14", "Undated", "null"),
			},
		},
	}
	m := newTestManager(t, api, []model.WorkspaceConfig{configuredWorkspace()})

	loc, _ := time.LoadLocation("Australia/Sydney")
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	end := time.Date(2026, 6, 21, 23, 59, 59, 0, loc)

	tasks, err := m.TasksDueInRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks in range, got %d", len(tasks))
	}
	if tasks[0].ID != "12" || tasks[1].ID != "11" {
		t.Errorf("tasks not sorted by due date: %s, %s", tasks[0].ID, tasks[1].ID)
	}

	got := tasks[0]
	if got.AssigneeID != "4471" || got.AssigneeName != "Dana Wu" {
		t.Errorf("assignee not resolved: %q %q", got.AssigneeID, got.AssigneeName)
	}
	if got.Status != "Working on it" || got.StatusColor != "#fdab3d" {
		t.Errorf("status not parsed: %q %q", got.Status, got.StatusColor)
	}
	if got.URL != "https://acme.monday.com/boards/b1/pulses/12" {
		t.Errorf("unexpected URL: %s", got.URL)
	}
	if got.WorkspaceName != "Operations" || got.BoardName != "Projects" {
		t.Errorf("board/workspace back-references missing: %+v", got)
	}
}

func TestTasksDueInRange_FallsBackWhenFilteredQueryFails(t *testing.T) {
	api := &fakeAPI{
		failFiltered: true,
		itemsByBoard: map[string][]monday.Item{
			"b1": {boardItem("21", "Fallback task", `{"date":"2026-06-16"}`)},
		},
	}
	m := newTestManager(t, api, []model.WorkspaceConfig{configuredWorkspace()})

	loc, _ := time.LoadLocation("Australia/Sydney")
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	end := time.Date(2026, 6, 21, 23, 59, 59, 0, loc)

	tasks, err := m.TasksDueInRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "21" {
		t.Fatalf("expected fallback to recover the task, got %+v", tasks)
	}
	if api.filteredCalls == 0 || api.fullCalls == 0 {
		t.Errorf("expected both query shapes attempted, got %d filtered / %d full",
			api.filteredCalls, api.fullCalls)
	}
}

func TestTasksDueInRange_BoardFailureDoesNotAbortSiblings(t *testing.T) {
	cfg := configuredWorkspace()
	cfg.Boards = append(cfg.Boards, model.BoardConfig{
		BoardID:      "b2",
		Name:         "Second",
		DateColumnID: "due",
	})

	api := &fakeAPI{
		failBoards: map[string]bool{"b1": true},
		itemsByBoard: map[string][]monday.Item{
			"b2": {boardItem("31", "Survivor", `{"date":"2026-06-16"}`)},
		},
	}
	m := newTestManager(t, api, []model.WorkspaceConfig{cfg})

	loc, _ := time.LoadLocation("Australia/Sydney")
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)
	end := time.Date(2026, 6, 21, 23, 59, 59, 0, loc)

	tasks, err := m.TasksDueInRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "31" {
		t.Fatalf("expected the healthy board's task, got %+v", tasks)
	}
}

func TestNormalizeItem_RoundTripPreservesIdentity(t *testing.T) {
	item := boardItem("42", "Quarterly Review", `{"date":"2026-06-18","time":"09:00:00"}`)
	item.Assets = []monday.Asset{
		{ID: "a1", Name: "agenda.pdf", PublicURL: "https://files/agenda.pdf", FileExtension: ".pdf"},
	}
	item.Updates = []monday.Update{
		{
			TextBody: "Uploaded the agenda",
			Assets: []monday.Asset{
				{ID: "a2", Name: "minutes.docx", PublicURL: "https://files/minutes.docx"},
			},
		},
	}

	api := &fakeAPI{itemsByBoard: map[string][]monday.Item{"b1": {item}}}
	m := newTestManager(t, api, []model.WorkspaceConfig{configuredWorkspace()})

	task, err := m.TaskByID(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task == nil {
		t.Fatal("task not found")
	}

	if task.ID != "42" || task.Name != "Quarterly Review" {
		t.Errorf("identity not preserved: %+v", task)
	}
	loc, _ := time.LoadLocation("Australia/Sydney")
	wantDue := time.Date(2026, 6, 18, 9, 0, 0, 0, loc)
	if task.DueDate == nil || !task.DueDate.Equal(wantDue) {
		t.Errorf("due date = %v, want %v", task.DueDate, wantDue)
	}
	if len(task.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(task.Attachments))
	}
	urls := map[string]bool{}
	for _, a := range task.Attachments {
		urls[a.URL] = true
	}
	if !urls["https://files/agenda.pdf"] || !urls["https://files/minutes.docx"] {
		t.Errorf("attachment URLs not preserved: %+v", task.Attachments)
	}
	if len(task.Updates) != 1 || task.Updates[0] != "Uploaded the agenda" {
		t.Errorf("updates not carried: %+v", task.Updates)
	}
}

func TestTaskByID_NotFound(t *testing.T) {
	api := &fakeAPI{itemsByBoard: map[string][]monday.Item{"b1": {}}}
	m := newTestManager(t, api, []model.WorkspaceConfig{configuredWorkspace()})

	task, err := m.TaskByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Errorf("expected nil, got %+v", task)
	}
}

func TestAllTasks_IncludesUndated(t *testing.T) {
	api := &fakeAPI{
		itemsByBoard: map[string][]monday.Item{
			"b1": {
				boardItem("51", "Dated", `{"date":"2026-06-16"}`),
				boardItem("52", "Undated", "null"),
			},
		},
	}
	m := newTestManager(t, api, []model.WorkspaceConfig{configuredWorkspace()})

	tasks, err := m.AllTasks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	// Undated tasks sort last.
	if tasks[0].ID != "51" || tasks[1].ID != "52" {
		t.Errorf("unexpected order: %s, %s", tasks[0].ID, tasks[1].ID)
	}
}
