package docs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nhle/task-alerts/internal/model"
)

type fakeSearcher struct {
	results []model.DocumentLink
	err     error

	lastQuery string
	lastLimit int
	calls     int
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int) ([]model.DocumentLink, error) {
	f.calls++
	f.lastQuery = query
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestRelatedDocumentsMergesAttachmentsAndSearch(t *testing.T) {
	searcher := &fakeSearcher{
		results: []model.DocumentLink{
			{Name: "Q3 Launch Plan", URL: "https://drive.example.com/d/abc", Source: model.DocumentSourceDrive},
		},
	}
	c := NewCorrelator(searcher)

	task := model.Task{
		ID:   "101",
		Name: "Prepare Q3 launch",
		Attachments: []model.Attachment{
			{ID: "a1", Name: "launch-checklist.pdf", URL: "https://files.monday.com/a1", Extension: ".pdf"},
		},
	}

	docs := c.RelatedDocuments(context.Background(), task)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d: %+v", len(docs), docs)
	}
	if docs[0].Source != model.DocumentSourceMonday {
		t.Errorf("expected native attachment first, got source %q", docs[0].Source)
	}
	if docs[0].FileType != "pdf" {
		t.Errorf("expected file type pdf, got %q", docs[0].FileType)
	}
	if docs[1].Source != model.DocumentSourceDrive {
		t.Errorf("expected external document second, got source %q", docs[1].Source)
	}
}

func TestRelatedDocumentsDeduplicatesByURL(t *testing.T) {
	// The external search returns the same file the task already has
	// attached, with only letter-case differences in the URL.
	searcher := &fakeSearcher{
		results: []model.DocumentLink{
			{Name: "Budget Spreadsheet", URL: "https://Files.Monday.com/B7", Source: model.DocumentSourceDrive},
			{Name: "Budget Notes", URL: "https://drive.example.com/d/notes", Source: model.DocumentSourceDrive},
		},
	}
	c := NewCorrelator(searcher)

	task := model.Task{
		ID:   "102",
		Name: "Review budget",
		Attachments: []model.Attachment{
			{ID: "b7", Name: "budget.xlsx", URL: "https://files.monday.com/b7"},
		},
	}

	docs := c.RelatedDocuments(context.Background(), task)
	if len(docs) != 2 {
		t.Fatalf("expected duplicate collapsed to 2 documents, got %d: %+v", len(docs), docs)
	}
	if docs[0].URL != "https://files.monday.com/b7" {
		t.Errorf("expected first occurrence kept, got %q", docs[0].URL)
	}
}

func TestRelatedDocumentsSearchFailureKeepsAttachments(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("drive unavailable")}
	c := NewCorrelator(searcher)

	task := model.Task{
		ID:   "103",
		Name: "Ship release notes",
		Attachments: []model.Attachment{
			{ID: "r1", Name: "notes.md", URL: "https://files.monday.com/r1"},
		},
	}

	docs := c.RelatedDocuments(context.Background(), task)
	if len(docs) != 1 {
		t.Fatalf("expected attachment to survive search failure, got %d documents", len(docs))
	}
	if docs[0].ID != "r1" {
		t.Errorf("unexpected document: %+v", docs[0])
	}
}

func TestRelatedDocumentsQueryBounded(t *testing.T) {
	searcher := &fakeSearcher{}
	c := NewCorrelator(searcher, WithSearchLimit(3))

	task := model.Task{
		ID:   "104",
		Name: "Quarterly marketing roadmap planning session follow items review",
	}
	c.RelatedDocuments(context.Background(), task)

	if searcher.calls != 1 {
		t.Fatalf("expected exactly one search call, got %d", searcher.calls)
	}
	if searcher.lastLimit != 3 {
		t.Errorf("expected limit 3, got %d", searcher.lastLimit)
	}
	words := strings.Fields(searcher.lastQuery)
	if len(words) > 5 {
		t.Errorf("expected at most 5 keywords, got %d: %q", len(words), searcher.lastQuery)
	}
}

func TestRelatedDocumentsNilSearcher(t *testing.T) {
	c := NewCorrelator(nil)

	task := model.Task{
		ID:          "105",
		Name:        "Untracked chore",
		Attachments: []model.Attachment{{ID: "x", Name: "x.txt", URL: "https://files.monday.com/x"}},
	}

	docs := c.RelatedDocuments(context.Background(), task)
	if len(docs) != 1 {
		t.Fatalf("expected attachments only, got %d", len(docs))
	}
}

func TestRelatedDocumentsStopWordOnlyNameSkipsSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	c := NewCorrelator(searcher)

	c.RelatedDocuments(context.Background(), model.Task{ID: "106", Name: "To do"})
	if searcher.calls != 0 {
		t.Errorf("expected no search call for stop-word-only name, got %d", searcher.calls)
	}
}
