package workspace

import (
	"testing"
	"time"

	"github.com/nhle/task-alerts/internal/monday"
)

func sydneyLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}
	return loc
}

func TestParseDateValue(t *testing.T) {
	loc := sydneyLoc(t)

	t.Run("date only", func(t *testing.T) {
		got, err := parseDateValue(`{"date":"2026-03-10"}`, loc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
		if got == nil || !got.Equal(want) {
			t.Errorf("parsed %v, want %v", got, want)
		}
	})

	t.Run("date with time", func(t *testing.T) {
		got, err := parseDateValue(`{"date":"2026-03-10","time":"14:30:00"}`, loc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 3, 10, 14, 30, 0, 0, loc)
		if got == nil || !got.Equal(want) {
			t.Errorf("parsed %v, want %v", got, want)
		}
	})

	t.Run("empty and null values", func(t *testing.T) {
		for _, raw := range []string{"", "null", `{}`} {
			got, err := parseDateValue(raw, loc)
			if err != nil {
				t.Errorf("raw %q: unexpected error: %v", raw, err)
			}
			if got != nil {
				t.Errorf("raw %q: expected nil, got %v", raw, got)
			}
		}
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		if _, err := parseDateValue(`{not json`, loc); err == nil {
			t.Error("expected an error for malformed JSON")
		}
		if _, err := parseDateValue(`{"date":"10/03/2026"}`, loc); err == nil {
			t.Error("expected an error for unparseable date")
		}
	})
}

func TestParsePeopleValue(t *testing.T) {
	t.Run("first person selected", func(t *testing.T) {
		raw := `{"personsAndTeams":[{"id":4471,"kind":"person"},{"id":9,"kind":"person"}]}`
		got, err := parsePeopleValue(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "4471" {
			t.Errorf("got %q, want 4471", got)
		}
	})

	t.Run("teams skipped", func(t *testing.T) {
		raw := `{"personsAndTeams":[{"id":77,"kind":"team"},{"id":12,"kind":"person"}]}`
		got, err := parsePeopleValue(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "12" {
			t.Errorf("got %q, want 12", got)
		}
	})

	t.Run("empty value", func(t *testing.T) {
		got, err := parsePeopleValue("null")
		if err != nil || got != "" {
			t.Errorf("got %q, %v; want empty, nil", got, err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		if _, err := parsePeopleValue("{oops"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestParseStatusValue(t *testing.T) {
	cv := monday.ColumnValue{
		Text:  "Working on it",
		Value: `{"index":1,"color":"#fdab3d"}`,
	}
	label, color := parseStatusValue(cv)
	if label != "Working on it" {
		t.Errorf("label = %q", label)
	}
	if color != "#fdab3d" {
		t.Errorf("color = %q", color)
	}

	label, color = parseStatusValue(monday.ColumnValue{Text: "Done", Value: "null"})
	if label != "Done" || color != "" {
		t.Errorf("got %q/%q, want Done with no color", label, color)
	}
}

func TestParseFilesValue(t *testing.T) {
	raw := `{"files":[
		{"assetId":101,"name":"brief.pdf","fileExtension":".pdf"},
		{"assetId":102,"name":"notes.docx","fileExtension":".docx"}
	]}`
	attachments, err := parseFilesValue(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(attachments))
	}
	if attachments[0].ID != "101" || attachments[0].Name != "brief.pdf" {
		t.Errorf("unexpected first attachment: %+v", attachments[0])
	}

	if _, err := parseFilesValue("{bad"); err == nil {
		t.Error("expected an error for malformed payload")
	}
}
