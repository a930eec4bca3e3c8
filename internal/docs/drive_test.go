package docs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nhle/task-alerts/internal/model"
)

func TestDriveClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer drive-token" {
			t.Errorf("auth header = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "launch plan" {
			t.Errorf("query = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"files": []map[string]string{
				{"id": "f1", "name": "Launch Plan", "webViewLink": "https://drive.example.com/d/f1", "mimeType": "application/pdf"},
			},
		})
	}))
	defer srv.Close()

	c := NewDriveClient(srv.URL, "drive-token")
	links, err := c.Search(context.Background(), "launch plan", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].Source != model.DocumentSourceDrive {
		t.Errorf("source = %q", links[0].Source)
	}
	if links[0].URL != "https://drive.example.com/d/f1" {
		t.Errorf("url = %q", links[0].URL)
	}
}

func TestDriveClientSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewDriveClient(srv.URL, "bad-token")
	if _, err := c.Search(context.Background(), "anything", 5); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
