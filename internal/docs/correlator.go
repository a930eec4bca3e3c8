// Package docs correlates tasks with related documents: native
// attachments merged with hits from an optional external document
// search, deduplicated by URL.
package docs

import (
	"context"
	"log"
	"strings"

	"github.com/nhle/task-alerts/internal/model"
	"github.com/nhle/task-alerts/internal/search"
)

// maxSearchKeywords caps the keywords derived from a task name for the
// external search call.
const maxSearchKeywords = 5

// defaultSearchLimit bounds external results per task.
const defaultSearchLimit = 5

// Searcher is the external document-repository collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.DocumentLink, error)
}

// Correlator resolves the documents related to a task.
type Correlator struct {
	searcher    Searcher
	searchLimit int
}

// Option customizes a Correlator.
type Option func(*Correlator)

// WithSearchLimit overrides the external result cap.
func WithSearchLimit(limit int) Option {
	return func(c *Correlator) { c.searchLimit = limit }
}

// NewCorrelator creates a Correlator. searcher may be nil, in which case
// only native attachments are returned.
func NewCorrelator(searcher Searcher, opts ...Option) *Correlator {
	c := &Correlator{
		searcher:    searcher,
		searchLimit: defaultSearchLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RelatedDocuments merges the task's native attachments with externally
// searched documents. An external search failure is logged and
// contributes nothing; the attachments still come back. The merged list
// is deduplicated by normalized URL, falling back to source+name when a
// URL is absent.
func (c *Correlator) RelatedDocuments(
	ctx context.Context,
	task model.Task,
) []model.DocumentLink {
	var merged []model.DocumentLink

	for _, a := range task.Attachments {
		merged = append(merged, model.DocumentLink{
			ID:       a.ID,
			Name:     a.Name,
			URL:      a.URL,
			Source:   model.DocumentSourceMonday,
			FileType: strings.TrimPrefix(a.Extension, "."),
		})
	}

	if c.searcher != nil {
		if query := searchQuery(task.Name); query != "" {
			external, err := c.searcher.Search(ctx, query, c.searchLimit)
			if err != nil {
				log.Printf("task %s: external document search failed: %v", task.ID, err)
			} else {
				merged = append(merged, external...)
			}
		}
	}

	return dedupe(merged)
}

// searchQuery derives a bounded keyword query from a task name.
func searchQuery(taskName string) string {
	keywords := search.Tokenize(taskName)
	if len(keywords) > maxSearchKeywords {
		keywords = keywords[:maxSearchKeywords]
	}
	return strings.Join(keywords, " ")
}

// dedupe removes documents sharing a dedupe key, keeping first
// occurrence order.
func dedupe(docs []model.DocumentLink) []model.DocumentLink {
	if len(docs) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(docs))
	out := make([]model.DocumentLink, 0, len(docs))
	for _, d := range docs {
		key := d.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}
