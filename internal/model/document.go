package model

import "strings"

// Document source constants.
const (
	DocumentSourceMonday = "monday"
	DocumentSourceDrive  = "drive"
)

// DocumentLink is a reference to a document related to a task, either a
// native attachment or a hit from an external document search.
type DocumentLink struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Source   string `json:"source"`
	FileType string `json:"file_type"`
}

// DedupeKey returns the identity used for document deduplication: the
// lowercased URL when present, otherwise the source and name combined.
func (d DocumentLink) DedupeKey() string {
	if d.URL != "" {
		return strings.ToLower(d.URL)
	}
	return d.Source + "|" + strings.ToLower(d.Name)
}
