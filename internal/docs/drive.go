package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nhle/task-alerts/internal/model"
)

// DriveClient searches an external document repository over its HTTP
// API. It implements Searcher.
type DriveClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// DriveOption customizes a DriveClient.
type DriveOption func(*DriveClient)

// WithDriveHTTPClient overrides the HTTP client, for tests.
func WithDriveHTTPClient(c *http.Client) DriveOption {
	return func(d *DriveClient) { d.httpClient = c }
}

// NewDriveClient creates a client for the document repository at
// baseURL, authenticating with token.
func NewDriveClient(baseURL, token string, opts ...DriveOption) *DriveClient {
	d := &DriveClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// driveFile is one entry in the repository's search response.
type driveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	WebLink  string `json:"webViewLink"`
	MimeType string `json:"mimeType"`
}

// Search queries the repository for documents matching query, returning
// at most limit links.
func (d *DriveClient) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]model.DocumentLink, error) {
	u, err := url.Parse(d.baseURL + "/files/search")
	if err != nil {
		return nil, fmt.Errorf("building search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Files []driveFile `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	links := make([]model.DocumentLink, 0, len(payload.Files))
	for _, f := range payload.Files {
		links = append(links, model.DocumentLink{
			ID:       f.ID,
			Name:     f.Name,
			URL:      f.WebLink,
			Source:   model.DocumentSourceDrive,
			FileType: f.MimeType,
		})
	}
	if len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}
