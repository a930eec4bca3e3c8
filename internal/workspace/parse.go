package workspace

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nhle/task-alerts/internal/model"
	"github.com/nhle/task-alerts/internal/monday"
)

// dateValue is the raw JSON payload of a date column value.
type dateValue struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// peopleValue is the raw JSON payload of a people column value.
type peopleValue struct {
	PersonsAndTeams []struct {
		ID   int64  `json:"id"`
		Kind string `json:"kind"`
	} `json:"personsAndTeams"`
}

// statusValue is the raw JSON payload of a status column value.
type statusValue struct {
	Color string `json:"color"`
}

// filesValue is the raw JSON payload of a file column value.
type filesValue struct {
	Files []struct {
		AssetID   int64  `json:"assetId"`
		Name      string `json:"name"`
		URL       string `json:"url"`
		Extension string `json:"fileExtension"`
	} `json:"files"`
}

// parseDateValue parses a date column's raw JSON into an instant in the
// given civil timezone. The optional time component defaults to midnight.
func parseDateValue(raw string, loc *time.Location) (*time.Time, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var dv dateValue
	if err := json.Unmarshal([]byte(raw), &dv); err != nil {
		return nil, fmt.Errorf("parsing date value: %w", err)
	}
	if dv.Date == "" {
		return nil, nil
	}

	layout := "2006-01-02"
	text := dv.Date
	if dv.Time != "" {
		layout = "2006-01-02 15:04:05"
		text = dv.Date + " " + dv.Time
	}

	t, err := time.ParseInLocation(layout, text, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", text, err)
	}
	return &t, nil
}

// parsePeopleValue parses a people column's raw JSON and returns the id
// of the first person reference, skipping team references.
func parsePeopleValue(raw string) (string, error) {
	if raw == "" || raw == "null" {
		return "", nil
	}

	var pv peopleValue
	if err := json.Unmarshal([]byte(raw), &pv); err != nil {
		return "", fmt.Errorf("parsing people value: %w", err)
	}

	for _, ref := range pv.PersonsAndTeams {
		if ref.Kind == "" || ref.Kind == "person" {
			return strconv.FormatInt(ref.ID, 10), nil
		}
	}
	return "", nil
}

// parseStatusValue extracts the status label and color from a status
// column value. The label comes from the rendered text; the color from
// the raw payload when present.
func parseStatusValue(cv monday.ColumnValue) (label, color string) {
	label = cv.Text
	if cv.Value == "" || cv.Value == "null" {
		return label, ""
	}

	var sv statusValue
	if err := json.Unmarshal([]byte(cv.Value), &sv); err != nil {
		return label, ""
	}
	return label, sv.Color
}

// parseFilesValue parses a file column's raw JSON into attachments.
func parseFilesValue(raw string) ([]model.Attachment, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var fv filesValue
	if err := json.Unmarshal([]byte(raw), &fv); err != nil {
		return nil, fmt.Errorf("parsing files value: %w", err)
	}

	attachments := make([]model.Attachment, 0, len(fv.Files))
	for _, f := range fv.Files {
		attachments = append(attachments, model.Attachment{
			ID:        strconv.FormatInt(f.AssetID, 10),
			Name:      f.Name,
			URL:       f.URL,
			Extension: f.Extension,
		})
	}
	return attachments, nil
}

// parseAPITime parses an item timestamp. The API returns RFC 3339.
func parseAPITime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
