package api

import (
	"time"

	"clipper/internal/clipstore"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ClipItem describes a clip record in a transport-friendly format.
type ClipItem struct {
	ID             string `json:"uid"`
	Source         string `json:"url"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Stage          string `json:"stage"`
	DownloadPath   string `json:"downloadPath,omitempty"`
	TrimmedPath    string `json:"trimmedPath,omitempty"`
	NormalizedPath string `json:"normalizedPath,omitempty"`
	FileURL        string `json:"fileUrl,omitempty"`
	Published      bool   `json:"published"`
	EditedAt       string `json:"editedAt,omitempty"`
}

// ClipListResponse wraps a collection of clips.
type ClipListResponse struct {
	Items []ClipItem `json:"items"`
}

// ClipCreatedResponse carries the identifier of a new record.
type ClipCreatedResponse struct {
	ID string `json:"uid"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	UID   string `json:"uid,omitempty"`
}

// HealthResponse answers GET /health.
type HealthResponse struct {
	OK      bool `json:"ok"`
	Clips   int  `json:"clips"`
	Catalog bool `json:"catalog"`
}

// ClipRequest is the payload for POST /clip and POST /generate.
type ClipRequest struct {
	Source string `form:"url" json:"url"`
	Start  string `form:"start" json:"start"`
	End    string `form:"end" json:"end"`
	Upload *bool  `form:"upload" json:"upload"`
}

// ClipRef names an existing clip.
type ClipRef struct {
	ID string `form:"uid" json:"uid"`
}

// PublishRequest is the payload for POST /publish.
type PublishRequest struct {
	ID       string            `form:"uid" json:"uid"`
	Category string            `form:"cat" json:"cat"`
	Names    map[string]string `form:"-" json:"names"`
}

// FromRecord converts a store record into its transport form.
func FromRecord(rec clipstore.Record) ClipItem {
	return ClipItem{
		ID:             rec.ID,
		Source:         rec.Source,
		Start:          rec.Start,
		End:            rec.End,
		Stage:          string(rec.Stage()),
		DownloadPath:   rec.DownloadPath,
		TrimmedPath:    rec.TrimmedPath,
		NormalizedPath: rec.NormalizedPath,
		FileURL:        rec.FileURL,
		Published:      rec.Published,
		EditedAt:       formatTime(rec.EditedAt),
	}
}

// FromRecords converts a slice, preserving order.
func FromRecords(recs []clipstore.Record) []ClipItem {
	items := make([]ClipItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, FromRecord(rec))
	}
	return items
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
