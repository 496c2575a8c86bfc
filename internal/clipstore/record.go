package clipstore

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage names the furthest lifecycle step a record has reached.
type Stage string

const (
	StageNew        Stage = "new"
	StageDownloaded Stage = "downloaded"
	StageTrimmed    Stage = "trimmed"
	StageNormalized Stage = "normalized"
	StageUploaded   Stage = "uploaded"
	StagePublished  Stage = "published"
)

// IDLength is the number of characters kept from a generated UUID.
const IDLength = 6

// Record is the persisted state of one clip.
type Record struct {
	ID             string    `json:"uid"`
	Source         string    `json:"url"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	DownloadPath   string    `json:"download_path,omitempty"`
	TrimmedPath    string    `json:"trimmed_path,omitempty"`
	NormalizedPath string    `json:"normalized_path,omitempty"`
	FileURL        string    `json:"file_url,omitempty"`
	Published      bool      `json:"published"`
	EditedAt       time.Time `json:"edited_at,omitzero"`
}

// Stage derives the lifecycle stage from which fields are set.
func (r Record) Stage() Stage {
	switch {
	case r.Published:
		return StagePublished
	case r.FileURL != "":
		return StageUploaded
	case r.NormalizedPath != "":
		return StageNormalized
	case r.TrimmedPath != "":
		return StageTrimmed
	case r.DownloadPath != "":
		return StageDownloaded
	default:
		return StageNew
	}
}

// NewID returns a short random identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:IDLength]
}
