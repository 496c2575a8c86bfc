package clipper

import (
	"context"

	"clipper/internal/catalog"
	"clipper/internal/clipstore"
)

// Downloader fetches best-quality audio for a source. template contains the
// "%(ext)s" placeholder; the returned path is the file actually written.
type Downloader interface {
	Download(ctx context.Context, source, template, codec, quality string) (string, error)
}

// Processor trims and loudness-normalizes audio files.
type Processor interface {
	Trim(ctx context.Context, input, start, end, output string) error
	Normalize(ctx context.Context, input, output string, target float64, codec string) error
}

// Uploader publishes a local file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteName string) (string, error)
}

// Catalog is the subset of the catalog client the controller needs.
type Catalog interface {
	PutCategory(ctx context.Context, tag string, names catalog.Names) error
	PutClip(ctx context.Context, rec clipstore.Record, category string, names catalog.Names) error
	UpdateClip(ctx context.Context, rec clipstore.Record, category string, names catalog.Names) error
	RemoveClip(ctx context.Context, id string) (bool, error)
}
