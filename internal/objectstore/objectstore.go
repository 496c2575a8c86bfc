package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"clipper/internal/config"
	"clipper/internal/services"
)

// Uploader stores a local file under remoteName and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteName string) (string, error)
}

// NewFromConfig selects the backend named by storage.backend.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Uploader, error) {
	switch cfg.Storage.Backend {
	case config.StorageB2:
		return NewB2(ctx, B2Options{
			KeyID:         cfg.Storage.KeyID,
			AppKey:        cfg.Storage.AppKey,
			Bucket:        cfg.Storage.Bucket,
			PublicURLBase: cfg.Storage.PublicURLBase,
			Logger:        logger,
		})
	case config.StorageLocal, "":
		return NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicURLBase, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "upload", "objectstore", fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend), nil)
	}
}

// PublicURL joins base and the object name, escaping the name.
func PublicURL(base, name string) string {
	base = strings.TrimRight(base, "/")
	return base + "/" + url.PathEscape(name)
}

func validName(name string) error {
	if name == "" || strings.Contains(name, "..") || path.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return services.Wrap(services.ErrValidation, "upload", "objectstore", fmt.Sprintf("invalid object name %q", name), nil)
	}
	return nil
}
