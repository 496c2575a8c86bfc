package objectstore

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"

	"clipper/internal/fileutil"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// Local publishes into a directory on disk.
type Local struct {
	dir        string
	publicBase string
	logger     *slog.Logger
}

// NewLocal returns a Local backend. Without publicBase, URLs use file://.
func NewLocal(dir, publicBase string, logger *slog.Logger) *Local {
	return &Local{
		dir:        dir,
		publicBase: publicBase,
		logger:     logging.NewComponentLogger(logger, "objectstore"),
	}
}

func (l *Local) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	if err := validName(remoteName); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(l.dir, remoteName)
	digest, err := fileutil.PublishCopy(localPath, dst)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "upload", "local", remoteName, err)
	}
	l.logger.Info("published clip locally",
		logging.String("path", dst),
		logging.String("sha256", digest))

	if l.publicBase != "" {
		return PublicURL(l.publicBase, remoteName), nil
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		abs = dst
	}
	return (&url.URL{Scheme: "file", Path: abs}).String(), nil
}
