package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Backblaze/blazer/b2"

	"clipper/internal/logging"
	"clipper/internal/services"
)

// B2Options configures the Backblaze backend.
type B2Options struct {
	KeyID         string
	AppKey        string
	Bucket        string
	PublicURLBase string
	Logger        *slog.Logger
}

// objectWriter opens a writer for one remote object.
type objectWriter func(ctx context.Context, name, contentType string) io.WriteCloser

// B2 uploads clips to a Backblaze B2 bucket.
type B2 struct {
	newWriter  objectWriter
	publicBase string
	logger     *slog.Logger
}

func bucketWriter(bucket *b2.Bucket) objectWriter {
	return func(ctx context.Context, name, contentType string) io.WriteCloser {
		return bucket.Object(name).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	}
}

// NewB2 authorizes against B2 and resolves the bucket.
func NewB2(ctx context.Context, opts B2Options) (*B2, error) {
	if strings.TrimSpace(opts.KeyID) == "" || strings.TrimSpace(opts.AppKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "b2", "B2 credentials missing: set storage.key_id/app_key or B2_KEY_ID/B2_APP_KEY", nil)
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "b2", "storage.bucket is required", nil)
	}
	base := opts.PublicURLBase
	if base == "" {
		base = "https://f002.backblazeb2.com/file/" + opts.Bucket
	}

	client, err := b2.NewClient(ctx, opts.KeyID, opts.AppKey)
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, "upload", "b2", "authorize account", err)
	}
	bucket, err := client.Bucket(ctx, opts.Bucket)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "b2", fmt.Sprintf("open bucket %q", opts.Bucket), err)
	}
	return &B2{
		newWriter:  bucketWriter(bucket),
		publicBase: base,
		logger:     logging.NewComponentLogger(opts.Logger, "objectstore"),
	}, nil
}

func (b *B2) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	if err := validName(remoteName); err != nil {
		return "", err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "upload", "b2", "open normalized file", err)
	}
	defer file.Close()

	writer := b.newWriter(ctx, remoteName, contentType(remoteName))
	written, err := io.Copy(writer, file)
	if err != nil {
		_ = writer.Close()
		return "", services.Wrap(services.ErrExternalTool, "upload", "b2", remoteName, err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "upload", "b2", remoteName, err)
	}

	url := PublicURL(b.publicBase, remoteName)
	b.logger.Info("uploaded clip",
		logging.String(logging.FieldEventType, "upload_complete"),
		logging.String("object", remoteName),
		logging.Int64("bytes", written),
		logging.String("url", url))
	return url, nil
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(name, ".opus"), strings.HasSuffix(name, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(name, ".m4a"):
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
