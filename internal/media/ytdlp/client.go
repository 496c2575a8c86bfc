package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// ExtPlaceholder is the yt-dlp template field replaced by the output extension.
const ExtPlaceholder = "%(ext)s"

// Request describes one audio download.
type Request struct {
	Source   string
	Template string
	Format   string
	Codec    string
	Quality  string
}

// Runner performs a download. The default runner drives the yt-dlp binary.
type Runner func(ctx context.Context, binary string, req Request) error

// Client implements the downloader collaborator.
type Client struct {
	binary string
	format string
	run    Runner
	logger *slog.Logger
}

// New constructs a Client. An empty binary uses yt-dlp from PATH.
func New(binary, format string, logger *slog.Logger) *Client {
	if strings.TrimSpace(format) == "" {
		format = "bestaudio/best"
	}
	return &Client{
		binary: strings.TrimSpace(binary),
		format: format,
		run:    runYTDLP,
		logger: logging.NewComponentLogger(logger, "ytdlp"),
	}
}

// NewFromConfig builds a Client from the [download] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return New(cfg.Download.Binary, cfg.Download.Format, logger)
}

// WithRunner swaps the download runner (tests).
func (c *Client) WithRunner(run Runner) *Client {
	if run != nil {
		c.run = run
	}
	return c
}

// Download fetches source as a single audio file named by template, with
// "%(ext)s" standing for the codec's extension, and returns its path.
func (c *Client) Download(ctx context.Context, source, template, codec, quality string) (string, error) {
	if !strings.Contains(template, ExtPlaceholder) {
		return "", services.Wrap(services.ErrValidation, "download", "ytdlp", fmt.Sprintf("output template %q lacks %s", template, ExtPlaceholder), nil)
	}
	if err := os.MkdirAll(filepath.Dir(template), 0o755); err != nil {
		return "", services.Wrap(services.ErrStorage, "download", "ytdlp", "create download directory", err)
	}

	req := Request{Source: source, Template: template, Format: c.format, Codec: codec, Quality: quality}
	c.logger.Info("downloading audio",
		logging.String(logging.FieldEventType, "download_start"),
		logging.String("source", source),
		logging.String("codec", codec))
	if err := c.run(ctx, c.binary, req); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "ytdlp", source, err)
	}

	path, err := resolveOutput(template, codec)
	if err != nil {
		return "", err
	}
	c.logger.Info("download complete", logging.String("path", path))
	return path, nil
}

func runYTDLP(ctx context.Context, binary string, req Request) error {
	cmd := ytdlp.New().
		Format(req.Format).
		ExtractAudio().
		AudioFormat(req.Codec).
		AudioQuality(req.Quality).
		NoPlaylist().
		ForceOverwrites().
		Output(req.Template)
	if binary != "" {
		cmd.SetExecutable(binary)
	}
	_, err := cmd.Run(ctx, req.Source)
	return err
}

// resolveOutput finds the file yt-dlp wrote. The expected name uses the
// codec's extension; otherwise any file matching the template prefix is taken.
func resolveOutput(template, codec string) (string, error) {
	expected := strings.Replace(template, ExtPlaceholder, Extension(codec), 1)
	if _, err := os.Stat(expected); err == nil {
		return expected, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", services.Wrap(services.ErrStorage, "download", "ytdlp", "stat download", err)
	}

	prefix := strings.Replace(template, ExtPlaceholder, "", 1)
	matches, err := filepath.Glob(globEscape(prefix) + "*")
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "download", "ytdlp", "search download", err)
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") || strings.HasSuffix(match, ".ytdl") {
			continue
		}
		return match, nil
	}
	return "", services.Wrap(services.ErrExternalTool, "download", "ytdlp", fmt.Sprintf("yt-dlp reported success but %s was not written", expected), nil)
}

// Extension maps a yt-dlp audio format to the file extension it produces.
func Extension(codec string) string {
	switch strings.ToLower(codec) {
	case "vorbis":
		return "ogg"
	case "", "best":
		return "opus"
	default:
		return strings.ToLower(codec)
	}
}

func globEscape(s string) string {
	replacer := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return replacer.Replace(s)
}
