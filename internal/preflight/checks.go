package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"clipper/internal/catalog"
	"clipper/internal/config"
	"clipper/internal/deps"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// CheckCatalog probes the catalog token and fetches the document.
func CheckCatalog(ctx context.Context, cfg *config.Config) Result {
	const name = "Catalog"
	if !cfg.CatalogConfigured() {
		return Result{Name: name, Detail: "not configured"}
	}
	client, err := catalog.NewFromConfig(ctx, cfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: summarizeCatalogError(err)}
	}
	doc := client.Document()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d categories, %d clips)", len(doc.Categories), len(doc.Clips))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// Requirements lists the binaries the configured pipeline invokes.
func Requirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Download.Binary,
			Description: "Required for downloading source audio",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpegBinary,
			Description: "Required for trimming and normalization",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Media.FFprobeBinary,
			Description: "Required for verifying produced audio",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "Player",
			Command:     deps.PlayerBinary(cfg.Media.PlayerCommand),
			Description: "Plays clips during interactive review",
			Optional:    true,
		},
	}
}

// CheckSystemDeps evaluates every binary requirement for cfg.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, Requirements(cfg))
}

// MissingRequired returns the names of unavailable non-optional binaries.
func MissingRequired(statuses []deps.Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

func summarizeCatalogError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (catalog unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (catalog unreachable)"
	}
	if errors.Is(err, services.ErrAuth) {
		return "token rejected: " + err.Error()
	}
	return err.Error()
}
