package clipper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clipper/internal/catalog"
	"clipper/internal/clipstore"
	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/media/ytdlp"
	"clipper/internal/services"
	"clipper/internal/timecode"
)

// DefaultStart is used when a clip is created without a start marker.
const DefaultStart = "0:00:00"

// Settings holds the paths and encoding parameters the stages use.
type Settings struct {
	DownloadDir     string
	TrimmedDir      string
	NormalizedDir   string
	Codec           string
	Quality         string
	OutputExtension string
	AudioCodec      string
	TargetLevel     float64
}

// SettingsFromConfig extracts controller settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		DownloadDir:     cfg.Paths.DownloadDir,
		TrimmedDir:      cfg.Paths.TrimmedDir,
		NormalizedDir:   cfg.Paths.NormalizedDir,
		Codec:           cfg.Download.Codec,
		Quality:         cfg.Download.Quality,
		OutputExtension: cfg.Media.OutputExtension,
		AudioCodec:      cfg.Media.AudioCodec,
		TargetLevel:     cfg.Media.TargetLevel,
	}
}

// Deps are the controller's collaborators. Uploader and Catalog may be nil;
// the stages that need them then fail with a configuration error.
type Deps struct {
	Store      *clipstore.Store
	Downloader Downloader
	Processor  Processor
	Uploader   Uploader
	Catalog    Catalog
	Logger     *slog.Logger
}

// Controller orchestrates clip stages.
type Controller struct {
	mu       sync.Mutex
	store    *clipstore.Store
	download Downloader
	process  Processor
	upload   Uploader
	catalog  Catalog
	settings Settings
	logger   *slog.Logger
	newID    func() string
}

// New constructs a Controller. The store is required.
func New(settings Settings, deps Deps) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("clipper: record store required")
	}
	if settings.OutputExtension == "" {
		settings.OutputExtension = "mp3"
	}
	if settings.AudioCodec == "" {
		settings.AudioCodec = "libmp3lame"
	}
	return &Controller{
		store:    deps.Store,
		download: deps.Downloader,
		process:  deps.Processor,
		upload:   deps.Uploader,
		catalog:  deps.Catalog,
		settings: settings,
		logger:   logging.NewComponentLogger(deps.Logger, "controller"),
		newID:    clipstore.NewID,
	}, nil
}

// Store exposes the record store for read-only front-end queries.
func (c *Controller) Store() *clipstore.Store {
	return c.store
}

// HasCatalog reports whether publishing is possible.
func (c *Controller) HasCatalog() bool {
	return c.catalog != nil
}

// NewClip validates the markers, creates a record, and returns its identifier.
// An empty start means the beginning of the media; an empty end means its end.
func (c *Controller) NewClip(ctx context.Context, source, start, end string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newClip(ctx, source, start, end)
}

func (c *Controller) newClip(ctx context.Context, source, start, end string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", services.Wrap(services.ErrValidation, "new", "controller", "source is required", nil)
	}
	start, end, err := validateMarkers("new", start, end)
	if err != nil {
		return "", err
	}

	id := c.newID()
	for attempts := 0; ; attempts++ {
		if _, err := c.store.Find(id); errors.Is(err, services.ErrNotFound) {
			break
		}
		if attempts > 8 {
			return "", services.Wrap(services.ErrStorage, "new", "controller", "could not allocate a unique clip id", nil)
		}
		id = c.newID()
	}
	if err := c.store.Insert(clipstore.Record{ID: id, Source: source, Start: start, End: end}); err != nil {
		return "", err
	}
	// The record exists from here on, so the id is returned even if the save fails.
	c.stageLogger(ctx, id, "new").Info("clip created",
		logging.String(logging.FieldEventType, "clip_created"),
		logging.String("source", source),
		logging.String("start", start),
		logging.String("end", end))
	return id, c.persist()
}

// Edit replaces the start/end markers. It does not re-run any stage.
func (c *Controller) Edit(ctx context.Context, id, start, end string) (clipstore.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start, end, err := validateMarkers("edit", start, end)
	if err != nil {
		return clipstore.Record{}, err
	}
	rec, err := c.store.Update(id, func(r *clipstore.Record) error {
		r.Start = start
		r.End = end
		return nil
	})
	if err != nil {
		return clipstore.Record{}, err
	}
	c.stageLogger(ctx, id, "edit").Info("clip markers updated", logging.String("start", start), logging.String("end", end))
	return rec, c.persist()
}

// Download fetches the source audio. A raw file already downloaded for the
// same source by another record is reused. With force false, a record that
// already has a raw file is left alone.
func (c *Controller) Download(ctx context.Context, id string, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.downloadStage(ctx, id, force)
}

func (c *Controller) downloadStage(ctx context.Context, id string, force bool) error {
	logger := c.stageLogger(ctx, id, "download")
	rec, err := c.store.Find(id)
	if err != nil {
		return err
	}
	if !force {
		if rec.DownloadPath != "" {
			logger.Info("already downloaded, skipping", logging.String("path", rec.DownloadPath))
			return nil
		}
		if shared, ok := c.store.FindDownloaded(rec.Source, id); ok && fileExists(shared.DownloadPath) {
			if _, err := c.setField(id, func(r *clipstore.Record) { r.DownloadPath = shared.DownloadPath }); err != nil {
				return err
			}
			logger.Info("reusing download from another clip",
				logging.String(logging.FieldEventType, "download_reused"),
				logging.String("shared_with", shared.ID),
				logging.String("path", shared.DownloadPath))
			return c.persist()
		}
	}
	if c.download == nil {
		return services.Wrap(services.ErrConfiguration, "download", "controller", "no downloader configured", nil)
	}

	template := filepath.Join(c.settings.DownloadDir, id+"."+ytdlp.ExtPlaceholder)
	path, err := c.download.Download(ctx, rec.Source, template, c.settings.Codec, c.settings.Quality)
	if err != nil {
		return fmt.Errorf("download clip %s: %w", id, err)
	}
	if _, err := c.setField(id, func(r *clipstore.Record) { r.DownloadPath = path }); err != nil {
		return err
	}
	logger.Info("stage complete", logging.String(logging.FieldEventType, "stage_complete"), logging.String("path", path))
	return c.persist()
}

// Trim cuts start..end out of the raw download. Re-running it after Edit
// overwrites the previous trimmed file.
func (c *Controller) Trim(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trimStage(ctx, id)
}

func (c *Controller) trimStage(ctx context.Context, id string) error {
	rec, err := c.store.Find(id)
	if err != nil {
		return err
	}
	if rec.DownloadPath == "" {
		return missingStage("trim", id, clipstore.StageDownloaded)
	}
	if c.process == nil {
		return services.Wrap(services.ErrConfiguration, "trim", "controller", "no media processor configured", nil)
	}
	out := c.outputPath(c.settings.TrimmedDir, id)
	if err := c.process.Trim(ctx, rec.DownloadPath, rec.Start, rec.End, out); err != nil {
		return fmt.Errorf("trim clip %s: %w", id, err)
	}
	if _, err := c.setField(id, func(r *clipstore.Record) { r.TrimmedPath = out }); err != nil {
		return err
	}
	c.stageLogger(ctx, id, "trim").Info("stage complete", logging.String(logging.FieldEventType, "stage_complete"), logging.String("path", out))
	return c.persist()
}

// Normalize writes a loudness-normalized copy of the trimmed file.
func (c *Controller) Normalize(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.normalizeStage(ctx, id)
}

func (c *Controller) normalizeStage(ctx context.Context, id string) error {
	rec, err := c.store.Find(id)
	if err != nil {
		return err
	}
	if rec.TrimmedPath == "" {
		return missingStage("normalize", id, clipstore.StageTrimmed)
	}
	if c.process == nil {
		return services.Wrap(services.ErrConfiguration, "normalize", "controller", "no media processor configured", nil)
	}
	out := c.outputPath(c.settings.NormalizedDir, id)
	if err := c.process.Normalize(ctx, rec.TrimmedPath, out, c.settings.TargetLevel, c.settings.AudioCodec); err != nil {
		return fmt.Errorf("normalize clip %s: %w", id, err)
	}
	if _, err := c.setField(id, func(r *clipstore.Record) { r.NormalizedPath = out }); err != nil {
		return err
	}
	c.stageLogger(ctx, id, "normalize").Info("stage complete", logging.String(logging.FieldEventType, "stage_complete"), logging.String("path", out))
	return c.persist()
}

// Upload publishes the normalized file as <id>.<ext> and records its URL.
func (c *Controller) Upload(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploadStage(ctx, id)
}

func (c *Controller) uploadStage(ctx context.Context, id string) error {
	rec, err := c.store.Find(id)
	if err != nil {
		return err
	}
	if rec.NormalizedPath == "" {
		return missingStage("upload", id, clipstore.StageNormalized)
	}
	if c.upload == nil {
		return services.Wrap(services.ErrConfiguration, "upload", "controller", "no object store configured", nil)
	}
	url, err := c.upload.Upload(ctx, rec.NormalizedPath, id+"."+c.settings.OutputExtension)
	if err != nil {
		return fmt.Errorf("upload clip %s: %w", id, err)
	}
	if _, err := c.setField(id, func(r *clipstore.Record) { r.FileURL = url }); err != nil {
		return err
	}
	c.stageLogger(ctx, id, "upload").Info("stage complete", logging.String(logging.FieldEventType, "stage_complete"), logging.String("url", url))
	return c.persist()
}

// Generate runs new, download, trim, normalize, and optionally upload. The
// identifier is returned even when a later stage fails so the caller can
// inspect or resume the partial record.
func (c *Controller) Generate(ctx context.Context, source, start, end string, upload bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.newClip(ctx, source, start, end)
	if err != nil {
		return id, err
	}
	stages := []func(context.Context, string) error{
		func(ctx context.Context, id string) error { return c.downloadStage(ctx, id, false) },
		c.trimStage,
		c.normalizeStage,
	}
	if upload {
		stages = append(stages, c.uploadStage)
	}
	for _, stage := range stages {
		if err := stage(ctx, id); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Publish writes the clip's catalog entry and marks it published. Publishing
// the same clip again replaces the earlier entry.
func (c *Controller) Publish(ctx context.Context, id, category string, names map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.store.Find(id)
	if err != nil {
		return err
	}
	if rec.FileURL == "" {
		return missingStage("publish", id, clipstore.StageUploaded)
	}
	if c.catalog == nil {
		return services.Wrap(services.ErrConfiguration, "publish", "controller", "no catalog configured", nil)
	}
	if err := c.catalog.PutClip(ctx, rec, category, catalog.Names(names)); err != nil {
		return fmt.Errorf("publish clip %s: %w", id, err)
	}
	if _, err := c.setField(id, func(r *clipstore.Record) { r.Published = true }); err != nil {
		return err
	}
	c.stageLogger(ctx, id, "publish").Info("clip published",
		logging.String(logging.FieldEventType, "clip_published"),
		logging.String("category", category))
	return c.persist()
}

// UpdatePublished patches the catalog entry of a published clip.
func (c *Controller) UpdatePublished(ctx context.Context, id, category string, names map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, err := c.store.Find(id)
	if err != nil {
		return err
	}
	if c.catalog == nil {
		return services.Wrap(services.ErrConfiguration, "update", "controller", "no catalog configured", nil)
	}
	if err := c.catalog.UpdateClip(ctx, rec, category, catalog.Names(names)); err != nil {
		return fmt.Errorf("update clip %s: %w", id, err)
	}
	c.stageLogger(ctx, id, "update").Info("catalog entry updated")
	return nil
}

// Unpublish removes the clip's catalog entry. The record is kept; its
// published flag is cleared when an entry was actually removed.
func (c *Controller) Unpublish(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalog == nil {
		return false, services.Wrap(services.ErrConfiguration, "unpublish", "controller", "no catalog configured", nil)
	}
	removed, err := c.catalog.RemoveClip(ctx, id)
	if err != nil {
		return false, fmt.Errorf("unpublish clip %s: %w", id, err)
	}
	if !removed {
		return false, nil
	}
	if _, err := c.store.Find(id); err == nil {
		if _, err := c.setField(id, func(r *clipstore.Record) { r.Published = false }); err != nil {
			return true, err
		}
		if err := c.persist(); err != nil {
			return true, err
		}
	}
	c.stageLogger(ctx, id, "unpublish").Info("clip removed from catalog")
	return true, nil
}

// PutCategory creates or replaces a catalog category.
func (c *Controller) PutCategory(ctx context.Context, tag string, names map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalog == nil {
		return services.Wrap(services.ErrConfiguration, "put_category", "controller", "no catalog configured", nil)
	}
	return c.catalog.PutCategory(ctx, tag, catalog.Names(names))
}

// Info returns the current record.
func (c *Controller) Info(id string) (clipstore.Record, error) {
	return c.store.Find(id)
}

// List returns every record, most recently edited first.
func (c *Controller) List() []clipstore.Record {
	return c.store.List()
}

func (c *Controller) setField(id string, fn func(*clipstore.Record)) (clipstore.Record, error) {
	return c.store.Update(id, func(r *clipstore.Record) error {
		fn(r)
		return nil
	})
}

// persist writes the snapshot after each mutation so a crash loses at most
// the stage in flight.
func (c *Controller) persist() error {
	if err := c.store.Save(); err != nil {
		c.logger.Error("failed to save clip snapshot",
			logging.String(logging.FieldEventType, "snapshot_save_failed"),
			logging.String(logging.FieldErrorHint, "check permissions on paths.snapshot_path"),
			logging.Error(err))
		return err
	}
	return nil
}

func (c *Controller) outputPath(dir, id string) string {
	return filepath.Join(dir, id+"."+c.settings.OutputExtension)
}

func (c *Controller) stageLogger(ctx context.Context, id, stage string) *slog.Logger {
	ctx = services.WithClipID(ctx, id)
	ctx = services.WithStage(ctx, stage)
	return logging.WithContext(ctx, c.logger)
}

func validateMarkers(stage, start, end string) (string, string, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" {
		start = DefaultStart
	}
	if !timecode.Valid(start) {
		return "", "", services.Wrap(services.ErrValidation, stage, "controller", fmt.Sprintf("invalid start %q (want H:MM:SS or H:MM:SS.mmm)", start), nil)
	}
	if end != "" && !timecode.Valid(end) {
		return "", "", services.Wrap(services.ErrValidation, stage, "controller", fmt.Sprintf("invalid end %q (want H:MM:SS or H:MM:SS.mmm)", end), nil)
	}
	return start, end, nil
}

func missingStage(stage, id string, need clipstore.Stage) error {
	return services.Wrap(services.ErrValidation, stage, "controller", fmt.Sprintf("clip %s must be %s first", id, need), nil)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
