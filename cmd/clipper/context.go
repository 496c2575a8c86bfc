package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipper/internal/catalog"
	"clipper/internal/clipper"
	"clipper/internal/clipstore"
	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/media/ffmpeg"
	"clipper/internal/media/ytdlp"
	"clipper/internal/objectstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// sessionOptions selects which remote collaborators a command needs. Remote
// clients are only constructed when asked for because both authenticate on
// construction.
type sessionOptions struct {
	uploader bool
	catalog  bool
}

// session owns the record store lock and the controller for one command.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *clipstore.Store
	ctrl    *clipper.Controller
	catalog *catalog.Client
}

func (c *commandContext) openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	store, err := clipstore.Open(cfg.Paths.SnapshotPath, logger)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: logger, store: store}

	deps := clipper.Deps{
		Store:      store,
		Downloader: ytdlp.NewFromConfig(cfg, logger),
		Processor:  ffmpeg.NewFromConfig(cfg, logger),
		Logger:     logger,
	}
	if opts.uploader {
		uploader, err := objectstore.NewFromConfig(ctx, cfg, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		deps.Uploader = uploader
	}
	if opts.catalog && cfg.CatalogConfigured() {
		client, err := catalog.NewFromConfig(ctx, cfg, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.catalog = client
		deps.Catalog = client
	}

	ctrl, err := clipper.New(clipper.SettingsFromConfig(cfg), deps)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

// withSession opens a session, runs fn, and saves the store on the way out.
func (c *commandContext) withSession(cmd *cobra.Command, opts sessionOptions, fn func(*session) error) error {
	s, err := c.openSession(cmd.Context(), opts)
	if err != nil {
		return err
	}
	runErr := fn(s)
	if closeErr := s.Close(); closeErr != nil && runErr == nil {
		return fmt.Errorf("save clip snapshot: %w", closeErr)
	}
	return runErr
}

func (s *session) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// readRecords loads the snapshot without taking the writer lock, so read-only
// commands work while `clipper serve` is running.
func (c *commandContext) readRecords() (*clipstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store := clipstore.New(cfg.Paths.SnapshotPath, logging.NewNop())
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// requireCatalog builds a catalog client or explains how to configure one.
func (c *commandContext) requireCatalog(ctx context.Context) (*catalog.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.CatalogConfigured() {
		return nil, fmt.Errorf("catalog not configured: set catalog.endpoint and catalog.token (or CLIPPER_CATALOG_TOKEN)")
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return catalog.NewFromConfig(ctx, cfg, logger)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
