package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeMedia()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeout
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	derived := []struct {
		key   string
		value *string
		base  string
	}{
		{"paths.download_dir", &c.Paths.DownloadDir, "downloads"},
		{"paths.trimmed_dir", &c.Paths.TrimmedDir, "trimmed"},
		{"paths.normalized_dir", &c.Paths.NormalizedDir, "normalized"},
		{"paths.snapshot_path", &c.Paths.SnapshotPath, "clips.json"},
		{"paths.history_path", &c.Paths.HistoryPath, "history.db"},
		{"paths.log_dir", &c.Paths.LogDir, "logs"},
	}
	for _, field := range derived {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = filepath.Join(c.Paths.DataDir, field.base)
			continue
		}
		if *field.value, err = expandPath(strings.TrimSpace(*field.value)); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.Binary = defaultIfBlank(c.Download.Binary, defaultDownloadBinary)
	c.Download.Format = defaultIfBlank(c.Download.Format, defaultDownloadFormat)
	c.Download.Codec = strings.ToLower(defaultIfBlank(c.Download.Codec, defaultDownloadCodec))
	c.Download.Quality = defaultIfBlank(c.Download.Quality, defaultDownloadQuality)
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = defaultIfBlank(c.Media.FFmpegBinary, defaultFFmpegBinary)
	c.Media.FFprobeBinary = defaultIfBlank(c.Media.FFprobeBinary, defaultFFprobeBinary)
	c.Media.OutputExtension = strings.TrimPrefix(defaultIfBlank(c.Media.OutputExtension, defaultOutputExtension), ".")
	c.Media.AudioCodec = defaultIfBlank(c.Media.AudioCodec, defaultAudioCodec)
	c.Media.NormalizationType = strings.ToLower(defaultIfBlank(c.Media.NormalizationType, defaultNormalizationType))
	c.Media.PlayerCommand = strings.TrimSpace(c.Media.PlayerCommand)
	if c.Media.TrimTimeoutSeconds == 0 {
		c.Media.TrimTimeoutSeconds = defaultTrimTimeoutSeconds
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(defaultIfBlank(c.Storage.Backend, defaultStorageBackend))
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.PublicURLBase = strings.TrimRight(strings.TrimSpace(c.Storage.PublicURLBase), "/")
	if c.Storage.KeyID == "" {
		if value, ok := os.LookupEnv("B2_KEY_ID"); ok {
			c.Storage.KeyID = strings.TrimSpace(value)
		}
	}
	if c.Storage.AppKey == "" {
		if value, ok := os.LookupEnv("B2_APP_KEY"); ok {
			c.Storage.AppKey = strings.TrimSpace(value)
		}
	}
	if c.Storage.Backend == StorageB2 && c.Storage.PublicURLBase == "" && c.Storage.Bucket != "" {
		c.Storage.PublicURLBase = "https://f002.backblazeb2.com/file/" + c.Storage.Bucket
	}
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = filepath.Join(c.Paths.DataDir, "published")
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(strings.TrimSpace(c.Storage.LocalDir)); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Endpoint = strings.TrimSpace(c.Catalog.Endpoint)
	if c.Catalog.Endpoint == "" {
		if value, ok := os.LookupEnv("CLIPPER_CATALOG_ENDPOINT"); ok {
			c.Catalog.Endpoint = strings.TrimSpace(value)
		}
	}
	if c.Catalog.Token == "" {
		for _, key := range []string{"CLIPPER_CATALOG_TOKEN", "TOKEN"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Catalog.Token = strings.TrimSpace(value)
				break
			}
		}
	}
	if c.Catalog.RequestTimeoutSeconds == 0 {
		c.Catalog.RequestTimeoutSeconds = defaultCatalogTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(defaultIfBlank(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(defaultIfBlank(c.Logging.Level, defaultLogLevel))
}

func defaultIfBlank(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
