package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL (got %q)", topic)
	}
	return c.validateLogging()
}

func (c *Config) validateMedia() error {
	if c.Media.TrimTimeoutSeconds <= 0 {
		return errors.New("media.trim_timeout_seconds must be positive")
	}
	switch c.Media.NormalizationType {
	case NormalizationRMS, NormalizationPeak, NormalizationEBU:
	default:
		return fmt.Errorf("media.normalization_type must be one of rms, peak, ebu (got %q)", c.Media.NormalizationType)
	}
	if c.Media.NormalizationType == NormalizationEBU && (c.Media.TargetLevel < -70 || c.Media.TargetLevel > -5) {
		return fmt.Errorf("media.target_level %.1f is outside the loudnorm range -70..-5", c.Media.TargetLevel)
	}
	if c.Media.TargetLevel > 0 {
		return errors.New("media.target_level must not be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		return nil
	case StorageB2:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set when storage.backend is b2")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend must be b2 or local (got %q)", c.Storage.Backend)
	}
}

func (c *Config) validateCatalog() error {
	if c.Catalog.RequestTimeoutSeconds < 0 {
		return errors.New("catalog.request_timeout_seconds must not be negative")
	}
	if c.Catalog.Endpoint != "" && !strings.HasPrefix(c.Catalog.Endpoint, "http://") && !strings.HasPrefix(c.Catalog.Endpoint, "https://") {
		return fmt.Errorf("catalog.endpoint must be an http(s) URL (got %q)", c.Catalog.Endpoint)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

// CatalogConfigured reports whether publishing can reach a catalog.
func (c *Config) CatalogConfigured() bool {
	return c.Catalog.Endpoint != "" && c.Catalog.Token != ""
}
