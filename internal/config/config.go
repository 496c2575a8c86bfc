package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directories and state files.
type Paths struct {
	DataDir       string `toml:"data_dir" yaml:"data_dir"`
	DownloadDir   string `toml:"download_dir" yaml:"download_dir"`
	TrimmedDir    string `toml:"trimmed_dir" yaml:"trimmed_dir"`
	NormalizedDir string `toml:"normalized_dir" yaml:"normalized_dir"`
	SnapshotPath  string `toml:"snapshot_path" yaml:"snapshot_path"`
	HistoryPath   string `toml:"history_path" yaml:"history_path"`
	LogDir        string `toml:"log_dir" yaml:"log_dir"`
}

// Download contains yt-dlp settings.
type Download struct {
	Binary  string `toml:"binary" yaml:"binary"`
	Format  string `toml:"format" yaml:"format"`
	Codec   string `toml:"codec" yaml:"codec"`
	Quality string `toml:"quality" yaml:"quality"`
}

// Media contains ffmpeg/ffprobe settings for trim and loudness normalization.
type Media struct {
	FFmpegBinary       string  `toml:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	FFprobeBinary      string  `toml:"ffprobe_binary" yaml:"ffprobe_binary"`
	TrimTimeoutSeconds int     `toml:"trim_timeout_seconds" yaml:"trim_timeout_seconds"`
	OutputExtension    string  `toml:"output_extension" yaml:"output_extension"`
	AudioCodec         string  `toml:"audio_codec" yaml:"audio_codec"`
	NormalizationType  string  `toml:"normalization_type" yaml:"normalization_type"`
	TargetLevel        float64 `toml:"target_level" yaml:"target_level"`
	PlayerCommand      string  `toml:"player_command" yaml:"player_command"`
}

// Storage selects where normalized clips are published.
type Storage struct {
	Backend       string `toml:"backend" yaml:"backend"`
	Bucket        string `toml:"bucket" yaml:"bucket"`
	KeyID         string `toml:"key_id" yaml:"key_id"`
	AppKey        string `toml:"app_key" yaml:"app_key"`
	PublicURLBase string `toml:"public_url_base" yaml:"public_url_base"`
	LocalDir      string `toml:"local_dir" yaml:"local_dir"`
}

// Catalog contains the remote catalog endpoint and its bearer token.
type Catalog struct {
	Endpoint              string `toml:"endpoint" yaml:"endpoint"`
	Token                 string `toml:"token" yaml:"token"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// Server contains the HTTP front end bind address.
type Server struct {
	Bind string `toml:"bind" yaml:"bind"`
}

// Notifications configures ntfy push messages for batch runs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Config encapsulates all configuration values for clipper.
//
// Configuration sections by subsystem:
//   - Paths: working directories, record snapshot, and run history
//   - Download: yt-dlp invocation
//   - Media: ffmpeg trim/normalize and ffprobe inspection
//   - Storage: B2 or local object storage
//   - Catalog: remote catalog document
//   - Server: HTTP front end
//   - Notifications: ntfy topic for batch run alerts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Download      Download      `toml:"download" yaml:"download"`
	Media         Media         `toml:"media" yaml:"media"`
	Storage       Storage       `toml:"storage" yaml:"storage"`
	Catalog       Catalog       `toml:"catalog" yaml:"catalog"`
	Server        Server        `toml:"server" yaml:"server"`
	Notifications Notifications `toml:"notifications" yaml:"notifications"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := toml.NewDecoder(file).Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("clipper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories used by the pipeline.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.DownloadDir,
		c.Paths.TrimmedDir,
		c.Paths.NormalizedDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.SnapshotPath),
		filepath.Dir(c.Paths.HistoryPath),
	}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Storage.LocalDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TrimTimeout is the wait budget for a single ffmpeg trim.
func (c *Config) TrimTimeout() time.Duration {
	return time.Duration(c.Media.TrimTimeoutSeconds) * time.Second
}

// CatalogTimeout bounds each catalog HTTP request.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.RequestTimeoutSeconds) * time.Second
}

// NotifyTimeout bounds each ntfy request.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// LockPath is the flock file guarding the record snapshot.
func (c *Config) LockPath() string {
	return c.Paths.SnapshotPath + ".lock"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}
