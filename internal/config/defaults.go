package config

const (
	defaultDataDir            = "~/.local/share/clipper"
	defaultDownloadBinary     = "yt-dlp"
	defaultDownloadFormat     = "bestaudio/best"
	defaultDownloadCodec      = "opus"
	defaultDownloadQuality    = "192"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultTrimTimeoutSeconds = 60
	defaultOutputExtension    = "mp3"
	defaultAudioCodec         = "libmp3lame"
	defaultNormalizationType  = NormalizationRMS
	defaultTargetLevel        = -16.0
	defaultPlayerCommand      = "ffplay -nodisp -autoexit"
	defaultStorageBackend     = StorageLocal
	defaultCatalogTimeout     = 30
	defaultServerBind         = "127.0.0.1:7488"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Normalization modes accepted by media.normalization_type.
const (
	NormalizationRMS  = "rms"
	NormalizationPeak = "peak"
	NormalizationEBU  = "ebu"
)

// Storage backends accepted by storage.backend.
const (
	StorageB2    = "b2"
	StorageLocal = "local"
)

// Default returns a Config populated with repository defaults. Directories left
// empty are derived from paths.data_dir during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Download: Download{
			Binary:  defaultDownloadBinary,
			Format:  defaultDownloadFormat,
			Codec:   defaultDownloadCodec,
			Quality: defaultDownloadQuality,
		},
		Media: Media{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			TrimTimeoutSeconds: defaultTrimTimeoutSeconds,
			OutputExtension:    defaultOutputExtension,
			AudioCodec:         defaultAudioCodec,
			NormalizationType:  defaultNormalizationType,
			TargetLevel:        defaultTargetLevel,
			PlayerCommand:      defaultPlayerCommand,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
		},
		Catalog: Catalog{
			RequestTimeoutSeconds: defaultCatalogTimeout,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
