package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/media/ffprobe"
	"clipper/internal/services"
)

// DefaultTrimTimeout is used when no trim budget is configured.
const DefaultTrimTimeout = time.Minute

const stderrTailLines = 12

// Verifier checks a produced file. *ffprobe.Prober satisfies it.
type Verifier interface {
	VerifyAudio(ctx context.Context, path string) (ffprobe.Result, error)
}

// Options configures a Processor.
type Options struct {
	Binary      string
	TrimTimeout time.Duration
	// Mode is one of config.NormalizationRMS, NormalizationPeak, NormalizationEBU.
	Mode     string
	Executor Executor
	Verifier Verifier
	Logger   *slog.Logger
}

// Processor implements the trim and normalize stages.
type Processor struct {
	binary      string
	trimTimeout time.Duration
	mode        string
	exec        Executor
	verify      Verifier
	logger      *slog.Logger
}

var (
	meanVolumePattern = regexp.MustCompile(`mean_volume:\s*(-?[\d.]+|-inf) dB`)
	maxVolumePattern  = regexp.MustCompile(`max_volume:\s*(-?[\d.]+|-inf) dB`)
)

// New constructs a Processor.
func New(opts Options) *Processor {
	p := &Processor{
		binary:      strings.TrimSpace(opts.Binary),
		trimTimeout: opts.TrimTimeout,
		mode:        strings.ToLower(strings.TrimSpace(opts.Mode)),
		exec:        opts.Executor,
		verify:      opts.Verifier,
		logger:      logging.NewComponentLogger(opts.Logger, "ffmpeg"),
	}
	if p.binary == "" {
		p.binary = "ffmpeg"
	}
	if p.trimTimeout <= 0 {
		p.trimTimeout = DefaultTrimTimeout
	}
	if p.mode == "" {
		p.mode = config.NormalizationRMS
	}
	if p.exec == nil {
		p.exec = commandExecutor{}
	}
	return p
}

// NewFromConfig builds a Processor from the [media] section, verifying
// outputs with ffprobe.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Processor {
	return New(Options{
		Binary:      cfg.Media.FFmpegBinary,
		TrimTimeout: cfg.TrimTimeout(),
		Mode:        cfg.Media.NormalizationType,
		Verifier:    ffprobe.New(cfg.Media.FFprobeBinary),
		Logger:      logger,
	})
}

// Trim extracts start..end from input into output. An empty end trims to the
// end of the media.
func (p *Processor) Trim(ctx context.Context, input, start, end, output string) error {
	if err := prepareOutput(output); err != nil {
		return err
	}
	args := []string{"-hide_banner", "-nostdin", "-vn", "-y", "-i", input, "-ss", start}
	if end != "" {
		args = append(args, "-to", end)
	}
	args = append(args, output)

	trimCtx, cancel := context.WithTimeout(ctx, p.trimTimeout)
	defer cancel()

	p.logger.Debug("trimming", logging.String("input", input), logging.String("output", output), logging.String("start", start), logging.String("end", end))
	stderr, err := p.exec.Run(trimCtx, p.binary, args)
	if err != nil {
		if errors.Is(trimCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "trim", "ffmpeg", fmt.Sprintf("trim did not finish within %s", p.trimTimeout), nil)
		}
		return toolError("trim", err, stderr)
	}
	return p.check(ctx, "trim", output)
}

// Normalize writes a loudness-normalized copy of input to output encoded with codec.
func (p *Processor) Normalize(ctx context.Context, input, output string, target float64, codec string) error {
	if err := prepareOutput(output); err != nil {
		return err
	}
	if strings.TrimSpace(codec) == "" {
		codec = "libmp3lame"
	}

	var filter string
	switch p.mode {
	case config.NormalizationEBU:
		filter = fmt.Sprintf("loudnorm=I=%s:TP=-1.5:LRA=11", formatFloat(target))
	case config.NormalizationRMS, config.NormalizationPeak:
		level, err := p.measure(ctx, input)
		if err != nil {
			return err
		}
		gain := target - level
		filter = "volume=" + formatFloat(gain) + "dB"
		p.logger.Debug("measured loudness",
			logging.String("mode", p.mode),
			logging.Float64("level_db", level),
			logging.Float64("gain_db", gain))
	default:
		return services.Wrap(services.ErrConfiguration, "normalize", "ffmpeg", fmt.Sprintf("unsupported normalization mode %q", p.mode), nil)
	}

	args := []string{"-hide_banner", "-nostdin", "-y", "-i", input, "-vn", "-af", filter, "-c:a", codec, output}
	stderr, err := p.exec.Run(ctx, p.binary, args)
	if err != nil {
		return toolError("normalize", err, stderr)
	}
	return p.check(ctx, "normalize", output)
}

// measure returns the mean (rms) or max (peak) volume of input in dB.
func (p *Processor) measure(ctx context.Context, input string) (float64, error) {
	args := []string{"-hide_banner", "-nostdin", "-i", input, "-vn", "-af", "volumedetect", "-f", "null", "-"}
	stderr, err := p.exec.Run(ctx, p.binary, args)
	if err != nil {
		return 0, toolError("normalize", err, stderr)
	}
	pattern := meanVolumePattern
	if p.mode == config.NormalizationPeak {
		pattern = maxVolumePattern
	}
	match := pattern.FindSubmatch(stderr)
	if match == nil {
		return 0, services.Wrap(services.ErrExternalTool, "normalize", "volumedetect", "no volume measurement in ffmpeg output", nil)
	}
	if string(match[1]) == "-inf" {
		return 0, services.Wrap(services.ErrExternalTool, "normalize", "volumedetect", "input is silent", nil)
	}
	level, err := strconv.ParseFloat(string(match[1]), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "normalize", "volumedetect", "parse volume", err)
	}
	return level, nil
}

func (p *Processor) check(ctx context.Context, stage, output string) error {
	if p.verify == nil {
		return nil
	}
	if _, err := p.verify.VerifyAudio(ctx, output); err != nil {
		return fmt.Errorf("%s output: %w", stage, err)
	}
	return nil
}

func prepareOutput(output string) error {
	if strings.TrimSpace(output) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "output", "output path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "ffmpeg", "output", "create output directory", err)
	}
	return nil
}

func toolError(stage string, err error, stderr []byte) error {
	return services.Wrap(services.ErrExternalTool, stage, "ffmpeg", tail(stderr), err)
}

// tail keeps the last few stderr lines, where ffmpeg puts the actual failure.
func tail(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	return strings.Join(lines, "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
