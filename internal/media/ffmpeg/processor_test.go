package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"clipper/internal/config"
	"clipper/internal/media/ffprobe"
	"clipper/internal/services"
)

type call struct {
	binary string
	args   []string
}

type fakeExecutor struct {
	calls  []call
	stderr [][]byte
	errs   []error
	block  bool
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, call{binary: binary, args: append([]string(nil), args...)})
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	var stderr []byte
	var err error
	if idx < len(f.stderr) {
		stderr = f.stderr[idx]
	}
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return stderr, err
}

type fakeVerifier struct {
	paths []string
	err   error
}

func (f *fakeVerifier) VerifyAudio(_ context.Context, path string) (ffprobe.Result, error) {
	f.paths = append(f.paths, path)
	return ffprobe.Result{}, f.err
}

func TestTrimBuildsCommand(t *testing.T) {
	exec := &fakeExecutor{}
	verifier := &fakeVerifier{}
	p := New(Options{Binary: "ffmpeg-bin", Executor: exec, Verifier: verifier})
	out := filepath.Join(t.TempDir(), "trimmed", "abc123.mp3")

	if err := p.Trim(context.Background(), "/dl/abc123.opus", "0:01:00", "0:01:30", out); err != nil {
		t.Fatalf("Trim returned error: %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0].binary != "ffmpeg-bin" {
		t.Fatalf("unexpected calls %#v", exec.calls)
	}
	got := strings.Join(exec.calls[0].args, " ")
	want := "-hide_banner -nostdin -vn -y -i /dl/abc123.opus -ss 0:01:00 -to 0:01:30 " + out
	if got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
	if len(verifier.paths) != 1 || verifier.paths[0] != out {
		t.Fatalf("output not verified: %v", verifier.paths)
	}
}

func TestTrimWithoutEndOmitsTo(t *testing.T) {
	exec := &fakeExecutor{}
	p := New(Options{Executor: exec})
	if err := p.Trim(context.Background(), "in.opus", "0:00:05", "", filepath.Join(t.TempDir(), "out.mp3")); err != nil {
		t.Fatalf("Trim returned error: %v", err)
	}
	if slices.Contains(exec.calls[0].args, "-to") {
		t.Fatalf("unexpected -to in %v", exec.calls[0].args)
	}
}

func TestTrimTimeout(t *testing.T) {
	p := New(Options{Executor: &fakeExecutor{block: true}, TrimTimeout: 20 * time.Millisecond})
	err := p.Trim(context.Background(), "in.opus", "0:00:05", "0:00:06", filepath.Join(t.TempDir(), "out.mp3"))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestTrimFailureCarriesDiagnostics(t *testing.T) {
	exec := &fakeExecutor{
		stderr: [][]byte{[]byte("Input #0\nin.opus: Invalid data found when processing input")},
		errs:   []error{errors.New("exit status 1")},
	}
	p := New(Options{Executor: exec})
	err := p.Trim(context.Background(), "in.opus", "0:00:05", "0:00:06", filepath.Join(t.TempDir(), "out.mp3"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("error should carry stderr: %v", err)
	}
}

func TestNormalizeRMSTwoPass(t *testing.T) {
	exec := &fakeExecutor{
		stderr: [][]byte{[]byte("[Parsed_volumedetect_0] mean_volume: -26.0 dB\n[Parsed_volumedetect_0] max_volume: -3.5 dB"), nil},
	}
	p := New(Options{Executor: exec, Mode: config.NormalizationRMS})
	out := filepath.Join(t.TempDir(), "norm.mp3")
	if err := p.Normalize(context.Background(), "trim.mp3", out, -16, "libmp3lame"); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(exec.calls) != 2 {
		t.Fatalf("expected two ffmpeg passes, got %d", len(exec.calls))
	}
	if !slices.Contains(exec.calls[0].args, "volumedetect") {
		t.Fatalf("first pass should measure: %v", exec.calls[0].args)
	}
	second := strings.Join(exec.calls[1].args, " ")
	if !strings.Contains(second, "-af volume=10.00dB") || !strings.Contains(second, "-c:a libmp3lame") || !strings.HasSuffix(second, out) {
		t.Fatalf("unexpected second pass %q", second)
	}
}

func TestNormalizePeakUsesMaxVolume(t *testing.T) {
	exec := &fakeExecutor{
		stderr: [][]byte{[]byte("mean_volume: -26.0 dB\nmax_volume: -3.5 dB"), nil},
	}
	p := New(Options{Executor: exec, Mode: config.NormalizationPeak})
	if err := p.Normalize(context.Background(), "trim.mp3", filepath.Join(t.TempDir(), "n.mp3"), -1, ""); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if !slices.Contains(exec.calls[1].args, "volume=2.50dB") {
		t.Fatalf("unexpected peak gain: %v", exec.calls[1].args)
	}
}

func TestNormalizeEBUSinglePass(t *testing.T) {
	exec := &fakeExecutor{}
	p := New(Options{Executor: exec, Mode: config.NormalizationEBU})
	if err := p.Normalize(context.Background(), "trim.mp3", filepath.Join(t.TempDir(), "n.mp3"), -16, "libmp3lame"); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(exec.calls) != 1 || !slices.Contains(exec.calls[0].args, "loudnorm=I=-16.00:TP=-1.5:LRA=11") {
		t.Fatalf("unexpected calls %#v", exec.calls)
	}
}

func TestNormalizeSilentInputFails(t *testing.T) {
	exec := &fakeExecutor{stderr: [][]byte{[]byte("mean_volume: -inf dB")}}
	p := New(Options{Executor: exec})
	err := p.Normalize(context.Background(), "trim.mp3", filepath.Join(t.TempDir(), "n.mp3"), -16, "libmp3lame")
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "silent") {
		t.Fatalf("expected silent input error, got %v", err)
	}
}

func TestVerifierFailurePropagates(t *testing.T) {
	p := New(Options{Executor: &fakeExecutor{}, Verifier: &fakeVerifier{err: services.Wrap(services.ErrExternalTool, "ffprobe", "verify", "no audio", nil)}})
	err := p.Trim(context.Background(), "in", "0:00:01", "0:00:02", filepath.Join(t.TempDir(), "o.mp3"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected verifier error, got %v", err)
	}
}
