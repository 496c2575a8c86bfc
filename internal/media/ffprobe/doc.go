// Package ffprobe inspects audio produced by the trim and normalize stages.
//
// Prober.VerifyAudio is the post-stage check: a file without an audio stream
// or with no duration is reported as an external-tool failure.
package ffprobe
