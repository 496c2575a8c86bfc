// Package ffmpeg trims and loudness-normalizes clip audio by shelling out to
// ffmpeg.
//
// Trim runs under a fixed wait budget and reports ErrTimeout when it expires.
// Any non-zero exit is reported as ErrExternalTool carrying the tail of
// ffmpeg's stderr. Normalize supports three modes: rms and peak measure the
// input with volumedetect and apply a fixed gain in a second pass; ebu runs a
// single loudnorm pass.
package ffmpeg
