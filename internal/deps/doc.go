// Package deps checks that the external binaries clipper drives (yt-dlp,
// ffmpeg, ffprobe, the review player) can be found on PATH.
package deps
