// Package ytdlp downloads best-quality audio for a source URL through
// github.com/lrstanley/go-ytdlp.
package ytdlp
