// Package objectstore publishes normalized clips and returns their public URL.
//
// Two backends exist: B2 uploads to a Backblaze bucket with
// github.com/Backblaze/blazer, and Local copies into a directory (useful for
// self-hosting behind a static file server, and for tests).
package objectstore
