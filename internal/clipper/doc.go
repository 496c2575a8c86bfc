// Package clipper drives a clip record through its lifecycle:
// new, downloaded, trimmed, normalized, uploaded, published.
//
// Each stage is an explicit call that reads the current record from the
// store, delegates the work to a collaborator (downloader, media processor,
// object store, catalog), and writes the resulting path or URL back. A single
// mutex serializes every public operation, so front ends may call the
// Controller concurrently. Stages never retry and never roll back: a failed
// stage leaves the record as the last successful stage left it.
package clipper
