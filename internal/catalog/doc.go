// Package catalog mirrors the remote clip catalog document.
//
// The document holds two maps, categories and clips, plus any other top-level
// keys the service stores (kept verbatim). A Client fetches it once after an
// authorization probe and pushes the whole document back after every
// mutation. Mutations are staged on a copy and only become visible locally
// once the upload succeeds. Only one writer per catalog is assumed.
package catalog
