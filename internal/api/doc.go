// Package api exposes the clip controller over HTTP and defines the
// transport types it speaks.
//
// # Routes
//
//	GET  /health              liveness
//	GET  /clip?uid=ID         one clip record
//	GET  /clips               every clip record, newest first
//	POST /clip                create a record (url, start, end)
//	POST /generate            new + download + trim + normalize (+ upload)
//	POST /normalize           re-run normalization for uid
//	POST /publish             publish uid under cat with names
//
// Parameters may arrive as query/form values or as a JSON body. Each handler
// is a pass-through to one controller operation.
//
// # Errors
//
// Domain errors (see services.IsDomain) answer 400; anything else answers
// 500. The body is {"error": message, "kind": label}.
//
// # Design Notes
//
// DTOs use camelCase JSON tags except "uid" and "url", which keep the names
// existing scripts send. Timestamps use RFC3339 with milliseconds.
package api
