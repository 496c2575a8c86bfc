// Package services defines shared utilities consumed by the clip lifecycle
// controller, the catalog client, and the front ends.
//
// Key responsibilities:
//   - Context helpers that stamp clip identifiers, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper. IsDomain separates
//     failures the caller caused or can fix (bad lines, unknown ids, tool and
//     catalog rejections) from internal faults, which is how the HTTP front end
//     picks 400 versus 500.
//
// Use these helpers when wiring new stage logic so error classification and
// log fields stay uniform across the pipeline.
package services
