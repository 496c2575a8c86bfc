// Package batch executes batch files: each directive line is generated,
// optionally reviewed by a human, uploaded, and published. A failing line is
// logged, recorded, and counted; the run continues unless fail-fast is set.
package batch
