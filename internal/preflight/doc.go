// Package preflight provides readiness checks for the binaries, directories,
// and remote services clipper depends on.
//
// `clipper status` renders every check; `clipper batch run` calls RunAll
// before touching the first line so a missing directory or a rejected
// catalog token fails the run up front instead of once per line.
package preflight
