// Package logs reads the JSON log file written by internal/logging.
//
// Last returns the final N matching lines with the offset to resume from,
// and Follow polls from an offset until its context ends. A Filter narrows
// lines to one clip, one component, or a minimum level by decoding each JSON
// record; lines that are not JSON only pass an empty filter.
package logs
