// Package batchfile parses and renders batch directive lines.
//
// A directive line has the shape
//
//	https://example.com/v/abc 0:01:00 0:01:30 music en:"Song Title" fr:"Titre"
//
// Blank lines and lines starting with "#" are skipped. Format renders a
// Directive back into the same grammar so Parse(Format(d)) reproduces d.
package batchfile
