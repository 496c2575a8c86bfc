package batchfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Entry is one directive line read from a batch file.
type Entry struct {
	Line      int
	Text      string
	Directive Directive
	Err       error
}

// Read scans r line by line. Blank and comment lines are dropped; every other
// line becomes an Entry, with Err set when the line does not parse. The
// returned error is reserved for I/O failures.
func Read(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if lineNo == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if !utf8.ValidString(text) {
			entries = append(entries, Entry{Line: lineNo, Text: text, Err: &ParseError{Line: lineNo, Text: text, Reason: "line is not valid UTF-8"}})
			continue
		}
		directive, ok, err := Parse(text)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = lineNo
			}
			entries = append(entries, Entry{Line: lineNo, Text: strings.TrimSpace(text), Err: err})
			continue
		}
		if !ok {
			continue
		}
		entries = append(entries, Entry{Line: lineNo, Text: strings.TrimSpace(text), Directive: directive})
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read batch: %w", err)
	}
	return entries, nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer file.Close()
	return Read(file)
}

// Dump writes one formatted line per directive.
func Dump(w io.Writer, directives []Directive) error {
	for _, d := range directives {
		line, err := Format(d)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write batch line: %w", err)
		}
	}
	return nil
}
