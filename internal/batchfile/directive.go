package batchfile

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"clipper/internal/services"
	"clipper/internal/timecode"
)

// CommentMarker starts a line that Parse skips.
const CommentMarker = "#"

// Directive is one parsed batch line.
type Directive struct {
	Source   string            `json:"source"`
	Start    string            `json:"start"`
	End      string            `json:"end"`
	Category string            `json:"category"`
	Names    map[string]string `json:"names"`
}

// wordClass matches category words: letters and digits of any script, or underscore.
const wordClass = `[\p{L}\p{N}_]+`

var (
	linePattern = regexp.MustCompile(`^(https?://\S+)\s+(` + timecode.Grammar + `)\s+(` + timecode.Grammar + `)\s+(` + wordClass + `)((?:\s+[a-zA-Z]{2}:"[^"]*")+)$`)
	namePattern = regexp.MustCompile(`([a-zA-Z]{2}):"([^"]*)"`)
	wordPattern = regexp.MustCompile(`^` + wordClass + `$`)
)

// ParseError reports a directive line that does not match the grammar.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Text)
}

// Unwrap lets callers classify the failure with errors.Is(err, services.ErrParse).
func (e *ParseError) Unwrap() error {
	return services.ErrParse
}

// Parse converts one line into a Directive. The boolean is false, with a nil
// error, for blank and comment lines.
func Parse(line string) (Directive, bool, error) {
	trimmed := norm.NFC.String(strings.TrimSpace(line))
	if trimmed == "" || strings.HasPrefix(trimmed, CommentMarker) {
		return Directive{}, false, nil
	}

	match := linePattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Directive{}, false, &ParseError{Text: trimmed, Reason: diagnose(trimmed)}
	}

	names := make(map[string]string)
	for _, pair := range namePattern.FindAllStringSubmatch(match[5], -1) {
		name := strings.TrimSpace(pair[2])
		if name == "" {
			return Directive{}, false, &ParseError{Text: trimmed, Reason: fmt.Sprintf("empty name for locale %q", pair[1])}
		}
		names[strings.ToLower(pair[1])] = name
	}

	return Directive{
		Source:   match[1],
		Start:    match[2],
		End:      match[3],
		Category: match[4],
		Names:    names,
	}, true, nil
}

// diagnose picks a human reason for a line the grammar rejected.
func diagnose(line string) string {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 0 || (!strings.HasPrefix(fields[0], "http://") && !strings.HasPrefix(fields[0], "https://")):
		return "source must be an http(s) URL"
	case len(fields) < 3 || !timecode.Valid(fields[1]) || !timecode.Valid(fields[2]):
		return "start and end must be H:MM:SS or H:MM:SS.mmm"
	case len(fields) < 4 || !wordPattern.MatchString(fields[3]):
		return "category must be a single word"
	case !namePattern.MatchString(line):
		return `at least one locale:"name" pair is required`
	default:
		return "line does not match directive grammar"
	}
}

// Format renders d in canonical form with locales sorted.
func Format(d Directive) (string, error) {
	if !strings.HasPrefix(d.Source, "http://") && !strings.HasPrefix(d.Source, "https://") || strings.ContainsAny(d.Source, " \t\r\n") {
		return "", services.Wrap(services.ErrValidation, "batchfile", "format", fmt.Sprintf("source %q is not a single http(s) URL", d.Source), nil)
	}
	for label, value := range map[string]string{"start": d.Start, "end": d.End} {
		if !timecode.Valid(value) {
			return "", services.Wrap(services.ErrValidation, "batchfile", "format", fmt.Sprintf("%s %q is not a valid timestamp", label, value), nil)
		}
	}
	if !wordPattern.MatchString(d.Category) {
		return "", services.Wrap(services.ErrValidation, "batchfile", "format", fmt.Sprintf("category %q is not a single word", d.Category), nil)
	}
	if len(d.Names) == 0 {
		return "", services.Wrap(services.ErrValidation, "batchfile", "format", "at least one name is required", nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s", d.Source, d.Start, d.End, d.Category)
	for _, locale := range d.Locales() {
		name := strings.TrimSpace(d.Names[locale])
		if !ValidLocale(locale) {
			return "", services.Wrap(services.ErrValidation, "batchfile", "format", fmt.Sprintf("locale %q must be two letters", locale), nil)
		}
		if name == "" || strings.ContainsAny(name, "\"\r\n") {
			return "", services.Wrap(services.ErrValidation, "batchfile", "format", fmt.Sprintf("name for %q cannot be empty or contain quotes or newlines", locale), nil)
		}
		fmt.Fprintf(&b, " %s:\"%s\"", strings.ToLower(locale), name)
	}
	return b.String(), nil
}

// Locales returns the name locales in sorted order.
func (d Directive) Locales() []string {
	return slices.Sorted(maps.Keys(d.Names))
}

// ValidLocale reports whether s is a two-letter locale code.
func ValidLocale(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
