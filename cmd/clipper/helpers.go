package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"clipper/internal/batchfile"
)

// parseNames turns repeated --name loc=Display flags into a locale map.
func parseNames(values []string) (map[string]string, error) {
	names := make(map[string]string, len(values))
	for _, raw := range values {
		loc, name, ok := strings.Cut(raw, "=")
		if !ok {
			loc, name, ok = strings.Cut(raw, ":")
		}
		loc = strings.ToLower(strings.TrimSpace(loc))
		name = strings.Trim(strings.TrimSpace(name), `"`)
		if !ok || loc == "" || name == "" {
			return nil, fmt.Errorf("invalid --name %q (want loc=Display Name)", raw)
		}
		if !batchfile.ValidLocale(loc) {
			return nil, fmt.Errorf("invalid --name %q: locale must be two letters", raw)
		}
		names[loc] = name
	}
	return names, nil
}

// formatNames renders names sorted by locale, e.g. `en:"Sad" ja:"悲しい"`.
func formatNames(names map[string]string) string {
	parts := make([]string, 0, len(names))
	for _, loc := range slices.Sorted(maps.Keys(names)) {
		parts = append(parts, fmt.Sprintf("%s:%q", loc, names[loc]))
	}
	return strings.Join(parts, " ")
}

// localeLabel returns "en (English)" for recognised locale codes.
func localeLabel(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", code, name)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatPublishTime(unix int64) string {
	if unix <= 0 {
		return "-"
	}
	return formatTimestamp(time.Unix(unix, 0))
}

func parseRunID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", raw)
	}
	return id, nil
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
