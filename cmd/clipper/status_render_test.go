package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestStatusReportPlain(t *testing.T) {
	report := newStatusReport(&bytes.Buffer{})
	report.section("Tools")
	report.add("FFmpeg", statusOK, "ffmpeg version 7.0")
	report.add("Player", statusWarn, "")
	report.section("Preflight")
	report.add("Download directory", statusError, "not writable")

	got := report.String()
	want := strings.Join([]string{
		"== Tools ==",
		"  FFmpeg:                [OK] ffmpeg version 7.0",
		"  Player:                [WARN]",
		"",
		"== Preflight ==",
		"  Download directory:    [ERROR] not writable",
	}, "\n")
	if got != want {
		t.Fatalf("report mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
	if report.errors != 1 {
		t.Fatalf("errors = %d", report.errors)
	}
}

func TestStatusReportColorize(t *testing.T) {
	report := &statusReport{colorize: true}
	report.add("Catalog", statusWarn, "not configured")
	if got := report.String(); !strings.HasPrefix(got, ansiYellow) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected yellow line, got %q", got)
	}
}

func TestParseNames(t *testing.T) {
	names, err := parseNames([]string{"en=Sad", `JA:"悲しい"`})
	if err != nil {
		t.Fatalf("parseNames: %v", err)
	}
	if names["en"] != "Sad" || names["ja"] != "悲しい" {
		t.Fatalf("names = %#v", names)
	}
	if got := formatNames(names); got != `en:"Sad" ja:"悲しい"` {
		t.Fatalf("formatNames = %q", got)
	}
	if _, err := parseNames([]string{"Sad"}); err == nil {
		t.Fatal("expected error for missing locale")
	}
	if _, err := parseNames([]string{"english=Foo"}); err == nil || !strings.Contains(err.Error(), "two letters") {
		t.Fatalf("expected two-letter locale error, got %v", err)
	}
}

func TestLocaleLabel(t *testing.T) {
	if got := localeLabel("ja"); got != "ja (Japanese)" {
		t.Fatalf("localeLabel(ja) = %q", got)
	}
	if got := localeLabel("??"); got != "??" {
		t.Fatalf("localeLabel(??) = %q", got)
	}
}
