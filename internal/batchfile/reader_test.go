package batchfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadCollectsEntriesWithLineNumbers(t *testing.T) {
	input := strings.Join([]string{
		"# clips for tonight",
		"",
		`https://example.com/v/abc 0:01:00 0:01:30 music en:"Song Title"`,
		`https://example.com/v/def 0:01:00 music en:"Broken"`,
		`https://example.com/v/ghi 0:00:05 0:00:09.250 sfx en:"Boom"`,
	}, "\n")

	entries, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Line != 3 || entries[0].Err != nil || entries[0].Directive.Category != "music" {
		t.Fatalf("unexpected first entry %#v", entries[0])
	}
	var perr *ParseError
	if !errors.As(entries[1].Err, &perr) || perr.Line != 4 {
		t.Fatalf("expected parse error on line 4, got %#v", entries[1].Err)
	}
	if !strings.Contains(entries[1].Err.Error(), "line 4") {
		t.Fatalf("error should name the line: %v", entries[1].Err)
	}
	if entries[2].Directive.End != "0:00:09.250" {
		t.Fatalf("unexpected third entry %#v", entries[2])
	}
}

func TestReadRejectsInvalidUTF8(t *testing.T) {
	entries, err := Read(bytes.NewReader([]byte("https://example.com/v 0:00:01 0:00:02 sfx en:\"\xff\"\n")))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Err == nil {
		t.Fatalf("expected one failed entry, got %#v", entries)
	}
}

func TestReadFileAndDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.txt")
	content := "\ufeffhttps://example.com/v/abc 0:01:00 0:01:30 music fr:\"Chanson\" en:\"Song\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	entries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Err != nil {
		t.Fatalf("unexpected entries %#v", entries)
	}

	var buf bytes.Buffer
	if err := Dump(&buf, []Directive{entries[0].Directive}); err != nil {
		t.Fatalf("Dump returned error: %v", err)
	}
	want := "https://example.com/v/abc 0:01:00 0:01:30 music en:\"Song\" fr:\"Chanson\"\n"
	if buf.String() != want {
		t.Fatalf("Dump = %q, want %q", buf.String(), want)
	}
}
