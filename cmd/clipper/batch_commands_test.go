package main

import (
	"bytes"
	"strings"
	"testing"

	"clipper/internal/batch"
)

func TestPrintUnpublishedLeavesSummaryToRunner(t *testing.T) {
	var out bytes.Buffer
	printUnpublished(&out, batch.Summary{Total: 3, Published: 1, Uploaded: 2})
	if strings.Contains(out.String(), "Work finished") {
		t.Fatalf("summary line printed twice: %q", out.String())
	}
	if out.String() != "2 uploaded but not published (no catalog configured)\n" {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	printUnpublished(&out, batch.Summary{Total: 1, Published: 1})
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}
