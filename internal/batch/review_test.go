package batch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"clipper/internal/clipstore"
	"clipper/internal/services"
)

func TestPromptReview(t *testing.T) {
	rec := clipstore.Record{ID: "abc123", Start: "0:00:01", End: "0:00:02", NormalizedPath: "/n/abc123.mp3"}
	tests := []struct {
		name   string
		input  string
		want   Decision
		played bool
	}{
		{name: "decline playback approves", input: "n\n", want: Decision{Approve: true}},
		{name: "approve after playback", input: "y\nyes\n", want: Decision{Approve: true}, played: true},
		{name: "revise markers", input: "y\nn\n0:00:03\n\n", want: Decision{Start: "0:00:03"}, played: true},
		{name: "skip", input: "Y\nn\nskip\n", want: Decision{Skip: true}, played: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var played string
			var out bytes.Buffer
			p := NewPrompt(strings.NewReader(tt.input), &out, func(_ context.Context, path string) error {
				played = path
				return nil
			})
			got, err := p.Review(context.Background(), rec)
			if err != nil {
				t.Fatalf("Review: %v", err)
			}
			if got != tt.want {
				t.Fatalf("decision = %+v, want %+v", got, tt.want)
			}
			if tt.played != (played == rec.NormalizedPath) {
				t.Fatalf("played = %q, expected playback %v", played, tt.played)
			}
			if !strings.Contains(out.String(), "Play clip abc123? (y/N): ") {
				t.Fatalf("missing prompt in %q", out.String())
			}
		})
	}
}

func TestPromptClosedInput(t *testing.T) {
	p := NewPrompt(strings.NewReader(""), &bytes.Buffer{}, nil)
	if _, err := p.Review(context.Background(), clipstore.Record{ID: "abc123"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error on EOF, got %v", err)
	}
}

func TestCommandPlayerRequiresCommand(t *testing.T) {
	if err := CommandPlayer("  ")(context.Background(), "x.mp3"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
