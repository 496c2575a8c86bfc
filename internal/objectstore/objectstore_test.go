package objectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipper/internal/config"
	"clipper/internal/services"
	"clipper/internal/testsupport"
)

func TestLocalUploadWithPublicBase(t *testing.T) {
	dir := t.TempDir()
	src := testsupport.WriteText(t, filepath.Join(dir, "norm.mp3"), "mp3")
	store := NewLocal(filepath.Join(dir, "pub"), "https://cdn.example.com/clips/", nil)

	url, err := store.Upload(context.Background(), src, "abc123.mp3")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://cdn.example.com/clips/abc123.mp3" {
		t.Fatalf("url = %q", url)
	}
	if data, err := os.ReadFile(filepath.Join(dir, "pub", "abc123.mp3")); err != nil || string(data) != "mp3" {
		t.Fatalf("published file missing: %v", err)
	}
}

func TestLocalUploadFileURL(t *testing.T) {
	dir := t.TempDir()
	src := testsupport.WriteText(t, filepath.Join(dir, "norm.mp3"), "mp3")
	url, err := NewLocal(filepath.Join(dir, "pub"), "", nil).Upload(context.Background(), src, "abc123.mp3")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "/pub/abc123.mp3") {
		t.Fatalf("url = %q", url)
	}
}

func TestUploadRejectsBadNames(t *testing.T) {
	store := NewLocal(t.TempDir(), "", nil)
	for _, name := range []string{"", "../x.mp3", "a/b.mp3", "/abs.mp3"} {
		if _, err := store.Upload(context.Background(), "whatever", name); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("name %q: expected validation error, got %v", name, err)
		}
	}
}

func TestLocalUploadMissingSource(t *testing.T) {
	store := NewLocal(t.TempDir(), "", nil)
	if _, err := store.Upload(context.Background(), "/nonexistent/norm.mp3", "abc123.mp3"); !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestNewB2RequiresCredentials(t *testing.T) {
	_, err := NewB2(context.Background(), B2Options{Bucket: "clips"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	_, err = NewB2(context.Background(), B2Options{KeyID: "id", AppKey: "key"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing bucket, got %v", err)
	}
}

func TestNewFromConfigSelectsLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.LocalDir = t.TempDir()
	uploader, err := NewFromConfig(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if _, ok := uploader.(*Local); !ok {
		t.Fatalf("expected *Local, got %T", uploader)
	}

	cfg.Storage.Backend = "s3"
	if _, err := NewFromConfig(context.Background(), &cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPublicURLEscapes(t *testing.T) {
	if got := PublicURL("https://f002.backblazeb2.com/file/b", "a b.mp3"); got != "https://f002.backblazeb2.com/file/b/a%20b.mp3" {
		t.Fatalf("PublicURL = %q", got)
	}
}
