package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clipper/internal/config"
	"clipper/internal/deps"
	"clipper/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func catalogServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			if r.URL.Query().Get("t") != token {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"categories":{"sad":{"en":"Sad"}},"clips":{}}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckCatalog(t *testing.T) {
	srv := catalogServer(t, "good")
	cfg := testsupport.NewConfig(t, testsupport.WithCatalog(srv.URL, "good"))

	result := CheckCatalog(context.Background(), cfg)
	if !result.Passed || result.Detail != "reachable (1 categories, 0 clips)" {
		t.Fatalf("unexpected result: %+v", result)
	}

	cfg.Catalog.Token = "bad"
	if result := CheckCatalog(context.Background(), cfg); result.Passed {
		t.Fatalf("expected bad token to fail, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	// download, trimmed, normalized, published
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesCatalogWhenConfigured(t *testing.T) {
	srv := catalogServer(t, "tok")
	cfg := testsupport.NewConfig(t, testsupport.WithCatalog(srv.URL, "tok"))
	cfg.Storage.Backend = config.StorageB2
	cfg.Storage.Bucket = "clips"

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 || results[3].Name != "Catalog" || !results[3].Passed {
		t.Fatalf("unexpected results: %+v", results)
	}
	if failed := Failed(results); len(failed) != 3 {
		t.Fatalf("expected directory checks to fail before EnsureDirectories, got %+v", failed)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("yt-dlp", "ffmpeg", "ffprobe"))
	cfg.Media.PlayerCommand = "definitely-missing-player --flag"

	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	if missing := MissingRequired(statuses); len(missing) != 0 {
		t.Fatalf("required binaries reported missing: %v", missing)
	}
	player := statuses[3]
	if player.Available || !player.Optional || player.Command != "definitely-missing-player" {
		t.Fatalf("unexpected player status: %+v", player)
	}
	if got := MissingRequired([]deps.Status{{Name: "FFmpeg"}}); len(got) != 1 {
		t.Fatalf("MissingRequired = %v", got)
	}
}
