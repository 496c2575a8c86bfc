package clipper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"clipper/internal/catalog"
	"clipper/internal/clipstore"
	"clipper/internal/services"
)

type fakeDownloader struct {
	calls int
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, source, template, codec, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := strings.Replace(template, "%(ext)s", codec, 1)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte("raw:"+source), 0o644)
}

type trimCall struct {
	input, start, end, output string
}

type fakeProcessor struct {
	trims        []trimCall
	normalized   []string
	trimErr      error
	normalizeErr error
}

func (f *fakeProcessor) Trim(_ context.Context, input, start, end, output string) error {
	f.trims = append(f.trims, trimCall{input, start, end, output})
	return f.trimErr
}

func (f *fakeProcessor) Normalize(_ context.Context, input, output string, target float64, codec string) error {
	f.normalized = append(f.normalized, fmt.Sprintf("%s->%s@%.0f/%s", filepath.Base(input), filepath.Base(output), target, codec))
	return f.normalizeErr
}

type fakeUploader struct {
	names []string
}

func (f *fakeUploader) Upload(_ context.Context, _ string, remoteName string) (string, error) {
	f.names = append(f.names, remoteName)
	return "https://files.example.com/clips/" + remoteName, nil
}

type fakeCatalog struct {
	clips      map[string]string
	categories map[string]catalog.Names
	err        error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{clips: map[string]string{}, categories: map[string]catalog.Names{}}
}

func (f *fakeCatalog) PutCategory(_ context.Context, tag string, names catalog.Names) error {
	f.categories[tag] = names
	return f.err
}

func (f *fakeCatalog) PutClip(_ context.Context, rec clipstore.Record, category string, _ catalog.Names) error {
	if f.err != nil {
		return f.err
	}
	f.clips[rec.ID] = category
	return nil
}

func (f *fakeCatalog) UpdateClip(_ context.Context, rec clipstore.Record, category string, _ catalog.Names) error {
	if _, ok := f.clips[rec.ID]; !ok {
		return services.Wrap(services.ErrCatalog, "update", "catalog", "publish before updating", nil)
	}
	if category != "" {
		f.clips[rec.ID] = category
	}
	return nil
}

func (f *fakeCatalog) RemoveClip(_ context.Context, id string) (bool, error) {
	if _, ok := f.clips[id]; !ok {
		return false, nil
	}
	delete(f.clips, id)
	return true, nil
}

type harness struct {
	ctrl     *Controller
	store    *clipstore.Store
	download *fakeDownloader
	process  *fakeProcessor
	upload   *fakeUploader
	catalog  *fakeCatalog
	dir      string
}

func newHarness(t *testing.T, withCatalog bool) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := clipstore.Open(filepath.Join(dir, "clips.json"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		store:    store,
		download: &fakeDownloader{},
		process:  &fakeProcessor{},
		upload:   &fakeUploader{},
		dir:      dir,
	}
	deps := Deps{Store: store, Downloader: h.download, Processor: h.process, Uploader: h.upload}
	if withCatalog {
		h.catalog = newFakeCatalog()
		deps.Catalog = h.catalog
	}
	settings := Settings{
		DownloadDir:   filepath.Join(dir, "downloads"),
		TrimmedDir:    filepath.Join(dir, "trimmed"),
		NormalizedDir: filepath.Join(dir, "normalized"),
		Codec:         "opus",
		Quality:       "192",
		TargetLevel:   -16,
	}
	ctrl, err := New(settings, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func TestGenerateRunsEveryStage(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	id, err := h.ctrl.Generate(ctx, "https://video.example.com/watch?v=1", "0:01:00", "0:01:05", true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec, err := h.ctrl.Info(id)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if rec.Stage() != clipstore.StageUploaded {
		t.Fatalf("stage = %s, want uploaded", rec.Stage())
	}
	if rec.DownloadPath != filepath.Join(h.dir, "downloads", id+".opus") {
		t.Fatalf("download path = %q", rec.DownloadPath)
	}
	if rec.TrimmedPath != filepath.Join(h.dir, "trimmed", id+".mp3") {
		t.Fatalf("trimmed path = %q", rec.TrimmedPath)
	}
	if rec.NormalizedPath != filepath.Join(h.dir, "normalized", id+".mp3") {
		t.Fatalf("normalized path = %q", rec.NormalizedPath)
	}
	if rec.FileURL != "https://files.example.com/clips/"+id+".mp3" {
		t.Fatalf("file url = %q", rec.FileURL)
	}
	if len(h.process.trims) != 1 || h.process.trims[0].start != "0:01:00" || h.process.trims[0].end != "0:01:05" {
		t.Fatalf("unexpected trim calls: %+v", h.process.trims)
	}
	if want := id + ".mp3->" + id + ".mp3@-16/libmp3lame"; len(h.process.normalized) != 1 || h.process.normalized[0] != want {
		t.Fatalf("normalize calls = %v, want [%s]", h.process.normalized, want)
	}

	if err := h.ctrl.Publish(ctx, id, "sad", map[string]string{"en": "Sad"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	rec, _ = h.ctrl.Info(id)
	if !rec.Published || h.catalog.clips[id] != "sad" {
		t.Fatalf("expected published clip in catalog, got %+v / %v", rec, h.catalog.clips)
	}

	data, err := os.ReadFile(filepath.Join(h.dir, "clips.json"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !strings.Contains(string(data), `"published": true`) && !strings.Contains(string(data), `"published":true`) {
		t.Fatalf("snapshot not persisted after publish: %s", data)
	}
}

func TestGenerateWithoutUploadStopsAtNormalized(t *testing.T) {
	h := newHarness(t, false)
	id, err := h.ctrl.Generate(context.Background(), "https://video.example.com/a", "", "", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec, _ := h.ctrl.Info(id)
	if rec.Stage() != clipstore.StageNormalized {
		t.Fatalf("stage = %s, want normalized", rec.Stage())
	}
	if rec.Start != DefaultStart || rec.End != "" {
		t.Fatalf("markers = %q..%q", rec.Start, rec.End)
	}
	if len(h.upload.names) != 0 {
		t.Fatalf("upload should not run, got %v", h.upload.names)
	}
}

func TestGenerateFailureReturnsPartialRecord(t *testing.T) {
	h := newHarness(t, false)
	h.process.trimErr = services.Wrap(services.ErrTimeout, "trim", "ffmpeg", "trim exceeded 1m0s", nil)

	id, err := h.ctrl.Generate(context.Background(), "https://video.example.com/a", "0:00:01", "0:00:02", true)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if id == "" {
		t.Fatal("expected identifier of partial record")
	}
	rec, _ := h.ctrl.Info(id)
	if rec.Stage() != clipstore.StageDownloaded || rec.TrimmedPath != "" {
		t.Fatalf("failed trim must leave record downloaded, got %+v", rec)
	}
	if len(h.process.normalized) != 0 {
		t.Fatal("normalize ran after failed trim")
	}
}

func TestNewClipRejectsMalformedMarkers(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.ctrl.NewClip(ctx, "https://video.example.com/a", "1:2:3:4", "")
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "start") {
		t.Fatalf("expected start validation error, got %v", err)
	}
	_, err = h.ctrl.NewClip(ctx, "https://video.example.com/a", "0:00:01", "abc")
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "end") {
		t.Fatalf("expected end validation error, got %v", err)
	}
	if _, err := h.ctrl.NewClip(ctx, "  ", "", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected empty source rejected, got %v", err)
	}
	if h.store.Count() != 0 {
		t.Fatalf("invalid clips must not be stored, have %d", h.store.Count())
	}
}

func TestNewClipTimestampExamples(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	id, err := h.ctrl.NewClip(ctx, "https://video.example.com/a", "1:02:3", "0:10:00.500")
	if err != nil {
		t.Fatalf("NewClip returned error: %v", err)
	}
	rec, err := h.store.Find(id)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rec.Start != "1:02:3" || rec.End != "0:10:00.500" {
		t.Fatalf("markers = %q/%q", rec.Start, rec.End)
	}

	if _, err := h.ctrl.NewClip(ctx, "https://video.example.com/a", "99:99:99", "0:10:00"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for 99:99:99, got %v", err)
	}
	if h.store.Count() != 1 {
		t.Fatalf("expected one stored clip, have %d", h.store.Count())
	}
}

func TestEditValidationNamesEditStage(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	id, err := h.ctrl.NewClip(ctx, "https://video.example.com/a", "0:00:01", "0:00:02")
	if err != nil {
		t.Fatalf("NewClip: %v", err)
	}

	_, err = h.ctrl.Edit(ctx, id, "0:00:01", "soon")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "edit: controller: invalid end") {
		t.Fatalf("error should name the edit stage: %v", err)
	}
	_, err = h.ctrl.NewClip(ctx, "https://video.example.com/a", "later", "")
	if err == nil || !strings.Contains(err.Error(), "new: controller: invalid start") {
		t.Fatalf("error should name the new stage: %v", err)
	}
}

func TestGenerateReturnsIDWhenSnapshotSaveFails(t *testing.T) {
	h := newHarness(t, false)
	path := h.store.Path()
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove snapshot: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(path, "occupied"), 0o755); err != nil {
		t.Fatalf("block snapshot path: %v", err)
	}

	id, err := h.ctrl.Generate(context.Background(), "https://video.example.com/a", "0:00:01", "0:00:02", false)
	if err == nil {
		t.Fatal("expected save failure")
	}
	if id == "" {
		t.Fatal("Generate must return the id of the inserted record")
	}
	if _, err := h.store.Find(id); err != nil {
		t.Fatalf("record should stay in memory: %v", err)
	}
	if h.download.calls != 0 {
		t.Fatal("stages must not run after a failed save")
	}
}

func TestNewClipRetriesIdentifierCollision(t *testing.T) {
	h := newHarness(t, false)
	ids := []string{"aaaaaa", "aaaaaa", "bbbbbb"}
	h.ctrl.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	first, err := h.ctrl.NewClip(context.Background(), "https://a.example.com", "", "")
	if err != nil {
		t.Fatalf("first NewClip: %v", err)
	}
	second, err := h.ctrl.NewClip(context.Background(), "https://b.example.com", "", "")
	if err != nil {
		t.Fatalf("second NewClip: %v", err)
	}
	if first != "aaaaaa" || second != "bbbbbb" {
		t.Fatalf("ids = %s, %s", first, second)
	}
}

func TestDownloadReusesSharedRawFile(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	source := "https://video.example.com/shared"

	first, _ := h.ctrl.NewClip(ctx, source, "0:00:01", "0:00:02")
	second, _ := h.ctrl.NewClip(ctx, source, "0:00:05", "0:00:09")
	if err := h.ctrl.Download(ctx, first, false); err != nil {
		t.Fatalf("Download first: %v", err)
	}
	if err := h.ctrl.Download(ctx, second, false); err != nil {
		t.Fatalf("Download second: %v", err)
	}
	if h.download.calls != 1 {
		t.Fatalf("downloader called %d times, want 1", h.download.calls)
	}
	a, _ := h.ctrl.Info(first)
	b, _ := h.ctrl.Info(second)
	if a.DownloadPath == "" || a.DownloadPath != b.DownloadPath {
		t.Fatalf("expected shared raw path, got %q and %q", a.DownloadPath, b.DownloadPath)
	}
}

func TestDownloadSkipsUnlessForced(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	id, _ := h.ctrl.NewClip(ctx, "https://video.example.com/a", "", "")

	for range 2 {
		if err := h.ctrl.Download(ctx, id, false); err != nil {
			t.Fatalf("Download: %v", err)
		}
	}
	if h.download.calls != 1 {
		t.Fatalf("downloader called %d times, want 1", h.download.calls)
	}
	if err := h.ctrl.Download(ctx, id, true); err != nil {
		t.Fatalf("forced Download: %v", err)
	}
	if h.download.calls != 2 {
		t.Fatalf("forced download did not run, calls = %d", h.download.calls)
	}
}

func TestDownloadFailureLeavesRecordNew(t *testing.T) {
	h := newHarness(t, false)
	h.download.err = services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "exit status 1", nil)
	ctx := context.Background()
	id, _ := h.ctrl.NewClip(ctx, "https://video.example.com/a", "", "")

	if err := h.ctrl.Download(ctx, id, false); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	rec, _ := h.ctrl.Info(id)
	if rec.Stage() != clipstore.StageNew {
		t.Fatalf("stage = %s, want new", rec.Stage())
	}
}

func TestStageGuards(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	id, _ := h.ctrl.NewClip(ctx, "https://video.example.com/a", "", "")

	checks := map[string]func() error{
		"trim":      func() error { return h.ctrl.Trim(ctx, id) },
		"normalize": func() error { return h.ctrl.Normalize(ctx, id) },
		"upload":    func() error { return h.ctrl.Upload(ctx, id) },
		"publish":   func() error { return h.ctrl.Publish(ctx, id, "sad", map[string]string{"en": "Sad"}) },
	}
	for name, run := range checks {
		if err := run(); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s before prerequisites: expected validation error, got %v", name, err)
		}
	}
	if len(h.process.trims)+len(h.process.normalized)+len(h.upload.names)+len(h.catalog.clips) != 0 {
		t.Fatal("collaborators must not run when a guard fails")
	}
}

func TestUnknownClip(t *testing.T) {
	h := newHarness(t, false)
	if err := h.ctrl.Trim(context.Background(), "nope00"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEditThenTrimOverwrites(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	id, err := h.ctrl.Generate(ctx, "https://video.example.com/a", "0:00:01", "0:00:02", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := h.ctrl.Edit(ctx, id, "0:00:03", "0:00:04.500"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := h.ctrl.Trim(ctx, id); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if len(h.process.trims) != 2 {
		t.Fatalf("trim calls = %d, want 2", len(h.process.trims))
	}
	last := h.process.trims[1]
	if last.start != "0:00:03" || last.end != "0:00:04.500" || last.output != h.process.trims[0].output {
		t.Fatalf("retrim = %+v", last)
	}
	if _, err := h.ctrl.Edit(ctx, id, "bad", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected invalid edit rejected, got %v", err)
	}
}

func TestCatalogOperationsRequireCatalog(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	id, _ := h.ctrl.Generate(ctx, "https://video.example.com/a", "", "", true)

	if err := h.ctrl.Publish(ctx, id, "sad", map[string]string{"en": "Sad"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Publish without catalog: %v", err)
	}
	if _, err := h.ctrl.Unpublish(ctx, id); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Unpublish without catalog: %v", err)
	}
	if err := h.ctrl.PutCategory(ctx, "sad", map[string]string{"en": "Sad"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("PutCategory without catalog: %v", err)
	}
}

func TestUnpublishClearsPublishedFlag(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	id, _ := h.ctrl.Generate(ctx, "https://video.example.com/a", "", "", true)
	if err := h.ctrl.Publish(ctx, id, "sad", map[string]string{"en": "Sad"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := h.ctrl.UpdatePublished(ctx, id, "happy", nil); err != nil {
		t.Fatalf("UpdatePublished: %v", err)
	}
	if h.catalog.clips[id] != "happy" {
		t.Fatalf("category = %q, want happy", h.catalog.clips[id])
	}

	removed, err := h.ctrl.Unpublish(ctx, id)
	if err != nil || !removed {
		t.Fatalf("Unpublish = %v, %v", removed, err)
	}
	rec, _ := h.ctrl.Info(id)
	if rec.Published || rec.Stage() != clipstore.StageUploaded {
		t.Fatalf("expected uploaded, unpublished record, got %+v", rec)
	}
	removed, err = h.ctrl.Unpublish(ctx, id)
	if err != nil || removed {
		t.Fatalf("second Unpublish = %v, %v", removed, err)
	}
}

func TestPublishFailureKeepsRecordUploaded(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	id, _ := h.ctrl.Generate(ctx, "https://video.example.com/a", "", "", true)
	h.catalog.err = services.Wrap(services.ErrCatalog, "publish", "catalog", "PUT returned 503", nil)

	if err := h.ctrl.Publish(ctx, id, "sad", map[string]string{"en": "Sad"}); !errors.Is(err, services.ErrCatalog) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	rec, _ := h.ctrl.Info(id)
	if rec.Published {
		t.Fatal("record must not be marked published after a failed PUT")
	}
}

func TestConcurrentClipsAreSerialized(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.ctrl.NewClip(ctx, fmt.Sprintf("https://video.example.com/%d", i), "", ""); err != nil {
				t.Errorf("NewClip: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := len(h.ctrl.List()); got != 8 {
		t.Fatalf("List returned %d records, want 8", got)
	}
}
