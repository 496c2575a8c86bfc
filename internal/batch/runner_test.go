package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clipper/internal/batchfile"
	"clipper/internal/clipstore"
	"clipper/internal/history"
	"clipper/internal/notifications"
	"clipper/internal/services"
)

type fakeController struct {
	records    map[string]clipstore.Record
	next       int
	failSource string
	catalog    bool
	calls      []string
}

func newFakeController() *fakeController {
	return &fakeController{records: map[string]clipstore.Record{}, catalog: true}
}

func (f *fakeController) Generate(_ context.Context, source, start, end string, upload bool) (string, error) {
	f.next++
	id := fmt.Sprintf("clip%02d", f.next)
	f.calls = append(f.calls, "generate:"+id)
	if source == f.failSource {
		return id, services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "exit status 1", nil)
	}
	f.records[id] = clipstore.Record{ID: id, Source: source, Start: start, End: end, NormalizedPath: "/n/" + id + ".mp3"}
	return id, nil
}

func (f *fakeController) Edit(_ context.Context, id, start, end string) (clipstore.Record, error) {
	f.calls = append(f.calls, fmt.Sprintf("edit:%s:%s-%s", id, start, end))
	rec := f.records[id]
	rec.Start, rec.End = start, end
	f.records[id] = rec
	return rec, nil
}

func (f *fakeController) Trim(_ context.Context, id string) error {
	f.calls = append(f.calls, "trim:"+id)
	return nil
}

func (f *fakeController) Normalize(_ context.Context, id string) error {
	f.calls = append(f.calls, "normalize:"+id)
	return nil
}

func (f *fakeController) Upload(_ context.Context, id string) error {
	f.calls = append(f.calls, "upload:"+id)
	return nil
}

func (f *fakeController) Publish(_ context.Context, id, category string, _ map[string]string) error {
	f.calls = append(f.calls, "publish:"+id+":"+category)
	return nil
}

func (f *fakeController) Info(id string) (clipstore.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return clipstore.Record{}, services.Wrap(services.ErrNotFound, "info", "fake", id, nil)
	}
	return rec, nil
}

func (f *fakeController) HasCatalog() bool { return f.catalog }

type scriptedReviewer struct {
	decisions []Decision
	seen      []clipstore.Record
}

func (s *scriptedReviewer) Review(_ context.Context, rec clipstore.Record) (Decision, error) {
	s.seen = append(s.seen, rec)
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

type memoryRecorder struct {
	entries  []history.Entry
	summary  history.Summary
	finished bool
}

func (m *memoryRecorder) StartRun(_ context.Context, path string, dryRun bool) (*history.Run, error) {
	return &history.Run{ID: 7, BatchPath: path, DryRun: dryRun}, nil
}

func (m *memoryRecorder) RecordEntry(_ context.Context, _ int64, entry history.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRecorder) FinishRun(_ context.Context, _ int64, summary history.Summary) error {
	m.summary = summary
	m.finished = true
	return nil
}

const sampleBatch = `# morning batch
https://video.example.com/a 0:00:01 0:00:02 sad en:"Sad" ja:"悲しい"
not a directive
https://video.example.com/broken 0:00:05 0:00:06 happy en:"Happy"

https://video.example.com/c 0:01:00 0:01:10.500 happy en:"Yay"
`

func readSample(t *testing.T) []batchfile.Entry {
	t.Helper()
	entries, err := batchfile.Read(strings.NewReader(sampleBatch))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return entries
}

func fixedClock() func() time.Time {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 42 * time.Second)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	ctrl := newFakeController()
	ctrl.failSource = "https://video.example.com/broken"
	recorder := &memoryRecorder{}
	var out bytes.Buffer

	runner, err := New(ctrl, Options{AutoApprove: true, Recorder: recorder, Out: &out, Now: fixedClock()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := runner.Run(context.Background(), "batch.txt", readSample(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 4 || summary.Published != 2 || summary.Failed != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := summary.String(); got != "Work finished. 2/4 published, 2/4 failed. Used 42 seconds" {
		t.Fatalf("summary line = %q", got)
	}
	if n := strings.Count(out.String(), summary.String()); n != 1 {
		t.Fatalf("summary printed %d times: %s", n, out.String())
	}
	if !recorder.finished || recorder.summary.Published != 2 || len(recorder.entries) != 4 {
		t.Fatalf("recorder = %+v", recorder)
	}
	if recorder.entries[1].Outcome != history.OutcomeFailed || recorder.entries[1].Line != 3 {
		t.Fatalf("parse failure not recorded: %+v", recorder.entries[1])
	}
	if recorder.entries[2].ClipID != "clip02" || recorder.entries[2].Error == "" {
		t.Fatalf("stage failure not recorded: %+v", recorder.entries[2])
	}
	want := []string{"generate:clip01", "upload:clip01", "publish:clip01:sad", "generate:clip02", "generate:clip03", "upload:clip03", "publish:clip03:happy"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", ctrl.calls, want)
	}
}

type recordingNotifier struct {
	events []notifications.Event
	last   notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.events = append(n.events, event)
	n.last = payload
	return nil
}

func TestRunNotifiesLifecycle(t *testing.T) {
	ctrl := newFakeController()
	ctrl.failSource = "https://video.example.com/broken"
	notifier := &recordingNotifier{}

	runner, err := New(ctrl, Options{AutoApprove: true, Notifier: notifier})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := runner.Run(context.Background(), "/batches/morning.txt", readSample(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []notifications.Event{
		notifications.EventBatchStarted,
		notifications.EventClipPublished,
		notifications.EventError,
		notifications.EventError,
		notifications.EventClipPublished,
		notifications.EventBatchCompleted,
	}
	if fmt.Sprint(notifier.events) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", notifier.events, want)
	}
	if notifier.last["published"] != 2 || notifier.last["failed"] != 2 {
		t.Fatalf("completion payload = %v", notifier.last)
	}
}

func TestDryRunDoesNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	runner, err := New(nil, Options{DryRun: true, Notifier: notifier})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := runner.Run(context.Background(), "batch.txt", readSample(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("dry run notified: %v", notifier.events)
	}
}

func TestRunFailFastStops(t *testing.T) {
	ctrl := newFakeController()
	runner, err := New(ctrl, Options{AutoApprove: true, FailFast: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := runner.Run(context.Background(), "batch.txt", readSample(t))
	var perr *batchfile.ParseError
	if !errors.As(err, &perr) || perr.Line != 3 {
		t.Fatalf("expected parse error for line 3, got %v", err)
	}
	if summary.Total != 2 || summary.Published != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestDryRunNeedsNoController(t *testing.T) {
	recorder := &memoryRecorder{}
	runner, err := New(nil, Options{DryRun: true, Recorder: recorder})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := runner.Run(context.Background(), "batch.txt", readSample(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 4 || summary.Failed != 1 || summary.Published != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if recorder.entries[0].Outcome != history.OutcomeValid {
		t.Fatalf("dry run outcome = %s", recorder.entries[0].Outcome)
	}
}

func TestNewRequiresReviewerOrYes(t *testing.T) {
	if _, err := New(newFakeController(), Options{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New(nil, Options{AutoApprove: true}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil controller, got %v", err)
	}
}

func TestReviewLoopRetrimsUntilApproved(t *testing.T) {
	ctrl := newFakeController()
	reviewer := &scriptedReviewer{decisions: []Decision{
		{Start: "0:00:03"},
		{Approve: true},
	}}
	entries, _ := batchfile.Read(strings.NewReader(`https://video.example.com/a 0:00:01 0:00:02 sad en:"Sad"`))

	runner, err := New(ctrl, Options{Reviewer: reviewer})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := runner.Run(context.Background(), "batch.txt", entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Published != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	want := []string{"generate:clip01", "edit:clip01:0:00:03-0:00:02", "trim:clip01", "normalize:clip01", "upload:clip01", "publish:clip01:sad"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", ctrl.calls, want)
	}
	if len(reviewer.seen) != 2 || reviewer.seen[1].Start != "0:00:03" {
		t.Fatalf("reviewer did not see revised record: %+v", reviewer.seen)
	}
}

func TestReviewSkipCountsRejected(t *testing.T) {
	ctrl := newFakeController()
	reviewer := &scriptedReviewer{decisions: []Decision{{Skip: true}}}
	entries, _ := batchfile.Read(strings.NewReader(`https://video.example.com/a 0:00:01 0:00:02 sad en:"Sad"`))

	runner, _ := New(ctrl, Options{Reviewer: reviewer})
	summary, err := runner.Run(context.Background(), "batch.txt", entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Rejected != 1 || summary.Published != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for _, call := range ctrl.calls {
		if strings.HasPrefix(call, "upload") {
			t.Fatal("skipped clip was uploaded")
		}
	}
}

func TestRunWithoutCatalogStopsAtUpload(t *testing.T) {
	ctrl := newFakeController()
	ctrl.catalog = false
	entries, _ := batchfile.Read(strings.NewReader(`https://video.example.com/a 0:00:01 0:00:02 sad en:"Sad"`))
	runner, _ := New(ctrl, Options{AutoApprove: true})
	summary, err := runner.Run(context.Background(), "batch.txt", entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Uploaded != 1 || summary.Published != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, _ := New(newFakeController(), Options{AutoApprove: true})
	summary, err := runner.Run(ctx, "batch.txt", readSample(t))
	if !errors.Is(err, context.Canceled) || summary.Total != 0 {
		t.Fatalf("Run after cancel = %+v, %v", summary, err)
	}
}
