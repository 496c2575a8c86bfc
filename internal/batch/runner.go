package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"clipper/internal/batchfile"
	"clipper/internal/clipstore"
	"clipper/internal/history"
	"clipper/internal/logging"
	"clipper/internal/notifications"
	"clipper/internal/services"
)

// Controller is the part of the clip controller a batch run drives.
type Controller interface {
	Generate(ctx context.Context, source, start, end string, upload bool) (string, error)
	Edit(ctx context.Context, id, start, end string) (clipstore.Record, error)
	Trim(ctx context.Context, id string) error
	Normalize(ctx context.Context, id string) error
	Upload(ctx context.Context, id string) error
	Publish(ctx context.Context, id, category string, names map[string]string) error
	Info(id string) (clipstore.Record, error)
	HasCatalog() bool
}

// Recorder persists run outcomes. *history.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, batchPath string, dryRun bool) (*history.Run, error)
	RecordEntry(ctx context.Context, runID int64, entry history.Entry) error
	FinishRun(ctx context.Context, runID int64, summary history.Summary) error
}

// Options configure a Runner.
type Options struct {
	// AutoApprove skips the review loop.
	AutoApprove bool
	// FailFast stops at the first failing line and returns its error.
	FailFast bool
	// DryRun parses and validates only; no controller is needed.
	DryRun   bool
	Reviewer Reviewer
	Recorder Recorder
	// Notifier receives start, publish, failure, and completion events.
	// Dry runs never notify.
	Notifier notifications.Service
	Logger   *slog.Logger
	Out      io.Writer
	Now      func() time.Time
}

// Summary counts a run's outcomes.
type Summary struct {
	RunID     int64
	Total     int
	Published int
	Uploaded  int
	Rejected  int
	Failed    int
	Elapsed   time.Duration
}

// String renders the end-of-run report.
func (s Summary) String() string {
	return fmt.Sprintf("Work finished. %d/%d published, %d/%d failed. Used %d seconds",
		s.Published, s.Total, s.Failed, s.Total, int(s.Elapsed.Seconds()))
}

// Runner executes batch files against a controller.
type Runner struct {
	ctrl   Controller
	opts   Options
	logger *slog.Logger
}

// New constructs a Runner. ctrl may be nil for dry runs.
func New(ctrl Controller, opts Options) (*Runner, error) {
	if ctrl == nil && !opts.DryRun {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "new", "controller required unless dry run", nil)
	}
	if !opts.AutoApprove && !opts.DryRun && opts.Reviewer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "new", "interactive review needs a terminal; pass --yes to auto-approve", nil)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil || opts.DryRun {
		opts.Notifier = notifications.NewService(nil)
	}
	return &Runner{
		ctrl:   ctrl,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "batch"),
	}, nil
}

// RunFile reads path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (Summary, error) {
	entries, err := batchfile.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	return r.Run(ctx, path, entries)
}

// Run processes entries in order. The returned error is non-nil only for
// fail-fast aborts, cancellation, or recorder failures at start.
func (r *Runner) Run(ctx context.Context, name string, entries []batchfile.Entry) (Summary, error) {
	started := r.opts.Now()
	summary := Summary{}

	var runID int64
	if r.opts.Recorder != nil {
		run, err := r.opts.Recorder.StartRun(ctx, name, r.opts.DryRun)
		if err != nil {
			return summary, fmt.Errorf("start run: %w", err)
		}
		runID = run.ID
		summary.RunID = runID
	}
	r.logger.Info("batch run started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.String("batch", name),
		logging.Int("lines", len(entries)),
		logging.Bool("dry_run", r.opts.DryRun))
	r.notify(ctx, notifications.EventBatchStarted, notifications.Payload{"batch": filepath.Base(name), "lines": len(entries)})

	var runErr error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		summary.Total++
		outcome, clipID, err := r.runEntry(ctx, entry)
		r.count(&summary, outcome)
		if err != nil {
			logging.WarnWithContext(r.logger, "batch line failed", "batch_line_failed",
				logging.Int("line", entry.Line),
				logging.String(logging.FieldClipID, clipID),
				logging.String(logging.FieldErrorHint, hintFor(err)),
				logging.Error(err))
			fmt.Fprintf(r.opts.Out, "line %d: %v\n", entry.Line, err)
			r.notify(ctx, notifications.EventError, notifications.Payload{"context": fmt.Sprintf("line %d", entry.Line), "error": err.Error()})
		} else if outcome == history.OutcomePublished {
			r.notify(ctx, notifications.EventClipPublished, notifications.Payload{
				"clip":     clipID,
				"category": entry.Directive.Category,
				"names":    describeNames(entry.Directive.Names),
			})
		}
		r.record(ctx, runID, entry, outcome, clipID, err)
		if err != nil && r.opts.FailFast {
			runErr = fmt.Errorf("line %d: %w", entry.Line, err)
			break
		}
	}

	summary.Elapsed = r.opts.Now().Sub(started)
	if r.opts.Recorder != nil {
		finish := history.Summary{Total: summary.Total, Published: summary.Published, Failed: summary.Failed}
		if err := r.opts.Recorder.FinishRun(context.WithoutCancel(ctx), runID, finish); err != nil {
			r.logger.Warn("failed to finish run record", logging.Error(err))
		}
	}
	r.logger.Info("batch run finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("total", summary.Total),
		logging.Int("published", summary.Published),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed))
	r.notify(ctx, notifications.EventBatchCompleted, notifications.Payload{
		"total":     summary.Total,
		"published": summary.Published,
		"failed":    summary.Failed,
		"elapsed":   summary.Elapsed,
	})
	fmt.Fprintln(r.opts.Out, summary.String())
	return summary, runErr
}

func (r *Runner) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := r.opts.Notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		r.logger.Warn("notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String("event", string(event)),
			logging.Error(err))
	}
}

func (r *Runner) runEntry(ctx context.Context, entry batchfile.Entry) (history.Outcome, string, error) {
	if entry.Err != nil {
		return history.OutcomeFailed, "", entry.Err
	}
	if r.opts.DryRun {
		return history.OutcomeValid, "", nil
	}

	d := entry.Directive
	fmt.Fprintf(r.opts.Out, "[line %d] generating %s @ [%s - %s] %s\n", entry.Line, d.Source, d.Start, d.End, describeNames(d.Names))
	id, err := r.ctrl.Generate(ctx, d.Source, d.Start, d.End, false)
	if err != nil {
		return history.OutcomeFailed, id, err
	}

	if !r.opts.AutoApprove {
		approved, err := r.review(ctx, id)
		if err != nil {
			return history.OutcomeFailed, id, err
		}
		if !approved {
			fmt.Fprintf(r.opts.Out, "[line %d] clip %s skipped\n", entry.Line, id)
			return history.OutcomeRejected, id, nil
		}
	}

	if err := r.ctrl.Upload(ctx, id); err != nil {
		return history.OutcomeFailed, id, err
	}
	if !r.ctrl.HasCatalog() {
		fmt.Fprintf(r.opts.Out, "[line %d] clip %s uploaded; no catalog configured\n", entry.Line, id)
		return history.OutcomeUploaded, id, nil
	}
	if err := r.ctrl.Publish(ctx, id, d.Category, d.Names); err != nil {
		return history.OutcomeFailed, id, err
	}
	fmt.Fprintf(r.opts.Out, "[line %d] clip %s published to %s\n", entry.Line, id, d.Category)
	return history.OutcomePublished, id, nil
}

// review loops until the reviewer approves or skips, re-trimming and
// re-normalizing after each revision.
func (r *Runner) review(ctx context.Context, id string) (bool, error) {
	for {
		rec, err := r.ctrl.Info(id)
		if err != nil {
			return false, err
		}
		decision, err := r.opts.Reviewer.Review(ctx, rec)
		if err != nil {
			return false, err
		}
		switch {
		case decision.Approve:
			return true, nil
		case decision.Skip:
			return false, nil
		}

		start := firstNonEmpty(decision.Start, rec.Start)
		end := firstNonEmpty(decision.End, rec.End)
		if _, err := r.ctrl.Edit(ctx, id, start, end); err != nil {
			if services.Kind(err) == "validation" {
				fmt.Fprintf(r.opts.Out, "%v\n", err)
				continue
			}
			return false, err
		}
		if err := r.ctrl.Trim(ctx, id); err != nil {
			return false, err
		}
		if err := r.ctrl.Normalize(ctx, id); err != nil {
			return false, err
		}
	}
}

func (r *Runner) count(summary *Summary, outcome history.Outcome) {
	switch outcome {
	case history.OutcomePublished:
		summary.Published++
	case history.OutcomeUploaded:
		summary.Uploaded++
	case history.OutcomeRejected:
		summary.Rejected++
	case history.OutcomeFailed:
		summary.Failed++
	}
}

func (r *Runner) record(ctx context.Context, runID int64, entry batchfile.Entry, outcome history.Outcome, clipID string, err error) {
	if r.opts.Recorder == nil {
		return
	}
	rec := history.Entry{Line: entry.Line, Text: entry.Text, ClipID: clipID, Outcome: outcome}
	if err != nil {
		rec.Error = err.Error()
	}
	if recErr := r.opts.Recorder.RecordEntry(context.WithoutCancel(ctx), runID, rec); recErr != nil {
		r.logger.Warn("failed to record batch line", logging.Int("line", entry.Line), logging.Error(recErr))
	}
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "parse":
		return "fix the line syntax: URL START END CATEGORY loc:\"name\"..."
	case "external_tool":
		return "check yt-dlp/ffmpeg availability with `clipper status`"
	case "timeout":
		return "the trim exceeded media.trim_timeout_seconds"
	case "catalog", "auth":
		return "check catalog endpoint and token"
	default:
		return ""
	}
}

func describeNames(names map[string]string) string {
	if len(names) == 0 {
		return ""
	}
	d := batchfile.Directive{Names: names}
	parts := make([]string, 0, len(names))
	for _, loc := range d.Locales() {
		parts = append(parts, loc+"="+names[loc])
	}
	return "called " + strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
