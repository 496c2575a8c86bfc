package history

import "time"

// Outcome classifies what happened to one batch line.
type Outcome string

const (
	// OutcomePublished means the clip reached the catalog.
	OutcomePublished Outcome = "published"
	// OutcomeUploaded means the clip was uploaded but not published (no catalog configured).
	OutcomeUploaded Outcome = "uploaded"
	// OutcomeRejected means the reviewer declined and gave no revised markers.
	OutcomeRejected Outcome = "rejected"
	// OutcomeValid is recorded by dry runs for lines that parsed cleanly.
	OutcomeValid Outcome = "valid"
	// OutcomeFailed covers parse errors and stage failures.
	OutcomeFailed Outcome = "failed"
)

// Run is one execution of a batch file.
type Run struct {
	ID         int64
	BatchPath  string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Published  int
	Failed     int
}

// Finished reports whether the run recorded its summary.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration is the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Entry is the outcome of a single batch line.
type Entry struct {
	ID         int64
	RunID      int64
	Line       int
	Text       string
	ClipID     string
	Outcome    Outcome
	Error      string
	RecordedAt time.Time
}

// Summary carries the counters written when a run finishes.
type Summary struct {
	Total     int
	Published int
	Failed    int
}
