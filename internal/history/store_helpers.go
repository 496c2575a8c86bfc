package history

import (
	"database/sql"
	"time"
)

const (
	runColumns   = "id, batch_path, dry_run, started_at, finished_at, total, published, failed"
	entryColumns = "id, run_id, line, text, clip_id, outcome, error_message, recorded_at"
)

type scanner interface{ Scan(dest ...any) error }

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		dryRun     int
		startedRaw string
		finished   sql.NullString
	)
	if err := row.Scan(&run.ID, &run.BatchPath, &dryRun, &startedRaw, &finished, &run.Total, &run.Published, &run.Failed); err != nil {
		return Run{}, err
	}
	run.DryRun = dryRun != 0
	run.StartedAt = parseTime(startedRaw)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return run, nil
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry       Entry
		clipID      sql.NullString
		outcome     string
		errMessage  sql.NullString
		recordedRaw string
	)
	if err := row.Scan(&entry.ID, &entry.RunID, &entry.Line, &entry.Text, &clipID, &outcome, &errMessage, &recordedRaw); err != nil {
		return Entry{}, err
	}
	entry.ClipID = clipID.String
	entry.Outcome = Outcome(outcome)
	entry.Error = errMessage.String
	entry.RecordedAt = parseTime(recordedRaw)
	return entry, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
