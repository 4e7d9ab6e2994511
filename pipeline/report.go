package pipeline

import (
	"fmt"
	"log/slog"
)

// RowFailure is a row that could not be read or stored.
type RowFailure struct {
	Line int
	Err  error
}

func (f *RowFailure) Error() string {
	return fmt.Sprintf("row at line %d: %s", f.Line, f.Err)
}

func (f *RowFailure) Unwrap() error {
	return f.Err
}

type Report struct {
	Read         int
	Loaded       int
	Duplicates   int
	Inadmissible int
	Failed       int
	FieldIssues  int

	Failures []*RowFailure
}

func (r *Report) count(outcome Outcome) {
	switch outcome {
	case OutcomeLoaded:
		r.Loaded++
	case OutcomeDuplicate:
		r.Duplicates++
	case OutcomeInadmissible:
		r.Inadmissible++
	}
}

func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("read", r.Read),
		slog.Int("loaded", r.Loaded),
		slog.Int("duplicates", r.Duplicates),
		slog.Int("inadmissible", r.Inadmissible),
		slog.Int("failed", r.Failed),
		slog.Int("field_issues", r.FieldIssues),
	)
}
