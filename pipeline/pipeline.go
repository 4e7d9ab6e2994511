package pipeline

import (
	"bookload/domain"
	"bookload/source"
	"bookload/tracing"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tr = otel.Tracer("pipeline")

var ErrDuplicateBook = errors.New("book with this name and author is already loaded")

// Store persists admitted books. Every call is synchronous.
type Store interface {
	UpsertAuthor(ctx context.Context, name string) (bool, error)
	UpsertLanguage(ctx context.Context, language string) (bool, error)
	UpsertCategory(ctx context.Context, category string) (bool, error)
	LoadBook(ctx context.Context, book domain.NormalizedBook) (bool, error)
	RecordDone(ctx context.Context) error
}

type Outcome int

const (
	OutcomeLoaded Outcome = iota
	OutcomeDuplicate
	OutcomeInadmissible
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeInadmissible:
		return "inadmissible"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Event is sent to the observer once per input row.
type Event struct {
	Line    int
	Outcome Outcome
	Issues  int
	Err     error
}

type Option func(*Driver)

func WithNormalizer(n domain.Normalizer) Option {
	return func(d *Driver) { d.normalizer = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithContinueOnError keeps the run going past rows that fail to read or store.
func WithContinueOnError(enabled bool) Option {
	return func(d *Driver) { d.continueOnError = enabled }
}

func WithObserver(observe func(Event)) Option {
	return func(d *Driver) { d.observe = observe }
}

// Driver takes rows through normalization, admission and loading, one at a time and in
// input order.
type Driver struct {
	store           Store
	normalizer      domain.Normalizer
	logger          *slog.Logger
	continueOnError bool
	observe         func(Event)
}

func New(store Store, opts ...Option) *Driver {
	d := &Driver{
		store:      store,
		normalizer: domain.NewNormalizer(','),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		observe:    func(Event) {},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Process runs one record through the pipeline. Field problems are logged and never fail
// the record; only storage errors are returned.
func (d *Driver) Process(ctx context.Context, raw domain.RawRecord) (Outcome, error) {
	outcome, _, err := d.process(ctx, raw)
	return outcome, err
}

func (d *Driver) process(ctx context.Context, raw domain.RawRecord) (Outcome, int, error) {
	ctx, span := tr.Start(ctx, "process")
	defer span.End()

	span.SetAttributes(attribute.Int("line", raw.Line))

	name, author, issues := d.normalizer.Identity(raw)
	d.warnFields(ctx, raw.Line, issues)

	if err := domain.Admit(name, author); err != nil {
		d.logger.WarnContext(ctx, "skipping record", "line", raw.Line, "error", err)
		span.SetAttributes(attribute.String("outcome", OutcomeInadmissible.String()))
		return OutcomeInadmissible, len(issues), nil
	}

	book, details := d.normalizer.Details(raw, name, author)
	d.warnFields(ctx, raw.Line, details)
	issueCount := len(issues) + len(details)

	if err := d.upsertReferences(ctx, book); err != nil {
		return OutcomeFailed, issueCount, tracing.Error(span, err)
	}

	inserted, err := d.store.LoadBook(ctx, book)
	if err != nil {
		return OutcomeFailed, issueCount, tracing.Error(span, err)
	}

	if err := d.store.RecordDone(ctx); err != nil {
		return OutcomeFailed, issueCount, tracing.Error(span, err)
	}

	if !inserted {
		d.logger.WarnContext(ctx, "skipping record", "line", raw.Line, "name", book.Name, "author", book.Author, "error", ErrDuplicateBook)
		span.SetAttributes(attribute.String("outcome", OutcomeDuplicate.String()))
		return OutcomeDuplicate, issueCount, nil
	}

	d.logger.DebugContext(ctx, "loaded book", "line", raw.Line, "book", book)
	span.SetAttributes(attribute.String("outcome", OutcomeLoaded.String()))
	return OutcomeLoaded, issueCount, nil
}

func (d *Driver) upsertReferences(ctx context.Context, book domain.NormalizedBook) error {
	if _, err := d.store.UpsertAuthor(ctx, book.Author); err != nil {
		return err
	}

	if book.Language.Valid {
		if _, err := d.store.UpsertLanguage(ctx, book.Language.String); err != nil {
			return err
		}
	}

	if book.Category.Valid {
		if _, err := d.store.UpsertCategory(ctx, book.Category.String); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) warnFields(ctx context.Context, line int, issues []error) {
	for _, issue := range issues {
		var fieldErr *domain.FieldError
		if errors.As(issue, &fieldErr) {
			d.logger.WarnContext(ctx, "invalid field", "line", line, "field", fieldErr.Field, "value", fieldErr.Value, "error", fieldErr.Err)
			continue
		}
		d.logger.WarnContext(ctx, "invalid field", "line", line, "error", issue)
	}
}

// Run drains the records in order. Malformed rows and storage failures end the run unless
// the driver continues on error, in which case they are collected in the report. Any other
// error from the records ends the run regardless.
func (d *Driver) Run(ctx context.Context, records iter.Seq2[domain.RawRecord, error]) (*Report, error) {
	ctx, span := tr.Start(ctx, "run")
	defer span.End()

	report := &Report{}
	defer func() {
		span.SetAttributes(
			attribute.Int("read", report.Read),
			attribute.Int("loaded", report.Loaded),
			attribute.Int("failed", report.Failed),
		)
	}()

	for raw, err := range records {
		if err := ctx.Err(); err != nil {
			return report, tracing.Error(span, err)
		}

		report.Read++

		if err != nil {
			var rowErr *source.RowError
			if !errors.As(err, &rowErr) {
				return report, tracing.Error(span, err)
			}

			if err := d.fail(ctx, report, &RowFailure{Line: rowErr.Line, Err: rowErr.Err}); err != nil {
				return report, tracing.Error(span, err)
			}
			continue
		}

		outcome, issues, err := d.process(ctx, raw)
		report.FieldIssues += issues

		if err != nil {
			if err := d.fail(ctx, report, &RowFailure{Line: raw.Line, Err: err}); err != nil {
				return report, tracing.Error(span, err)
			}
			continue
		}

		report.count(outcome)
		d.observe(Event{Line: raw.Line, Outcome: outcome, Issues: issues})
	}

	if err := ctx.Err(); err != nil {
		return report, tracing.Error(span, err)
	}

	return report, nil
}

func (d *Driver) fail(ctx context.Context, report *Report, failure *RowFailure) error {
	report.Failed++
	report.Failures = append(report.Failures, failure)

	d.observe(Event{Line: failure.Line, Outcome: OutcomeFailed, Err: failure})

	if !d.continueOnError {
		return failure
	}

	d.logger.ErrorContext(ctx, "row failed", "line", failure.Line, "error", failure.Err)
	return nil
}
