package pipeline

import (
	"bookload/domain"
	"bookload/source"
	"bookload/storage"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"iter"
	"log/slog"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Book_Name,Author,Pages,Language,Ratings,Total_Ratings,Price,Category\n"

func newStore(t *testing.T, batchSize int) (*storage.Loader, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Writer(ctx, path.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.CreateTables(ctx, db))

	loader, err := storage.NewLoader(ctx, storage.NewSession(db, batchSize))
	require.NoError(t, err)
	t.Cleanup(func() { loader.Close(ctx) })

	return loader, db
}

func records(input string) iter.Seq2[domain.RawRecord, error] {
	return source.Records(strings.NewReader(header+input), source.DefaultOptions)
}

func row(line int, cells ...string) domain.RawRecord {
	r, err := domain.ParseRecord(line, cells)
	if err != nil {
		panic(err)
	}
	return r
}

func books(t *testing.T, db *sql.DB) []domain.NormalizedBook {
	t.Helper()
	found, err := storage.ListBooks(context.Background(), db, 100)
	require.NoError(t, err)
	return found
}

func TestProcessLoadsBook(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)
	driver := New(store)

	outcome, err := driver.Process(ctx, row(2, "Dune", "Herbert", "412", "English", "4.8", "50,000", "9.99", "Sci-Fi"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)

	assert.Equal(t, []domain.NormalizedBook{{
		Name:         "Dune",
		Author:       "Herbert",
		Pages:        sql.NullInt64{Int64: 412, Valid: true},
		Language:     sql.NullString{String: "English", Valid: true},
		Rating:       sql.NullFloat64{Float64: 4.8, Valid: true},
		TotalRatings: 50000,
		Price:        sql.NullFloat64{Float64: 9.99, Valid: true},
		Category:     sql.NullString{String: "Sci-Fi", Valid: true},
	}}, books(t, db))

	stats, err := storage.CountStats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{Books: 1, Authors: 1, Languages: 1, Categories: 1}, stats)
}

func TestProcessInvalidNumerics(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)

	logs := &bytes.Buffer{}
	driver := New(store, WithLogger(slog.New(slog.NewTextHandler(logs, nil))))

	outcome, err := driver.Process(ctx, row(2, "Ghost", "", "abc", "", "9.9", "-5", "-1", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)

	assert.Equal(t, []domain.NormalizedBook{{
		Name:         "Ghost",
		Author:       domain.AnonymousAuthor,
		TotalRatings: 0,
	}}, books(t, db))

	stats, err := storage.CountStats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{Books: 1, Authors: 1}, stats)

	warnings := strings.Count(logs.String(), "level=WARN")
	assert.Equal(t, 7, warnings)
	for _, field := range []string{"author", "pages", "language", "rating", "total_ratings", "price", "category"} {
		assert.Contains(t, logs.String(), "field="+field)
	}
	assert.Contains(t, logs.String(), "line=2")
}

func TestProcessInadmissible(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)
	driver := New(store)

	outcome, err := driver.Process(ctx, row(2, "", "", "100", "English", "4", "1", "1", "Fiction"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInadmissible, outcome)

	stats, err := storage.CountStats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, storage.Stats{}, stats)
}

func TestProcessAdmission(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)
	driver := New(store)

	outcome, err := driver.Process(ctx, row(2, "", "Jane", "", "", "", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)

	outcome, err = driver.Process(ctx, row(3, "Book", "", "", "", "", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)

	assert.Len(t, books(t, db), 2)
}

func TestProcessDuplicateKeepsFirst(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)
	driver := New(store)

	outcome, err := driver.Process(ctx, row(2, "Dune", "Herbert", "412", "English", "4.8", "50,000", "9.99", "Sci-Fi"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)

	outcome, err = driver.Process(ctx, row(3, "Dune", "Herbert", "999", "French", "2", "1", "1", "Classic"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	stored := books(t, db)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(412), stored[0].Pages.Int64)

	// references of the dropped row are still upserted
	languages, err := storage.ReferenceValues(ctx, db, storage.Languages)
	require.NoError(t, err)
	assert.Equal(t, []string{"English", "French"}, languages)
}

func TestRunReport(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)

	events := []Event{}
	driver := New(store, WithObserver(func(e Event) { events = append(events, e) }))

	report, err := driver.Run(ctx, records(
		"Dune,Herbert,412,English,4.8,\"50,000\",9.99,Sci-Fi\n"+
			"Ghost,,abc,,9.9,-5,-1,\n"+
			",,,,,,,\n"+
			"Dune,Herbert,1,English,1,1,1,Sci-Fi\n",
	))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Read)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Inadmissible)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 7+1, report.FieldIssues)

	require.Len(t, events, 4)
	assert.Equal(t, []Outcome{OutcomeLoaded, OutcomeLoaded, OutcomeInadmissible, OutcomeDuplicate},
		[]Outcome{events[0].Outcome, events[1].Outcome, events[2].Outcome, events[3].Outcome})
	assert.Equal(t, 5, events[3].Line)

	assert.Len(t, books(t, db), 2)
}

func TestRunAbortsOnMalformedRow(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)
	driver := New(store)

	report, err := driver.Run(ctx, records(
		"Dune,Herbert,412,English,4.8,1,9.99,Sci-Fi\n"+
			"too,short\n"+
			"Emma,Austen,300,English,4,1,1,Classic\n",
	))

	var failure *RowFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 3, failure.Line)

	assert.Equal(t, 2, report.Read)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, books(t, db), 1)
}

func TestRunContinuesOnMalformedRow(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)
	driver := New(store, WithContinueOnError(true))

	report, err := driver.Run(ctx, records(
		"Dune,Herbert,412,English,4.8,1,9.99,Sci-Fi\n"+
			"too,short\n"+
			"Emma,Austen,300,English,4,1,1,Classic\n",
	))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Read)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 3, report.Failures[0].Line)
	assert.Len(t, books(t, db), 2)
}

func TestRunAbortsOnSourceFailure(t *testing.T) {
	store, _ := newStore(t, 0)
	driver := New(store, WithContinueOnError(true))

	broken := errors.New("disk went away")
	seq := func(yield func(domain.RawRecord, error) bool) {
		if !yield(row(2, "Dune", "Herbert", "", "", "", "", "", ""), nil) {
			return
		}
		yield(domain.RawRecord{}, broken)
	}

	report, err := driver.Run(context.Background(), seq)
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 1, report.Loaded)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	store, _ := newStore(t, 0)
	driver := New(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := driver.Run(ctx, records("Dune,Herbert,412,English,4.8,1,9.99,Sci-Fi\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Read)
}

func TestRunBatchedCommits(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 2)
	driver := New(store)

	report, err := driver.Run(ctx, records(
		"A,x,1,English,4,1,1,c\n"+
			"B,x,1,English,4,1,1,c\n"+
			"C,x,1,English,4,1,1,c\n",
	))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Loaded)

	require.NoError(t, store.Flush(ctx))
	assert.Len(t, books(t, db), 3)
}

type failingStore struct {
	fail      string
	err       error
	loaded    []string
	completed int
}

func (s *failingStore) check(op string) error {
	if s.fail == op {
		return s.err
	}
	return nil
}

func (s *failingStore) UpsertAuthor(ctx context.Context, name string) (bool, error) {
	return true, s.check("author")
}

func (s *failingStore) UpsertLanguage(ctx context.Context, language string) (bool, error) {
	return true, s.check("language")
}

func (s *failingStore) UpsertCategory(ctx context.Context, category string) (bool, error) {
	return true, s.check("category")
}

func (s *failingStore) LoadBook(ctx context.Context, book domain.NormalizedBook) (bool, error) {
	if err := s.check("book"); err != nil {
		return false, err
	}
	s.loaded = append(s.loaded, book.Name)
	return true, nil
}

func (s *failingStore) RecordDone(ctx context.Context) error {
	s.completed++
	return nil
}

func TestStorageFailureIsReturned(t *testing.T) {
	for _, op := range []string{"author", "language", "category", "book"} {
		t.Run(op, func(t *testing.T) {
			store := &failingStore{fail: op, err: errors.New("database is locked")}
			driver := New(store)

			outcome, err := driver.Process(context.Background(), row(2, "Dune", "Herbert", "412", "English", "4.8", "1", "9.99", "Sci-Fi"))
			assert.ErrorIs(t, err, store.err)
			assert.Equal(t, OutcomeFailed, outcome)
			assert.Empty(t, store.loaded)
			assert.Zero(t, store.completed)
		})
	}
}

func TestNullReferencesAreNotUpserted(t *testing.T) {
	store := &failingStore{fail: "language", err: errors.New("should not be called")}
	driver := New(store)

	outcome, err := driver.Process(context.Background(), row(2, "Dune", "Herbert", "412", "", "4.8", "1", "9.99", "Sci-Fi"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)
	assert.Equal(t, []string{"Dune"}, store.loaded)
	assert.Equal(t, 1, store.completed)
}

func TestRunContinuesOnStorageFailure(t *testing.T) {
	store := &failingStore{fail: "book", err: errors.New("disk full")}
	driver := New(store, WithContinueOnError(true))

	report, err := driver.Run(context.Background(), records(
		"A,x,1,English,4,1,1,c\n"+
			"B,x,1,English,4,1,1,c\n",
	))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Failures, 2)
	assert.ErrorIs(t, report.Failures[1], store.err)
	assert.Equal(t, 3, report.Failures[1].Line)
}

func TestNormalizerSeparator(t *testing.T) {
	store := &failingStore{}
	driver := New(store, WithNormalizer(domain.NewNormalizer('.')))

	_, err := driver.Process(context.Background(), row(2, "Dune", "Herbert", "1.412", "", "", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, store.loaded)
}

func TestReportLogValue(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	logger.Info("done", "report", &Report{Read: 3, Loaded: 2, Failed: 1})
	assert.Contains(t, logs.String(), "report.read=3 report.loaded=2")
	assert.Contains(t, logs.String(), "report.failed=1")
}

func TestRunCancelledBatchKeepsProcessedRows(t *testing.T) {
	store, db := newStore(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := New(store, WithObserver(func(Event) { cancel() }))

	report, err := driver.Run(ctx, records(
		"A,x,1,English,4,1,1,c\n"+
			"B,x,1,English,4,1,1,c\n",
	))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Loaded)

	require.NoError(t, store.Flush(context.WithoutCancel(ctx)))

	stored := books(t, db)
	require.Len(t, stored, 1)
	assert.Equal(t, "A", stored[0].Name)
}

func TestComposedAndDecomposedNamesAreOneBook(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t, 0)
	driver := New(store)

	outcome, err := driver.Process(ctx, row(2, "Cafe\u0301", "Herbert", "", "", "", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, outcome)

	outcome, err = driver.Process(ctx, row(3, "Caf\u00e9", "Herbert", "", "", "", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	stored := books(t, db)
	require.Len(t, stored, 1)
	assert.Equal(t, "Caf\u00e9", stored[0].Name)
}
