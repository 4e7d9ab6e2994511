package storage

import (
	"bookload/domain"
	"bookload/tracing"
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel/attribute"
)

// Loader writes normalized books and their reference values through a Session.
type Loader struct {
	session *Session

	authors    *InsertAction[string]
	languages  *InsertAction[string]
	categories *InsertAction[string]
	books      *InsertAction[domain.NormalizedBook]
	findBook   *sql.Stmt
}

func NewLoader(ctx context.Context, session *Session) (*Loader, error) {
	ctx, span := tr.Start(ctx, "new_loader")
	defer span.End()

	l := &Loader{session: session}

	var err error
	if l.authors, err = prepareUpsert(ctx, session, Authors); err != nil {
		return nil, tracing.Error(span, err)
	}
	if l.languages, err = prepareUpsert(ctx, session, Languages); err != nil {
		l.Close(ctx)
		return nil, tracing.Error(span, err)
	}
	if l.categories, err = prepareUpsert(ctx, session, Categories); err != nil {
		l.Close(ctx)
		return nil, tracing.Error(span, err)
	}
	if l.books, err = prepareInsertBook(ctx, session); err != nil {
		l.Close(ctx)
		return nil, tracing.Error(span, err)
	}
	if l.findBook, err = session.db.PrepareContext(ctx, `select 1 from books where name = @name and author = @author`); err != nil {
		l.Close(ctx)
		return nil, tracing.Error(span, err)
	}

	return l, nil
}

func (l *Loader) UpsertAuthor(ctx context.Context, name string) (bool, error) {
	return l.upsert(ctx, Authors, l.authors, name)
}

func (l *Loader) UpsertLanguage(ctx context.Context, language string) (bool, error) {
	return l.upsert(ctx, Languages, l.languages, language)
}

func (l *Loader) UpsertCategory(ctx context.Context, category string) (bool, error) {
	return l.upsert(ctx, Categories, l.categories, category)
}

func (l *Loader) upsert(ctx context.Context, table Reference, action *InsertAction[string], value string) (bool, error) {
	ctx, span := tr.Start(ctx, "upsert_"+string(table))
	defer span.End()

	inserted, err := action.Exec(ctx, value)
	if err != nil {
		return false, tracing.Errorf(span, "upsert %s %q: %w", table, value, err)
	}

	span.SetAttributes(attribute.Bool("inserted", inserted))
	return inserted, nil
}

func (l *Loader) BookExists(ctx context.Context, name, author string) (bool, error) {
	ctx, span := tr.Start(ctx, "book_exists")
	defer span.End()

	row, err := l.session.queryRow(ctx, l.findBook, sql.Named("name", name), sql.Named("author", author))
	if err != nil {
		return false, tracing.Error(span, err)
	}

	var found int
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, tracing.Error(span, err)
	}

	return true, nil
}

func (l *Loader) InsertBook(ctx context.Context, book domain.NormalizedBook) error {
	ctx, span := tr.Start(ctx, "insert_book")
	defer span.End()

	if _, err := l.books.Exec(ctx, book); err != nil {
		return tracing.Errorf(span, "insert book %q by %q: %w", book.Name, book.Author, err)
	}

	return nil
}

// LoadBook inserts the book unless one with the same name and author is already stored.
// Existing rows are left untouched.
func (l *Loader) LoadBook(ctx context.Context, book domain.NormalizedBook) (bool, error) {
	ctx, span := tr.Start(ctx, "load_book")
	defer span.End()

	exists, err := l.BookExists(ctx, book.Name, book.Author)
	if err != nil {
		return false, tracing.Error(span, err)
	}
	span.SetAttributes(attribute.Bool("duplicate", exists))

	if exists {
		return false, nil
	}

	if err := l.InsertBook(ctx, book); err != nil {
		return false, tracing.Error(span, err)
	}

	return true, nil
}

func (l *Loader) RecordDone(ctx context.Context) error {
	return l.session.RecordDone(ctx)
}

func (l *Loader) Flush(ctx context.Context) error {
	return l.session.Flush(ctx)
}

func (l *Loader) Rollback() error {
	return l.session.Rollback()
}

func (l *Loader) Close(ctx context.Context) error {
	var errs []error

	for _, action := range []*InsertAction[string]{l.authors, l.languages, l.categories} {
		if action != nil {
			errs = append(errs, action.Close(ctx))
		}
	}
	if l.books != nil {
		errs = append(errs, l.books.Close(ctx))
	}
	if l.findBook != nil {
		errs = append(errs, l.findBook.Close())
	}

	return errors.Join(errs...)
}
