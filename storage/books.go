package storage

import (
	"bookload/domain"
	"bookload/tracing"
	"context"
	"database/sql"
	"fmt"
)

const bookColumns = `name, author, pages, language, rating, total_ratings, price, category`

func ListBooks(ctx context.Context, reader Queryer, limit int) ([]domain.NormalizedBook, error) {
	ctx, span := tr.Start(ctx, "list_books")
	defer span.End()

	rows, err := reader.QueryContext(ctx, `select `+bookColumns+` from books order by name, author limit @limit`, sql.Named("limit", limit))
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	books, err := scanBooks(rows)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	return books, nil
}

// FindBooks matches the term against book names and authors.
func FindBooks(ctx context.Context, reader Queryer, term string) ([]domain.NormalizedBook, error) {
	ctx, span := tr.Start(ctx, "find_books")
	defer span.End()

	rows, err := reader.QueryContext(ctx, `
		select `+bookColumns+`
		from books
		where name like @term or author like @term
		order by name, author`,
		sql.Named("term", "%"+term+"%"),
	)
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	books, err := scanBooks(rows)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	return books, nil
}

func scanBooks(rows *sql.Rows) ([]domain.NormalizedBook, error) {
	defer rows.Close()

	books := []domain.NormalizedBook{}
	for rows.Next() {
		var b domain.NormalizedBook
		if err := rows.Scan(&b.Name, &b.Author, &b.Pages, &b.Language, &b.Rating, &b.TotalRatings, &b.Price, &b.Category); err != nil {
			return nil, err
		}
		books = append(books, b)
	}

	return books, rows.Err()
}

// ReferenceValues returns the distinct values held in a lookup table.
func ReferenceValues(ctx context.Context, reader Queryer, table Reference) ([]string, error) {
	ctx, span := tr.Start(ctx, "reference_values")
	defer span.End()

	rows, err := reader.QueryContext(ctx, fmt.Sprintf(`select name from %s order by name`, table))
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, tracing.Error(span, err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, tracing.Error(span, err)
	}
	return values, nil
}

type Stats struct {
	Books      int
	Authors    int
	Languages  int
	Categories int
}

func CountStats(ctx context.Context, reader Queryer) (Stats, error) {
	ctx, span := tr.Start(ctx, "count_stats")
	defer span.End()

	var s Stats
	err := reader.QueryRowContext(ctx, `
		select
			(select count(*) from books),
			(select count(*) from authors),
			(select count(*) from languages),
			(select count(*) from categories)`,
	).Scan(&s.Books, &s.Authors, &s.Languages, &s.Categories)
	if err != nil {
		return Stats{}, tracing.Error(span, err)
	}

	return s, nil
}
