package storage

import (
	"bookload/domain"
	"context"
	"database/sql"
	"fmt"
)

type InsertAction[T any] struct {
	Exec  func(ctx context.Context, data T) (bool, error)
	Close func(ctx context.Context) error
}

// Reference is the name of a lookup table holding distinct values.
type Reference string

const (
	Authors    Reference = "authors"
	Languages  Reference = "languages"
	Categories Reference = "categories"
)

func prepareUpsert(ctx context.Context, session *Session, table Reference) (*InsertAction[string], error) {

	query := fmt.Sprintf(`insert into %s (name) values (@name) on conflict(name) do nothing`, table)
	statement, err := session.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &InsertAction[string]{
		Exec: func(ctx context.Context, value string) (bool, error) {
			return session.exec(ctx, statement, sql.Named("name", value))
		},
		Close: func(ctx context.Context) error {
			return statement.Close()
		},
	}, nil
}

func prepareInsertBook(ctx context.Context, session *Session) (*InsertAction[domain.NormalizedBook], error) {

	statement, err := session.db.PrepareContext(ctx, `
		insert into books (name, author, pages, language, rating, total_ratings, price, category)
		values (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}

	return &InsertAction[domain.NormalizedBook]{
		Exec: func(ctx context.Context, b domain.NormalizedBook) (bool, error) {
			return session.exec(ctx, statement,
				b.Name, b.Author, b.Pages, b.Language, b.Rating, b.TotalRatings, b.Price, b.Category,
			)
		},
		Close: func(ctx context.Context) error {
			return statement.Close()
		},
	}, nil
}
