package storage

import (
	"bookload/tracing"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrIncompatibleSchema = errors.New("existing books table has an unsupported layout")

var bookColumnNames = []string{"name", "author", "pages", "language", "rating", "total_ratings", "price", "category"}

var tables = []string{
	`create table if not exists authors (
		name text not null primary key
	) STRICT`,
	`create table if not exists languages (
		name text not null primary key
	) STRICT`,
	`create table if not exists categories (
		name text not null primary key
	) STRICT`,
	`create table if not exists books (
		name text not null,
		author text not null references authors(name),
		pages integer,
		language text references languages(name),
		rating real,
		total_ratings integer not null default 0,
		price real,
		category text references categories(name),
		unique (name, author)
	) STRICT`,
	`create table if not exists import_runs (
		id text not null primary key,
		file text not null,
		started text not null,
		finished text not null,
		read integer not null,
		loaded integer not null,
		duplicates integer not null,
		inadmissible integer not null,
		failed integer not null,
		field_issues integer not null,
		error text
	) STRICT`,
}

// CreateTables creates the target schema if it does not exist yet. A books table created by
// another tool, such as one keyed on an author id, is rejected with ErrIncompatibleSchema.
func CreateTables(ctx context.Context, db *sql.DB) error {
	ctx, span := tr.Start(ctx, "create_tables")
	defer span.End()

	for _, statement := range tables {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return tracing.Error(span, err)
		}
	}

	if err := checkBooksTable(ctx, db); err != nil {
		return tracing.Error(span, err)
	}

	return nil
}

func checkBooksTable(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `select name from pragma_table_info('books')`)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range bookColumnNames {
		if !columns[name] {
			return fmt.Errorf("%w: no %s column", ErrIncompatibleSchema, name)
		}
	}

	return nil
}
