package storage

import (
	"bookload/tracing"
	"context"
	"database/sql"
	"net/url"
	"os"
	"path"
	"runtime"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	_ "github.com/mattn/go-sqlite3"
)

var tr = otel.Tracer("storage")

// Writer opens the database for the import. sqlite allows one writer, so the pool has a
// single connection.
func Writer(ctx context.Context, dbPath string) (*sql.DB, error) {
	ctx, span := tr.Start(ctx, "open_writer")
	defer span.End()

	span.SetAttributes(attribute.String("db.path", dbPath))

	dir := path.Dir(dbPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, tracing.Error(span, err)
	}

	db, err := open(dbPath)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	db.SetMaxOpenConns(1)

	if err := withPragmas(ctx, db); err != nil {
		db.Close()
		return nil, tracing.Error(span, err)
	}

	return db, nil
}

func Reader(ctx context.Context, dbPath string) (*sql.DB, error) {
	ctx, span := tr.Start(ctx, "open_reader")
	defer span.End()

	span.SetAttributes(attribute.String("db.path", dbPath))

	if _, err := os.Stat(dbPath); err != nil {
		return nil, tracing.Error(span, err)
	}

	db, err := open(dbPath)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	db.SetMaxOpenConns(max(4, runtime.NumCPU()))

	if err := withPragmas(ctx, db); err != nil {
		db.Close()
		return nil, tracing.Error(span, err)
	}

	return db, nil
}

func open(dbPath string) (*sql.DB, error) {
	return otelsql.Open("sqlite3", connectionString(dbPath),
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
	)
}

func connectionString(filepath string) string {

	conn := url.Values{}
	conn.Add("_txlock", "immediate")
	conn.Add("_journal_mode", "WAL")
	conn.Add("_busy_timeout", "5000")
	conn.Add("_synchronous", "NORMAL")
	conn.Add("_foreign_keys", "true")

	return "file:" + filepath + "?" + conn.Encode()
}

func withPragmas(ctx context.Context, db *sql.DB) error {

	if _, err := db.ExecContext(ctx, `PRAGMA temp_store = memory`); err != nil {
		return err
	}

	return nil
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
