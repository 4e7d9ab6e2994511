package storage

import (
	"bookload/tracing"
	"context"
	"database/sql"
	"errors"
)

// Session decides when writes are committed. With a batch size of zero every statement
// commits on its own; otherwise a transaction is opened on the first write and committed
// once batchSize records have finished.
type Session struct {
	db        *sql.DB
	batchSize int

	tx      *sql.Tx
	pending int
	commits int
}

func NewSession(db *sql.DB, batchSize int) *Session {
	return &Session{db: db, batchSize: max(batchSize, 0)}
}

// Commits reports how many batch transactions have been committed.
func (s *Session) Commits() int { return s.commits }

func (s *Session) begin(ctx context.Context) error {
	if s.batchSize == 0 || s.tx != nil {
		return nil
	}

	// the transaction outlives a cancelled record context so Flush can still commit it
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return err
	}

	s.tx = tx
	return nil
}

func (s *Session) statement(ctx context.Context, stmt *sql.Stmt) *sql.Stmt {
	if s.tx != nil {
		return s.tx.StmtContext(ctx, stmt)
	}
	return stmt
}

func (s *Session) exec(ctx context.Context, stmt *sql.Stmt, args ...any) (bool, error) {
	if err := s.begin(ctx); err != nil {
		return false, err
	}

	result, err := s.statement(ctx, stmt).ExecContext(ctx, args...)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (s *Session) queryRow(ctx context.Context, stmt *sql.Stmt, args ...any) (*sql.Row, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	return s.statement(ctx, stmt).QueryRowContext(ctx, args...), nil
}

// RecordDone marks the end of one record's writes and commits once the batch is full.
func (s *Session) RecordDone(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}

	s.pending++
	if s.pending < s.batchSize {
		return nil
	}

	return s.Flush(ctx)
}

// Flush commits any open transaction.
func (s *Session) Flush(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}

	_, span := tr.Start(ctx, "commit")
	defer span.End()

	tx := s.tx
	s.tx = nil
	s.pending = 0

	if err := tx.Commit(); err != nil {
		return tracing.Error(span, err)
	}

	s.commits++
	return nil
}

// Rollback discards any open transaction.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}

	tx := s.tx
	s.tx = nil
	s.pending = 0

	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
