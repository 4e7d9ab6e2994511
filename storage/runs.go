package storage

import (
	"bookload/tracing"
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type ImportRun struct {
	ID       uuid.UUID
	File     string
	Started  time.Time
	Finished time.Time

	Read         int
	Loaded       int
	Duplicates   int
	Inadmissible int
	Failed       int
	FieldIssues  int

	Error string
}

func RecordImportRun(ctx context.Context, db *sql.DB, run ImportRun) error {
	ctx, span := tr.Start(ctx, "record_import_run")
	defer span.End()

	var failure sql.NullString
	if run.Error != "" {
		failure = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		insert into import_runs (id, file, started, finished, read, loaded, duplicates, inadmissible, failed, field_issues, error)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.File,
		run.Started.UTC().Format(time.RFC3339Nano),
		run.Finished.UTC().Format(time.RFC3339Nano),
		run.Read, run.Loaded, run.Duplicates, run.Inadmissible, run.Failed, run.FieldIssues,
		failure,
	)
	if err != nil {
		return tracing.Error(span, err)
	}

	return nil
}

func LatestImportRuns(ctx context.Context, reader Queryer, limit int) ([]ImportRun, error) {
	ctx, span := tr.Start(ctx, "latest_import_runs")
	defer span.End()

	rows, err := reader.QueryContext(ctx, `
		select id, file, started, finished, read, loaded, duplicates, inadmissible, failed, field_issues, error
		from import_runs
		order by started desc
		limit @limit`,
		sql.Named("limit", limit),
	)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	defer rows.Close()

	runs := []ImportRun{}
	for rows.Next() {
		var id, started, finished string
		var failure sql.NullString
		var run ImportRun

		if err := rows.Scan(&id, &run.File, &started, &finished, &run.Read, &run.Loaded, &run.Duplicates, &run.Inadmissible, &run.Failed, &run.FieldIssues, &failure); err != nil {
			return nil, tracing.Error(span, err)
		}

		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, tracing.Error(span, err)
		}
		if run.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, tracing.Error(span, err)
		}
		if run.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, tracing.Error(span, err)
		}
		run.Error = failure.String

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, tracing.Error(span, err)
	}
	return runs, nil
}
