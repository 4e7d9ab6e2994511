package schema

import (
	"bookload/config"
	"bookload/storage"
	"bookload/tracing"
	"context"
	"log/slog"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tr = otel.Tracer("command.schema")

func NewCreateCommand() *CreateCommand {
	return &CreateCommand{}
}

type CreateCommand struct {
}

func (c *CreateCommand) Synopsis() string {
	return "create the books, reference and import run tables"
}

func (c *CreateCommand) Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("schema.create", pflag.ContinueOnError)
	return flags
}

func (c *CreateCommand) Execute(ctx context.Context, config *config.Config, args []string) error {
	ctx, span := tr.Start(ctx, "execute")
	defer span.End()

	span.SetAttributes(attribute.String("db.path", config.DatabaseFile))

	db, err := storage.Writer(ctx, config.DatabaseFile)
	if err != nil {
		return tracing.Error(span, err)
	}
	defer db.Close()

	if err := storage.CreateTables(ctx, db); err != nil {
		return tracing.Error(span, err)
	}

	slog.InfoContext(ctx, "schema created", "database", config.DatabaseFile)
	return nil
}
