package books

import (
	"bookload/config"
	"bookload/storage"
	"bookload/tracing"
	"context"
	"fmt"

	"github.com/spf13/pflag"
)

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{}
}

type SearchCommand struct {
}

func (c *SearchCommand) Synopsis() string {
	return "search loaded books by name or author"
}

func (c *SearchCommand) Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("search", pflag.ContinueOnError)
	return flags
}

func (c *SearchCommand) Execute(ctx context.Context, config *config.Config, args []string) error {
	ctx, span := tr.Start(ctx, "execute")
	defer span.End()

	if len(args) != 1 {
		return tracing.Errorf(span, "this command expects 1 argument, but received %d", len(args))
	}

	searchTerm := args[0]

	reader, err := storage.Reader(ctx, config.DatabaseFile)
	if err != nil {
		return tracing.Error(span, err)
	}
	defer reader.Close()

	books, err := storage.FindBooks(ctx, reader, searchTerm)
	if err != nil {
		return tracing.Error(span, err)
	}

	fmt.Println(formatBooks(books))

	return nil
}
