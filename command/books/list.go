package books

import (
	"bookload/config"
	"bookload/storage"
	"bookload/tracing"
	"context"
	"fmt"

	"github.com/spf13/pflag"
)

func NewListCommand() *ListCommand {
	return &ListCommand{}
}

type ListCommand struct {
	statsOnly bool
	limit     int
}

func (c *ListCommand) Synopsis() string {
	return "list the loaded books"
}

func (c *ListCommand) Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flags.BoolVar(&c.statsOnly, "stats", false, "print some stats and exit")
	flags.IntVar(&c.limit, "limit", 50, "maximum number of books to print")
	return flags
}

func (c *ListCommand) Execute(ctx context.Context, config *config.Config, args []string) error {
	ctx, span := tr.Start(ctx, "execute")
	defer span.End()

	reader, err := storage.Reader(ctx, config.DatabaseFile)
	if err != nil {
		return tracing.Error(span, err)
	}
	defer reader.Close()

	if err := c.printStats(ctx, reader); err != nil {
		return tracing.Error(span, err)
	}
	if c.statsOnly {
		return nil
	}

	books, err := storage.ListBooks(ctx, reader, c.limit)
	if err != nil {
		return tracing.Error(span, err)
	}

	fmt.Println()
	fmt.Println(formatBooks(books))

	return nil
}

func (c *ListCommand) printStats(ctx context.Context, reader storage.Queryer) error {
	stats, err := storage.CountStats(ctx, reader)
	if err != nil {
		return err
	}

	fmt.Printf("Total books: %v (%v authors, %v languages, %v categories)\n", stats.Books, stats.Authors, stats.Languages, stats.Categories)

	runs, err := storage.LatestImportRuns(ctx, reader, 1)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		return nil
	}

	run := runs[0]
	fmt.Printf("Last import: %s from %s, %v read, %v loaded, %v duplicates, %v dropped, %v failed\n",
		run.Finished.Local().Format("2006-01-02 15:04"),
		run.File,
		run.Read, run.Loaded, run.Duplicates, run.Inadmissible, run.Failed,
	)
	if run.Error != "" {
		fmt.Printf("Last import failed: %s\n", run.Error)
	}

	return nil
}
