package import_books

import (
	"bookload/config"
	"bookload/domain"
	"bookload/pipeline"
	"bookload/source"
	"bookload/storage"
	"bookload/tracing"
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	tea "github.com/charmbracelet/bubbletea"
)

var tr = otel.Tracer("command.import")

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

type ImportCommand struct {
	progress   bool
	watch      bool
	lazyQuotes bool
}

func (c *ImportCommand) Synopsis() string {
	return "import a books csv into the database"
}

func (c *ImportCommand) Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("import", pflag.ContinueOnError)
	flags.String("file-name", config.DefaultInputFile, "csv file to import, when not given as an argument")
	flags.Int("batch-size", 0, "records per transaction, 0 commits every write")
	flags.Bool("continue-on-error", false, "record failing rows and carry on")
	flags.String("thousands-separator", ",", "grouping separator removed from numbers")
	flags.String("delimiter", ",", "csv field delimiter")
	flags.BoolVar(&c.lazyQuotes, "lazy-quotes", false, "allow quotes inside unquoted fields")
	flags.BoolVar(&c.progress, "progress", false, "show a progress bar instead of log output")
	flags.BoolVar(&c.watch, "watch", false, "import again whenever the file changes")
	return flags
}

func (c *ImportCommand) Execute(ctx context.Context, config *config.Config, args []string) error {
	ctx, span := tr.Start(ctx, "execute")
	defer span.End()

	if len(args) > 1 {
		return tracing.Errorf(span, "this command takes at most one argument: source file")
	}

	sourceFile := config.InputFile
	if len(args) == 1 {
		sourceFile = args[0]
	}
	span.SetAttributes(attribute.String("source.file", sourceFile))

	if c.watch {
		return c.watchFile(ctx, config, sourceFile)
	}

	if c.progress {
		return c.importWithProgress(ctx, config, sourceFile)
	}

	if _, err := c.importFile(ctx, config, sourceFile, slog.Default()); err != nil {
		return tracing.Error(span, err)
	}

	return nil
}

// importWithProgress runs the import behind the progress view. Quitting the view cancels
// the import, and the import's result is always waited for.
func (c *ImportCommand) importWithProgress(ctx context.Context, config *config.Config, sourceFile string, opts ...tea.ProgramOption) error {
	ctx, span := tr.Start(ctx, "import_with_progress")
	defer span.End()

	lines, err := source.CountLines(sourceFile)
	if err != nil {
		return tracing.Error(span, err)
	}

	importCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(max(lines-1, 0), cancel)
	prg := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	imported := make(chan error, 1)
	go func() {
		report, err := c.importFile(importCtx, config, sourceFile, slog.New(slog.DiscardHandler), pipeline.WithObserver(func(e pipeline.Event) {
			prg.Send(recordProcessed{event: e})
		}))
		imported <- err
		prg.Send(fileImported{report: report, err: err})
	}()

	_, runErr := prg.Run()
	cancel()

	if err := errors.Join(<-imported, runErr); err != nil {
		return tracing.Error(span, err)
	}

	return nil
}

func (c *ImportCommand) importFile(ctx context.Context, config *config.Config, sourceFile string, logger *slog.Logger, opts ...pipeline.Option) (*pipeline.Report, error) {
	ctx, span := tr.Start(ctx, "import_file")
	defer span.End()

	runID := uuid.New()
	span.SetAttributes(attribute.String("run.id", runID.String()))
	logger = logger.With("run", runID.String())

	f, err := os.Open(sourceFile)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	defer f.Close()

	writer, err := storage.Writer(ctx, config.DatabaseFile)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	defer writer.Close()

	if err := storage.CreateTables(ctx, writer); err != nil {
		return nil, tracing.Error(span, err)
	}

	loader, err := storage.NewLoader(ctx, storage.NewSession(writer, config.BatchSize))
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	defer loader.Close(ctx)
	defer loader.Rollback()

	options := append([]pipeline.Option{
		pipeline.WithNormalizer(domain.NewNormalizer(config.SeparatorRune())),
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(config.ContinueOnError),
	}, opts...)
	driver := pipeline.New(loader, options...)

	logger.InfoContext(ctx, "importing", "file", sourceFile, "database", config.DatabaseFile, "batch_size", config.BatchSize)

	started := time.Now()
	records := source.Records(f, source.Options{Delimiter: config.DelimiterRune(), LazyQuotes: c.lazyQuotes})
	report, runErr := driver.Run(ctx, records)

	// rows processed before a failure are kept
	flushErr := loader.Flush(context.WithoutCancel(ctx))
	err = errors.Join(runErr, flushErr)

	run := storage.ImportRun{
		ID:           runID,
		File:         sourceFile,
		Started:      started,
		Finished:     time.Now(),
		Read:         report.Read,
		Loaded:       report.Loaded,
		Duplicates:   report.Duplicates,
		Inadmissible: report.Inadmissible,
		Failed:       report.Failed,
		FieldIssues:  report.FieldIssues,
	}
	if err != nil {
		run.Error = err.Error()
	}

	if recordErr := storage.RecordImportRun(context.WithoutCancel(ctx), writer, run); recordErr != nil {
		logger.ErrorContext(ctx, "unable to record import run", "error", recordErr)
	}

	if err != nil {
		logger.ErrorContext(ctx, "import failed", "report", report, "error", err)
		return report, tracing.Error(span, err)
	}

	if report.Failed > 0 {
		logger.WarnContext(ctx, "import finished with failed rows", "report", report)
	} else {
		logger.InfoContext(ctx, "import finished", "report", report)
	}

	return report, nil
}
