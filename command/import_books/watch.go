package import_books

import (
	"bookload/config"
	"bookload/tracing"
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the source must stay quiet after a change before it is imported again.
const settle = 500 * time.Millisecond

// watchFile imports the source once and then again after each change, until the context
// is cancelled. Re-importing is safe as stored books are never duplicated.
func (c *ImportCommand) watchFile(ctx context.Context, config *config.Config, sourceFile string) error {
	ctx, span := tr.Start(ctx, "watch_file")
	defer span.End()

	sourceFile, err := filepath.Abs(sourceFile)
	if err != nil {
		return tracing.Error(span, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return tracing.Error(span, err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch the directory rather than the file itself
	if err := watcher.Add(filepath.Dir(sourceFile)); err != nil {
		return tracing.Error(span, err)
	}

	logger := slog.Default().With("file", sourceFile)
	run := func() {
		if _, err := c.importFile(ctx, config, sourceFile, slog.Default()); err != nil {
			logger.ErrorContext(ctx, "import failed", "error", err)
		}
	}

	run()
	logger.InfoContext(ctx, "watching for changes")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isChange(event, sourceFile) {
				continue
			}

			logger.DebugContext(ctx, "source changed", "op", event.Op.String())
			pending = time.After(settle)

		case <-pending:
			pending = nil
			logger.InfoContext(ctx, "source changed, importing again")
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.ErrorContext(ctx, "watcher error", "error", tracing.Error(span, err))
		}
	}
}

func isChange(event fsnotify.Event, sourceFile string) bool {
	if filepath.Clean(event.Name) != sourceFile {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}
