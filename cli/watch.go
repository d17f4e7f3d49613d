package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"

	"github.com/nroldan/ventas/export"
	"github.com/nroldan/ventas/schema"
)

// debounceWindow absorbs the burst of write events editors and spreadsheet
// applications emit while saving a file.
const debounceWindow = 250 * time.Millisecond

type WatchCmd struct {
	File      string `help:"Input CSV or XLSX file." arg:"" type:"existingfile"`
	Output    string `help:"Output workbook path." short:"o" default:"reportes/reporte.xlsx"`
	PDF       string `help:"Output PDF path." default:"reportes/reporte.pdf"`
	Config    string `help:"YAML configuration file (defaults are used when omitted)." short:"c" optional:""`
	Delimiter string `help:"Force the CSV delimiter instead of sniffing." optional:""`
	Workers   int    `help:"Parallel workers for per-record stages." default:"1"`
}

func (cmd *WatchCmd) Run(ctx *kong.Context, globals *Globals) error {
	cfg, err := loadConfig(cmd.Config)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(1)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself: most editors replace
	// the file on save, which would detach a file-level watch.
	dir := filepath.Dir(cmd.File)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target, err := filepath.Abs(cmd.File)
	if err != nil {
		return err
	}

	cmd.rebuild(ctx, cfg)
	printInfof(ctx.Stdout, "Watching %s, press Ctrl+C to stop", pathStyle.Render(cmd.File))

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			cmd.rebuild(ctx, cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(ctx.Stderr, err.Error())
		}
	}
}

// rebuild runs one batch and rewrites both artifacts. Failures are reported
// but never stop the watch loop, a half-saved file simply produces another
// event once the save completes.
func (cmd *WatchCmd) rebuild(ctx *kong.Context, cfg *schema.Config) {
	started := time.Now()

	model, err := runBatch(context.Background(), cfg, cmd.File, cmd.Delimiter, cmd.Workers)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return
	}

	if err := export.WriteWorkbook(context.Background(), model, cmd.Output); err != nil {
		printError(ctx.Stderr, err.Error())
		return
	}
	if err := export.WritePDF(context.Background(), model, cmd.PDF); err != nil {
		printError(ctx.Stderr, err.Error())
		return
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("%d rows processed in %s, %d accepted, %d rejected",
		model.Meta.RowsOriginal, time.Since(started).Round(time.Millisecond), model.Meta.Accepted, model.Meta.Rejected))
}
