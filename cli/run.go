package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/nroldan/ventas/aggregate"
	"github.com/nroldan/ventas/export"
	"github.com/nroldan/ventas/loader"
	"github.com/nroldan/ventas/output"
	"github.com/nroldan/ventas/pipeline"
	"github.com/nroldan/ventas/report"
	"github.com/nroldan/ventas/schema"
	"github.com/nroldan/ventas/telemetry"
)

type RunCmd struct {
	File      string `help:"Input CSV or XLSX file." arg:"" type:"existingfile"`
	Output    string `help:"Output workbook path." short:"o" default:"reportes/reporte.xlsx"`
	PDF       string `help:"Output PDF path." default:"reportes/reporte.pdf"`
	Config    string `help:"YAML configuration file (defaults are used when omitted)." short:"c" optional:""`
	Delimiter string `help:"Force the CSV delimiter instead of sniffing." optional:""`
	Workers   int    `help:"Parallel workers for per-record stages." default:"1"`
	Force     bool   `help:"Overwrite existing outputs without confirmation." short:"f"`
	Quiet     bool   `help:"Skip the terminal summary tables." short:"q"`
}

func (cmd *RunCmd) Run(ctx *kong.Context, globals *Globals) error {
	cfg, err := loadConfig(cmd.Config)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(1)
	}

	ok, err := confirmOverwrite(ctx, cmd.Force, cmd.Output, cmd.PDF)
	if err != nil {
		return err
	}
	if !ok {
		printInfof(ctx.Stdout, "Aborted, outputs left untouched")
		return nil
	}

	runCtx := context.Background()

	var collector telemetry.Collector
	if globals.Telemetry {
		collector = telemetry.NewStageCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)
		defer func() {
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		}()
	}

	model, err := runBatch(runCtx, cfg, cmd.File, cmd.Delimiter, cmd.Workers)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(1)
	}

	if err := export.WriteWorkbook(runCtx, model, cmd.Output); err != nil {
		return err
	}
	if err := export.WritePDF(runCtx, model, cmd.PDF); err != nil {
		return err
	}

	if !cmd.Quiet {
		styles := output.NewStyles(output.IsTerminal())
		for _, table := range model.Tables {
			_, _ = fmt.Fprintln(ctx.Stdout)
			output.RenderTable(ctx.Stdout, table, styles)
		}
		_, _ = fmt.Fprintln(ctx.Stdout)
	}

	printInfof(ctx.Stdout, "%d rows: %d accepted, %d rejected (%d duplicates)",
		model.Meta.RowsOriginal, model.Meta.Accepted, model.Meta.Rejected, model.Meta.Duplicates)
	if len(model.Meta.UnmappedColumns) > 0 {
		printInfof(ctx.Stdout, "Unmapped columns: %v", model.Meta.UnmappedColumns)
	}
	printSuccess(ctx.Stdout, fmt.Sprintf("Workbook written to %s", pathStyle.Render(cmd.Output)))
	printSuccess(ctx.Stdout, fmt.Sprintf("PDF written to %s", pathStyle.Render(cmd.PDF)))

	return nil
}

// runBatch executes one full batch: load, pipeline, aggregate, build model.
// Shared between run and watch.
func runBatch(ctx context.Context, cfg *schema.Config, file, delimiter string, workers int) (*report.Model, error) {
	var loaderOpts []loader.Option
	if delimiter != "" {
		loaderOpts = append(loaderOpts, loader.WithDelimiter([]rune(delimiter)[0]))
	}

	batch, err := loader.New(loaderOpts...).Load(ctx, file)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(cfg, pipeline.WithWorkers(workers))
	if err != nil {
		return nil, err
	}
	ds, err := p.Process(ctx, batch.Rows)
	if err != nil {
		return nil, err
	}

	agg, err := aggregate.New(cfg)
	if err != nil {
		return nil, err
	}
	result := agg.Aggregate(ctx, ds)

	return report.Build(ds, result, batch.Name, time.Now())
}
