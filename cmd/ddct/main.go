package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"qpcrcli/internal/config"
	"qpcrcli/internal/dataprocessing"
	"qpcrcli/internal/ddct"
	apperrors "qpcrcli/internal/errors"
	"qpcrcli/internal/exporter"
	"qpcrcli/internal/infrastructure"
	"qpcrcli/internal/services"
	"qpcrcli/internal/validation"
	"qpcrcli/pkg/contracts"
	"qpcrcli/pkg/contracts/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cliFlags holds the parsed command line; defaults come from the config.
type cliFlags struct {
	input    string
	output   string
	dir      string
	format   string
	parallel int
	sheet    string

	control    string
	reference  string
	controlCol string
	refCol     string
	sampleCol  string
	cqCol      string
	wellCol    string

	caseSensitive  bool
	excludeRef     bool
	method         string
	threshold      float64
	minReps        int
	recordOutliers bool
	noFilter       bool

	version bool
}

func newFlagSet(a config.AnalysisConfig, f *cliFlags, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("ddct", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.input, "i", "", "input plate (.xlsx, .xlsm or .csv)")
	fs.StringVar(&f.output, "o", "", "output file; with -dir, the output directory (default: next to each input, suffixed _ddct)")
	fs.StringVar(&f.dir, "dir", "", "analyse every plate in this directory")
	fs.StringVar(&f.format, "format", a.OutputFormat, "output format: xlsx or csv")
	fs.IntVar(&f.parallel, "parallel", a.Parallel, "files analysed at once with -dir")
	fs.StringVar(&f.sheet, "sheet", a.Sheet, "sheet index or name")

	fs.StringVar(&f.control, "control", a.ControlPattern, "regex matching control samples")
	fs.StringVar(&f.reference, "ref", a.ReferencePattern, "regex matching the reference gene")
	fs.StringVar(&f.controlCol, "control-col", a.ControlColumn,
		"column searched by -control; the default fits exports with the biosample in \"Target\", use Sample when it sits in \"Sample\"")
	fs.StringVar(&f.refCol, "ref-col", a.ReferenceColumn,
		"column searched by -ref; the default fits exports with the gene in \"Sample\", use Target when it sits in \"Target\"")
	fs.StringVar(&f.sampleCol, "sample-col", a.SampleColumn, "column holding the sample label, usually the -control-col column")
	fs.StringVar(&f.cqCol, "cq-col", a.CqColumn, "column holding Cq values")
	fs.StringVar(&f.wellCol, "well-col", a.WellColumn, "column holding the well id")

	fs.BoolVar(&f.caseSensitive, "case-sensitive", a.CaseSensitive, "match patterns case-sensitively")
	fs.BoolVar(&f.excludeRef, "exclude-ref", a.ExcludeReference, "leave reference-gene rows out of the sample table")
	fs.StringVar(&f.method, "method", a.OutlierMethod, "outlier method: mad, iqr or zscore")
	fs.Float64Var(&f.threshold, "threshold", a.OutlierThreshold, "outlier threshold")
	fs.IntVar(&f.minReps, "min-reps", a.MinReps, "replicates always kept per group")
	fs.BoolVar(&f.recordOutliers, "record-outliers", a.RecordOutliers, "write the Outliers sheet")
	fs.BoolVar(&f.noFilter, "no-filter", !a.OutlierFilter, "disable outlier filtering")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	return fs
}

// options overlays the flags onto the engine defaults
func (f *cliFlags) options() (ddct.Options, error) {
	method, err := ddct.ParseMethod(f.method)
	if err != nil {
		return ddct.Options{}, err
	}
	opts := ddct.DefaultOptions()
	opts.ControlPattern = f.control
	opts.ReferencePattern = f.reference
	opts.Columns = ddct.Columns{
		Control:   f.controlCol,
		Reference: f.refCol,
		Sample:    f.sampleCol,
		Cq:        f.cqCol,
		Well:      f.wellCol,
	}
	opts.CaseSensitive = f.caseSensitive
	opts.ExcludeReferenceInSamples = f.excludeRef
	opts.OutlierFilter = !f.noFilter
	opts.OutlierMethod = method
	opts.OutlierThreshold = f.threshold
	opts.MinReps = f.minReps
	opts.RecordOutliers = f.recordOutliers
	return opts, opts.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", apperrors.NewConfigError("failed to load configuration", err))
		return 1
	}

	var f cliFlags
	fs := newFlagSet(cfg.Analysis, &f, stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if f.version {
		fmt.Fprintln(stdout, contracts.GetVersionString())
		return 0
	}

	if err := execute(ctx, cfg, &f, stdout); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg *config.Config, f *cliFlags, stdout io.Writer) error {
	if (f.input == "") == (f.dir == "") {
		return fmt.Errorf("exactly one of -i or -dir is required")
	}
	opts, err := f.options()
	if err != nil {
		return err
	}
	format, err := exporter.ParseFormat(f.format)
	if err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	// A one-shot process has nothing to scrape, so only tracing is kept
	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.EnableMetrics = false
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer providers.Shutdown(context.WithoutCancel(ctx))

	svc := services.NewAnalysisService(logger, providers.Tracer, nil).WithSource("cli")
	sheet := dataprocessing.ParseSheetSelector(f.sheet)

	if f.input != "" {
		rep, err := svc.AnalyzeFile(ctx, services.AnalyzeRequest{
			InputPath:  f.input,
			OutputPath: f.output,
			Sheet:      sheet,
			Format:     format,
			Options:    opts,
		})
		if err != nil {
			return err
		}
		printReport(stdout, rep)
		return nil
	}

	inputs, err := validation.NewFileValidator(logger).ListPlateFiles(f.dir)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w in %s", services.ErrNoInputFiles, f.dir)
	}

	reqs := make([]services.AnalyzeRequest, 0, len(inputs))
	for _, in := range inputs {
		req := services.AnalyzeRequest{InputPath: in, Sheet: sheet, Format: format, Options: opts}
		if f.output != "" {
			req.OutputPath = filepath.Join(f.output, filepath.Base(exporter.DefaultOutputPath(in, format)))
		}
		reqs = append(reqs, req)
	}

	items, err := svc.AnalyzeBatch(ctx, reqs, f.parallel)
	for _, it := range items {
		if it.Err != nil {
			fmt.Fprintf(stdout, "%s: FAILED: %v\n", it.Request.InputPath, it.Err)
			continue
		}
		if it.Report != nil {
			printReport(stdout, it.Report)
		}
	}
	if err != nil {
		logger.Warn("Batch finished with failures", slog.String("error", err.Error()))
	}
	return err
}

func printReport(w io.Writer, rep *domain.AnalysisReport) {
	fmt.Fprintf(w, "%s: %d wells, %d samples, %d rows dropped, %d outliers removed -> %s\n",
		rep.InputPath, rep.WellCount, rep.SampleCount, rep.RowsDropped, rep.OutliersRemoved, rep.OutputPath)
}
