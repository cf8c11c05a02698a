package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"qpcrcli/internal/dataprocessing"
	"qpcrcli/internal/ddct"
	apperrors "qpcrcli/internal/errors"
	"qpcrcli/internal/exporter"
	"qpcrcli/internal/infrastructure"
	"qpcrcli/internal/validation"
	"qpcrcli/pkg/contracts/domain"
)

// Stage names used for spans and the stage-duration metric
const (
	StageRead    = "read"
	StageAnalyze = "analyze"
	StageExport  = "export"
)

// AnalyzeRequest describes one file-to-file analysis.
type AnalyzeRequest struct {
	InputPath string
	// OutputPath defaults to exporter.DefaultOutputPath(InputPath, Format).
	OutputPath string
	Sheet      dataprocessing.SheetSelector
	Format     exporter.Format
	Options    ddct.Options
}

// UploadRequest describes an in-memory analysis of an uploaded plate.
type UploadRequest struct {
	Reader  io.Reader
	Name    string
	Sheet   dataprocessing.SheetSelector
	Options ddct.Options
	// SkipWorkbook leaves UploadResult.Workbook empty.
	SkipWorkbook bool
}

// UploadResult is the outcome of AnalyzeUpload.
type UploadResult struct {
	Report   domain.AnalysisReport
	Result   *ddct.Result
	Workbook []byte
}

// BatchItem is the outcome of one file of a batch.
type BatchItem struct {
	Request AnalyzeRequest
	Report  *domain.AnalysisReport
	Err     error
}

// AnalysisService runs plates through the ΔΔCt pipeline and persists the tables.
type AnalysisService struct {
	logger  *slog.Logger
	files   *validation.FileValidator
	tracer  trace.Tracer
	metrics *infrastructure.AnalysisMetrics
	source  string
}

// NewAnalysisService creates the service. tracer and metrics may be nil.
func NewAnalysisService(logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.AnalysisMetrics) *AnalysisService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}
	return &AnalysisService{
		logger:  infrastructure.WithComponent(logger, "analysis_service"),
		files:   validation.NewFileValidator(logger),
		tracer:  tracer,
		metrics: metrics,
		source:  "cli",
	}
}

// WithSource returns a copy that labels its metrics with source (cli, http).
func (s *AnalysisService) WithSource(source string) *AnalysisService {
	c := *s
	c.source = source
	return &c
}

// AnalyzeFile reads one plate file, runs the pipeline and writes the tables.
// On failure nothing is written.
func (s *AnalysisService) AnalyzeFile(ctx context.Context, req AnalyzeRequest) (*domain.AnalysisReport, error) {
	return s.analyzeFile(ctx, req, s.source)
}

func (s *AnalysisService) analyzeFile(ctx context.Context, req AnalyzeRequest, source string) (report *domain.AnalysisReport, err error) {
	start := time.Now()
	runID := uuid.New().String()

	if req.Format == "" {
		req.Format = exporter.FormatXLSX
	}
	if req.OutputPath == "" {
		req.OutputPath = exporter.DefaultOutputPath(req.InputPath, req.Format)
	}

	ctx = infrastructure.EnsureTraceID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "ddct.analyze_file", trace.WithAttributes(
		attribute.String("ddct.run_id", runID),
		attribute.String("ddct.input", filepath.Base(req.InputPath)),
		attribute.String("ddct.format", string(req.Format)),
	))
	defer span.End()
	logger := s.logger.With(slog.String("run_id", runID), slog.String("input", req.InputPath))

	s.metrics.TrackActive(ctx, 1)
	defer s.metrics.TrackActive(ctx, -1)
	defer func() { s.finish(ctx, logger, source, start, report, err) }()

	writer, err := exporter.NewWriter(req.Format, s.logger)
	if err != nil {
		return nil, apperrors.NewAppValidationError("invalid output format", err)
	}
	if err := s.files.ValidatePlateFile(req.InputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("input file " + req.InputPath)
		}
		return nil, apperrors.NewAppValidationError("invalid input file", err)
	}
	if err := s.files.ValidateOutputDirectory(filepath.Dir(req.OutputPath)); err != nil {
		return nil, apperrors.NewStorageError("output directory unusable", err)
	}

	var table *ddct.Table
	err = s.stage(ctx, StageRead, func(context.Context) error {
		var rerr error
		table, rerr = dataprocessing.ReadTable(req.InputPath, req.Sheet)
		if rerr != nil {
			return apperrors.NewParsingError("cannot read "+filepath.Base(req.InputPath), rerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, err := s.run(ctx, table, req.Options)
	if err != nil {
		return nil, err
	}

	var written []string
	err = s.stage(ctx, StageExport, func(context.Context) error {
		var werr error
		written, werr = writer.Write(req.OutputPath, res.Tables())
		if werr != nil {
			return apperrors.NewStorageError("cannot write results", werr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rep := newReport(runID, res, start)
	rep.InputPath = req.InputPath
	rep.OutputPath = req.OutputPath
	logger.Info("Output written", slog.Any("files", written))
	return &rep, nil
}

// AnalyzeUpload analyzes an uploaded plate in memory and, unless
// SkipWorkbook is set, renders the result workbook.
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, req UploadRequest) (result *UploadResult, err error) {
	start := time.Now()
	runID := uuid.New().String()

	ctx = infrastructure.EnsureTraceID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "ddct.analyze_upload", trace.WithAttributes(
		attribute.String("ddct.run_id", runID),
		attribute.String("ddct.input", req.Name),
	))
	defer span.End()
	logger := s.logger.With(slog.String("run_id", runID), slog.String("input", req.Name))

	s.metrics.TrackActive(ctx, 1)
	defer s.metrics.TrackActive(ctx, -1)
	defer func() {
		var rep *domain.AnalysisReport
		if result != nil {
			rep = &result.Report
		}
		s.finish(ctx, logger, s.source, start, rep, err)
	}()

	if err := validation.CheckPlateName(req.Name); err != nil {
		return nil, apperrors.NewAppValidationError("invalid upload", err)
	}

	var table *ddct.Table
	err = s.stage(ctx, StageRead, func(context.Context) error {
		var rerr error
		table, rerr = dataprocessing.ReadTableFrom(req.Reader, req.Name, req.Sheet)
		if rerr != nil {
			return apperrors.NewParsingError("cannot read "+req.Name, rerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, err := s.run(ctx, table, req.Options)
	if err != nil {
		return nil, err
	}

	out := &UploadResult{Result: res}
	if !req.SkipWorkbook {
		var buf bytes.Buffer
		err = s.stage(ctx, StageExport, func(context.Context) error {
			if werr := exporter.NewWorkbookWriter(s.logger).WriteTo(&buf, res.Tables()); werr != nil {
				return apperrors.NewStorageError("cannot render workbook", werr)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		out.Workbook = buf.Bytes()
	}
	out.Report = newReport(runID, res, start)
	out.Report.InputPath = req.Name
	return out, nil
}

// AnalyzeBatch runs independent files with at most parallel in flight.
// Every item carries its own outcome; the returned error is ErrBatchFailed
// when any item failed, or the context error when the batch was cancelled.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, reqs []AnalyzeRequest, parallel int) ([]BatchItem, error) {
	if len(reqs) == 0 {
		return nil, ErrNoInputFiles
	}
	if parallel < 1 {
		parallel = 1
	}

	items := make([]BatchItem, len(reqs))
	for i, req := range reqs {
		items[i].Request = resolveOutput(req)
	}
	s.rejectSharedOutputs(ctx, items)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range items {
		if items[i].Err != nil {
			continue
		}
		req := items[i].Request
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			items[i].Report, items[i].Err = s.analyzeFile(gctx, req, "batch")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "Batch complete",
		slog.Int("files", len(items)),
		slog.Int("failed", failed))
	if failed > 0 {
		return items, fmt.Errorf("%w: %d of %d", ErrBatchFailed, failed, len(items))
	}
	return items, nil
}

// resolveOutput fills in the defaults analyzeFile would apply.
func resolveOutput(req AnalyzeRequest) AnalyzeRequest {
	if req.Format == "" {
		req.Format = exporter.FormatXLSX
	}
	if req.OutputPath == "" {
		req.OutputPath = exporter.DefaultOutputPath(req.InputPath, req.Format)
	}
	return req
}

// rejectSharedOutputs fails every item whose output path is also the output
// of another item, e.g. plate.xlsx and plate.csv both mapping to
// plate_ddct.xlsx. None of the colliding inputs is analysed.
func (s *AnalysisService) rejectSharedOutputs(ctx context.Context, items []BatchItem) {
	byOutput := make(map[string][]int, len(items))
	for i, it := range items {
		key := filepath.Clean(it.Request.OutputPath)
		if abs, err := filepath.Abs(key); err == nil {
			key = abs
		}
		byOutput[key] = append(byOutput[key], i)
	}
	for out, idx := range byOutput {
		if len(idx) < 2 {
			continue
		}
		inputs := make([]string, len(idx))
		for n, i := range idx {
			inputs[n] = items[i].Request.InputPath
		}
		for _, i := range idx {
			items[i].Err = apperrors.NewAppValidationError("conflicting output path",
				fmt.Errorf("%w: %s is the output of %s", ErrDuplicateOutput, out, strings.Join(inputs, ", ")))
		}
		s.logger.WarnContext(ctx, "Skipping inputs with a shared output path",
			slog.String("output", out),
			slog.Any("inputs", inputs))
	}
}

// run executes the engine inside its own stage.
func (s *AnalysisService) run(ctx context.Context, table *ddct.Table, opts ddct.Options) (*ddct.Result, error) {
	var res *ddct.Result
	err := s.stage(ctx, StageAnalyze, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rerr error
		res, rerr = ddct.Run(table, opts)
		if rerr != nil {
			if apperrors.ErrorCode(rerr) == apperrors.CodeInternal {
				return apperrors.NewAnalysisError("analysis failed", rerr)
			}
			return rerr
		}
		infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
			"ddct.rows_read":        res.Stats.RowsRead,
			"ddct.rows_dropped":     res.Stats.RowsDropped,
			"ddct.control_wells":    res.Stats.ControlWells,
			"ddct.reference_wells":  res.Stats.ReferenceWells,
			"ddct.outliers_removed": res.Stats.OutliersRemoved,
		})
		if res.Stats.OutliersRemoved > 0 {
			infrastructure.AddSpanEvent(ctx, "ddct.outliers_removed", map[string]interface{}{
				"count":  res.Stats.OutliersRemoved,
				"method": opts.OutlierMethod.String(),
			})
		}
		return nil
	})
	return res, err
}

// stage runs fn inside a child span and records its duration.
func (s *AnalysisService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "ddct."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordStage(ctx, name, time.Since(start))
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return err
}

// finish logs and counts one finished analysis.
func (s *AnalysisService) finish(ctx context.Context, logger *slog.Logger, source string, start time.Time, rep *domain.AnalysisReport, err error) {
	obs := infrastructure.AnalysisObservation{Source: source, Duration: time.Since(start)}
	if err != nil {
		obs.ErrorCode = apperrors.ErrorCode(err)
		infrastructure.RecordError(ctx, err)
		level := slog.LevelWarn
		if obs.ErrorCode == apperrors.CodeInternal && !errors.Is(err, context.Canceled) {
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "Analysis failed",
			slog.String("error_code", obs.ErrorCode),
			slog.String("error", err.Error()))
		s.metrics.RecordAnalysis(ctx, obs)
		return
	}

	obs.Wells = rep.WellCount
	obs.RowsDropped = rep.RowsDropped
	obs.OutliersRemoved = rep.OutliersRemoved
	s.metrics.RecordAnalysis(ctx, obs)
	logger.InfoContext(ctx, "Analysis complete",
		slog.Int("rows_read", rep.RowsRead),
		slog.Int("rows_dropped", rep.RowsDropped),
		slog.Int("wells", rep.WellCount),
		slog.Int("samples", rep.SampleCount),
		slog.Int("outliers_removed", rep.OutliersRemoved),
		slog.Duration("duration", obs.Duration))
}

func newReport(runID string, res *ddct.Result, start time.Time) domain.AnalysisReport {
	return domain.AnalysisReport{
		RunID:           runID,
		RowsRead:        res.Stats.RowsRead,
		RowsDropped:     res.Stats.RowsDropped,
		WellCount:       len(res.Wells),
		SampleCount:     len(res.Samples),
		OutliersRemoved: res.Stats.OutliersRemoved,
		Duration:        time.Since(start),
		CompletedAt:     time.Now().UTC(),
	}
}
