package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"qpcrcli/internal/dataprocessing"
	"qpcrcli/internal/ddct"
	apperrors "qpcrcli/internal/errors"
	"qpcrcli/internal/exporter"
	"qpcrcli/internal/infrastructure"
	"qpcrcli/internal/shared/testutil"
)

func plateOptions() ddct.Options {
	opts := ddct.DefaultOptions()
	opts.ControlPattern = "^CTR"
	opts.ReferencePattern = "^ACTB$"
	return opts
}

func newTestService(t *testing.T) (*AnalysisService, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return NewAnalysisService(logger, nil, nil), logs
}

func TestAnalyzeFileWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Results", testutil.MinimalPlate())
	svc, logs := newTestService(t)

	report, err := svc.AnalyzeFile(context.Background(), AnalyzeRequest{
		InputPath: input,
		Sheet:     dataprocessing.SheetSelector{Name: "Results"},
		Options:   plateOptions(),
	})
	require.NoError(t, err)

	wantOut := filepath.Join(dir, "plate_ddct.xlsx")
	assert.Equal(t, wantOut, report.OutputPath)
	assert.Len(t, report.RunID, 36)
	assert.Equal(t, 4, report.RowsRead)
	assert.Equal(t, 0, report.RowsDropped)
	assert.Equal(t, 4, report.WellCount)
	assert.Equal(t, 4, report.SampleCount)

	f, err := excelize.OpenFile(wantOut)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"well", "sample"}, f.GetSheetList())

	rows, err := f.GetRows("sample")
	require.NoError(t, err)
	var mt1 []string
	for _, r := range rows {
		if len(r) > 2 && r[2] == "MT-1" && r[0] == "GeneX" {
			mt1 = r
		}
	}
	require.NotNil(t, mt1)
	assert.Equal(t, "1.5", mt1[5])

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "Analysis complete")
}

func TestAnalyzeFileCSVOutput(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Sheet1", testutil.MinimalPlate())
	svc, _ := newTestService(t)

	out := filepath.Join(dir, "out", "run.csv")
	report, err := svc.AnalyzeFile(context.Background(), AnalyzeRequest{
		InputPath:  input,
		OutputPath: out,
		Format:     exporter.FormatCSV,
		Options:    plateOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, out, report.OutputPath)
	assert.FileExists(t, filepath.Join(dir, "out", "run_well.csv"))
	assert.FileExists(t, filepath.Join(dir, "out", "run_sample.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "out", "run_outliers.csv"))
}

func TestAnalyzeFileFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]any
		opts     func(o *ddct.Options)
		wantCode string
	}{
		{
			name:     "no control match",
			rows:     testutil.MinimalPlate(),
			opts:     func(o *ddct.Options) { o.ControlPattern = "^WT" },
			wantCode: apperrors.CodeNoControlMatch,
		},
		{
			name:     "missing column",
			rows:     testutil.MinimalPlate(),
			opts:     func(o *ddct.Options) { o.Columns.Cq = "Ct" },
			wantCode: apperrors.CodeSchema,
		},
		{
			name: "missing reference",
			rows: [][]any{
				{"A1", "ACTB", "CTR-1", 18.0},
				{"A2", "GeneX", "CTR-1", 22.0},
				{"B2", "GeneX", "MT-1", 24.0},
			},
			wantCode: apperrors.CodeMissingReference,
		},
		{
			name:     "invalid options",
			rows:     testutil.MinimalPlate(),
			opts:     func(o *ddct.Options) { o.MinReps = 0 },
			wantCode: apperrors.CodeInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Sheet1", tt.rows)
			opts := plateOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			svc, logs := newTestService(t)
			_, err := svc.AnalyzeFile(context.Background(), AnalyzeRequest{InputPath: input, Options: opts})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.ErrorCode(err))
			assert.NoFileExists(t, filepath.Join(dir, "plate_ddct.xlsx"))
			testutil.AssertLogContains(t, logs, slog.LevelWarn, "Analysis failed")

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "only the input remains")
		})
	}
}

func TestAnalyzeFileRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	svc, _ := newTestService(t)

	_, err := svc.AnalyzeFile(context.Background(), AnalyzeRequest{
		InputPath: filepath.Join(dir, "missing.xlsx"),
		Options:   plateOptions(),
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)
	assert.Contains(t, err.Error(), "missing.xlsx")
	assert.Equal(t, "NOT_FOUND", apperrors.ErrorCode(err))

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hi"), 0o644))
	_, err = svc.AnalyzeFile(context.Background(), AnalyzeRequest{InputPath: notes, Options: plateOptions()})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)

	input := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Sheet1", testutil.MinimalPlate())
	_, err = svc.AnalyzeFile(context.Background(), AnalyzeRequest{
		InputPath: input,
		Sheet:     dataprocessing.SheetSelector{Name: "Nope"},
		Options:   plateOptions(),
	})
	assert.Equal(t, apperrors.CodeUnreadableInput, apperrors.ErrorCode(err))
	assert.True(t, errors.Is(err, dataprocessing.ErrSheetNotFound))
}

func TestAnalyzeFileTracesOutlierRemoval(t *testing.T) {
	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	defer tp.Shutdown(context.Background())

	dir := t.TempDir()
	input := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Sheet1", [][]any{
		{"A1", "ACTB", "CTR-1", 18.0},
		{"A2", "GeneX", "CTR-1", 20.0},
		{"A3", "GeneX", "CTR-1", 20.1},
		{"A4", "GeneX", "CTR-1", 19.9},
		{"A5", "GeneX", "CTR-1", 20.0},
		{"A6", "GeneX", "CTR-1", 30.0},
	})
	logger, _ := testutil.NewTestLogger(t)
	svc := NewAnalysisService(logger, tp.Tracer("test"), nil)

	report, err := svc.AnalyzeFile(context.Background(), AnalyzeRequest{InputPath: input, Options: plateOptions()})
	require.NoError(t, err)
	require.Equal(t, 1, report.OutliersRemoved)

	var analyze *tracetest.SpanStub
	stubs := spans.GetSpans()
	for i := range stubs {
		if stubs[i].Name == "ddct."+StageAnalyze {
			analyze = &stubs[i]
		}
	}
	require.NotNil(t, analyze)
	require.Len(t, analyze.Events, 1)
	assert.Equal(t, "ddct.outliers_removed", analyze.Events[0].Name)
	assert.Contains(t, analyze.Events[0].Attributes, attribute.Int("count", 1))
}

func TestAnalyzeUpload(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Sheet1", testutil.MinimalPlate())
	data, err := os.ReadFile(input)
	require.NoError(t, err)

	svc, _ := newTestService(t)
	res, err := svc.AnalyzeUpload(context.Background(), UploadRequest{
		Reader:  bytes.NewReader(data),
		Name:    "plate.xlsx",
		Options: plateOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, "plate.xlsx", res.Report.InputPath)
	assert.Empty(t, res.Report.OutputPath)
	assert.Len(t, res.Result.Samples, 4)

	f, err := excelize.OpenReader(bytes.NewReader(res.Workbook))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"well", "sample"}, f.GetSheetList())

	preview, err := svc.AnalyzeUpload(context.Background(), UploadRequest{
		Reader:       bytes.NewReader(data),
		Name:         "plate.xlsx",
		Options:      plateOptions(),
		SkipWorkbook: true,
	})
	require.NoError(t, err)
	assert.Empty(t, preview.Workbook)

	_, err = svc.AnalyzeUpload(context.Background(), UploadRequest{
		Reader:  bytes.NewReader(data),
		Name:    "plate.pdf",
		Options: plateOptions(),
	})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ErrorCode(err))
}

func TestAnalyzeBatch(t *testing.T) {
	dir := t.TempDir()
	good1 := testutil.WritePlateWorkbook(t, dir, "a.xlsx", "Sheet1", testutil.MinimalPlate())
	good2 := testutil.WritePlateWorkbook(t, dir, "b.xlsx", "Sheet1", testutil.MinimalPlate())
	bad := testutil.WritePlateWorkbook(t, dir, "c.xlsx", "Sheet1", [][]any{{"A1", "ACTB", "MT-1", 18.0}})

	svc, _ := newTestService(t)
	reqs := []AnalyzeRequest{
		{InputPath: good1, Options: plateOptions()},
		{InputPath: bad, Options: plateOptions()},
		{InputPath: good2, Options: plateOptions()},
	}

	items, err := svc.AnalyzeBatch(context.Background(), reqs, 2)
	require.ErrorIs(t, err, ErrBatchFailed)
	require.Len(t, items, 3)

	assert.NoError(t, items[0].Err)
	assert.Equal(t, good1, items[0].Request.InputPath)
	assert.FileExists(t, filepath.Join(dir, "a_ddct.xlsx"))

	assert.Equal(t, apperrors.CodeNoControlMatch, apperrors.ErrorCode(items[1].Err))
	assert.Nil(t, items[1].Report)
	assert.NoFileExists(t, filepath.Join(dir, "c_ddct.xlsx"))

	assert.NoError(t, items[2].Err)
	assert.NotEqual(t, items[0].Report.RunID, items[2].Report.RunID)

	_, err = svc.AnalyzeBatch(context.Background(), nil, 4)
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

func TestAnalyzeBatchRejectsSharedOutputPath(t *testing.T) {
	dir := t.TempDir()
	xlsx := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Sheet1", testutil.MinimalPlate())
	csvPath := filepath.Join(dir, "plate.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Well,Cq\nA1,20\n"), 0o644))
	other := testutil.WritePlateWorkbook(t, dir, "other.xlsx", "Sheet1", testutil.MinimalPlate())

	svc, logs := newTestService(t)
	items, err := svc.AnalyzeBatch(context.Background(), []AnalyzeRequest{
		{InputPath: xlsx, Options: plateOptions()},
		{InputPath: csvPath, Options: plateOptions()},
		{InputPath: other, Options: plateOptions()},
	}, 2)
	require.ErrorIs(t, err, ErrBatchFailed)
	assert.Contains(t, err.Error(), "2 of 3")

	for _, it := range items[:2] {
		require.ErrorIs(t, it.Err, ErrDuplicateOutput)
		assert.Contains(t, it.Err.Error(), "plate_ddct.xlsx")
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ErrorCode(it.Err))
		assert.Nil(t, it.Report)
	}
	assert.NoFileExists(t, filepath.Join(dir, "plate_ddct.xlsx"))

	require.NoError(t, items[2].Err)
	assert.FileExists(t, filepath.Join(dir, "other_ddct.xlsx"))
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "Skipping inputs with a shared output path")
}

func TestAnalyzeBatchCancelled(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WritePlateWorkbook(t, dir, "a.xlsx", "Sheet1", testutil.MinimalPlate())
	svc, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items, err := svc.AnalyzeBatch(ctx, []AnalyzeRequest{{InputPath: input, Options: plateOptions()}}, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, items[0].Err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "a_ddct.xlsx"))
}

func TestAnalysisServiceRecordsMetrics(t *testing.T) {
	cfg := infrastructure.DefaultOTelConfig()
	cfg.EnableTracing = false
	providers, err := infrastructure.InitializeOTel(cfg, nil)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())
	metrics, err := infrastructure.NewAnalysisMetrics(providers.Meter)
	require.NoError(t, err)

	dir := t.TempDir()
	input := testutil.WritePlateWorkbook(t, dir, "plate.xlsx", "Sheet1", testutil.MinimalPlate())
	logger, _ := testutil.NewTestLogger(t)
	svc := NewAnalysisService(logger, providers.Tracer, metrics).WithSource("http")

	_, err = svc.AnalyzeFile(context.Background(), AnalyzeRequest{InputPath: input, Options: plateOptions()})
	require.NoError(t, err)
	bad := plateOptions()
	bad.ControlPattern = "^WT"
	_, err = svc.AnalyzeFile(context.Background(), AnalyzeRequest{InputPath: input, Options: bad})
	require.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, testutil.Scrape(providers.PrometheusHTTP, &buf))
	text := buf.String()
	assert.Contains(t, text, `source="http"`)
	assert.Contains(t, text, `error_code="NO_CONTROL_MATCH"`)
	assert.Contains(t, text, `stage="analyze"`)
}
