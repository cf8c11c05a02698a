// Package services implements the business logic layer of the ΔΔCt tool.
// It sits between the surfaces (the ddct CLI and the HTTP handlers) and the
// pure engine in internal/ddct, adding file validation, reading, writing,
// tracing, metrics and run logging around every analysis.
//
// # Services
//
//	- AnalysisService: AnalyzeFile (path in, workbook or CSV set out),
//	  AnalyzeUpload (reader in, workbook bytes out) and AnalyzeBatch
//	  (independent files through a bounded errgroup)
//	- HealthService: liveness, readiness (engine self-test, temp dir) and
//	  version information
//
// # Stages
//
// Each run is split into the read, analyze and export stages. Every stage
// gets its own child span and a ddct_stage_duration_seconds sample. Nothing
// is written when an earlier stage fails.
//
// # Errors
//
// Failures come back wrapped in internal/errors AppError values (PARSING,
// VALIDATION, STORAGE). Engine errors are passed through unchanged so
// callers can match them with errors.Is against the ddct sentinels.
//
// # Usage
//
//	svc := services.NewAnalysisService(logger, tracer, metrics).WithSource("cli")
//	report, err := svc.AnalyzeFile(ctx, services.AnalyzeRequest{
//	    InputPath: "plate.xlsx",
//	    Options:   opts,
//	})
package services
