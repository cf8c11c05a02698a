package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"qpcrcli/internal/ddct"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeTimeout         = "/errors/timeout"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeUnsupported     = "/errors/unsupported-media-type"
)

// Analysis error types. Each one is a problem the user fixes in the plate
// file or the run options.
const (
	TypeUnreadableInput        = "/errors/input/unreadable"
	TypeSchema                 = "/errors/analysis/missing-columns"
	TypeNoControlMatch         = "/errors/analysis/no-control-match"
	TypeMissingReference       = "/errors/analysis/missing-reference"
	TypeMissingControlBaseline = "/errors/analysis/missing-control-baseline"
	TypeEmptyResult            = "/errors/analysis/empty-result"
)

// Stable codes of analysis failures, shared by the API, the CLI and metrics.
const (
	CodeSchema                 = "SCHEMA_ERROR"
	CodeNoControlMatch         = "NO_CONTROL_MATCH"
	CodeMissingReference       = "MISSING_REFERENCE"
	CodeMissingControlBaseline = "MISSING_CONTROL_BASELINE"
	CodeEmptyResult            = "EMPTY_RESULT"
	CodeInvalidOptions         = "INVALID_OPTIONS"
	CodeUnreadableInput        = "UNREADABLE_INPUT"
	CodeInternal               = "INTERNAL_SERVER_ERROR"
)

// ErrorCode returns the stable code of err: one of the analysis codes, the
// code of an APIError, or CodeInternal.
func ErrorCode(err error) string {
	var (
		schema *ddct.SchemaError
		noCtl  *ddct.NoControlMatchError
		noRef  *ddct.MissingReferenceError
		noBase *ddct.MissingControlBaselineError
		empty  *ddct.EmptyResultError
		apiErr *APIError
		appErr *AppError
	)
	switch {
	case errors.As(err, &schema):
		return CodeSchema
	case errors.As(err, &noCtl):
		return CodeNoControlMatch
	case errors.As(err, &noRef):
		return CodeMissingReference
	case errors.As(err, &noBase):
		return CodeMissingControlBaseline
	case errors.As(err, &empty):
		return CodeEmptyResult
	case errors.Is(err, ddct.ErrInvalidOptions):
		return CodeInvalidOptions
	case errors.As(err, &apiErr):
		return apiErr.ErrorCode
	case errors.As(err, &appErr) && appErr.Type == ErrTypeParsing:
		return CodeUnreadableInput
	case errors.As(err, &appErr) && appErr.Type == ErrTypeValidation:
		return "VALIDATION_FAILED"
	case errors.As(err, &appErr) && appErr.Type == ErrTypeNotFound:
		return "NOT_FOUND"
	}
	return CodeInternal
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		if h.includeStack {
			problem.WithExtension("stack", getStackTrace())
		}
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			path,
		)
	}

	if p := analysisProblem(err, path); p != nil {
		return p
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeParsing:
			return NewProblemDetails(
				http.StatusUnprocessableEntity,
				TypeUnreadableInput,
				"Unreadable Plate File",
				appErr.Error(),
				path,
			).WithExtension("error_code", CodeUnreadableInput)
		case ErrTypeValidation:
			return NewProblemDetails(
				http.StatusBadRequest,
				TypeValidation,
				"Validation Failed",
				appErr.Error(),
				path,
			).WithExtension("error_code", "VALIDATION_FAILED")
		case ErrTypeNotFound:
			return NewProblemDetails(
				http.StatusNotFound,
				TypeNotFound,
				"Resource Not Found",
				appErr.Message,
				path,
			).WithExtension("error_code", "NOT_FOUND")
		}
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		path,
	).WithExtension("error_code", CodeInternal)
}

// analysisProblem maps failures of the ΔΔCt pipeline to 422 problems that
// carry the offending columns, samples or genes.
func analysisProblem(err error, path string) *ProblemDetails {
	var (
		schema *ddct.SchemaError
		noCtl  *ddct.NoControlMatchError
		noRef  *ddct.MissingReferenceError
		noBase *ddct.MissingControlBaselineError
		empty  *ddct.EmptyResultError
	)
	unprocessable := func(problemType, title string, cause error) *ProblemDetails {
		return NewProblemDetails(http.StatusUnprocessableEntity, problemType, title, cause.Error(), path).
			WithExtension("error_code", ErrorCode(cause))
	}

	switch {
	case errors.As(err, &schema):
		return unprocessable(TypeSchema, "Missing Columns", schema).
			WithExtension("missing", schema.Missing).
			WithExtension("present", schema.Present)
	case errors.As(err, &noCtl):
		return unprocessable(TypeNoControlMatch, "No Control Rows", noCtl).
			WithExtension("pattern", noCtl.Pattern).
			WithExtension("column", noCtl.Column)
	case errors.As(err, &noRef):
		return unprocessable(TypeMissingReference, "Missing Reference Gene", noRef).
			WithExtension("samples", noRef.Samples)
	case errors.As(err, &noBase):
		return unprocessable(TypeMissingControlBaseline, "Missing Control Baseline", noBase).
			WithExtension("genes", noBase.Genes)
	case errors.As(err, &empty):
		return unprocessable(TypeEmptyResult, "Empty Sample Table", empty)
	case errors.Is(err, ddct.ErrInvalidOptions):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Invalid Analysis Options", err.Error(), path).
			WithExtension("error_code", CodeInvalidOptions)
	}
	return nil
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_FILE":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "UNSUPPORTED_MEDIA_TYPE":
		problemType = TypeUnsupported
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := h.apiErrorToProblem(ErrNotFound, r).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
