package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qpcrcli/internal/ddct"
	"qpcrcli/internal/shared/testutil"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
		wantExt    map[string]any
	}{
		{
			name:       "schema error",
			err:        fmt.Errorf("analyse: %w", &ddct.SchemaError{Missing: []string{"Cq"}, Present: []string{"Sample", "Target", "Well"}}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchema,
			wantCode:   CodeSchema,
			wantExt:    map[string]any{"missing": []any{"Cq"}},
		},
		{
			name:       "no control match",
			err:        &ddct.NoControlMatchError{Pattern: "^CTR", Column: "Target"},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeNoControlMatch,
			wantCode:   CodeNoControlMatch,
			wantExt:    map[string]any{"pattern": "^CTR", "column": "Target"},
		},
		{
			name:       "missing reference inside app error",
			err:        NewAnalysisError("run failed", &ddct.MissingReferenceError{Samples: []string{"CTR-1"}}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingReference,
			wantCode:   CodeMissingReference,
			wantExt:    map[string]any{"samples": []any{"CTR-1"}},
		},
		{
			name:       "missing control baseline",
			err:        &ddct.MissingControlBaselineError{Genes: []string{"GeneY"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingControlBaseline,
			wantCode:   CodeMissingControlBaseline,
			wantExt:    map[string]any{"genes": []any{"GeneY"}},
		},
		{
			name:       "empty result",
			err:        &ddct.EmptyResultError{},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeEmptyResult,
			wantCode:   CodeEmptyResult,
		},
		{
			name:       "invalid options",
			err:        fmt.Errorf("%w: min reps", ddct.ErrInvalidOptions),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   CodeInvalidOptions,
		},
		{
			name:       "unreadable input",
			err:        NewParsingError("failed to read plate", fmt.Errorf("zip: not a valid zip file")),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeUnreadableInput,
			wantCode:   CodeUnreadableInput,
		},
		{
			name:       "api error",
			err:        ErrPayloadTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
		{
			name:       "timeout",
			err:        fmt.Errorf("read: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown",
			err:        fmt.Errorf("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantCode:   CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
			rec := httptest.NewRecorder()
			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/analyze", body["instance"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			for k, v := range tt.wantExt {
				assert.Equal(t, v, body[k], k)
			}
			assert.NotContains(t, body, "stack")
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_NilError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	rec := httptest.NewRecorder()

	NewErrorHandler(logger, true).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Zero(t, rec.Body.Len())
	assert.Zero(t, logs.Count())
}

func TestErrorHandler_StackOnlyForServerErrors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))
	assert.Contains(t, decodeProblem(t, rec), "stack")

	rec = httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), &ddct.EmptyResultError{})
	assert.NotContains(t, decodeProblem(t, rec), "stack")
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeMissingReference, ErrorCode(fmt.Errorf("x: %w", &ddct.MissingReferenceError{})))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", ErrorCode(ErrRateLimitExceeded))
	assert.Equal(t, "VALIDATION_FAILED", ErrorCode(NewAppValidationError("bad", nil)))
	assert.Equal(t, CodeInternal, ErrorCode(fmt.Errorf("plain")))
}

func TestHandlePanicAndNotFound(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	h.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/boom", nil), "kaput")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decodeProblem(t, rec), "panic")
	assert.True(t, logs.ContainsMessage("panic recovered"))

	rec = httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	notFound := decodeProblem(t, rec)
	assert.Equal(t, "NOT_FOUND", notFound["error_code"])
	assert.Equal(t, "/nope", notFound["instance"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}
