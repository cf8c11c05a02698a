package errors

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"qpcrcli/internal/shared/testutil"
)

func TestErrorMiddleware(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	ok := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz?x=1", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "http request")
	testutil.AssertLogAttr(t, logs, "query", "x=1")

	panics := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("bad plate")
	}))
	rec = httptest.NewRecorder()
	panics.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}
