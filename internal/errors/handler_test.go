package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fermcli/internal/fermentation"
	"fermcli/internal/infrastructure"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "schema error",
			err:        fmt.Errorf("analyze: %w", &fermentation.SchemaError{Schema: "minimal", Missing: []string{"brix"}}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchema,
		},
		{
			name:       "invalid options",
			err:        fmt.Errorf("%w: threshold", fermentation.ErrInvalidOptions),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "parsing app error",
			err:        NewParsingError("read csv", io.ErrUnexpectedEOF),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeUnreadableInput,
		},
		{
			name:       "source app error",
			err:        NewSourceError("fetch sheet", fmt.Errorf("403")),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeSourceFailed,
		},
		{
			name:       "api error",
			err:        NotFoundError("table"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "body too large",
			err:        &http.MaxBytesError{Limit: 10},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
		{
			name:       "unknown",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/analysis", problem.Instance)
		})
	}
}

func TestErrorHandler_HandleError_SchemaErrorBody(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
	r = r.WithContext(infrastructure.WithTraceID(r.Context(), "req-1"))
	w := httptest.NewRecorder()

	h.HandleError(w, r, &fermentation.SchemaError{Schema: "timed", Missing: []string{"time", "ph"}})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeSchema, body["type"])
	assert.Equal(t, "timed", body["schema"])
	assert.Equal(t, []any{"time", "ph"}, body["missing_columns"])
	assert.Equal(t, "req-1", body["trace_id"])
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	h := NewErrorHandler(nil, true)
	w := httptest.NewRecorder()

	h.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/x", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "kaboom")
}

func TestErrorHandler_NotFoundAndMethod(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/schemas", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}
