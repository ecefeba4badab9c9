package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/careerdeck/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		errType  string
		contains string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error", "title is required"},
		{"unauthorized", apperror.Unauthorized("invalid email or password"), http.StatusUnauthorized, "unauthorized", "invalid email"},
		{"forbidden", apperror.Forbidden("admins only"), http.StatusForbidden, "forbidden", "admins only"},
		{"not found", apperror.NotFound("goal", "g1"), http.StatusNotFound, "not_found", "g1"},
		{"conflict", apperror.Conflict("slot taken"), http.StatusConflict, "conflict", "slot taken"},
		{"wrapped", fmt.Errorf("booking: %w", apperror.Conflict("slot taken")), http.StatusConflict, "conflict", "slot taken"},
		{"internal", errors.New("sql: database is locked"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.errType, body.Error)
			assert.Contains(t, body.Message, tt.contains)
			assert.NotContains(t, body.Message, "sql:")
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"title":"x"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"title":"x","extra":1}`, true},
		{"wrong type", `{"title":5}`, true},
		{"too large", `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "x", p.Title)
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=10&offset=abc", nil)

	n, err := queryInt(r, "limit")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = queryInt(r, "offset")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	n, err = queryInt(r, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}
