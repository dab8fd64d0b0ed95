package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name         string
		db           Pinger
		wantCode     int
		wantStatus   string
		wantDatabase string
	}{
		{
			name:         "database ok",
			db:           pingerFunc(func(context.Context) error { return nil }),
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantDatabase: "ok",
		},
		{
			name:         "database down",
			db:           pingerFunc(func(context.Context) error { return errors.New("disk I/O error") }),
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "degraded",
			wantDatabase: "unavailable",
		},
		{
			name:         "no database configured",
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantDatabase: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(setupTestLogger(), tt.db, "1.2.3")

			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			w := httptest.NewRecorder()
			handler.Health(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantDatabase, resp.Database)
			assert.Equal(t, "1.2.3", resp.Version)
		})
	}
}
