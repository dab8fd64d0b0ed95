package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/daybook/pkg/api"
)

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "ok", status: http.StatusOK, wantLevel: "level=INFO"},
		{name: "client error", status: http.StatusNotFound, wantLevel: "level=WARN"},
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := captureLogger()
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			})

			req := httptest.NewRequest(http.MethodPut, "/api/v1/documents/events.json?token=secret", nil)
			req.Header.Set(api.HeaderDeviceID, "dev-a")
			w := httptest.NewRecorder()
			Logging(logger)(next).ServeHTTP(w, req)

			out := buf.String()
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, "path=/api/v1/documents/events.json")
			assert.Contains(t, out, "device_id=dev-a")
			assert.Contains(t, out, "bytes_written=5")
			assert.NotContains(t, out, "secret")
		})
	}
}

func TestLogging_SkipPaths(t *testing.T) {
	logger, buf := captureLogger()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := Logging(logger, "/api/v1/health")

	mw(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Empty(t, buf.String())

	mw(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	assert.Contains(t, buf.String(), "HTTP request")
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestResponseWriter_Hijack(t *testing.T) {
	t.Run("supported", func(t *testing.T) {
		rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
		rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

		_, _, err := rw.Hijack()
		require.NoError(t, err)
		assert.True(t, rec.hijacked)
		assert.Equal(t, http.StatusSwitchingProtocols, rw.statusCode)
	})

	t.Run("unsupported", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
		_, _, err := rw.Hijack()
		assert.Error(t, err)
	})

	t.Run("unwrap", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: rec}
		assert.Same(t, rec, rw.Unwrap())
	})
}
