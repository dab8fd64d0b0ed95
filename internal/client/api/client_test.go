package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

// TestClient_Register проверяет успешную регистрацию
func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "testuser", req.Username)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.RegisterResponse{UserID: "user-123", Message: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Register(context.Background(), api.RegisterRequest{
		Username:    "testuser",
		AuthKeyHash: "hash123",
		PublicSalt:  "salt123",
	})

	require.NoError(t, err)
	assert.Equal(t, "user-123", resp.UserID)
}

// TestClient_ErrorMapping проверяет отображение HTTP статусов на ошибки remote
func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		wantErr    error
		name       string
		statusCode int
		wantStatus bool
	}{
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantErr: remote.ErrUnauthorized},
		{name: "not found", statusCode: http.StatusNotFound, wantErr: remote.ErrNotFound},
		{name: "conflict", statusCode: http.StatusConflict, wantStatus: true},
		{name: "internal error", statusCode: http.StatusInternalServerError, wantStatus: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "failed", Message: "details"})
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.Login(context.Background(), api.LoginRequest{Username: "u"})
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantStatus {
				assert.True(t, IsStatus(err, tt.statusCode))
				assert.NotErrorIs(t, err, remote.ErrUnauthorized)
				assert.NotErrorIs(t, err, remote.ErrNotFound)
			}
			assert.Contains(t, err.Error(), "details")
		})
	}
}

// TestClient_Unavailable проверяет, что ошибка транспорта - ErrUnavailable
func TestClient_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url)
	err := client.Health(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
}

// TestClient_Refresh проверяет передачу refresh token в заголовке
func TestClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/refresh", r.URL.Path)
		assert.Equal(t, "Bearer refresh-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(api.TokenResponse{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 900})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Refresh(context.Background(), "refresh-1")

	require.NoError(t, err)
	assert.Equal(t, "a2", resp.AccessToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
}

// TestClient_GetSalt проверяет экранирование username в пути
func TestClient_GetSalt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/auth/salt/alice", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.SaltResponse{PublicSalt: "c2FsdA=="})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).GetSalt(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "c2FsdA==", resp.PublicSalt)
}

func TestDocumentStore(t *testing.T) {
	var stored []byte

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/documents/{key}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if stored == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(stored)
	})
	mux.HandleFunc("PUT /api/v1/documents/{key}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "events.json", r.PathValue("key"))
		assert.Equal(t, "dev-1", r.Header.Get(api.HeaderDeviceID))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		stored = body
		_ = json.NewEncoder(w).Encode(api.DocumentResponse{ID: "doc-1", Key: "events.json"})
	})
	mux.HandleFunc("POST /api/v1/documents", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateDocumentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "events.json", req.Key)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.DocumentResponse{ID: "doc-1", Key: req.Key, Created: true})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL)
	client.SetDeviceID("dev-1")
	store := NewDocumentStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "tok", "events.json")
	assert.ErrorIs(t, err, remote.ErrNotFound)

	handle, err := store.Create(ctx, "tok", "events.json", []byte(`{"records":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", handle)

	payload := []byte(`{"schemaVersion":1,"records":[{"id":"E1"}]}`)
	require.NoError(t, store.Put(ctx, "tok", "events.json", payload))

	got, err := store.Get(ctx, "tok", "events.json")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
}
