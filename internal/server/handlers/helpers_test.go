package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/daybook/internal/models"
	"github.com/iudanet/daybook/internal/server/storage"
	"github.com/iudanet/daybook/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:          []byte("test-secret"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

// withUser эмулирует middleware.Auth
func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(WithUser(req.Context(), userID, "user-"+userID))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

// mockUserStorage is an in-memory UserStorage
type mockUserStorage struct {
	users           map[string]*models.User // username -> User
	createError     error
	getUserError    error
	updateLastLogin func(ctx context.Context, userID string, loginTime time.Time) error
}

func newMockUserStorage(users ...*models.User) *mockUserStorage {
	m := &mockUserStorage{users: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUserStorage) CreateUser(_ context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.users[user.Username]; exists {
		return storage.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) DeleteUser(context.Context, string) error { return nil }

func (m *mockUserStorage) UpdateLastLogin(ctx context.Context, userID string, loginTime time.Time) error {
	if m.updateLastLogin != nil {
		return m.updateLastLogin(ctx, userID, loginTime)
	}
	return nil
}

// mockTokenStorage is an in-memory TokenStorage
type mockTokenStorage struct {
	tokens        map[string]*models.RefreshToken // token -> RefreshToken
	saveError     error
	getError      error
	deleteError   error
	savedTokens   []*models.RefreshToken
	deletedTokens []string
}

func newMockTokenStorage(tokens ...*models.RefreshToken) *mockTokenStorage {
	m := &mockTokenStorage{tokens: make(map[string]*models.RefreshToken)}
	for _, rt := range tokens {
		m.tokens[rt.Token] = rt
	}
	return m
}

func (m *mockTokenStorage) SaveRefreshToken(_ context.Context, token *models.RefreshToken) error {
	if m.saveError != nil {
		return m.saveError
	}
	m.tokens[token.Token] = token
	m.savedTokens = append(m.savedTokens, token)
	return nil
}

func (m *mockTokenStorage) GetRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	rt, ok := m.tokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	return rt, nil
}

func (m *mockTokenStorage) DeleteRefreshToken(_ context.Context, token string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if _, ok := m.tokens[token]; !ok {
		return storage.ErrTokenNotFound
	}
	delete(m.tokens, token)
	m.deletedTokens = append(m.deletedTokens, token)
	return nil
}

func (m *mockTokenStorage) DeleteUserTokens(_ context.Context, userID string) (int, error) {
	if m.deleteError != nil {
		return 0, m.deleteError
	}
	count := 0
	for token, rt := range m.tokens {
		if rt.UserID == userID {
			delete(m.tokens, token)
			m.deletedTokens = append(m.deletedTokens, token)
			count++
		}
	}
	return count, nil
}

func (m *mockTokenStorage) DeleteExpiredTokens(context.Context) (int, error) { return 0, nil }

// memDocuments is an in-memory DocumentStorage
type memDocuments struct {
	docs   map[string]*models.Document // user_id + "/" + key
	err    error
	nextID int
	mu     sync.Mutex
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: make(map[string]*models.Document)}
}

func (m *memDocuments) GetDocument(_ context.Context, userID, key string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[userID+"/"+key]
	if !ok {
		return nil, storage.ErrDocumentNotFound
	}
	out := *doc
	return &out, nil
}

func (m *memDocuments) PutDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	k := doc.UserID + "/" + doc.Key
	if existing, ok := m.docs[k]; ok {
		doc.ID = existing.ID
	} else {
		m.nextID++
		doc.ID = "doc-" + strconv.Itoa(m.nextID)
	}
	stored := *doc
	m.docs[k] = &stored
	return nil
}

func (m *memDocuments) CreateDocument(ctx context.Context, doc *models.Document) (*models.Document, bool, error) {
	if existing, err := m.GetDocument(ctx, doc.UserID, doc.Key); err == nil {
		return existing, false, nil
	}
	if err := m.PutDocument(ctx, doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (m *memDocuments) ListDocuments(_ context.Context, userID string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Document
	for _, doc := range m.docs {
		if doc.UserID == userID {
			meta := *doc
			meta.Content = nil
			out = append(out, &meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// recordingPublisher запоминает опубликованные уведомления
type recordingPublisher struct {
	sent []api.Notification
	mu   sync.Mutex
}

func (p *recordingPublisher) Publish(_ string, n api.Notification) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return 1
}
