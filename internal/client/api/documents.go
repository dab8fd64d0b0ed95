package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iudanet/daybook/internal/client/remote"
	"github.com/iudanet/daybook/pkg/api"
)

// DocumentStore - удаленное хранилище снимков поверх HTTP API сервера
type DocumentStore struct {
	client *Client
}

var _ remote.Store = (*DocumentStore)(nil)

// NewDocumentStore wraps the API client as a remote snapshot store
func NewDocumentStore(client *Client) *DocumentStore {
	return &DocumentStore{client: client}
}

// Get загружает документ целиком
func (d *DocumentStore) Get(ctx context.Context, token, key string) ([]byte, error) {
	body, _, err := d.client.do(ctx, http.MethodGet, documentPath(key), token, nil)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	return body, nil
}

// Put перезаписывает документ целиком
func (d *DocumentStore) Put(ctx context.Context, token, key string, data []byte) error {
	if _, _, err := d.client.do(ctx, http.MethodPut, documentPath(key), token, data); err != nil {
		return fmt.Errorf("put document %s: %w", key, err)
	}
	return nil
}

// Create создает документ или возвращает handle существующего
func (d *DocumentStore) Create(ctx context.Context, token, key string, initial []byte) (string, error) {
	req := api.CreateDocumentRequest{Key: key, Content: json.RawMessage(initial)}

	var resp api.DocumentResponse
	if err := d.client.doJSON(ctx, http.MethodPost, "/api/v1/documents", token, req, &resp); err != nil {
		return "", fmt.Errorf("create document %s: %w", key, err)
	}
	return resp.ID, nil
}

func documentPath(key string) string {
	return "/api/v1/documents/" + url.PathEscape(key)
}
