// Package couch implements the remote snapshot store on top of CouchDB.
// Credentials are part of the server URL; the per-call token is not used.
package couch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb" // регистрирует драйвер "couch"

	"github.com/iudanet/daybook/internal/client/remote"
)

// docPrefix отделяет документы daybook от чужих документов в той же базе
const docPrefix = "daybook:"

// Store хранит каждый снимок коллекции отдельным документом CouchDB
type Store struct {
	client   *kivik.Client
	db       *kivik.DB
	deviceID string
	now      func() time.Time
}

var _ remote.Store = (*Store)(nil)

// snapshotDoc - документ CouchDB, content хранит снимок без изменений
type snapshotDoc struct {
	UpdatedAt time.Time       `json:"updated_at"`
	ID        string          `json:"_id"`
	Rev       string          `json:"_rev,omitempty"`
	UpdatedBy string          `json:"updated_by"`
	Content   json.RawMessage `json:"content"`
}

// Open connects to CouchDB and creates the database when it is missing.
func Open(ctx context.Context, url, dbName, deviceID string) (*Store, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to CouchDB: %w", remote.ErrUnavailable, err)
	}

	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return nil, mapError("check database", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, dbName); err != nil && kivik.HTTPStatus(err) != http.StatusPreconditionFailed {
			return nil, mapError("create database", err)
		}
	}

	return &Store{client: client, db: client.DB(dbName), deviceID: deviceID, now: time.Now}, nil
}

// Close releases the CouchDB client
func (s *Store) Close() error {
	return s.client.Close()
}

// Health проверяет доступность сервера CouchDB
func (s *Store) Health(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return mapError("ping", err)
	}
	if !ok {
		return fmt.Errorf("%w: couch ping failed", remote.ErrUnavailable)
	}
	return nil
}

// Watch следит за лентой изменений базы и вызывает handler с ключом
// каждого документа daybook, записанного другим устройством.
// Блокируется до отмены ctx или обрыва ленты.
func (s *Store) Watch(ctx context.Context, handler func(key string)) error {
	changes := s.db.Changes(ctx, kivik.Params(map[string]any{
		"feed":         "continuous",
		"since":        "now",
		"include_docs": true,
		"heartbeat":    30000,
	}))
	defer changes.Close()

	for changes.Next() {
		key, ok := strings.CutPrefix(changes.ID(), docPrefix)
		if !ok {
			continue
		}
		var doc snapshotDoc
		if err := changes.ScanDoc(&doc); err == nil && doc.UpdatedBy == s.deviceID {
			continue
		}
		handler(key)
	}

	if err := changes.Err(); err != nil && ctx.Err() == nil {
		return mapError("changes", err)
	}
	return ctx.Err()
}

// Get возвращает content документа или remote.ErrNotFound
func (s *Store) Get(ctx context.Context, _ string, key string) ([]byte, error) {
	doc, err := s.fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return []byte(doc.Content), nil
}

// Put перезаписывает документ. При конфликте ревизий перечитывает _rev и повторяет один раз.
func (s *Store) Put(ctx context.Context, _ string, key string, data []byte) error {
	for attempt := 0; ; attempt++ {
		rev := ""
		current, err := s.fetch(ctx, key)
		switch {
		case err == nil:
			rev = current.Rev
		case isNotFound(err):
		default:
			return err
		}

		err = s.write(ctx, key, rev, data)
		if err == nil {
			return nil
		}
		if kivik.HTTPStatus(err) != http.StatusConflict || attempt > 0 {
			return mapError("put "+key, err)
		}
	}
}

// Create создает документ, если его нет, и возвращает его id
func (s *Store) Create(ctx context.Context, _ string, key string, initial []byte) (string, error) {
	docID := docPrefix + key

	_, err := s.fetch(ctx, key)
	if err == nil {
		return docID, nil
	}
	if !isNotFound(err) {
		return "", err
	}

	if err := s.write(ctx, key, "", initial); err != nil {
		// Документ создало другое устройство между чтением и записью
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return docID, nil
		}
		return "", mapError("create "+key, err)
	}
	return docID, nil
}

func (s *Store) fetch(ctx context.Context, key string) (*snapshotDoc, error) {
	var doc snapshotDoc
	if err := s.db.Get(ctx, docPrefix+key).ScanDoc(&doc); err != nil {
		return nil, mapError("get "+key, err)
	}
	return &doc, nil
}

func (s *Store) write(ctx context.Context, key, rev string, data []byte) error {
	if len(data) == 0 {
		data = []byte("null")
	}
	doc := snapshotDoc{
		ID:        docPrefix + key,
		Rev:       rev,
		Content:   json.RawMessage(data),
		UpdatedBy: s.deviceID,
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.db.Put(ctx, doc.ID, doc)
	return err
}

// mapError приводит ошибки kivik к контракту remote.Store
func mapError(op string, err error) error {
	switch kivik.HTTPStatus(err) {
	case http.StatusNotFound:
		return fmt.Errorf("couch %s: %w", op, remote.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("couch %s: %w", op, remote.ErrUnauthorized)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: couch %s: %w", remote.ErrUnavailable, op, err)
	case 0:
		// Нет HTTP статуса - сетевая ошибка
		return fmt.Errorf("%w: couch %s: %w", remote.ErrUnavailable, op, err)
	default:
		return fmt.Errorf("couch %s: %w", op, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, remote.ErrNotFound)
}
