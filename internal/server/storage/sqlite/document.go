package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/daybook/internal/models"
	"github.com/iudanet/daybook/internal/server/storage"
)

var _ storage.DocumentStorage = (*Storage)(nil)

// GetDocument retrieves a document with content
func (s *Storage) GetDocument(ctx context.Context, userID, key string) (*models.Document, error) {
	query := `
		SELECT id, user_id, doc_key, content, updated_by, updated_at
		FROM documents
		WHERE user_id = ? AND doc_key = ?
	`

	doc := &models.Document{}
	err := s.db.QueryRowContext(ctx, query, userID, key).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Key,
		&doc.Content,
		&doc.UpdatedBy,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// PutDocument creates or overwrites the document (user_id, key)
func (s *Storage) PutDocument(ctx context.Context, doc *models.Document) error {
	// id сохраняется при перезаписи: handle документа стабилен
	query := `
		INSERT INTO documents (id, user_id, doc_key, content, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, doc_key) DO UPDATE SET
			content = excluded.content,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var id string
	err := s.db.QueryRowContext(ctx, query,
		uuid.New().String(),
		doc.UserID,
		doc.Key,
		doc.Content,
		doc.UpdatedBy,
		doc.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}

	doc.ID = id
	return nil
}

// CreateDocument inserts the document only if (user_id, key) does not exist yet
func (s *Storage) CreateDocument(ctx context.Context, doc *models.Document) (*models.Document, bool, error) {
	query := `
		INSERT INTO documents (id, user_id, doc_key, content, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, doc_key) DO NOTHING
	`

	id := uuid.New().String()
	result, err := s.db.ExecContext(ctx, query,
		id,
		doc.UserID,
		doc.Key,
		doc.Content,
		doc.UpdatedBy,
		doc.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// Документ уже создан другим устройством
		existing, err := s.GetDocument(ctx, doc.UserID, doc.Key)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	created := *doc
	created.ID = id
	return &created, true, nil
}

// ListDocuments returns document metadata of a user without content
func (s *Storage) ListDocuments(ctx context.Context, userID string) ([]*models.Document, error) {
	query := `
		SELECT id, user_id, doc_key, updated_by, updated_at
		FROM documents
		WHERE user_id = ?
		ORDER BY doc_key
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Key, &doc.UpdatedBy, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}
