package storage

import (
	"context"

	"github.com/iudanet/daybook/internal/models"
)

// DocumentStorage хранит снимки коллекций как непрозрачные документы.
// Сервер не сливает содержимое: последняя успешная запись побеждает.
type DocumentStorage interface {
	// GetDocument retrieves a document with content
	// Returns ErrDocumentNotFound if the user has no document with this key
	GetDocument(ctx context.Context, userID, key string) (*models.Document, error)

	// PutDocument creates or overwrites the document (user_id, key)
	// doc.ID is filled with the document handle
	PutDocument(ctx context.Context, doc *models.Document) error

	// CreateDocument inserts the document only if (user_id, key) does not exist yet
	// Returns the stored document and whether it was created by this call
	CreateDocument(ctx context.Context, doc *models.Document) (*models.Document, bool, error)

	// ListDocuments returns document metadata of a user without content
	ListDocuments(ctx context.Context, userID string) ([]*models.Document, error)
}
