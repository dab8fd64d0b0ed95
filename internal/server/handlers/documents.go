package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/daybook/internal/models"
	"github.com/iudanet/daybook/internal/server/storage"
	"github.com/iudanet/daybook/internal/validation"
	"github.com/iudanet/daybook/pkg/api"
)

// Publisher рассылает уведомления о записи документа другим устройствам пользователя
type Publisher interface {
	Publish(userID string, n api.Notification) int
}

// DocumentHandler обрабатывает запросы к снимкам коллекций.
// Содержимое хранится как есть: сервер проверяет форму снимка, но не сливает записи.
type DocumentHandler struct {
	logger    *slog.Logger
	storage   storage.DocumentStorage
	publisher Publisher
	now       func() time.Time
}

// NewDocumentHandler создает новый handler для документов
func NewDocumentHandler(logger *slog.Logger, documentStorage storage.DocumentStorage, publisher Publisher) *DocumentHandler {
	return &DocumentHandler{
		logger:    logger,
		storage:   documentStorage,
		publisher: publisher,
		now:       time.Now,
	}
}

// Get обрабатывает GET /api/v1/documents/{key}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		writeError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	key := r.PathValue("key")
	if err := validation.ValidateDocumentKey(key); err != nil {
		writeError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.storage.GetDocument(ctx, userID, key)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			writeError(w, h.logger, "document not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get document",
			slog.String("user_id", userID), slog.String("key", key), slog.Any("error", err))
		writeError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(api.HeaderDocumentID, doc.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		h.logger.ErrorContext(ctx, "failed to write document", slog.Any("error", err))
	}
}

// Put обрабатывает PUT /api/v1/documents/{key}
// Перезаписывает документ целиком и уведомляет остальные устройства
func (h *DocumentHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		writeError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	key := r.PathValue("key")
	if err := validation.ValidateDocumentKey(key); err != nil {
		writeError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	content, status, err := readContent(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected document body",
			slog.String("key", key), slog.Any("error", err))
		writeError(w, h.logger, err.Error(), status)
		return
	}

	doc := &models.Document{
		UserID:    userID,
		Key:       key,
		Content:   content,
		UpdatedBy: DeviceID(r),
		UpdatedAt: h.now().UTC(),
	}
	if err := h.storage.PutDocument(ctx, doc); err != nil {
		h.logger.ErrorContext(ctx, "failed to put document",
			slog.String("user_id", userID), slog.String("key", key), slog.Any("error", err))
		writeError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	delivered := h.publish(doc)
	h.logger.InfoContext(ctx, "document stored",
		slog.String("user_id", userID),
		slog.String("key", key),
		slog.String("device_id", doc.UpdatedBy),
		slog.Int("bytes", len(content)),
		slog.Int("notified", delivered))

	writeJSON(w, h.logger, documentResponse(doc, false), http.StatusOK)
}

// Create обрабатывает POST /api/v1/documents
// Идемпотентно: повторное создание возвращает существующий документ со статусом 200
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		writeError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CreateDocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, api.MaxDocumentSize)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDocumentKey(req.Key); err != nil {
		writeError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	var content []byte
	if len(req.Content) > 0 && string(req.Content) != "null" {
		content = []byte(req.Content)
	}

	doc := &models.Document{
		UserID:    userID,
		Key:       req.Key,
		Content:   content,
		UpdatedBy: DeviceID(r),
		UpdatedAt: h.now().UTC(),
	}
	stored, created, err := h.storage.CreateDocument(ctx, doc)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create document",
			slog.String("user_id", userID), slog.String("key", req.Key), slog.Any("error", err))
		writeError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.publish(stored)
		h.logger.InfoContext(ctx, "document created",
			slog.String("user_id", userID), slog.String("key", req.Key))
	}
	writeJSON(w, h.logger, documentResponse(stored, created), status)
}

// List обрабатывает GET /api/v1/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		writeError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	docs, err := h.storage.ListDocuments(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list documents",
			slog.String("user_id", userID), slog.Any("error", err))
		writeError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, documentResponse(doc, false))
	}
	writeJSON(w, h.logger, resp, http.StatusOK)
}

func (h *DocumentHandler) publish(doc *models.Document) int {
	if h.publisher == nil {
		return 0
	}
	return h.publisher.Publish(doc.UserID, api.Notification{
		Type:      api.NotificationDocumentUpdated,
		Key:       doc.Key,
		DeviceID:  doc.UpdatedBy,
		UpdatedAt: doc.UpdatedAt,
	})
}

// readContent читает тело PUT и проверяет, что это снимок коллекции.
// Снимок более новой схемы принимается: сервер не интерпретирует записи.
func readContent(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, api.MaxDocumentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("document too large")
		}
		return nil, http.StatusBadRequest, errors.New("failed to read request body")
	}
	if len(content) == 0 {
		return nil, http.StatusBadRequest, errors.New("document body is empty")
	}
	if !json.Valid(content) {
		return nil, http.StatusBadRequest, errors.New("document body is not valid JSON")
	}
	if _, err := models.DecodeSnapshot(content); err != nil && !errors.Is(err, models.ErrUnsupportedSchema) {
		return nil, http.StatusBadRequest, fmt.Errorf("document is not a collection snapshot: %v", err)
	}
	return content, http.StatusOK, nil
}

func documentResponse(doc *models.Document, created bool) api.DocumentResponse {
	return api.DocumentResponse{
		ID:        doc.ID,
		Key:       doc.Key,
		UpdatedBy: doc.UpdatedBy,
		UpdatedAt: doc.UpdatedAt,
		Created:   created,
	}
}
