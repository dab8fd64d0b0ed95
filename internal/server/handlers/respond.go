package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/daybook/pkg/api"
)

// writeJSON отправляет JSON ответ
func writeJSON(w http.ResponseWriter, logger *slog.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// writeError отправляет JSON ответ с ошибкой
func writeError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	writeJSON(w, logger, resp, statusCode)
}

// WriteError is writeError for middleware
func WriteError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	writeError(w, logger, message, statusCode)
}
