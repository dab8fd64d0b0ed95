package middleware

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/daybook/internal/server/handlers"
)

// Auth проверяет JWT access token и кладет пользователя в контекст запроса
func Auth(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := handlers.BearerToken(r)
			if !ok {
				logger.Warn("missing or malformed Authorization header", "path", r.URL.Path)
				handlers.WriteError(w, logger, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, tokenString)
			if err != nil {
				logger.Warn("invalid access token", "error", err, "device_id", handlers.DeviceID(r))
				handlers.WriteError(w, logger, "invalid or expired access token", http.StatusUnauthorized)
				return
			}

			logger.Debug("user authenticated",
				"user_id", claims.UserID,
				"username", claims.Username,
				"device_id", handlers.DeviceID(r))

			ctx := handlers.WithUser(r.Context(), claims.UserID, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
