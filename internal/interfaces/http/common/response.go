package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("JSON エンコードに失敗", slog.Any("error", err))
	}
}

// WriteMessage writes {"error": message} with status.
func WriteMessage(logger *slog.Logger, w http.ResponseWriter, status int, message string) {
	WriteJSON(logger, w, status, map[string]string{"error": message})
}

// WriteError maps a catalog error onto its HTTP status. Unknown errors are logged and hidden.
func WriteError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
		}
		WriteMessage(logger, w, status, "内部エラーが発生しました")
		return
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		WriteJSON(logger, w, status, map[string]string{
			"error": validation.Message,
			"field": validation.Field,
		})
		return
	}
	WriteMessage(logger, w, status, err.Error())
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
