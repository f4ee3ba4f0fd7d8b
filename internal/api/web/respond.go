package web

import (
	"encoding/json"
	"errors"
	"net/http"

	app "ortho-scan/internal/application"
	"ortho-scan/internal/infrastructure/storage"
)

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

// statusFor код ответа для ошибки сервиса
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrScanNotFound), errors.Is(err, app.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrPatientRequired), errors.Is(err, app.ErrNoScansSelected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, app.ErrUnsupportedFile), errors.Is(err, app.ErrUnreadableImage),
		errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
