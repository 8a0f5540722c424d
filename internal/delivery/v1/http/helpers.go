package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/northmart/reco-backend/pkg/e"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrInvalidLimit):
		return http.StatusBadRequest, e.ErrInvalidLimit.Error()
	case errors.Is(err, e.ErrUserIDRequired):
		return http.StatusBadRequest, e.ErrUserIDRequired.Error()
	case errors.Is(err, e.ErrProductIDRequired):
		return http.StatusBadRequest, e.ErrProductIDRequired.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseLimit разбирает query-параметр limit. Отсутствие параметра — не ошибка,
// подставляется значение по умолчанию; мусор в значении — ошибка валидации.
func parseLimit(r *http.Request, defaultLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, e.Wrap(raw, e.ErrInvalidLimit)
	}

	return limit, nil
}
