package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tubestream/backend/internal/apperr"
	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/repositories"
	"github.com/tubestream/backend/internal/views"
)

// apiResponse is the uniform success envelope.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiErrorResponse is the uniform error envelope.
type apiErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Success    bool     `json:"success"`
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeJSON(ctx, w, status, apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// respondError converts any failure into the error envelope. Kinds carried by
// apperr drive the status; well-known sentinels from the lower layers are
// classified here so handlers can pass them through untouched.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		status = http.StatusUnauthorized
		message = "unauthenticated"
	case errors.Is(err, views.ErrNotFound), errors.Is(err, repositories.ErrNotFound):
		status = http.StatusNotFound
		message = "resource not found"
	case errors.Is(err, repositories.ErrConflict):
		status = http.StatusConflict
		message = "resource already exists"
	default:
		if kind := apperr.KindOf(err); kind != apperr.Internal {
			status = statusForKind(kind)
			message = apperr.MessageOf(err)
		}
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request failed", "status", status, "error", err)
	} else {
		logging.FromContext(ctx).Warn("request rejected", "status", status, "error", err)
	}

	writeJSON(ctx, w, status, apiErrorResponse{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Errors:     []string{message},
		Success:    false,
	})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Upstream:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

// pageParams extracts page/limit query parameters, tolerating absence.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}
