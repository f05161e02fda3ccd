package handler

import (
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/lending-library/internal/repository"
)

// statusFor maps a service error onto an HTTP status. Duplicates are
// checked before the broader conflict kind they belong to.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, repository.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the status for err. Unexpected failures
// are logged with the request id and answered with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		fail(w, status, "internal server error", nil)
		return
	}
	fail(w, status, err.Error(), nil)
}
