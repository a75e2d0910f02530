package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
)

var (
	errBadRequestBody = errors.New("request body is malformed")
	errMissingToken   = errors.New("a bearer token is required")
	errInvalidDate    = errors.New("dates must be YYYY-MM-DD or RFC 3339")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors onto status codes. Per-asset
// refusals never reach here; they travel inside batch results.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	code := strings.ToUpper(application.ErrorKind(err))
	switch {
	case errors.Is(err, application.ErrUnauthorized),
		errors.Is(err, application.ErrTokenExpired),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: code, Message: "authentication required"})
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{ErrorCode: code, Message: "request cancelled"})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: code,
			Message:   "input is invalid",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	var violation *lifecycle.Violation
	if errors.As(err, &violation) && violation.Kind != lifecycle.KindInternal {
		r.writeJSON(ctx, w, violationStatus(violation.Kind), errorResponse{
			ErrorCode: code,
			Message:   violation.Error(),
			Retryable: violation.Kind.Retryable(),
		})
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "internal server error"})
}

func violationStatus(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.KindForbidden:
		return http.StatusForbidden
	case lifecycle.KindNotFound:
		return http.StatusNotFound
	case lifecycle.KindInvalidTarget:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}
