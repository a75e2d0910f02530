package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
)

type tokenIssuer interface {
	IssueToken(ctx context.Context, params application.IssueTokenParams) (application.IssuedToken, error)
}

// StorePinger reports whether the backing store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type AuthHandler struct {
	service   tokenIssuer
	store     StorePinger
	responder responder
	logger    *slog.Logger
}

// NewAuthHandler serves token issuance and the health probe.
func NewAuthHandler(service tokenIssuer, store StorePinger, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, store: store, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "IssueToken", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode token request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	operatorID := strings.TrimSpace(req.OperatorID)
	logger := h.log(r.Context(), "IssueToken", "operator_id", operatorID)

	issued, err := h.service.IssueToken(r.Context(), application.IssueTokenParams{
		OperatorID: operatorID,
		APIKey:     req.APIKey,
	})
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) || errors.Is(err, application.ErrAccountDisabled) {
			logger.WarnContext(r.Context(), "token request rejected", "error_kind", application.ErrorKind(err))
			h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
				ErrorCode: "INVALID_CREDENTIALS",
				Message:   "operator id or api key is incorrect",
			})
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	capabilities := make([]string, 0, len(issued.Principal.Capabilities))
	for _, c := range issued.Principal.Capabilities {
		capabilities = append(capabilities, string(c))
	}
	logger.InfoContext(r.Context(), "token issued", "role", issued.Principal.Role)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, tokenResponse{
		Token:        issued.Token,
		ExpiresAt:    issued.ExpiresAt.UTC().Format(time.RFC3339),
		Role:         issued.Principal.Role,
		Capabilities: capabilities,
	})
}

func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.log(r.Context(), "Health").ErrorContext(r.Context(), "store ping failed", "error", err)
			h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
}

type tokenRequest struct {
	OperatorID string `json:"operator_id"`
	APIKey     string `json:"api_key"`
}

type tokenResponse struct {
	Token        string   `json:"token"`
	ExpiresAt    string   `json:"expires_at"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// decodeJSON rejects unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after the JSON body")
	}
	return nil
}
