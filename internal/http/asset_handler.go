package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

type lookupService interface {
	Resolve(ctx context.Context, identifier string) (persistence.Asset, error)
	Suggest(ctx context.Context, params application.SuggestParams) ([]persistence.Asset, error)
}

type historyService interface {
	History(ctx context.Context, identifier string) (application.History, error)
}

type AssetHandler struct {
	lookup    lookupService
	history   historyService
	responder responder
	logger    *slog.Logger
}

func NewAssetHandler(lookup lookupService, history historyService, logger *slog.Logger) *AssetHandler {
	base := defaultLogger(logger)
	return &AssetHandler{lookup: lookup, history: history, responder: newResponder(base), logger: base}
}

func (h *AssetHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AssetHandler", operation, attrs...)
}

func (h *AssetHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	asset, err := h.lookup.Resolve(r.Context(), tag)
	if err != nil {
		h.log(r.Context(), "Resolve", "tag", tag).DebugContext(r.Context(), "resolve failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAssetDTO(asset))
}

func (h *AssetHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	logger := h.log(r.Context(), "Suggest", "q", query.Get("q"))

	verr := &application.ValidationError{}
	purpose, err := application.ParseSuggestPurpose(query.Get("for"))
	if err != nil {
		verr.FieldErrors = map[string]string{"for": "must be checkout, checkin, reserve or any"}
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			if verr.FieldErrors == nil {
				verr.FieldErrors = make(map[string]string)
			}
			verr.FieldErrors["limit"] = "must be a non-negative integer"
		}
	}
	if verr.HasErrors() {
		logger.InfoContext(r.Context(), "suggest rejected", "error", verr)
		h.responder.handleServiceError(r.Context(), w, verr)
		return
	}

	assets, err := h.lookup.Suggest(r.Context(), application.SuggestParams{
		Query:   query.Get("q"),
		Purpose: purpose,
		Limit:   limit,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := suggestResponse{Assets: make([]assetDTO, 0, len(assets))}
	for _, asset := range assets {
		resp.Assets = append(resp.Assets, toAssetDTO(asset))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *AssetHandler) History(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	history, err := h.history.History(r.Context(), tag)
	if err != nil {
		h.log(r.Context(), "History", "tag", tag).DebugContext(r.Context(), "history failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toHistoryResponse(history))
}

type suggestResponse struct {
	Assets []assetDTO `json:"assets"`
}
