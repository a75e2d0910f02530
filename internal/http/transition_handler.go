package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

type lifecycleService interface {
	Checkout(ctx context.Context, params application.CheckoutParams) (application.BatchResult, error)
	Checkin(ctx context.Context, params application.CheckinParams) (application.BatchResult, error)
	Reserve(ctx context.Context, params application.ReserveParams) (application.BatchResult, error)
	CancelReservation(ctx context.Context, params application.CancelReservationParams) (persistence.Reservation, error)
}

type TransitionHandler struct {
	service   lifecycleService
	responder responder
	logger    *slog.Logger
}

func NewTransitionHandler(service lifecycleService, logger *slog.Logger) *TransitionHandler {
	base := defaultLogger(logger)
	return &TransitionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TransitionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TransitionHandler", operation, attrs...)
}

func (h *TransitionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, "Checkout", err)
		return
	}

	items := make([]application.CheckoutItem, 0, len(req.Assets))
	for _, a := range req.Assets {
		items = append(items, application.CheckoutItem{
			Identifier: a.Tag,
			Placement: application.PlacementInput{
				Department: a.Department,
				Site:       a.Site,
				Location:   a.Location,
			},
		})
	}

	result, err := h.service.Checkout(r.Context(), application.CheckoutParams{
		Principal:          principal,
		Items:              items,
		EmployeeID:         req.EmployeeID,
		CheckoutDate:       req.CheckoutDate.Time,
		ExpectedReturnDate: req.ExpectedReturnDate.ptr(),
	})
	h.writeBatch(w, r, "Checkout", result, err)
}

func (h *TransitionHandler) Checkin(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req checkinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, "Checkin", err)
		return
	}

	items := make([]application.CheckinItem, 0, len(req.Assets))
	for _, a := range req.Assets {
		items = append(items, application.CheckinItem{
			Identifier:     a.Tag,
			CheckoutID:     a.CheckoutID,
			Condition:      a.Condition,
			Notes:          a.Notes,
			ReturnLocation: a.ReturnLocation,
		})
	}

	result, err := h.service.Checkin(r.Context(), application.CheckinParams{
		Principal:   principal,
		Items:       items,
		CheckinDate: req.CheckinDate.Time,
	})
	h.writeBatch(w, r, "Checkin", result, err)
}

func (h *TransitionHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req reserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, "Reserve", err)
		return
	}

	result, err := h.service.Reserve(r.Context(), application.ReserveParams{
		Principal:       principal,
		Identifiers:     req.Assets,
		Type:            req.ReservationType,
		ReservationDate: req.ReservationDate.Time,
		EmployeeID:      req.EmployeeID,
		Department:      req.Department,
		Purpose:         req.Purpose,
		Notes:           req.Notes,
	})
	h.writeBatch(w, r, "Reserve", result, err)
}

func (h *TransitionHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	reservation, err := h.service.CancelReservation(r.Context(), application.CancelReservationParams{
		Principal:     principal,
		ReservationID: id,
	})
	if err != nil {
		h.log(r.Context(), "CancelReservation", "reservation_id", id).InfoContext(r.Context(), "cancel refused", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

// writeBatch answers with per-asset results. A batch interrupted by
// cancellation still reports the assets that were processed.
func (h *TransitionHandler) writeBatch(w http.ResponseWriter, r *http.Request, operation string, result application.BatchResult, err error) {
	logger := h.log(r.Context(), operation)
	if err != nil {
		if len(result.Results) > 0 && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			logger.WarnContext(r.Context(), "batch interrupted", "processed", len(result.Results), "error", err)
			h.responder.writeJSON(r.Context(), w, http.StatusMultiStatus, toBatchResponse(result))
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.DebugContext(r.Context(), "batch answered", "succeeded", result.Succeeded, "failed", result.Failed)
	h.responder.writeJSON(r.Context(), w, batchStatus(result), toBatchResponse(result))
}

func (h *TransitionHandler) badRequest(w http.ResponseWriter, r *http.Request, operation string, err error) {
	h.log(r.Context(), operation, "error_kind", "bad_request").InfoContext(r.Context(), "failed to decode request", "error", err)
	if errors.Is(err, errInvalidDate) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
}

type checkoutAsset struct {
	Tag        string  `json:"tag"`
	Department *string `json:"department,omitempty"`
	Site       *string `json:"site,omitempty"`
	Location   *string `json:"location,omitempty"`
}

type checkoutRequest struct {
	Assets             []checkoutAsset `json:"assets"`
	EmployeeID         string          `json:"employee_id"`
	CheckoutDate       date            `json:"checkout_date"`
	ExpectedReturnDate *date           `json:"expected_return_date,omitempty"`
}

type checkinAsset struct {
	Tag            string  `json:"tag"`
	CheckoutID     string  `json:"checkout_id,omitempty"`
	Condition      *string `json:"condition,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	ReturnLocation *string `json:"return_location,omitempty"`
}

type checkinRequest struct {
	Assets      []checkinAsset `json:"assets"`
	CheckinDate date           `json:"checkin_date"`
}

type reserveRequest struct {
	Assets          []string `json:"assets"`
	ReservationType string   `json:"reservation_type"`
	ReservationDate date     `json:"reservation_date"`
	EmployeeID      string   `json:"employee_id,omitempty"`
	Department      string   `json:"department,omitempty"`
	Purpose         *string  `json:"purpose,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}
