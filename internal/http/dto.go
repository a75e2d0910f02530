package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

const dateLayout = "2006-01-02"

// date accepts either a calendar day or a full RFC 3339 timestamp.
type date struct {
	time.Time
}

func (d *date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errInvalidDate
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return errInvalidDate
	}
	d.Time = t.UTC()
	return nil
}

func (d *date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

type assetDTO struct {
	ID          string    `json:"id"`
	TagID       string    `json:"asset_tag_id"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Category    string    `json:"category,omitempty"`
	SubCategory string    `json:"sub_category,omitempty"`
	Location    string    `json:"location,omitempty"`
	Department  string    `json:"department,omitempty"`
	Site        string    `json:"site,omitempty"`
	Cost        *float64  `json:"cost,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAssetDTO(asset persistence.Asset) assetDTO {
	return assetDTO{
		ID:          asset.ID,
		TagID:       asset.TagID,
		Description: asset.Description,
		Status:      string(asset.Status),
		Category:    asset.Category,
		SubCategory: asset.SubCategory,
		Location:    asset.Location,
		Department:  asset.Department,
		Site:        asset.Site,
		Cost:        asset.Cost,
		UpdatedAt:   asset.UpdatedAt,
	}
}

type checkinDTO struct {
	ID             string    `json:"id"`
	CheckinDate    string    `json:"checkin_date"`
	Condition      *string   `json:"condition,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	ReturnLocation *string   `json:"return_location,omitempty"`
	ActorID        string    `json:"actor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type checkoutDTO struct {
	ID                 string      `json:"id"`
	EmployeeID         string      `json:"employee_id"`
	CheckoutDate       string      `json:"checkout_date"`
	ExpectedReturnDate *string     `json:"expected_return_date,omitempty"`
	Open               bool        `json:"open"`
	ActorID            string      `json:"actor_id"`
	CreatedAt          time.Time   `json:"created_at"`
	Checkin            *checkinDTO `json:"checkin,omitempty"`
}

func toCheckoutDTO(record application.CheckoutRecord) checkoutDTO {
	c := record.Checkout
	dto := checkoutDTO{
		ID:           c.ID,
		EmployeeID:   c.EmployeeID,
		CheckoutDate: c.CheckoutDate.Format(dateLayout),
		Open:         c.Open(),
		ActorID:      c.ActorID,
		CreatedAt:    c.CreatedAt,
	}
	if c.ExpectedReturnDate != nil {
		s := c.ExpectedReturnDate.Format(dateLayout)
		dto.ExpectedReturnDate = &s
	}
	if in := record.Checkin; in != nil {
		dto.Checkin = &checkinDTO{
			ID:             in.ID,
			CheckinDate:    in.CheckinDate.Format(dateLayout),
			Condition:      in.Condition,
			Notes:          in.Notes,
			ReturnLocation: in.ReturnLocation,
			ActorID:        in.ActorID,
			CreatedAt:      in.CreatedAt,
		}
	}
	return dto
}

type reservationDTO struct {
	ID              string     `json:"id"`
	AssetID         string     `json:"asset_id"`
	Type            string     `json:"reservation_type"`
	EmployeeID      *string    `json:"employee_id,omitempty"`
	Department      *string    `json:"department,omitempty"`
	ReservationDate string     `json:"reservation_date"`
	Purpose         *string    `json:"purpose,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	ActorID         string     `json:"actor_id"`
	CreatedAt       time.Time  `json:"created_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

func toReservationDTO(r persistence.Reservation) reservationDTO {
	return reservationDTO{
		ID:              r.ID,
		AssetID:         r.AssetID,
		Type:            string(r.Type),
		EmployeeID:      r.EmployeeID,
		Department:      r.Department,
		ReservationDate: r.ReservationDate.Format(dateLayout),
		Purpose:         r.Purpose,
		Notes:           r.Notes,
		ActorID:         r.ActorID,
		CreatedAt:       r.CreatedAt,
		CancelledAt:     r.CancelledAt,
	}
}

type historyResponse struct {
	Asset        assetDTO         `json:"asset"`
	Checkouts    []checkoutDTO    `json:"checkouts"`
	Reservations []reservationDTO `json:"reservations"`
}

func toHistoryResponse(h application.History) historyResponse {
	resp := historyResponse{
		Asset:        toAssetDTO(h.Asset),
		Checkouts:    make([]checkoutDTO, 0, len(h.Checkouts)),
		Reservations: make([]reservationDTO, 0, len(h.Reservations)),
	}
	for _, record := range h.Checkouts {
		resp.Checkouts = append(resp.Checkouts, toCheckoutDTO(record))
	}
	for _, r := range h.Reservations {
		resp.Reservations = append(resp.Reservations, toReservationDTO(r))
	}
	return resp
}

type resultDTO struct {
	Identifier string `json:"identifier"`
	AssetID    string `json:"asset_id,omitempty"`
	TagID      string `json:"asset_tag_id,omitempty"`
	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
	Retryable  bool   `json:"retryable"`
	Status     string `json:"status,omitempty"`
	RecordID   string `json:"record_id,omitempty"`
}

type batchResponse struct {
	Transition string      `json:"transition"`
	Results    []resultDTO `json:"results"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
}

func toBatchResponse(b application.BatchResult) batchResponse {
	resp := batchResponse{
		Transition: string(b.Transition),
		Results:    make([]resultDTO, 0, len(b.Results)),
		Succeeded:  b.Succeeded,
		Failed:     b.Failed,
	}
	for _, r := range b.Results {
		resp.Results = append(resp.Results, resultDTO{
			Identifier: r.Identifier,
			AssetID:    r.AssetID,
			TagID:      r.TagID,
			Outcome:    r.Outcome,
			Detail:     r.Detail,
			Retryable:  r.Retryable,
			Status:     string(r.Status),
			RecordID:   r.RecordID,
		})
	}
	return resp
}

// batchStatus is 200 only when every asset succeeded.
func batchStatus(b application.BatchResult) int {
	if b.Failed > 0 {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}
