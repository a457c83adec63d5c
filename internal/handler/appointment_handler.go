package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookcal/internal/model"
)

// maxRequestBodyBytes は予約リクエストボディの上限。
const maxRequestBodyBytes = 1 << 16

// BookingServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	Create(ctx context.Context, email string, req model.AppointmentRequest) (*model.Booking, error)
	List(ctx context.Context, email string) ([]model.CalendarEvent, error)
	Update(ctx context.Context, email, eventID string, req model.AppointmentRequest) error
	Cancel(ctx context.Context, email, eventID string) error
}

// AppointmentHandler は予約管理のHTTPハンドラー。
type AppointmentHandler struct {
	service BookingServiceInterface
}

// NewAppointmentHandler はAppointmentHandlerを生成する。
func NewAppointmentHandler(service BookingServiceInterface) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

type messageResponse struct {
	Message string `json:"message"`
}

type createResponse struct {
	Message         string `json:"message"`
	BookerEventID   string `json:"bookerEventId"`
	BookerEventLink string `json:"bookerEventLink"`
}

type eventTimeResponse struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

// eventResponse は予定のAPIレスポンス。
type eventResponse struct {
	ID          string            `json:"id"`
	Summary     string            `json:"summary"`
	Description string            `json:"description"`
	Start       eventTimeResponse `json:"start"`
	End         eventTimeResponse `json:"end"`
	HTMLLink    string            `json:"htmlLink"`
	Status      string            `json:"status"`
}

// Create は予約を作成する。
// POST /event/create
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	req, ok := decodeAppointment(w, r)
	if !ok {
		return
	}

	booking, err := h.service.Create(r.Context(), email, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, createResponse{
		Message:         "Event created successfully",
		BookerEventID:   booking.EventID,
		BookerEventLink: booking.Link,
	})
}

// List は今後の予定を返す。
// GET /event/
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	events, err := h.service.List(r.Context(), email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]eventResponse, len(events))
	for i, e := range events {
		resp[i] = toEventResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update は予約を別の枠に変更する。
// PUT /event/update/{eventId}
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	req, ok := decodeAppointment(w, r)
	if !ok {
		return
	}

	if err := h.service.Update(r.Context(), email, chi.URLParam(r, "eventId"), req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Event updated successfully"})
}

// Delete は予約を取り消す。
// DELETE /event/delete/{eventId}
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), email, chi.URLParam(r, "eventId")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}

// decodeAppointment はリクエストボディを予約リクエストとして読み込む。
// 失敗した場合は400を書き込みfalseを返す。
func decodeAppointment(w http.ResponseWriter, r *http.Request) (model.AppointmentRequest, bool) {
	var req model.AppointmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		handleServiceError(w, r, model.NewValidationError("body", "Invalid request body"))
		return req, false
	}
	return req, true
}

func toEventResponse(e model.CalendarEvent) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Summary:     e.Summary,
		Description: e.Description,
		Start:       toEventTime(e.Start, e.TimeZone),
		End:         toEventTime(e.End, e.TimeZone),
		HTMLLink:    e.HTMLLink,
		Status:      e.Status,
	}
}

func toEventTime(t time.Time, zone string) eventTimeResponse {
	if t.IsZero() {
		return eventTimeResponse{TimeZone: zone}
	}
	return eventTimeResponse{DateTime: t.Format(time.RFC3339), TimeZone: zone}
}
