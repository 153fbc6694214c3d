package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/laschacras/cabanas-api/internal/calendar"
	"github.com/laschacras/cabanas-api/internal/models"
)

// Assistant is the chat pipeline behind POST /chat; satisfied by
// *bot.Responder.
type Assistant interface {
	Respond(ctx context.Context, utterance string) string
}

// SnapshotFunc reads the current store; satisfied by
// (*coordinator.Coordinator).Snapshot.
type SnapshotFunc func() ([]models.Reservation, error)

type ReservationHandler struct {
	snapshot  SnapshotFunc
	assistant Assistant
}

func NewReservationHandler(snapshot SnapshotFunc, assistant Assistant) *ReservationHandler {
	return &ReservationHandler{snapshot: snapshot, assistant: assistant}
}

type ListReservationsOutput struct {
	Body struct {
		Reservations []ReservationResponse `json:"reservations"`
	}
}

type ReservationResponse struct {
	GuestName   string  `json:"guest_name"`
	CheckIn     string  `json:"check_in_date"`
	CheckOut    string  `json:"check_out_date"`
	TotalNights int     `json:"total_nights"`
	TotalPrice  float64 `json:"total_price"`
	Cabin       string  `json:"cabin"`
	Deposit     float64 `json:"deposit"`
	Phone       string  `json:"phone,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

func (h *ReservationHandler) HandleList(ctx context.Context, input *struct{}) (*ListReservationsOutput, error) {
	reservations, err := h.snapshot()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load reservations: " + err.Error())
	}

	out := &ListReservationsOutput{}
	out.Body.Reservations = make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out.Body.Reservations = append(out.Body.Reservations, ReservationResponse{
			GuestName:   r.GuestName,
			CheckIn:     r.CheckIn.Format(models.DateLayout),
			CheckOut:    r.CheckOut().Format(models.DateLayout),
			TotalNights: r.TotalNights,
			TotalPrice:  r.TotalPrice,
			Cabin:       r.Cabin,
			Deposit:     r.Deposit,
			Phone:       r.Phone,
			Notes:       r.Notes,
		})
	}
	return out, nil
}

type UpcomingOutput struct {
	Body struct {
		Reservations []UpcomingResponse `json:"reservations"`
	}
}

type UpcomingResponse struct {
	GuestName string `json:"guest_name"`
	Cabin     string `json:"cabin"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
}

// HandleUpcoming returns the next three reservations by check-in date, with
// dates in Spanish "d de Month" form for the landing page.
func (h *ReservationHandler) HandleUpcoming(ctx context.Context, input *struct{}) (*UpcomingOutput, error) {
	reservations, err := h.snapshot()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load reservations: " + err.Error())
	}

	sort.SliceStable(reservations, func(i, j int) bool {
		return reservations[i].CheckIn.Before(reservations[j].CheckIn)
	})
	if len(reservations) > 3 {
		reservations = reservations[:3]
	}

	out := &UpcomingOutput{}
	out.Body.Reservations = make([]UpcomingResponse, 0, len(reservations))
	for _, r := range reservations {
		out.Body.Reservations = append(out.Body.Reservations, UpcomingResponse{
			GuestName: r.GuestName,
			Cabin:     r.Cabin,
			CheckIn:   SpanishDate(r.CheckIn),
			CheckOut:  SpanishDate(r.CheckOut()),
		})
	}
	return out, nil
}

type ChatInput struct {
	Body struct {
		Message string `json:"message" doc:"Free-form operator message" required:"true"`
	}
}

type ChatOutput struct {
	Body struct {
		Response string `json:"response"`
	}
}

func (h *ReservationHandler) HandleChat(ctx context.Context, input *ChatInput) (*ChatOutput, error) {
	if input.Body.Message == "" {
		return nil, huma.Error400BadRequest("Please provide a message")
	}
	out := &ChatOutput{}
	out.Body.Response = h.assistant.Respond(ctx, input.Body.Message)
	return out, nil
}

// HandleCalendar serves the rendered artifact straight off the current
// store, with the iCalendar content type.
func (h *ReservationHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.snapshot()
	if err != nil {
		http.Error(w, "failed to load reservations", http.StatusInternalServerError)
		return
	}
	artifact, err := calendar.Render(reservations, time.Now())
	if err != nil {
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Write(artifact)
}

var spanishMonths = [...]string{
	"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

func SpanishDate(t time.Time) string {
	return fmt.Sprintf("%d de %s", t.Day(), spanishMonths[t.Month()])
}
