package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(r *chi.Mux, reservationHandler *ReservationHandler, staticDir string) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	config := huma.DefaultConfig("Cabañas Las Chacras Reservations", "1.0.0")
	api := humachi.New(r, config)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	huma.Get(api, "/reservations", reservationHandler.HandleList)
	huma.Get(api, "/reservations/upcoming", reservationHandler.HandleUpcoming)
	huma.Post(api, "/chat", reservationHandler.HandleChat)

	// Raw chi route: the artifact needs the text/calendar content type.
	r.Get("/calendar.ics", reservationHandler.HandleCalendar)

	if staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
}
