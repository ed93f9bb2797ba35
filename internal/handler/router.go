package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/orderload-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса загрузки заказов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	// Поток событий живёт вне gzip: кадры должны уходить клиенту сразу.
	r.Get("/api/import/events", h.Events)

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Post("/api/upload", h.Upload)

		r.Route("/api/import", func(r chi.Router) {
			r.Post("/start", h.StartImport)
			r.Post("/stop", h.StopImport)
			r.Get("/status", h.Status)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
