package handlers

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
)

// CapturesRoute is where saved images are served from
const CapturesRoute = "/api/captures/"

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Classify  *ClassifyHandler
	History   *HistoryHandler
	Nutrition *NutritionHandler
	Captures  http.HandlerFunc
	WebSocket http.HandlerFunc
}

// CaptureURL maps a stored image path to its public URL
func CaptureURL(imagePath string) string {
	return CapturesRoute + path.Base(imagePath)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes mounts the API on r
func RegisterRoutes(r chi.Router, h Handlers) {
	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/classify", h.Classify.Classify)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.History.ListHistory)
			r.Delete("/", h.History.ClearHistory)
			r.Get("/count", h.History.CountHistory)
			r.Get("/export", h.History.ExportHistory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.History.GetHistory)
				r.Delete("/", h.History.DeleteHistory)
			})
		})

		r.Route("/nutrition", func(r chi.Router) {
			r.Get("/", h.Nutrition.ListNutrition)
			r.Get("/{label}", h.Nutrition.GetNutrition)
		})
		r.Get("/labels", h.Nutrition.ListLabels)

		if h.Captures != nil {
			r.Get("/captures/*", h.Captures)
		}
	})

	if h.WebSocket != nil {
		r.Get("/ws", h.WebSocket)
	}
}
