package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/snapnotes/internal/noteservice"
)

// RouterConfig holds the HTTP-level settings of the API.
type RouterConfig struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *noteservice.Service, sseHandler http.Handler, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)
	uh := NewUploadHandler(svc, cfg.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	// AI actions.
	r.Post("/generate", h.Generate)
	r.Post("/refine", h.Refine)
	r.Post("/convert", h.Convert)
	r.Post("/copilot", h.Copilot)

	// Format transformer.
	r.Post("/parse", h.Parse)
	r.Post("/export", h.Export)

	// PDF ingestion.
	r.Post("/extract", uh.Extract)

	// History.
	r.Get("/history", h.ListHistory)
	r.Delete("/history", h.ClearHistory)
	r.Get("/history/stats", h.HistoryStats)
	r.Get("/history/{id}", h.GetHistoryEntry)
	r.Delete("/history/{id}", h.DeleteHistoryEntry)
	r.Get("/history/{id}/export", h.ExportHistoryEntry)
	r.Post("/history/{id}/save", h.SaveHistoryEntry)
	r.Get("/exports", h.ListExports)
	r.Get("/exports/*", h.DownloadExport)
	r.Delete("/exports/*", h.DeleteExport)

	// Preferences.
	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.SavePreferences)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
