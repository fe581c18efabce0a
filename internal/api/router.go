package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacobmentalconstruct/neocortex/internal/ingest"
	"github.com/jacobmentalconstruct/neocortex/internal/retrieval"
	"github.com/jacobmentalconstruct/neocortex/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted under /api.
func NewRouter(manager *storage.Manager, pipeline *ingest.Pipeline, engine *retrieval.Engine, ollamaURL string) chi.Router {
	h := NewHandler(manager, pipeline, engine, ollamaURL)

	r := chi.NewRouter()
	r.Use(CORSMiddleware)

	// Health check endpoints.
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Route("/api", func(r chi.Router) {
		// Knowledge base management.
		r.Get("/kb/list", h.ListKnowledgeBases)
		r.Post("/kb/create", h.CreateKnowledgeBase)

		// Local LLM discovery.
		r.Get("/llm/models", h.ListModels)

		// Staging and ingestion.
		r.Post("/stage/scan", h.ScanSource)
		r.Post("/ingest/execute", h.ExecuteIngest)
		r.Get("/ingest/status", h.IngestStatus)
		r.Get("/ingest/inspection", h.IngestInspection)

		// Query surface.
		r.Get("/search", h.Search)
		r.Get("/graph", h.Graph)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
