package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/jacobmentalconstruct/neocortex/internal/apperr"
	"github.com/jacobmentalconstruct/neocortex/internal/embedder"
	"github.com/jacobmentalconstruct/neocortex/internal/ingest"
	"github.com/jacobmentalconstruct/neocortex/internal/retrieval"
	"github.com/jacobmentalconstruct/neocortex/internal/scanner"
	"github.com/jacobmentalconstruct/neocortex/internal/storage"
)

// graphScale spreads layout coordinates for frontend rendering.
const graphScale = 1000.0

// Handler holds API route handlers.
type Handler struct {
	manager   *storage.Manager
	pipeline  *ingest.Pipeline
	engine    *retrieval.Engine
	ollamaURL string
}

// NewHandler creates a new Handler.
func NewHandler(manager *storage.Manager, pipeline *ingest.Pipeline, engine *retrieval.Engine, ollamaURL string) *Handler {
	return &Handler{
		manager:   manager,
		pipeline:  pipeline,
		engine:    engine,
		ollamaURL: ollamaURL,
	}
}

// ListKnowledgeBases handles GET /api/kb/list.
func (h *Handler) ListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	names, err := h.manager.List()
	if err != nil {
		slog.Error("list knowledge bases failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, KBListResponse{Databases: names})
}

// CreateKnowledgeBase handles POST /api/kb/create.
func (h *Handler) CreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req CreateKBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}

	db, err := h.manager.Create(r.Context(), req.Name)
	if err != nil {
		slog.Error("create knowledge base failed", slog.String("name", req.Name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	name := db.Name()
	_ = db.Close()

	writeJSON(w, http.StatusOK, StatusMessageResponse{
		Status:  "success",
		Message: "Created " + name,
	})
}

// ListModels handles GET /api/llm/models. It proxies the local Ollama
// model list; an unreachable Ollama reports offline, not an error.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := embedder.ListOllamaModels(r.Context(), h.ollamaURL)
	if err != nil {
		writeJSON(w, http.StatusOK, ModelsResponse{
			Status: "offline",
			Models: []string{},
			Detail: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Status: "online", Models: models})
}

// ScanSource handles POST /api/stage/scan. It maps the territory without
// ingesting anything.
func (h *Handler) ScanSource(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Type != "" && req.Type != "folder" {
		writeJSON(w, http.StatusOK, StatusMessageResponse{
			Status:  "error",
			Message: "Type not supported yet",
		})
		return
	}

	s, err := scanner.New(req.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	tree, err := s.Scan()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{Tree: tree})
}

// ExecuteIngest handles POST /api/ingest/execute. The job runs in the
// background; at most one runs at a time.
func (h *Handler) ExecuteIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.DBName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("db_name is required"))
		return
	}

	if err := h.pipeline.Start(r.Context(), req); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorBody("Ingestion already in progress"))
			return
		}
		slog.Error("start ingestion failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, StatusMessageResponse{
		Status:  "started",
		Message: "Ingestion started in background",
	})
}

// IngestStatus handles GET /api/ingest/status, polled by the UI progress
// bar.
func (h *Handler) IngestStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Status().Snapshot())
}

// IngestInspection handles GET /api/ingest/inspection. Draining is
// destructive so pollers never see duplicate frames.
func (h *Handler) IngestInspection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InspectionResponse{Frames: h.pipeline.Inspector().Drain()})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	dbName := q.Get("db_name")
	limit, _ := strconv.Atoi(q.Get("limit"))

	if query == "" || dbName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q and db_name are required"))
		return
	}

	results, err := h.engine.Search(r.Context(), dbName, query, limit)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Database not found"))
			return
		}
		slog.Error("search failed", slog.String("db", dbName), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	if results == nil {
		results = []retrieval.Result{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/graph, returning the dependency graph with a
// circular layout the frontend can render directly.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	dbName := r.URL.Query().Get("db_name")
	if dbName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("db_name is required"))
		return
	}

	db, err := h.manager.Open(r.Context(), dbName)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Database not found"))
			return
		}
		slog.Error("open knowledge base failed", slog.String("db", dbName), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	defer func() { _ = db.Close() }()

	nodes, err := db.ListNodes(r.Context())
	if err != nil {
		slog.Error("list nodes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	edges, err := db.ListEdges(r.Context())
	if err != nil {
		slog.Error("list edges failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, buildGraph(nodes, edges))
}

// buildGraph arranges nodes on a circle. Deterministic and cheap, and
// good enough for corpus-sized graphs.
func buildGraph(nodes []storage.Node, edges []storage.Edge) GraphResponse {
	out := GraphResponse{
		Nodes: make([]GraphNode, 0, len(nodes)),
		Links: make([]GraphLink, 0, len(edges)),
	}

	for i, node := range nodes {
		angle := 2 * math.Pi * float64(i) / float64(len(nodes))
		out.Nodes = append(out.Nodes, GraphNode{
			ID:    strconv.FormatInt(node.ID, 10),
			Label: node.Label,
			Type:  node.Type,
			X:     math.Cos(angle) * graphScale,
			Y:     math.Sin(angle) * graphScale,
		})
	}
	for _, edge := range edges {
		out.Links = append(out.Links, GraphLink{
			Source: strconv.FormatInt(edge.SourceID, 10),
			Target: strconv.FormatInt(edge.TargetID, 10),
		})
	}
	return out
}
