package api

import (
	"github.com/jacobmentalconstruct/neocortex/internal/ingest"
	"github.com/jacobmentalconstruct/neocortex/internal/retrieval"
	"github.com/jacobmentalconstruct/neocortex/internal/scanner"
)

// CreateKBRequest is the request body for creating a knowledge base.
type CreateKBRequest struct {
	Name string `json:"name"`
}

// KBListResponse lists the available knowledge base files.
type KBListResponse struct {
	Databases []string `json:"databases"`
}

// StatusMessageResponse is a generic status/message pair.
type StatusMessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ScanRequest is the request body for staging a source tree.
type ScanRequest struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// ScanResponse wraps the staged file tree.
type ScanResponse struct {
	Tree *scanner.Node `json:"tree"`
}

// IngestRequest is the request body for starting an ingestion job
// (aliased from the domain layer).
type IngestRequest = ingest.Request

// InspectionResponse wraps drained inspection frames.
type InspectionResponse struct {
	Frames []ingest.Frame `json:"frames"`
}

// SearchResponse wraps fused search results.
type SearchResponse struct {
	Results []retrieval.Result `json:"results"`
}

// ModelsResponse reports local LLM availability.
type ModelsResponse struct {
	Status string   `json:"status"`
	Models []string `json:"models"`
	Detail string   `json:"detail,omitempty"`
}

// GraphNode is a positioned node in the graph response.
type GraphNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Type  string  `json:"type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// GraphLink is an edge in the graph response.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphResponse wraps the dependency graph with layout coordinates.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}
