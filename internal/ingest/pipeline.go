package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacobmentalconstruct/neocortex/internal/apperr"
	"github.com/jacobmentalconstruct/neocortex/internal/chunker"
	"github.com/jacobmentalconstruct/neocortex/internal/embedder"
	"github.com/jacobmentalconstruct/neocortex/internal/storage"
	"github.com/jacobmentalconstruct/neocortex/internal/weaver"
)

// sourceTypeCode marks chunks ingested from source files.
const sourceTypeCode = "code"

// Request describes one ingestion job: a manifest of files relative to a
// root, written into a named knowledge base.
type Request struct {
	DBName   string   `json:"db_name"`
	RootPath string   `json:"root_path"`
	Files    []string `json:"files"`
	LLMModel string   `json:"llm_model"`
}

// Pipeline turns manifests of source files into chunk, lexical, vector,
// and graph records. At most one job runs at a time; all writes for a
// job land in a single transaction committed at the end.
type Pipeline struct {
	manager   *storage.Manager
	embedder  embedder.Embedder
	chunker   *chunker.Chunker
	weaver    *weaver.Weaver
	status    *Status
	inspector *Inspector
	logger    *slog.Logger
}

// NewPipeline creates an idle ingestion pipeline.
func NewPipeline(manager *storage.Manager, emb embedder.Embedder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		manager:   manager,
		embedder:  emb,
		chunker:   chunker.New(),
		weaver:    weaver.New(),
		status:    NewStatus(),
		inspector: NewInspector(),
		logger:    logger,
	}
}

// Status exposes the job tracker for polling endpoints.
func (p *Pipeline) Status() *Status { return p.status }

// Inspector exposes the chunk frame buffer for polling endpoints.
func (p *Pipeline) Inspector() *Inspector { return p.inspector }

// Start claims the job slot and runs the ingestion in the background.
// It fails with apperr.ErrConflict while another job is running. The job
// outlives the caller's request context.
func (p *Pipeline) Start(ctx context.Context, req Request) error {
	if !p.status.TryStart() {
		return fmt.Errorf("ingestion already in progress: %w", apperr.ErrConflict)
	}

	go p.run(context.WithoutCancel(ctx), req)
	return nil
}

func (p *Pipeline) run(ctx context.Context, req Request) {
	p.logger.Info("ingestion started",
		"db", req.DBName, "files", len(req.Files), "model", req.LLMModel)

	if err := p.embedder.Ping(ctx); err != nil {
		p.logger.Error("embedding backend unavailable", "error", err)
		p.status.Fail(fmt.Sprintf("Logic Core Failed: %v: %v", apperr.ErrEmbedderUnavailable, err))
		return
	}

	db, err := p.manager.Open(ctx, req.DBName)
	if err != nil {
		p.logger.Error("open knowledge base failed", "db", req.DBName, "error", err)
		p.status.Fail(fmt.Sprintf("Failed to open knowledge base %s: %v", req.DBName, err))
		return
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx)
	if err != nil {
		p.logger.Error("begin transaction failed", "error", err)
		p.status.Fail(fmt.Sprintf("Failed to start transaction: %v", err))
		return
	}
	// Safe after Commit; only rolls back when the job aborts midway.
	defer func() { _ = tx.Rollback() }()

	p.inspector.Clear()

	llmModel := req.LLMModel
	if llmModel == "" {
		llmModel = "none"
	}
	if err := tx.SetConfig(ctx, storage.ConfigPreferredModel, llmModel); err != nil {
		p.status.Fail(fmt.Sprintf("Failed to store agent config: %v", err))
		return
	}

	total := len(req.Files)
	succeeded := 0
	fileNodes := make(map[string]int64, total)
	fileDeps := make(map[string][]string, total)

	for index, relPath := range req.Files {
		fileName := filepath.Base(relPath)
		p.status.Update(fileName, index, total, fmt.Sprintf("Reading %s...", fileName))

		err := p.ingestFile(ctx, tx, req.RootPath, relPath, fileNodes, fileDeps)
		switch {
		case err == errEmptyFile:
			p.status.Update(fileName, index+1, total, fmt.Sprintf("Skipped empty file: %s", fileName))
		case err != nil:
			// A bad file must not sink the rest of the manifest.
			p.logger.Warn("file ingestion failed", "file", relPath, "error", err)
			p.status.Update(fileName, index+1, total, fmt.Sprintf("Err %s: %v", fileName, err))
		default:
			succeeded++
			p.status.Update(fileName, index+1, total, "")
		}
	}

	p.status.Update("Graph Weaver", total, total, "Weaving Dependencies...")
	if err := p.weaveEdges(ctx, tx, fileNodes, fileDeps); err != nil {
		p.logger.Warn("dependency weaving failed", "error", err)
		p.status.Update("Graph Weaver", total, total, fmt.Sprintf("Weaving failed: %v", err))
	}

	if err := tx.Commit(); err != nil {
		p.logger.Error("commit failed", "db", req.DBName, "error", err)
		p.status.Fail(fmt.Sprintf("Commit failed: %v", err))
		return
	}

	p.logger.Info("ingestion complete", "db", req.DBName, "processed", succeeded, "total", total)
	p.status.Finish(fmt.Sprintf("Ingestion Complete. %d files processed.", succeeded))
}

// errEmptyFile marks a manifest entry with no content after trimming.
var errEmptyFile = fmt.Errorf("empty file")

// ingestFile writes the node, chunk, lexical, and vector records for one
// source file. The three chunk-level records share a single chunk id.
func (p *Pipeline) ingestFile(ctx context.Context, tx *storage.Tx, rootPath, relPath string, fileNodes map[string]int64, fileDeps map[string][]string) error {
	fullPath := filepath.Join(rootPath, relPath)
	fileName := filepath.Base(fullPath)

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return errEmptyFile
	}

	props, err := json.Marshal(map[string]string{"path": relPath})
	if err != nil {
		return err
	}
	nodeID, err := tx.InsertNode(ctx, fileName, storage.NodeTypeFile, string(props))
	if err != nil {
		return err
	}
	fileNodes[fileName] = nodeID

	if lang := weaver.LanguageForPath(relPath); lang != "" {
		fileDeps[fileName] = p.weaver.Extract(content, lang)
	}

	for i, chunk := range p.chunker.Split(content) {
		vec, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}

		chunkID, err := tx.InsertChunk(ctx, chunk, relPath, sourceTypeCode)
		if err != nil {
			return err
		}
		if err := tx.InsertLexical(ctx, chunkID, chunk, relPath); err != nil {
			return err
		}
		if err := tx.InsertVector(ctx, chunkID, vec); err != nil {
			return err
		}

		p.inspector.Push(fileName, i, chunk, vec)
	}

	return nil
}

// weaveEdges links file nodes whose extracted dependencies name another
// ingested file. Dependency names are matched against file base names
// with their extension stripped.
func (p *Pipeline) weaveEdges(ctx context.Context, tx *storage.Tx, fileNodes map[string]int64, fileDeps map[string][]string) error {
	byStem := make(map[string]int64, len(fileNodes))
	for fileName, id := range fileNodes {
		stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		byStem[stem] = id
	}

	for fileName, deps := range fileDeps {
		sourceID := fileNodes[fileName]
		for _, dep := range deps {
			targetID, ok := byStem[dep]
			if !ok || targetID == sourceID {
				continue
			}
			edge := storage.Edge{
				SourceID:         sourceID,
				TargetID:         targetID,
				RelationshipType: storage.EdgeTypeImports,
			}
			if err := tx.InsertEdge(ctx, edge); err != nil {
				return err
			}
		}
	}
	return nil
}
