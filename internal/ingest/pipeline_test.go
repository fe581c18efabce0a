package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobmentalconstruct/neocortex/internal/apperr"
	"github.com/jacobmentalconstruct/neocortex/internal/embedder"
	"github.com/jacobmentalconstruct/neocortex/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T) (*Pipeline, *storage.Manager) {
	t.Helper()
	manager, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	return NewPipeline(manager, embedder.NewLocalProvider(nil), testLogger()), manager
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func waitForIdle(t *testing.T, p *Pipeline) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !p.Status().IsRunning()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPipelineIngestsManifest(t *testing.T) {
	ctx := context.Background()
	pipeline, manager := newTestPipeline(t)

	db, err := manager.Create(ctx, "corpus")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	root := t.TempDir()
	writeFile(t, root, "main.py", "import utils\n\nprint(utils.greet())\n")
	writeFile(t, root, "utils.py", "def greet():\n    return \"hello\"\n")
	writeFile(t, root, "empty.py", "   \n")

	req := Request{
		DBName:   "corpus",
		RootPath: root,
		Files:    []string{"main.py", "utils.py", "empty.py"},
		LLMModel: "llama3",
	}
	require.NoError(t, pipeline.Start(ctx, req))
	waitForIdle(t, pipeline)

	view := pipeline.Status().Snapshot()
	assert.Equal(t, 100, view.ProgressPercent)
	assert.Equal(t, 3, view.TotalFiles)
	assert.Contains(t, strings.Join(view.Log, "\n"), "Skipped empty file: empty.py")
	assert.Contains(t, view.Log[len(view.Log)-1], "2 files processed")

	db, err = manager.Open(ctx, "corpus")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// One chunk per short file, each with its lexical and semantic twin.
	count, err := db.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	hits, err := db.SearchText(ctx, "greet", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	queryVec, err := embedder.NewLocalProvider(nil).Embed(ctx, "import utils\n\nprint(utils.greet())")
	require.NoError(t, err)
	results, err := db.SearchVector(ctx, queryVec, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)

	// Graph: one node per ingested file, and main.py imports utils.py.
	nodes, err := db.ListNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	edges, err := db.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, storage.EdgeTypeImports, edges[0].RelationshipType)

	model, err := db.GetConfig(ctx, storage.ConfigPreferredModel)
	require.NoError(t, err)
	assert.Equal(t, "llama3", model)
}

func TestPipelineChunkWindows(t *testing.T) {
	ctx := context.Background()
	pipeline, manager := newTestPipeline(t)

	db, err := manager.Create(ctx, "big")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	root := t.TempDir()
	// 1000 characters: windows at 0, 450, and 900.
	writeFile(t, root, "big.txt", strings.Repeat("a", 1000))

	req := Request{DBName: "big", RootPath: root, Files: []string{"big.txt"}}
	require.NoError(t, pipeline.Start(ctx, req))
	waitForIdle(t, pipeline)

	db, err = manager.Open(ctx, "big")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	count, err := db.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPipelineToleratesBadFiles(t *testing.T) {
	ctx := context.Background()
	pipeline, manager := newTestPipeline(t)

	db, err := manager.Create(ctx, "partial")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	root := t.TempDir()
	writeFile(t, root, "good.py", "x = 1\n")

	req := Request{
		DBName:   "partial",
		RootPath: root,
		Files:    []string{"missing.py", "good.py"},
	}
	require.NoError(t, pipeline.Start(ctx, req))
	waitForIdle(t, pipeline)

	view := pipeline.Status().Snapshot()
	assert.Contains(t, strings.Join(view.Log, "\n"), "Err missing.py")
	assert.Contains(t, view.Log[len(view.Log)-1], "1 files processed")

	db, err = manager.Open(ctx, "partial")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	count, err := db.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// downEmbedder looks fine until the ingestion pre-flight ping.
type downEmbedder struct {
	*embedder.LocalProvider
}

func (downEmbedder) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestPipelineEmbedderDownAbortsBeforeWrites(t *testing.T) {
	ctx := context.Background()
	manager, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	pipeline := NewPipeline(manager, downEmbedder{embedder.NewLocalProvider(nil)}, testLogger())

	db, err := manager.Create(ctx, "corpus")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")

	req := Request{DBName: "corpus", RootPath: root, Files: []string{"a.py"}, LLMModel: "llama3"}
	require.NoError(t, pipeline.Start(ctx, req))
	waitForIdle(t, pipeline)

	view := pipeline.Status().Snapshot()
	assert.Contains(t, strings.Join(view.Log, "\n"), "Logic Core Failed")

	// The job died before opening the knowledge base, so nothing landed.
	db, err = manager.Open(ctx, "corpus")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	count, err := db.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	nodes, err := db.ListNodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	model, err := db.GetConfig(ctx, storage.ConfigPreferredModel)
	require.NoError(t, err)
	assert.Empty(t, model)

	// The slot is free again, so the job can be retried.
	require.NoError(t, pipeline.Start(ctx, req))
	waitForIdle(t, pipeline)
}

func TestPipelineConflict(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	// Claim the slot as a running job would.
	require.True(t, pipeline.Status().TryStart())

	err := pipeline.Start(context.Background(), Request{DBName: "any"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	pipeline.Status().Finish("released")
}

func TestPipelineMissingKnowledgeBase(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	req := Request{DBName: "ghost", RootPath: t.TempDir(), Files: []string{"a.py"}}
	require.NoError(t, pipeline.Start(context.Background(), req))
	waitForIdle(t, pipeline)

	view := pipeline.Status().Snapshot()
	assert.Contains(t, strings.Join(view.Log, "\n"), "Failed to open knowledge base")
}

func TestPipelinePushesInspectionFrames(t *testing.T) {
	ctx := context.Background()
	pipeline, manager := newTestPipeline(t)

	db, err := manager.Create(ctx, "frames")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	root := t.TempDir()
	writeFile(t, root, "a.py", "import os\n")

	req := Request{DBName: "frames", RootPath: root, Files: []string{"a.py"}}
	require.NoError(t, pipeline.Start(ctx, req))
	waitForIdle(t, pipeline)

	frames := pipeline.Inspector().Drain()
	require.Len(t, frames, 1)
	assert.Equal(t, "a.py_0", frames[0].ID)
	assert.Len(t, frames[0].VectorPreview, previewComponents)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, frames[0].ConceptColor)
}
