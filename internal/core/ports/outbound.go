package ports

import (
	"context"
	"io"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// ChatModel is the language model boundary.
type ChatModel interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
	// CompleteStructured asks for output shaped by schema and returns it raw;
	// callers validate it.
	CompleteStructured(ctx context.Context, messages []domain.ChatMessage, schema domain.OutputSchema) (string, error)
}

// Embedder builds vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes passages and performs similarity search.
type VectorStore interface {
	IndexPassages(ctx context.Context, source domain.KnowledgeSource, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Passage, error)
}

// WebSearcher is the external search provider boundary.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error)
}

// RunRepository persists pipeline run summaries and serves them back.
type RunRepository interface {
	RunReader
	Create(ctx context.Context, run domain.PipelineRun) error
}

// ObjectStorage lists and opens knowledge source files.
type ObjectStorage interface {
	List(ctx context.Context) ([]domain.KnowledgeSource, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor extracts plain text from a knowledge source.
type TextExtractor interface {
	Supports(source domain.KnowledgeSource) bool
	Extract(ctx context.Context, source domain.KnowledgeSource) (string, error)
}

// Chunker splits text into passages.
type Chunker interface {
	Split(text string) []string
}
