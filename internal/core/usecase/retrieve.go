package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
)

const defaultRetrievalTopK = 2

type RetrieveKnowledgeUseCase struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	topK     int
}

func NewRetrieveKnowledgeUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	topK int,
) *RetrieveKnowledgeUseCase {
	if topK <= 0 {
		topK = defaultRetrievalTopK
	}
	return &RetrieveKnowledgeUseCase{
		embedder: embedder,
		vectorDB: vectorDB,
		topK:     topK,
	}
}

// Retrieve embeds the species label as a free-text query and joins the
// nearest passages in ranked order. No match is "" without an error.
func (uc *RetrieveKnowledgeUseCase) Retrieve(ctx context.Context, species string) (string, error) {
	query := strings.TrimSpace(species)
	if query == "" {
		return "", nil
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	passages, err := uc.vectorDB.Search(ctx, queryVector, uc.topK)
	if err != nil {
		return "", fmt.Errorf("search knowledge index: %w", err)
	}
	if len(passages) > uc.topK {
		passages = passages[:uc.topK]
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n"), nil
}
