package pdf

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

type memStorage map[string]string

func (m memStorage) List(context.Context) ([]domain.KnowledgeSource, error) { return nil, nil }

func (m memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(m[key])), nil
}

func TestSupports(t *testing.T) {
	e := NewExtractor(memStorage{})
	if !e.Supports(domain.KnowledgeSource{Filename: "guide.PDF"}) {
		t.Fatalf("expected pdf support by extension")
	}
	if e.Supports(domain.KnowledgeSource{Filename: "notes.md", MimeType: "text/markdown"}) {
		t.Fatalf("did not expect markdown support")
	}
}

func TestExtractRejectsMalformedPDF(t *testing.T) {
	e := NewExtractor(memStorage{"bad.pdf": "this is not a pdf"})
	_, err := e.Extract(context.Background(), domain.KnowledgeSource{Filename: "bad.pdf", StoragePath: "bad.pdf"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
