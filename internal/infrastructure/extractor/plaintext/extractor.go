package plaintext

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Supports(source domain.KnowledgeSource) bool {
	if strings.HasPrefix(source.MimeType, "text/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(source.Filename)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

func (e *Extractor) Extract(ctx context.Context, source domain.KnowledgeSource) (string, error) {
	reader, err := e.storage.Open(ctx, source.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open knowledge source: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read knowledge source: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s is not valid utf-8", source.Filename))
	}
	return strings.TrimSpace(string(raw)), nil
}
