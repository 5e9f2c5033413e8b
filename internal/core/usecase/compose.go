package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
)

type ComposeArticleUseCase struct {
	model ports.ChatModel
}

func NewComposeArticleUseCase(model ports.ChatModel) *ComposeArticleUseCase {
	return &ComposeArticleUseCase{model: model}
}

// Compose returns the model's markdown verbatim. Without a record it returns
// domain.ApologyArticle and leaves the model untouched.
func (uc *ComposeArticleUseCase) Compose(ctx context.Context, record *domain.CareRecord) (string, error) {
	if record == nil {
		return domain.ApologyArticle, nil
	}

	messages, err := buildArticleMessages(*record)
	if err != nil {
		return "", err
	}

	article, err := uc.model.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate article: %w", err)
	}
	if strings.TrimSpace(article) == "" {
		return "", errors.New("generate article: empty model response")
	}
	return article, nil
}
