package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
)

const defaultResultsPerQuery = 2

// QueryFailures reports the web queries that failed during one gather call.
type QueryFailures struct {
	Total  int
	Errors []error
}

func (e *QueryFailures) Error() string {
	return fmt.Sprintf("%d of %d web queries failed: %v", len(e.Errors), e.Total, errors.Join(e.Errors...))
}

func (e *QueryFailures) Unwrap() []error { return e.Errors }

type GatherWebKnowledgeUseCase struct {
	searcher        ports.WebSearcher
	resultsPerQuery int
}

func NewGatherWebKnowledgeUseCase(searcher ports.WebSearcher, resultsPerQuery int) *GatherWebKnowledgeUseCase {
	if resultsPerQuery <= 0 {
		resultsPerQuery = defaultResultsPerQuery
	}
	return &GatherWebKnowledgeUseCase{
		searcher:        searcher,
		resultsPerQuery: resultsPerQuery,
	}
}

// Gather runs every fixed query in order. A failing query is skipped and
// reported in a *QueryFailures error next to the text of the others.
func (uc *GatherWebKnowledgeUseCase) Gather(ctx context.Context, species string) (string, error) {
	queries := WebQueries(species)
	contents := make([]string, 0, len(queries)*uc.resultsPerQuery)
	var failed []error

	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			failed = append(failed, err)
			break
		}

		results, err := uc.searcher.Search(ctx, query, uc.resultsPerQuery)
		if err != nil {
			slog.WarnContext(ctx, "web_query_failed",
				"query", query,
				"position", i+1,
				"error", err,
			)
			failed = append(failed, fmt.Errorf("query %d %q: %w", i+1, query, err))
			continue
		}
		if len(results) > uc.resultsPerQuery {
			results = results[:uc.resultsPerQuery]
		}
		for _, r := range results {
			contents = append(contents, r.Content)
		}
	}

	text := strings.Join(contents, "\n")
	if len(failed) > 0 {
		return text, &QueryFailures{Total: len(queries), Errors: failed}
	}
	return text, nil
}
