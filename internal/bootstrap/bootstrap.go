package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/plant-care-assistant/internal/config"
	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
	"github.com/kirillkom/plant-care-assistant/internal/core/usecase"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/search/tavily"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/vision"
	"github.com/kirillkom/plant-care-assistant/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Pipeline ports.ArticlePipeline
	// Runs is nil when POSTGRES_DSN is empty.
	Runs ports.RunRepository

	embedder ports.Embedder
	vectorDB ports.VectorStore
	closeFns []func()
}

// New wires the pipeline for one process. service labels the metrics.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	app := &App{
		Config:  cfg,
		Metrics: metrics.NewHTTPServerMetrics(service),
	}

	executor := resilience.NewExecutor(cfg.Resilience())

	manifest, err := vision.LoadManifest(cfg.ClassifierManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load classifier manifest: %w", err)
	}
	classifier, err := vision.NewClassifier(manifest, vision.NewInferenceClient(cfg.InferenceURL, executor))
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, cfg.LLMTemperature, executor)
	app.embedder = ollama.NewEmbedder(ollamaClient)
	app.vectorDB = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	chatModel, err := app.chatModel(ctx, ollamaClient, executor)
	if err != nil {
		app.Close()
		return nil, err
	}

	if strings.TrimSpace(cfg.TavilyAPIKey) == "" {
		slog.Warn("web_search_unconfigured", "hint", "TAVILY_API_KEY is empty, web knowledge will be degraded")
	}
	searcher := tavily.New(cfg.TavilyURL, cfg.TavilyAPIKey, executor)

	app.Pipeline = usecase.NewPipelineUseCase(
		classifier,
		usecase.NewRetrieveKnowledgeUseCase(app.embedder, app.vectorDB, cfg.RetrievalTopK),
		usecase.NewGatherWebKnowledgeUseCase(searcher, cfg.WebResultsPerQuery),
		usecase.NewSynthesizeCareRecordUseCase(chatModel),
		usecase.NewComposeArticleUseCase(chatModel),
		app.Metrics,
	)

	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		runs := postgres.NewRunRepository(db)
		if err := runs.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			app.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Runs = runs
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
	}

	slog.Info("bootstrap_ready",
		"llm_provider", cfg.LLMProvider,
		"classifier_model", manifest.ModelName,
		"labels", len(manifest.Labels),
		"run_history", app.Runs != nil,
	)
	return app, nil
}

func (a *App) chatModel(ctx context.Context, ollamaClient *ollama.Client, executor *resilience.Executor) (ports.ChatModel, error) {
	switch a.Config.LLMProvider {
	case "", "ollama":
		return ollama.NewChatModel(ollamaClient), nil
	case "gemini":
		model, err := gemini.New(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel, a.Config.LLMTemperature, executor)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = model.Close() })
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", a.Config.LLMProvider)
	}
}

// Seeder builds the knowledge indexer over KNOWLEDGE_PATH. The directory is
// only required by processes that seed.
func (a *App) Seeder() (ports.KnowledgeSeeder, error) {
	storage, err := localfs.New(a.Config.KnowledgePath)
	if err != nil {
		return nil, fmt.Errorf("init knowledge storage: %w", err)
	}
	extractors := []ports.TextExtractor{
		plaintext.NewExtractor(storage),
		pdf.NewExtractor(storage),
	}
	return usecase.NewSeedKnowledgeUseCase(
		storage,
		extractors,
		chunking.NewSplitter(a.Config.ChunkSize, a.Config.ChunkOverlap),
		a.embedder,
		a.vectorDB,
	), nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
