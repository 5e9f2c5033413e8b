package usecase

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	return img
}

func testRecord(vase *string) domain.CareRecord {
	return domain.NewCareRecord("Aloe barbadensis miller", "Aloe Vera", domain.CareInstructions{
		IdealTemperature:  22,
		LightingLevel:     "Bright indirect light",
		WateringFrequency: "1x/week",
		SpecificDiseases:  []string{"Root rot", "Leaf spot"},
		SoilType:          "Sandy, well-draining",
		VaseType:          vase,
	})
}

type embedderFake struct {
	queries []string
	batches [][]string
	err     error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type vectorStoreFake struct {
	passages []domain.Passage
	limit    int
	err      error
	indexErr error
	indexed  map[string][]string
}

func (f *vectorStoreFake) IndexPassages(_ context.Context, source domain.KnowledgeSource, chunks []string, _ [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	if f.indexed == nil {
		f.indexed = map[string][]string{}
	}
	f.indexed[source.Filename] = chunks
	return nil
}

func (f *vectorStoreFake) Search(_ context.Context, _ []float32, limit int) ([]domain.Passage, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

type webSearcherFake struct {
	mu       sync.Mutex
	results  map[string][]domain.SearchResult
	failures map[string]error
	queries  []string
	limits   []int
}

func (f *webSearcherFake) Search(_ context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, maxResults)
	if err, ok := f.failures[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

type chatModelFake struct {
	completeOut      string
	completeErr      error
	structuredOut    string
	structuredErr    error
	completeCalls    int
	structuredCalls  int
	lastMessages     []domain.ChatMessage
	lastSchema       domain.OutputSchema
	cancelOnComplete context.CancelFunc
}

func (f *chatModelFake) Complete(_ context.Context, messages []domain.ChatMessage) (string, error) {
	f.completeCalls++
	f.lastMessages = messages
	if f.cancelOnComplete != nil {
		f.cancelOnComplete()
	}
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completeOut, nil
}

func (f *chatModelFake) CompleteStructured(_ context.Context, messages []domain.ChatMessage, schema domain.OutputSchema) (string, error) {
	f.structuredCalls++
	f.lastMessages = messages
	f.lastSchema = schema
	if f.structuredErr != nil {
		return "", f.structuredErr
	}
	return f.structuredOut, nil
}

type classifierFake struct {
	prediction domain.SpeciesPrediction
	err        error
	calls      int
}

func (f *classifierFake) Classify(context.Context, image.Image) (domain.SpeciesPrediction, error) {
	f.calls++
	if f.err != nil {
		return domain.SpeciesPrediction{}, f.err
	}
	return f.prediction, nil
}

type retrieverFake struct {
	text   string
	err    error
	calls  int
	labels []string
	cancel context.CancelFunc
}

func (f *retrieverFake) Retrieve(_ context.Context, species string) (string, error) {
	f.calls++
	f.labels = append(f.labels, species)
	if f.cancel != nil {
		f.cancel()
	}
	return f.text, f.err
}

type gathererFake struct {
	text  string
	err   error
	calls int
}

func (f *gathererFake) Gather(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type synthesizerFake struct {
	outcome  domain.SynthesisOutcome
	calls    int
	internal string
	web      string
}

func (f *synthesizerFake) Synthesize(_ context.Context, internal, web string) domain.SynthesisOutcome {
	f.calls++
	f.internal = internal
	f.web = web
	return f.outcome
}

type composerFake struct {
	article string
	err     error
	calls   int
	record  *domain.CareRecord
}

func (f *composerFake) Compose(_ context.Context, record *domain.CareRecord) (string, error) {
	f.calls++
	f.record = record
	if record == nil {
		return domain.ApologyArticle, nil
	}
	return f.article, f.err
}

type stageObservation struct {
	stage  string
	status string
}

type observerFake struct {
	stages []stageObservation
	runs   []domain.PipelineResult
}

func (f *observerFake) ObserveStage(stage, status string, _ time.Duration) {
	f.stages = append(f.stages, stageObservation{stage: stage, status: status})
}

func (f *observerFake) ObserveRun(result domain.PipelineResult) {
	f.runs = append(f.runs, result)
}
