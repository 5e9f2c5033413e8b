package domain

import "time"

// Passage is one trusted text fragment from the internal knowledge index.
type Passage struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchResult is one hit returned by the web search provider.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// KnowledgeSource is a curated file used to seed the internal index.
type KnowledgeSource struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	ModifiedAt  time.Time `json:"modified_at"`
}

type SeedFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// SeedReport summarizes one seeding pass over the knowledge sources.
type SeedReport struct {
	Sources  int           `json:"sources"`
	Indexed  int           `json:"indexed"`
	Chunks   int           `json:"chunks"`
	Failures []SeedFailure `json:"failures,omitempty"`
}
