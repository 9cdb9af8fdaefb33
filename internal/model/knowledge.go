package model

import (
	"time"
)

// KnowledgeBase is one unit of company knowledge content.
type KnowledgeBase struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KnowledgeChunk is an embeddable slice of a knowledge base. Chunks are
// deleted and regenerated wholesale when the parent content changes. A nil
// embedding means the chunk was never indexed and triggers fallback search.
type KnowledgeChunk struct {
	ID              string    `json:"id"`
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	CompanyID       string    `json:"company_id"`
	Index           int       `json:"index"`
	Text            string    `json:"text"`
	Title           string    `json:"title,omitempty"`
	Category        string    `json:"category,omitempty"`
	Embedding       []float32 `json:"embedding,omitempty"`
}

// RetrievedChunk is one entry of assembled knowledge context. Similarity is
// nil for keyword-fallback and full-content entries, which carry no score.
type RetrievedChunk struct {
	Text       string   `json:"text"`
	Title      string   `json:"title,omitempty"`
	Category   string   `json:"category,omitempty"`
	Similarity *float64 `json:"similarity,omitempty"`
	SourceID   string   `json:"source_id,omitempty"`
}
