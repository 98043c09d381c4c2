package types

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeDocument is a source document of the travel knowledge base.
type KnowledgeDocument struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Category   string    `json:"category,omitempty"`
	FileURL    string    `json:"file_url,omitempty"`
	UploadDate time.Time `json:"upload_date"`
	PageCount  int       `json:"page_count,omitempty"`
	Language   string    `json:"language"`
}

// KnowledgeChunk is a retrievable slice of a document. Score is filled by search.
type KnowledgeChunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Location   string    `json:"location,omitempty"`
	Category   string    `json:"category,omitempty"`
	Page       int       `json:"page,omitempty"`
	Score      float64   `json:"score"`
}

type SearchFilter struct {
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`
}

type CitationMetadata struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Location   string `json:"location,omitempty"`
	Category   string `json:"category,omitempty"`
	Page       int    `json:"page,omitempty"`
	Title      string `json:"title,omitempty"`
	Language   string `json:"language,omitempty"`
	Author     string `json:"author,omitempty"`
	FileURL    string `json:"file_url,omitempty"`
	UploadDate string `json:"upload_date,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`
}

type Citation struct {
	ID       string           `json:"id"`
	Score    float64          `json:"score"`
	Text     string           `json:"text"`
	Metadata CitationMetadata `json:"metadata"`
}

// RerankResult is what the reranker extracts from the retrieved chunks.
type RerankResult struct {
	Answer           string           `json:"answer"`
	Cited            []KnowledgeChunk `json:"cited"`
	SuggestedQueries []string         `json:"suggested_queries"`
}

// KnowledgeAnswer is the data of a travel_knowledge component.
type KnowledgeAnswer struct {
	Answer           string     `json:"answer"`
	Citations        []Citation `json:"citations"`
	SuggestedQueries []string   `json:"suggested_queries"`
	Found            bool       `json:"found"`
}

type IngestDocumentRequest struct {
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Category  string `json:"category,omitempty"`
	Location  string `json:"location,omitempty"`
	FileURL   string `json:"file_url,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
	Language  string `json:"language,omitempty"`
	Text      string `json:"text"`
}

type KnowledgeQueryRequest struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
}
