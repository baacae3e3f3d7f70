package rag

import (
	"time"

	"healthrag/internal/storage"
)

// Candidate is a chunk ranked by relevance for a specific query.
// Created transiently per query; never persisted.
type Candidate struct {
	Chunk storage.Chunk
	// Score is the cosine similarity with the query; higher is better.
	Score float32
	// Rank is the 0-based position after sorting, best first.
	Rank int
}

// CitationMeta is the structured metadata attached to a citation.
// It replaces the loosely-typed metadata bag of earlier designs with a
// closed set of optional fields while preserving the observable keys.
type CitationMeta struct {
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	ChunkSize   int    `json:"chunk_size"`
	FileType    string `json:"file_type,omitempty"`
}

// Citation is the user-facing projection of a candidate used as a source.
// It is owned by the answer that produced it.
type Citation struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Content        string       `json:"content"`
	RelevanceScore float64      `json:"relevanceScore"`
	Metadata       CitationMeta `json:"metadata"`
}

// Params are the caller-controllable generation settings. Nil fields mean
// "use the configured default"; zero is a meaningful temperature.
type Params struct {
	Temperature *float32
	MaxTokens   *int
}

// Request is a single question put to the pipeline.
type Request struct {
	Question string
	Params   Params
}

// AnswerMeta describes how an answer was produced.
type AnswerMeta struct {
	ModelUsed      string        `json:"model_used"`
	ResponseLength int           `json:"response_length"`
	SourcesUsed    int           `json:"sources_used"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Answer is the response envelope for one query: the generated text, the
// citations backing it, and generation metadata. Immutable once returned.
type Answer struct {
	Text      string
	Citations []Citation
	// TopScore is the best surviving candidate's similarity, 0 when
	// retrieval found nothing usable.
	TopScore  float64
	Timestamp time.Time
	Meta      AnswerMeta
}
