package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks healthrag/internal/rag Generator
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_encoder.go -package=mocks healthrag/internal/rag QueryEncoder

import (
	"context"
	"fmt"
	"time"

	"healthrag/internal/contextutil"
	"healthrag/internal/llm"
)

const systemPrompt = `You are a helpful AI health assistant answering questions from verified medical reference material.

IMPORTANT MEDICAL DISCLAIMER:
- You provide general health information, NOT a substitute for professional medical advice, diagnosis, or treatment.
- Always advise consulting qualified healthcare professionals for medical concerns.
- For emergency symptoms, immediately advise seeking emergency medical care.

Answer the user's question using only the information in the provided context. If the context does not contain enough information, clearly state this limitation. Use clear, accessible language and include relevant precautions and when to seek medical attention.`

const noGroundingPrompt = `You are a helpful AI health assistant. No sourced medical information was found for the user's question. Tell the user clearly that you could not find relevant information in the medical reference corpus, and advise them to consult a qualified healthcare professional. Do not invent medical facts.`

// Generator is the outbound LLM surface the engine depends on.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string, params llm.GenerationParams) (string, error)
	GenerateStream(ctx context.Context, systemPrompt, userMessage string, params llm.GenerationParams, callback func(fragment string) error) error
	Model() string
}

// Engine runs the full answer pipeline: retrieve, assemble, generate.
// It is stateless per call; concurrent use is safe.
type Engine struct {
	retriever *Retriever
	generator Generator

	contextBudget      int
	defaultTemperature float32
	defaultMaxTokens   int
}

// EngineConfig sets the context budget and generation defaults.
type EngineConfig struct {
	ContextBudget      int
	DefaultTemperature float32
	DefaultMaxTokens   int
}

// NewEngine creates an Engine.
func NewEngine(retriever *Retriever, generator Generator, cfg EngineConfig) *Engine {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 6000
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = 1000
	}
	return &Engine{
		retriever:          retriever,
		generator:          generator,
		contextBudget:      cfg.ContextBudget,
		defaultTemperature: cfg.DefaultTemperature,
		defaultMaxTokens:   cfg.DefaultMaxTokens,
	}
}

// WithGenerator returns a copy of the engine using a different generator.
// Used when a request carries its own upstream credential.
func (e *Engine) WithGenerator(generator Generator) *Engine {
	clone := *e
	clone.generator = generator
	return &clone
}

// Answer runs the pipeline synchronously and returns the response envelope.
func (e *Engine) Answer(ctx context.Context, req Request) (Answer, error) {
	started := time.Now()

	params, err := e.resolveParams(req.Params)
	if err != nil {
		return Answer{}, err
	}

	contextBlock, citations, topScore, err := e.retrieveContext(ctx, req.Question)
	if err != nil {
		return Answer{}, err
	}

	system, user := e.buildPrompts(req.Question, contextBlock)
	text, err := e.generator.Generate(ctx, system, user, params)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return e.envelope(text, citations, topScore, started), nil
}

// AnswerStream runs the pipeline in streaming mode. Each generated fragment
// is passed to onFragment in arrival order. The returned Answer is the
// terminal envelope carrying the citations, metadata and the concatenated
// text; when generation fails mid-stream the envelope still holds whatever
// text was emitted, alongside the error.
func (e *Engine) AnswerStream(ctx context.Context, req Request, onFragment func(fragment string) error) (Answer, error) {
	started := time.Now()

	params, err := e.resolveParams(req.Params)
	if err != nil {
		return Answer{}, err
	}

	contextBlock, citations, topScore, err := e.retrieveContext(ctx, req.Question)
	if err != nil {
		return Answer{}, err
	}

	var full []byte
	system, user := e.buildPrompts(req.Question, contextBlock)
	streamErr := e.generator.GenerateStream(ctx, system, user, params, func(fragment string) error {
		full = append(full, fragment...)
		return onFragment(fragment)
	})

	answer := e.envelope(string(full), citations, topScore, started)
	if streamErr != nil {
		return answer, fmt.Errorf("%w: %v", ErrUpstream, streamErr)
	}
	return answer, nil
}

func (e *Engine) retrieveContext(ctx context.Context, question string) (string, []Citation, float64, error) {
	logger := contextutil.LoggerFromContext(ctx)

	candidates, err := e.retriever.Retrieve(ctx, question)
	if err != nil {
		return "", nil, 0, err
	}

	contextBlock, included := AssembleContext(candidates, e.contextBudget)
	citations := BuildCitations(included)

	topScore := 0.0
	if len(included) > 0 {
		topScore = float64(included[0].Score)
	}

	logger.InfoContext(ctx, "context assembled",
		"candidates", len(candidates),
		"included", len(included),
		"context_length", len(contextBlock),
		"top_score", topScore,
	)
	return contextBlock, citations, topScore, nil
}

func (e *Engine) buildPrompts(question, contextBlock string) (system, user string) {
	if contextBlock == NoGroundingMarker {
		return noGroundingPrompt, question
	}
	user = fmt.Sprintf("RELEVANT MEDICAL INFORMATION:\n%s\n\nUSER QUESTION: %s", contextBlock, question)
	return systemPrompt, user
}

func (e *Engine) resolveParams(p Params) (llm.GenerationParams, error) {
	params := llm.GenerationParams{
		Temperature: e.defaultTemperature,
		MaxTokens:   e.defaultMaxTokens,
	}
	if p.Temperature != nil {
		t := *p.Temperature
		if t < 0 || t > 1 {
			return llm.GenerationParams{}, &ValidationError{Field: "temperature", Message: "must be between 0 and 1"}
		}
		params.Temperature = t
	}
	if p.MaxTokens != nil {
		m := *p.MaxTokens
		if m <= 0 {
			return llm.GenerationParams{}, &ValidationError{Field: "maxTokens", Message: "must be greater than 0"}
		}
		params.MaxTokens = m
	}
	return params, nil
}

func (e *Engine) envelope(text string, citations []Citation, topScore float64, started time.Time) Answer {
	return Answer{
		Text:      text,
		Citations: citations,
		TopScore:  topScore,
		Timestamp: time.Now().UTC(),
		Meta: AnswerMeta{
			ModelUsed:      e.generator.Model(),
			ResponseLength: len(text),
			SourcesUsed:    len(citations),
			ProcessingTime: time.Since(started),
		},
	}
}
