package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"healthrag/internal/llm"
	"healthrag/internal/rag/mocks"
	storagemocks "healthrag/internal/storage/mocks"
)

func float32Ptr(v float32) *float32 { return &v }
func intPtr(v int) *int             { return &v }

// newTestEngine wires an engine over the standard test index. The encoder
// always maps questions onto [1,0], so "a" (score 1.0) and "b" (score 0.8)
// survive the 0.5 threshold.
func newTestEngine(t *testing.T, ctrl *gomock.Controller, generator Generator) *Engine {
	t.Helper()

	encoder := mocks.NewMockQueryEncoder(ctrl)
	encoder.EXPECT().
		EmbedText(gomock.Any(), gomock.Any()).
		Return([]float32{1, 0}, nil).
		AnyTimes()

	chunks := storagemocks.NewMockChunkStore(ctrl)
	chunks.EXPECT().GetByID(gomock.Any(), "a").Return(storedChunk("a"), nil).AnyTimes()
	chunks.EXPECT().GetByID(gomock.Any(), "b").Return(storedChunk("b"), nil).AnyTimes()

	retriever := NewRetriever(encoder, testIndex(t), chunks, RetrieverConfig{
		SearchK:        3,
		FinalK:         3,
		ScoreThreshold: 0.5,
	})
	return NewEngine(retriever, generator, EngineConfig{
		ContextBudget:      6000,
		DefaultTemperature: 0.3,
		DefaultMaxTokens:   1000,
	})
}

func TestAnswer_Envelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), llm.GenerationParams{Temperature: 0.3, MaxTokens: 1000}).
		Return("Drink water and rest.", nil)
	generator.EXPECT().Model().Return("test-model").AnyTimes()

	engine := newTestEngine(t, ctrl, generator)
	answer, err := engine.Answer(context.Background(), Request{Question: "what helps a cold"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if answer.Text != "Drink water and rest." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Citations) != 2 {
		t.Errorf("got %d citations, want 2", len(answer.Citations))
	}
	if answer.TopScore < 0.99 {
		t.Errorf("TopScore = %f, want ~1.0", answer.TopScore)
	}
	if answer.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if answer.Meta.ModelUsed != "test-model" {
		t.Errorf("ModelUsed = %q", answer.Meta.ModelUsed)
	}
	if answer.Meta.ResponseLength != len(answer.Text) {
		t.Errorf("ResponseLength = %d, want %d", answer.Meta.ResponseLength, len(answer.Text))
	}
	if answer.Meta.SourcesUsed != 2 {
		t.Errorf("SourcesUsed = %d, want 2", answer.Meta.SourcesUsed)
	}
}

func TestAnswer_PromptCarriesContextAndQuestion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var gotSystem, gotUser string
	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, system, user string, _ llm.GenerationParams) (string, error) {
			gotSystem, gotUser = system, user
			return "answer", nil
		})
	generator.EXPECT().Model().Return("test-model").AnyTimes()

	engine := newTestEngine(t, ctrl, generator)
	if _, err := engine.Answer(context.Background(), Request{Question: "what helps a cold"}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if !strings.Contains(gotSystem, "health assistant") {
		t.Errorf("system prompt unexpected: %q", gotSystem)
	}
	if !strings.Contains(gotUser, "text of a") || !strings.Contains(gotUser, "text of b") {
		t.Errorf("user prompt missing retrieved context: %q", gotUser)
	}
	if !strings.Contains(gotUser, "what helps a cold") {
		t.Errorf("user prompt missing question: %q", gotUser)
	}
	if strings.Contains(gotUser, NoGroundingMarker) {
		t.Errorf("marker leaked into prompt: %q", gotUser)
	}
}

func TestAnswer_NoGrounding(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	encoder := mocks.NewMockQueryEncoder(ctrl)
	// Scores a=0.6, b=0.96, c=0.8; threshold 0.99 filters everything.
	encoder.EXPECT().
		EmbedText(gomock.Any(), gomock.Any()).
		Return([]float32{0.6, 0.8}, nil)
	chunks := storagemocks.NewMockChunkStore(ctrl)

	var gotSystem string
	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, system, _ string, _ llm.GenerationParams) (string, error) {
			gotSystem = system
			return "I could not find relevant information.", nil
		})
	generator.EXPECT().Model().Return("test-model").AnyTimes()

	retriever := NewRetriever(encoder, testIndex(t), chunks, RetrieverConfig{
		SearchK:        3,
		FinalK:         3,
		ScoreThreshold: 0.99,
	})
	engine := NewEngine(retriever, generator, EngineConfig{})

	answer, err := engine.Answer(context.Background(), Request{Question: "obscure question"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.TopScore != 0 {
		t.Errorf("TopScore = %f, want 0", answer.TopScore)
	}
	if len(answer.Citations) != 0 {
		t.Errorf("got %d citations, want 0", len(answer.Citations))
	}
	if !strings.Contains(gotSystem, "No sourced medical information") {
		t.Errorf("system prompt = %q, want the no-grounding variant", gotSystem)
	}
}

func TestAnswer_ParamValidationBeforeAnyCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: neither the encoder nor the generator may be touched
	// when the request parameters are invalid.
	encoder := mocks.NewMockQueryEncoder(ctrl)
	chunks := storagemocks.NewMockChunkStore(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	retriever := NewRetriever(encoder, testIndex(t), chunks, RetrieverConfig{})
	engine := NewEngine(retriever, generator, EngineConfig{})

	tests := []struct {
		name      string
		params    Params
		wantField string
	}{
		{name: "temperature too high", params: Params{Temperature: float32Ptr(1.5)}, wantField: "temperature"},
		{name: "temperature negative", params: Params{Temperature: float32Ptr(-0.1)}, wantField: "temperature"},
		{name: "max tokens zero", params: Params{MaxTokens: intPtr(0)}, wantField: "maxTokens"},
		{name: "max tokens negative", params: Params{MaxTokens: intPtr(-5)}, wantField: "maxTokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Answer(context.Background(), Request{Question: "q", Params: tt.params})
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", validationErr.Field, tt.wantField)
			}

			_, err = engine.AnswerStream(context.Background(), Request{Question: "q", Params: tt.params}, func(string) error { return nil })
			if !errors.As(err, &validationErr) {
				t.Fatalf("stream error = %v, want ValidationError", err)
			}
		})
	}
}

func TestAnswer_ZeroTemperatureIsValid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), llm.GenerationParams{Temperature: 0, MaxTokens: 50}).
		Return("deterministic answer", nil)
	generator.EXPECT().Model().Return("test-model").AnyTimes()

	engine := newTestEngine(t, ctrl, generator)
	_, err := engine.Answer(context.Background(), Request{
		Question: "q",
		Params:   Params{Temperature: float32Ptr(0), MaxTokens: intPtr(50)},
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
}

func TestAnswer_GeneratorFailureIsUpstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("rate limited"))

	engine := newTestEngine(t, ctrl, generator)
	_, err := engine.Answer(context.Background(), Request{Question: "q"})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestAnswerStream_TextMatchesSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fragments := []string{"Drink ", "water ", "and rest."}

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Drink water and rest.", nil)
	generator.EXPECT().
		GenerateStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ llm.GenerationParams, callback func(string) error) error {
			for _, fragment := range fragments {
				if err := callback(fragment); err != nil {
					return err
				}
			}
			return nil
		})
	generator.EXPECT().Model().Return("test-model").AnyTimes()

	engine := newTestEngine(t, ctrl, generator)
	req := Request{Question: "what helps a cold"}

	syncAnswer, err := engine.Answer(context.Background(), req)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	var received []string
	streamAnswer, err := engine.AnswerStream(context.Background(), req, func(fragment string) error {
		received = append(received, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("AnswerStream() error = %v", err)
	}

	if streamAnswer.Text != syncAnswer.Text {
		t.Errorf("stream text %q != sync text %q", streamAnswer.Text, syncAnswer.Text)
	}
	if strings.Join(received, "") != streamAnswer.Text {
		t.Errorf("concatenated fragments %q != envelope text %q", strings.Join(received, ""), streamAnswer.Text)
	}
	if len(streamAnswer.Citations) != len(syncAnswer.Citations) {
		t.Errorf("stream citations %d != sync citations %d", len(streamAnswer.Citations), len(syncAnswer.Citations))
	}
	if streamAnswer.TopScore != syncAnswer.TopScore {
		t.Errorf("stream topScore %f != sync topScore %f", streamAnswer.TopScore, syncAnswer.TopScore)
	}
}

func TestAnswerStream_MidStreamFailureKeepsPartialText(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		GenerateStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ llm.GenerationParams, callback func(string) error) error {
			if err := callback("partial "); err != nil {
				return err
			}
			return fmt.Errorf("connection reset")
		})
	generator.EXPECT().Model().Return("test-model").AnyTimes()

	engine := newTestEngine(t, ctrl, generator)
	answer, err := engine.AnswerStream(context.Background(), Request{Question: "q"}, func(string) error { return nil })
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if answer.Text != "partial " {
		t.Errorf("partial text = %q", answer.Text)
	}
}

func TestWithGenerator_DoesNotMutateOriginal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	base := mocks.NewMockGenerator(ctrl)
	override := mocks.NewMockGenerator(ctrl)

	engine := newTestEngine(t, ctrl, base)
	clone := engine.WithGenerator(override)

	if clone == engine {
		t.Fatal("WithGenerator() returned the same engine")
	}
	if engine.generator != Generator(base) {
		t.Error("original engine's generator changed")
	}
	if clone.generator != Generator(override) {
		t.Error("clone does not use the override generator")
	}
}
