package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/naver-ai-trip/agent-trip/config"
)

// LLMClient is the generative capability used by translation, knowledge retrieval,
// catalog extraction and casual conversation.
type LLMClient interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	// GenerateJSON asks the model for a JSON document; callers still run the
	// result through CleanJSONResponse.
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

var ErrEmptyResponse = errors.New("llm returned an empty response")

// NewLLMClient builds the client for the configured provider.
func NewLLMClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGeminiClient(ctx, cfg)
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	dimension      int32
	temperature    float32
}

var _ LLMClient = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm.apiKey is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-004"
	}
	return &GeminiClient{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		dimension:      int32(cfg.EmbeddingDimension),
		temperature:    cfg.Temperature,
	}, nil
}

func (ai *GeminiClient) Model() string { return ai.model }

func (ai *GeminiClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return ai.generate(ctx, "GenerateText", system, prompt, false)
}

func (ai *GeminiClient) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	return ai.generate(ctx, "GenerateJSON", system, prompt, true)
}

func (ai *GeminiClient) generate(ctx context.Context, op, system, prompt string, jsonMode bool) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, op, trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", ai.model),
	))
	defer span.End()

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(ai.temperature)}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	responseText := result.Text()
	if strings.TrimSpace(responseText) == "" {
		span.SetStatus(codes.Error, "Empty response")
		return "", ErrEmptyResponse
	}
	span.SetAttributes(attribute.Int("response.length", len(responseText)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return responseText, nil
}

func (ai *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Embed", trace.WithAttributes(
		attribute.Int("text.length", len(text)),
		attribute.String("model", ai.embeddingModel),
	))
	defer span.End()

	cfg := &genai.EmbedContentConfig{}
	if ai.dimension > 0 {
		cfg.OutputDimensionality = genai.Ptr(ai.dimension)
	}
	resp, err := ai.client.Models.EmbedContent(ctx, ai.embeddingModel, genai.Text(text), cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to embed content")
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		span.SetStatus(codes.Error, "Empty embedding")
		return nil, ErrEmptyResponse
	}
	span.SetStatus(codes.Ok, "Embedding generated")
	return resp.Embeddings[0].Values, nil
}
