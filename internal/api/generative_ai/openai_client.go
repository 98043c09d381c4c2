package generativeAI

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/config"
)

type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	dimension      int
	temperature    float32
}

var _ LLMClient = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	return newOpenAIClient(openai.NewClient(cfg.APIKey), cfg)
}

// NewOpenAIClientWithBaseURL points the client at an OpenAI compatible endpoint.
func NewOpenAIClientWithBaseURL(cfg config.LLMConfig, baseURL string) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	return newOpenAIClient(openai.NewClientWithConfig(clientCfg), cfg)
}

func newOpenAIClient(client *openai.Client, cfg config.LLMConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}
	return &OpenAIClient{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		dimension:      cfg.EmbeddingDimension,
		temperature:    cfg.Temperature,
	}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, "GenerateText", system, prompt, false)
}

func (c *OpenAIClient) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, "GenerateJSON", system, prompt, true)
}

func (c *OpenAIClient) complete(ctx context.Context, op, system, prompt string, jsonMode bool) (string, error) {
	ctx, span := otel.Tracer("OpenAI").Start(ctx, op, trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", c.model),
	))
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		span.SetStatus(codes.Error, "Empty response")
		return "", ErrEmptyResponse
	}
	span.SetStatus(codes.Ok, "Completion generated")
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("OpenAI").Start(ctx, "Embed", trace.WithAttributes(
		attribute.String("model", c.embeddingModel),
	))
	defer span.End()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(c.embeddingModel),
		Dimensions: c.dimension,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Embedding failed")
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		span.SetStatus(codes.Error, "Empty embedding")
		return nil, ErrEmptyResponse
	}
	span.SetStatus(codes.Ok, "Embedding generated")
	return resp.Data[0].Embedding, nil
}
