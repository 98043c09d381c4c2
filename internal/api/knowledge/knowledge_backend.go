package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/naver-ai-trip/agent-trip/internal/api/generative_ai"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// Backend is the embedding, retrieval and ranking capability behind the retriever.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Search(ctx context.Context, vector []float32, topK int, filter types.SearchFilter) ([]types.KnowledgeChunk, error)
	Rerank(ctx context.Context, query string, chunks []types.KnowledgeChunk) (*types.RerankResult, error)
	Metadata(ctx context.Context, documentID uuid.UUID) (*types.KnowledgeDocument, error)
}

// LLMBackend embeds and reranks with the LLM client and searches Postgres.
type LLMBackend struct {
	llm        generativeAI.LLMClient
	repo       Repository
	rerankTopK int
	logger     *slog.Logger
}

var _ Backend = (*LLMBackend)(nil)

func NewLLMBackend(llm generativeAI.LLMClient, repo Repository, rerankTopK int, logger *slog.Logger) *LLMBackend {
	if rerankTopK <= 0 {
		rerankTopK = 3
	}
	return &LLMBackend{llm: llm, repo: repo, rerankTopK: rerankTopK, logger: logger}
}

func (b *LLMBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.llm.Embed(ctx, text)
}

func (b *LLMBackend) Search(ctx context.Context, vector []float32, topK int, filter types.SearchFilter) ([]types.KnowledgeChunk, error) {
	return b.repo.SearchChunks(ctx, vector, topK, filter)
}

func (b *LLMBackend) Metadata(ctx context.Context, documentID uuid.UUID) (*types.KnowledgeDocument, error) {
	return b.repo.GetDocument(ctx, documentID)
}

type rerankReply struct {
	Answer           string   `json:"answer"`
	Cited            []int    `json:"cited"`
	SuggestedQueries []string `json:"suggested_queries"`
}

// Rerank asks the model for an answer and the passages it relied on. Out of
// range or repeated passage indexes are ignored; when none survive, the best
// scored chunks are cited.
func (b *LLMBackend) Rerank(ctx context.Context, query string, chunks []types.KnowledgeChunk) (*types.RerankResult, error) {
	ctx, span := otel.Tracer("KnowledgeBackend").Start(ctx, "Rerank", trace.WithAttributes(
		attribute.Int("chunks", len(chunks)),
	))
	defer span.End()

	response, err := b.llm.GenerateJSON(ctx, rerankSystemPrompt, getRerankPrompt(query, chunks, b.rerankTopK))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rerank generation failed")
		return nil, fmt.Errorf("rerank failed: %w", err)
	}

	var reply rerankReply
	if err := generativeAI.DecodeJSON(response, &reply); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rerank reply unreadable")
		return nil, err
	}
	if strings.TrimSpace(reply.Answer) == "" {
		span.SetStatus(codes.Error, "Empty rerank answer")
		return nil, generativeAI.ErrEmptyResponse
	}

	seen := make(map[int]bool, len(reply.Cited))
	cited := make([]types.KnowledgeChunk, 0, b.rerankTopK)
	for _, idx := range reply.Cited {
		if idx < 0 || idx >= len(chunks) || seen[idx] || len(cited) == b.rerankTopK {
			continue
		}
		seen[idx] = true
		cited = append(cited, chunks[idx])
	}
	if len(cited) == 0 {
		b.logger.DebugContext(ctx, "Rerank cited nothing usable, citing top results")
		cited = append(cited, chunks[:min(len(chunks), b.rerankTopK)]...)
	}

	suggested := reply.SuggestedQueries
	if suggested == nil {
		suggested = []string{}
	}
	span.SetStatus(codes.Ok, "Reranked")
	return &types.RerankResult{Answer: reply.Answer, Cited: cited, SuggestedQueries: suggested}, nil
}
