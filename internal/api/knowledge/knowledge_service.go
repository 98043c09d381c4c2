package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	"github.com/naver-ai-trip/agent-trip/internal/api/translation"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const (
	notFoundMessage = "I couldn't find information about that in the travel knowledge base. " +
		"Try asking about Korean culture, history, etiquette or travel tips."
	apologyMessage = "I apologize, but I couldn't process your request at the moment."

	baseLanguage = "en"
)

var ErrInvalidDocument = errors.New("document needs a title and text")

// Service answers travel questions from the knowledge base and ingests documents.
type Service interface {
	Answer(ctx context.Context, query, language string, filter types.SearchFilter) types.KnowledgeAnswer
	Ingest(ctx context.Context, req types.IngestDocumentRequest) (*types.KnowledgeDocument, error)
}

// DocumentStore persists ingested documents.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *types.KnowledgeDocument, chunks []types.KnowledgeChunk, embeddings [][]float32) error
}

type ServiceImpl struct {
	logger         *slog.Logger
	backend        Backend
	store          DocumentStore
	translator     translation.Translator
	corpusLanguage string
	topK           int
	chunkSize      int
}

var _ Service = (*ServiceImpl)(nil)

func NewService(backend Backend, store DocumentStore, translator translation.Translator, corpusLanguage string, topK, chunkSize int, logger *slog.Logger) *ServiceImpl {
	if topK <= 0 {
		topK = 10
	}
	if chunkSize <= 0 {
		chunkSize = 800
	}
	return &ServiceImpl{
		logger:         logger,
		backend:        backend,
		store:          store,
		translator:     translator,
		corpusLanguage: corpusLanguage,
		topK:           topK,
		chunkSize:      chunkSize,
	}
}

// Answer never fails. A knowledge base without a match yields a localized
// "not found" message; any pipeline failure yields a localized apology. Both
// come without citations.
func (s *ServiceImpl) Answer(ctx context.Context, query, language string, filter types.SearchFilter) types.KnowledgeAnswer {
	if language == "" {
		language = s.translator.DetectLanguage(query)
	}
	ctx, span := otel.Tracer("KnowledgeRetriever").Start(ctx, "Answer", trace.WithAttributes(
		attribute.String("language", language),
		attribute.Int("query.length", len(query)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Answer"), slog.String("language", language))

	answer, err := s.answer(ctx, l, query, language, filter)
	if err != nil {
		l.ErrorContext(ctx, "Knowledge retrieval failed", slog.Any("error", err))
		metrics.ProviderFailure(ctx, "knowledge", "answer")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Knowledge retrieval failed")
		return emptyAnswer(s.localize(ctx, apologyMessage, language))
	}
	span.SetAttributes(attribute.Int("citations", len(answer.Citations)))
	span.SetStatus(codes.Ok, "Answered")
	return answer
}

func (s *ServiceImpl) answer(ctx context.Context, l *slog.Logger, query, language string, filter types.SearchFilter) (types.KnowledgeAnswer, error) {
	crossLanguage := language != s.corpusLanguage

	searchQuery := query
	if crossLanguage {
		translated, err := s.translator.Translate(ctx, query, s.corpusLanguage)
		if err != nil {
			return types.KnowledgeAnswer{}, fmt.Errorf("query translation failed: %w", err)
		}
		searchQuery = translated
	}

	vector, err := s.backend.Embed(ctx, searchQuery)
	if err != nil {
		return types.KnowledgeAnswer{}, fmt.Errorf("embedding failed: %w", err)
	}

	chunks, err := s.backend.Search(ctx, vector, s.topK, filter)
	if err != nil {
		return types.KnowledgeAnswer{}, fmt.Errorf("search failed: %w", err)
	}
	if len(chunks) == 0 {
		l.InfoContext(ctx, "No knowledge chunks matched")
		return emptyAnswer(s.localize(ctx, notFoundMessage, language)), nil
	}

	ranked, err := s.backend.Rerank(ctx, searchQuery, chunks)
	if err != nil {
		return types.KnowledgeAnswer{}, fmt.Errorf("rerank failed: %w", err)
	}

	citations := make([]types.Citation, 0, len(ranked.Cited))
	for _, c := range ranked.Cited {
		doc, err := s.backend.Metadata(ctx, c.DocumentID)
		if err != nil {
			l.WarnContext(ctx, "Skipping citation without metadata",
				slog.String("document_id", c.DocumentID.String()), slog.Any("error", err))
			continue
		}
		citations = append(citations, toCitation(c, doc))
	}

	text := ranked.Answer
	suggested := ranked.SuggestedQueries
	if crossLanguage {
		text, err = s.translator.Translate(ctx, ranked.Answer, language)
		if err != nil {
			return types.KnowledgeAnswer{}, fmt.Errorf("answer translation failed: %w", err)
		}
		suggested = translation.TranslateAll(ctx, s.translator, s.logger, suggested, language)
	}
	if suggested == nil {
		suggested = []string{}
	}

	return types.KnowledgeAnswer{
		Answer:           text,
		Citations:        citations,
		SuggestedQueries: suggested,
		Found:            true,
	}, nil
}

// localize renders an English message in the user's language.
func (s *ServiceImpl) localize(ctx context.Context, message, language string) string {
	if language == "" || language == baseLanguage {
		return message
	}
	return translation.TranslateOrOriginal(ctx, s.translator, s.logger, message, language)
}

func emptyAnswer(message string) types.KnowledgeAnswer {
	return types.KnowledgeAnswer{
		Answer:           message,
		Citations:        []types.Citation{},
		SuggestedQueries: []string{},
	}
}

func toCitation(c types.KnowledgeChunk, doc *types.KnowledgeDocument) types.Citation {
	return types.Citation{
		ID:    c.ID.String(),
		Score: c.Score,
		Text:  c.Text,
		Metadata: types.CitationMetadata{
			DocumentID: c.DocumentID.String(),
			ChunkIndex: c.ChunkIndex,
			Location:   c.Location,
			Category:   c.Category,
			Page:       c.Page,
			Title:      doc.Title,
			Language:   doc.Language,
			Author:     doc.Author,
			FileURL:    doc.FileURL,
			UploadDate: doc.UploadDate.Format(time.DateOnly),
			PageCount:  doc.PageCount,
		},
	}
}

// Ingest chunks the document text, embeds every chunk and stores the result.
func (s *ServiceImpl) Ingest(ctx context.Context, req types.IngestDocumentRequest) (*types.KnowledgeDocument, error) {
	ctx, span := otel.Tracer("KnowledgeRetriever").Start(ctx, "Ingest", trace.WithAttributes(
		attribute.String("title", req.Title),
	))
	defer span.End()

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Text) == "" {
		span.SetStatus(codes.Error, "Invalid document")
		return nil, ErrInvalidDocument
	}

	language := req.Language
	if language == "" {
		language = s.corpusLanguage
	}
	doc := &types.KnowledgeDocument{
		ID:         uuid.New(),
		Title:      req.Title,
		Author:     req.Author,
		Category:   req.Category,
		FileURL:    req.FileURL,
		UploadDate: time.Now().UTC(),
		PageCount:  req.PageCount,
		Language:   language,
	}

	texts := SplitChunks(req.Text, s.chunkSize)
	chunks := make([]types.KnowledgeChunk, len(texts))
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := s.backend.Embed(ctx, text)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Embedding failed")
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		chunks[i] = types.KnowledgeChunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       text,
			Location:   req.Location,
			Category:   req.Category,
		}
		embeddings[i] = vector
	}

	if err := s.store.SaveDocument(ctx, doc, chunks, embeddings); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save failed")
		return nil, err
	}

	s.logger.InfoContext(ctx, "Knowledge document ingested",
		slog.String("document_id", doc.ID.String()),
		slog.Int("chunks", len(chunks)))
	span.SetStatus(codes.Ok, "Ingested")
	return doc, nil
}

// SplitChunks groups paragraphs into chunks of at most size runes. A paragraph
// longer than size is cut on rune boundaries.
func SplitChunks(text string, size int) []string {
	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for utf8.RuneCountInString(para) > size {
			flush()
			r := []rune(para)
			chunks = append(chunks, strings.TrimSpace(string(r[:size])))
			para = strings.TrimSpace(string(r[size:]))
		}
		if para == "" {
			continue
		}
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+2+utf8.RuneCountInString(para) > size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}
