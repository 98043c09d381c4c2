package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	database "github.com/naver-ai-trip/agent-trip/app/db"
	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

var ErrDocumentNotFound = errors.New("knowledge document not found")

// Repository stores knowledge documents and their embedded chunks.
type Repository interface {
	SearchChunks(ctx context.Context, embedding []float32, topK int, filter types.SearchFilter) ([]types.KnowledgeChunk, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*types.KnowledgeDocument, error)
	SaveDocument(ctx context.Context, doc *types.KnowledgeDocument, chunks []types.KnowledgeChunk, embeddings [][]float32) error
}

type PostgresRepository struct {
	logger *slog.Logger
	pgpool database.Querier
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(pgxpool database.Querier, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, pgpool: pgxpool}
}

const searchChunksQuery = `
	SELECT id, document_id, chunk_index, text, location, category, page,
	       1 - (embedding <=> $1) AS score
	FROM knowledge_chunks
	WHERE ($2 = '' OR category = $2)
	  AND ($3 = '' OR location ILIKE '%' || $3 || '%')
	ORDER BY embedding <=> $1
	LIMIT $4`

func (r *PostgresRepository) SearchChunks(ctx context.Context, embedding []float32, topK int, filter types.SearchFilter) ([]types.KnowledgeChunk, error) {
	ctx, span := otel.Tracer("KnowledgeRepository").Start(ctx, "SearchChunks", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Int("top_k", topK),
		attribute.String("filter.category", filter.Category),
		attribute.String("filter.location", filter.Location),
	))
	defer span.End()

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, searchChunksQuery,
		pgvector.NewVector(embedding), filter.Category, filter.Location, topK)
	if err != nil {
		r.observe(ctx, "search_chunks", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Chunk search failed")
		return nil, fmt.Errorf("failed to search knowledge chunks: %w", err)
	}
	defer rows.Close()

	var chunks []types.KnowledgeChunk
	for rows.Next() {
		var c types.KnowledgeChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.Location, &c.Category, &c.Page, &c.Score); err != nil {
			r.observe(ctx, "search_chunks", start, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to scan chunk")
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		r.observe(ctx, "search_chunks", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("error iterating knowledge chunks: %w", err)
	}

	r.observe(ctx, "search_chunks", start, nil)
	span.SetAttributes(attribute.Int("results", len(chunks)))
	span.SetStatus(codes.Ok, "Chunks found")
	return chunks, nil
}

func (r *PostgresRepository) GetDocument(ctx context.Context, id uuid.UUID) (*types.KnowledgeDocument, error) {
	ctx, span := otel.Tracer("KnowledgeRepository").Start(ctx, "GetDocument", trace.WithAttributes(
		attribute.String("document.id", id.String()),
	))
	defer span.End()

	start := time.Now()
	var d types.KnowledgeDocument
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, title, author, category, file_url, upload_date, page_count, language
		FROM knowledge_documents
		WHERE id = $1`, id).
		Scan(&d.ID, &d.Title, &d.Author, &d.Category, &d.FileURL, &d.UploadDate, &d.PageCount, &d.Language)
	if errors.Is(err, pgx.ErrNoRows) {
		r.observe(ctx, "get_document", start, nil)
		span.SetStatus(codes.Error, "Document not found")
		return nil, fmt.Errorf("%s: %w", id, ErrDocumentNotFound)
	}
	if err != nil {
		r.observe(ctx, "get_document", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Document lookup failed")
		return nil, fmt.Errorf("failed to get knowledge document: %w", err)
	}

	r.observe(ctx, "get_document", start, nil)
	span.SetStatus(codes.Ok, "Document found")
	return &d, nil
}

// SaveDocument writes the document and its chunks in one transaction.
func (r *PostgresRepository) SaveDocument(ctx context.Context, doc *types.KnowledgeDocument, chunks []types.KnowledgeChunk, embeddings [][]float32) error {
	ctx, span := otel.Tracer("KnowledgeRepository").Start(ctx, "SaveDocument", trace.WithAttributes(
		attribute.String("document.id", doc.ID.String()),
		attribute.Int("chunks", len(chunks)),
	))
	defer span.End()

	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	start := time.Now()
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		r.observe(ctx, "save_document", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.DebugContext(ctx, "Rollback after save", slog.Any("error", err))
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO knowledge_documents (id, title, author, category, file_url, upload_date, page_count, language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.Title, doc.Author, doc.Category, doc.FileURL, doc.UploadDate, doc.PageCount, doc.Language); err != nil {
		r.observe(ctx, "save_document", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert document")
		return fmt.Errorf("failed to insert knowledge document: %w", err)
	}

	for i, c := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO knowledge_chunks (id, document_id, chunk_index, text, location, category, page, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.DocumentID, c.ChunkIndex, c.Text, c.Location, c.Category, c.Page, pgvector.NewVector(embeddings[i])); err != nil {
			r.observe(ctx, "save_document", start, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to insert chunk")
			return fmt.Errorf("failed to insert knowledge chunk %d: %w", c.ChunkIndex, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		r.observe(ctx, "save_document", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to commit")
		return fmt.Errorf("failed to commit knowledge document: %w", err)
	}

	r.observe(ctx, "save_document", start, nil)
	span.SetStatus(codes.Ok, "Document saved")
	return nil
}

func (r *PostgresRepository) observe(ctx context.Context, query string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("query", query))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
