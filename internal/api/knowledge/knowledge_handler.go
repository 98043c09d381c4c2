package knowledge

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/internal/api"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{logger: logger, service: service}
}

type queryRequest struct {
	types.KnowledgeQueryRequest
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`
}

// Query answers a knowledge question outside of a chat session.
func (h *HandlerImpl) Query(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("KnowledgeHandler").Start(r.Context(), "Query", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/knowledge/query"),
	))
	defer span.End()

	var req queryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		span.SetStatus(codes.Error, "Empty query")
		api.ErrorResponse(w, r, http.StatusBadRequest, "query is required")
		return
	}

	answer := h.service.Answer(ctx, req.Query, req.Language, types.SearchFilter{
		Category: req.Category,
		Location: req.Location,
	})
	span.SetStatus(codes.Ok, "Answered")
	api.WriteJSONResponse(w, r, http.StatusOK, answer)
}

// Ingest stores a new document in the knowledge base.
func (h *HandlerImpl) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("KnowledgeHandler").Start(r.Context(), "Ingest", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/knowledge/documents"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Ingest"))

	var req types.IngestDocumentRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.Ingest(ctx, req)
	if errors.Is(err, ErrInvalidDocument) {
		span.SetStatus(codes.Error, "Invalid document")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to ingest document", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Ingest failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to ingest document")
		return
	}

	span.SetStatus(codes.Ok, "Document ingested")
	api.WriteJSONResponse(w, r, http.StatusCreated, doc)
}
