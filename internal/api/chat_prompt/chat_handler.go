package llmChat

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/naver-ai-trip/agent-trip/app/middleware"
	"github.com/naver-ai-trip/agent-trip/internal/api"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const (
	defaultTurnsLimit = 20
	maxTurnsLimit     = 100
)

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
	turns   Repository
}

func NewHandlerImpl(service Service, turns Repository, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{logger: logger, service: service, turns: turns}
}

// Chat answers one message and returns the assembled response.
func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "Chat", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/chat"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Chat"))

	token, ok := appMiddleware.TokenFromContext(ctx)
	if !ok {
		span.SetStatus(codes.Error, "Missing token")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("session.id", req.SessionID))

	result, err := h.service.ProcessTurn(ctx, token, req, nil)
	if errors.Is(err, ErrInvalidRequest) {
		span.SetStatus(codes.Error, "Invalid chat request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		l.ErrorContext(ctx, "Chat turn failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Chat turn failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to process message")
		return
	}

	span.SetStatus(codes.Ok, "Chat turn processed")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Turns lists the latest recorded turns of a session.
func (h *HandlerImpl) Turns(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "Turns", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/chat/{sessionID}/turns"),
	))
	defer span.End()

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "session id is required")
		return
	}

	limit := defaultTurnsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxTurnsLimit)
	}

	turns, err := h.turns.RecentTurns(ctx, sessionID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list chat turns", slog.String("session_id", sessionID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list turns")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list chat turns")
		return
	}

	span.SetStatus(codes.Ok, "Turns listed")
	api.WriteJSONResponse(w, r, http.StatusOK, turns)
}
