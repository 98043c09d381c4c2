package llmChat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/naver-ai-trip/agent-trip/app/middleware"
	"github.com/naver-ai-trip/agent-trip/internal/api"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// ChatStream runs the same pipeline as Chat and reports it as server-sent
// events: one progress event per stage, then response and complete, or error.
func (h *HandlerImpl) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ChatStream", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/chat/stream"),
	))
	defer span.End()

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	token, ok := appMiddleware.TokenFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(event types.StreamEvent) {
		if ctx.Err() != nil {
			return
		}
		h.writeSSE(w, event)
		flusher.Flush()
	}

	result, err := h.service.ProcessTurn(ctx, token, req, func(stage string) {
		send(newEvent(types.EventTypeProgress, map[string]string{"stage": stage}, ""))
	})
	if err != nil {
		msg := "Failed to process message"
		if errors.Is(err, ErrInvalidRequest) {
			msg = err.Error()
		} else {
			h.logger.ErrorContext(ctx, "Streamed chat turn failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Chat turn failed")
		send(newEvent(types.EventTypeError, nil, msg))
		return
	}

	send(newEvent(types.EventTypeResponse, result, ""))
	send(newEvent(types.EventTypeComplete, map[string]string{"session_id": result.SessionID}, ""))
	span.SetStatus(codes.Ok, "Chat turn streamed")
}

func newEvent(eventType string, data any, errMsg string) types.StreamEvent {
	return types.StreamEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

func (h *HandlerImpl) writeSSE(w http.ResponseWriter, event types.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", slog.Any("error", err))
		return
	}
	fmt.Fprintf(w, "id: %s\n", event.EventID)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
