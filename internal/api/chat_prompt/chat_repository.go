package llmChat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/naver-ai-trip/agent-trip/app/db"
	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the local audit log of answered turns.
type Repository interface {
	SaveTurn(ctx context.Context, turn types.ChatTurn) (uuid.UUID, error)
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]types.ChatTurn, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool database.Querier
}

func NewRepositoryImpl(pgxpool database.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

const insertTurnQuery = `
	INSERT INTO chat_turns (
		id, session_id, trip_id, intent, user_message, response, language, latency_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (r *RepositoryImpl) SaveTurn(ctx context.Context, turn types.ChatTurn) (uuid.UUID, error) {
	ctx, span := otel.Tracer("ChatRepository").Start(ctx, "SaveTurn", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_turns"),
		attribute.String("session.id", turn.SessionID),
		attribute.String("intent", turn.Intent),
	))
	defer span.End()

	response, err := json.Marshal(turn.Response)
	if err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("failed to marshal turn response: %w", err)
	}
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	start := time.Now()
	_, err = r.pgpool.Exec(ctx, insertTurnQuery,
		turn.ID, turn.SessionID, turn.TripID, turn.Intent, turn.UserMessage,
		response, turn.Language, turn.LatencyMs, turn.CreatedAt)
	observe(ctx, "save_turn", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert turn")
		return uuid.Nil, fmt.Errorf("failed to insert chat turn: %w", err)
	}

	span.SetAttributes(attribute.String("turn.id", turn.ID.String()))
	span.SetStatus(codes.Ok, "Turn saved")
	return turn.ID, nil
}

const recentTurnsQuery = `
	SELECT id, session_id, trip_id, intent, user_message, response, language, latency_ms, created_at
	FROM chat_turns
	WHERE session_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

// RecentTurns returns the latest turns of a session, newest first.
func (r *RepositoryImpl) RecentTurns(ctx context.Context, sessionID string, limit int) ([]types.ChatTurn, error) {
	ctx, span := otel.Tracer("ChatRepository").Start(ctx, "RecentTurns", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "chat_turns"),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, recentTurnsQuery, sessionID, limit)
	if err != nil {
		observe(ctx, "recent_turns", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query turns")
		return nil, fmt.Errorf("failed to query chat turns: %w", err)
	}
	defer rows.Close()

	turns := []types.ChatTurn{}
	for rows.Next() {
		var (
			t        types.ChatTurn
			response []byte
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TripID, &t.Intent, &t.UserMessage,
			&response, &t.Language, &t.LatencyMs, &t.CreatedAt); err != nil {
			observe(ctx, "recent_turns", start, err)
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		if err := json.Unmarshal(response, &t.Response); err != nil {
			r.logger.WarnContext(ctx, "Skipping unreadable turn response",
				slog.String("turn_id", t.ID.String()), slog.Any("error", err))
			continue
		}
		turns = append(turns, t)
	}
	err = rows.Err()
	observe(ctx, "recent_turns", start, err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating chat turns: %w", err)
	}

	span.SetAttributes(attribute.Int("turns.count", len(turns)))
	span.SetStatus(codes.Ok, "Turns retrieved")
	return turns, nil
}

func observe(ctx context.Context, query string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("query", query))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}
