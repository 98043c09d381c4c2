package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const contextKeyPrefix = "session:ctx:"

// Store loads the sticky context of a chat session and records its messages.
type Store interface {
	GetContext(ctx context.Context, token, sessionID string) (types.SessionContext, error)
	Persist(ctx context.Context, token, sessionID string, msg backend.OutgoingMessage) error
}

// BackendStore keeps sessions in the trip backend.
type BackendStore struct {
	client backend.Client
}

var _ Store = (*BackendStore)(nil)

func NewBackendStore(client backend.Client) *BackendStore {
	return &BackendStore{client: client}
}

func (s *BackendStore) GetContext(ctx context.Context, token, sessionID string) (types.SessionContext, error) {
	return s.client.GetSessionContext(ctx, token, sessionID)
}

func (s *BackendStore) Persist(ctx context.Context, token, sessionID string, msg backend.OutgoingMessage) error {
	return s.client.SendMessage(ctx, token, sessionID, msg)
}

// CachedStore reads session contexts through Redis. Redis errors are logged and
// the wrapped store is used as if the key were missing.
type CachedStore struct {
	next   Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (s *CachedStore) GetContext(ctx context.Context, token, sessionID string) (types.SessionContext, error) {
	ctx, span := otel.Tracer("SessionStore").Start(ctx, "GetContext", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetContext"), slog.String("session_id", sessionID))
	key := contextKeyPrefix + sessionID

	data, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var sc types.SessionContext
		if jsonErr := json.Unmarshal([]byte(data), &sc); jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			span.SetStatus(codes.Ok, "Context from cache")
			return sc, nil
		}
		l.WarnContext(ctx, "Discarding unreadable cached session context")
	case errors.Is(err, redis.Nil):
	default:
		l.WarnContext(ctx, "Session cache unavailable", slog.Any("error", err))
	}

	sc, err := s.next.GetContext(ctx, token, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load session context")
		return types.SessionContext{}, err
	}

	if b, err := json.Marshal(sc); err == nil {
		if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
			l.DebugContext(ctx, "Could not cache session context", slog.Any("error", err))
		}
	}
	span.SetStatus(codes.Ok, "Context loaded")
	return sc, nil
}

// Persist forwards the message and drops the cached context, since the backend
// may derive new context from it.
func (s *CachedStore) Persist(ctx context.Context, token, sessionID string, msg backend.OutgoingMessage) error {
	if err := s.next.Persist(ctx, token, sessionID, msg); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, contextKeyPrefix+sessionID).Err(); err != nil {
		s.logger.DebugContext(ctx, "Could not drop cached session context", slog.Any("error", err))
	}
	return nil
}
