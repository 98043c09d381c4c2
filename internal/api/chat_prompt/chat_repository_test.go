package llmChat

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewRepositoryImpl(mockPool, slog.New(slog.NewTextHandler(os.Stdout, nil))), mockPool
}

func TestSaveTurn(t *testing.T) {
	ctx := context.Background()
	turn := types.ChatTurn{
		SessionID:   "s1",
		Intent:      "trip_planning",
		UserMessage: "plan 3 day trip to Seoul",
		Response:    types.ChatResponse{Message: "Here is your plan.", MessageType: types.MessageTripPlan},
		Language:    "en",
		LatencyMs:   420,
	}

	t.Run("inserts with a fresh id", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		mockPool.ExpectExec(regexp.QuoteMeta(insertTurnQuery)).
			WithArgs(pgxmock.AnyArg(), "s1", "", "trip_planning", "plan 3 day trip to Seoul",
				pgxmock.AnyArg(), "en", int64(420), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		id, err := repo.SaveTurn(ctx, turn)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("insert error", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		mockPool.ExpectExec(regexp.QuoteMeta(insertTurnQuery)).
			WithArgs(pgxmock.AnyArg(), "s1", "", "trip_planning", "plan 3 day trip to Seoul",
				pgxmock.AnyArg(), "en", int64(420), pgxmock.AnyArg()).
			WillReturnError(errors.New("relation does not exist"))

		_, err := repo.SaveTurn(ctx, turn)
		assert.ErrorContains(t, err, "relation does not exist")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRecentTurns(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "session_id", "trip_id", "intent", "user_message", "response", "language", "latency_ms", "created_at"}
	created := time.Date(2025, 11, 20, 9, 30, 0, 0, time.UTC)

	t.Run("decodes responses and skips unreadable ones", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		id := uuid.New()
		rows := pgxmock.NewRows(columns).
			AddRow(id, "s1", "trip-9", "conversation", "hello",
				[]byte(`{"message":"Hi!","message_type":"text","components":[],"actions_taken":[],"next_suggestions":[]}`),
				"en", int64(80), created).
			AddRow(uuid.New(), "s1", "", "conversation", "broken", []byte(`{`), "en", int64(5), created)
		mockPool.ExpectQuery(regexp.QuoteMeta(recentTurnsQuery)).WithArgs("s1", 10).WillReturnRows(rows)

		turns, err := repo.RecentTurns(ctx, "s1", 10)
		require.NoError(t, err)
		require.Len(t, turns, 1)
		assert.Equal(t, id, turns[0].ID)
		assert.Equal(t, "trip-9", turns[0].TripID)
		assert.Equal(t, "Hi!", turns[0].Response.Message)
		assert.Equal(t, types.MessageText, turns[0].Response.MessageType)
		assert.Equal(t, created, turns[0].CreatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		mockPool.ExpectQuery(regexp.QuoteMeta(recentTurnsQuery)).WithArgs("s1", 10).
			WillReturnError(errors.New("timeout"))

		_, err := repo.RecentTurns(ctx, "s1", 10)
		assert.ErrorContains(t, err, "timeout")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
