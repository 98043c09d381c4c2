package llmChat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	"github.com/naver-ai-trip/agent-trip/internal/api/extraction"
	"github.com/naver-ai-trip/agent-trip/internal/api/hotels"
	"github.com/naver-ai-trip/agent-trip/internal/api/itinerary"
	"github.com/naver-ai-trip/agent-trip/internal/api/poi"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) GetContext(ctx context.Context, token, sessionID string) (types.SessionContext, error) {
	args := m.Called(ctx, token, sessionID)
	return args.Get(0).(types.SessionContext), args.Error(1)
}

func (m *MockSessionStore) Persist(ctx context.Context, token, sessionID string, msg backend.OutgoingMessage) error {
	return m.Called(ctx, token, sessionID, msg).Error(0)
}

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Error(1)
}

func (m *MockLLMClient) Model() string { return "mock-model" }

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) DetectLanguage(text string) string {
	return m.Called(text).String(0)
}

func (m *MockTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	args := m.Called(ctx, text, targetLang)
	return args.String(0), args.Error(1)
}

// MockPlaceLocalizer returns its input unless a result was configured.
type MockPlaceLocalizer struct {
	mock.Mock
}

func (m *MockPlaceLocalizer) TranslatePlaces(ctx context.Context, places []types.Place, targetLang string) []types.Place {
	args := m.Called(ctx, places, targetLang)
	if out, ok := args.Get(0).([]types.Place); ok {
		return out
	}
	return places
}

type MockSourceProvider struct {
	mock.Mock
}

func (m *MockSourceProvider) ForToken(token string) poi.PlaceSource {
	src, _ := m.Called(token).Get(0).(poi.PlaceSource)
	return src
}

type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) Gather(ctx context.Context, src poi.PlaceSource, destination string, interests []string, numDays int) ([]types.Place, []types.Place) {
	args := m.Called(ctx, src, destination, interests, numDays)
	attractions, _ := args.Get(0).([]types.Place)
	restaurants, _ := args.Get(1).([]types.Place)
	return attractions, restaurants
}

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) Answer(ctx context.Context, query, language string, filter types.SearchFilter) types.KnowledgeAnswer {
	return m.Called(ctx, query, language, filter).Get(0).(types.KnowledgeAnswer)
}

func (m *MockKnowledgeService) Ingest(ctx context.Context, req types.IngestDocumentRequest) (*types.KnowledgeDocument, error) {
	args := m.Called(ctx, req)
	doc, _ := args.Get(0).(*types.KnowledgeDocument)
	return doc, args.Error(1)
}

type MockHotelService struct {
	mock.Mock
}

func (m *MockHotelService) Search(ctx context.Context, token, destination string, dates *types.TravelDates) ([]types.Component, error) {
	args := m.Called(ctx, token, destination, dates)
	components, _ := args.Get(0).([]types.Component)
	return components, args.Error(1)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveTurn(ctx context.Context, turn types.ChatTurn) (uuid.UUID, error) {
	args := m.Called(ctx, turn)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockRepository) RecentTurns(ctx context.Context, sessionID string, limit int) ([]types.ChatTurn, error) {
	args := m.Called(ctx, sessionID, limit)
	turns, _ := args.Get(0).([]types.ChatTurn)
	return turns, args.Error(1)
}

type chatMocks struct {
	sessions   *MockSessionStore
	llm        *MockLLMClient
	translator *MockTranslator
	localizer  *MockPlaceLocalizer
	provider   *MockSourceProvider
	aggregator *MockAggregator
	knowledge  *MockKnowledgeService
	hotels     *MockHotelService
	turns      *MockRepository
}

func setupChatServiceTest() (*ServiceImpl, *chatMocks) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	m := &chatMocks{
		sessions:   new(MockSessionStore),
		llm:        new(MockLLMClient),
		translator: new(MockTranslator),
		localizer:  new(MockPlaceLocalizer),
		provider:   new(MockSourceProvider),
		aggregator: new(MockAggregator),
		knowledge:  new(MockKnowledgeService),
		hotels:     new(MockHotelService),
		turns:      new(MockRepository),
	}
	m.provider.On("ForToken", "tok").Return(nil).Maybe()
	m.localizer.On("TranslatePlaces", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	service := NewServiceImpl(Deps{
		Sessions:        m.sessions,
		LLM:             m.llm,
		Translator:      m.translator,
		PlaceLocalizer:  m.localizer,
		Places:          m.provider,
		Aggregator:      m.aggregator,
		Scheduler:       itinerary.NewScheduler(rand.New(rand.NewPCG(7, 7)), logger),
		Knowledge:       m.knowledge,
		Hotels:          m.hotels,
		Turns:           m.turns,
		Days:            extraction.DayCounter{DefaultDays: 3, MaxDays: 14},
		CorpusLanguage:  "ko",
		MessageLanguage: "en",
	}, logger)
	return service, m
}

// expectSession registers a new (unknown) session and successful persistence.
func (m *chatMocks) expectSession(sessionID string) {
	m.sessions.On("GetContext", mock.Anything, "tok", sessionID).Return(types.SessionContext{}, backend.ErrNotFound).Once()
	m.sessions.On("Persist", mock.Anything, "tok", sessionID, mock.Anything).Return(nil).Once()
	m.turns.On("SaveTurn", mock.Anything, mock.Anything).Return(uuid.New(), nil).Once()
}

func ptr(v float64) *float64 { return &v }

func fixturePlaces(prefix string, n int, activity types.ActivityType) []types.Place {
	out := make([]types.Place, n)
	for i := range out {
		out[i] = types.Place{
			Name:         fmt.Sprintf("%s %d", prefix, i),
			Category:     string(activity),
			Latitude:     ptr(37.5 + float64(i)/100),
			Longitude:    ptr(127.0),
			Rating:       4.8,
			ActivityType: activity,
		}
	}
	return out
}

func chatRequest(sessionID, message, lang string) types.ChatRequest {
	return types.ChatRequest{SessionID: sessionID, Message: message, UserLanguage: lang}
}

func TestProcessTurnTripPlanning(t *testing.T) {
	ctx := context.Background()
	service, m := setupChatServiceTest()
	m.expectSession("s1")
	m.aggregator.On("Gather", mock.Anything, mock.Anything, "Seoul", []string(nil), 3).
		Return(fixturePlaces("attraction", 12, types.ActivityAttraction), fixturePlaces("restaurant", 6, types.ActivityRestaurant)).Once()

	var stages []string
	result, err := service.ProcessTurn(ctx, "tok", chatRequest("s1", "plan 3 day trip to Seoul", "en"), func(s string) {
		stages = append(stages, s)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"load_context", "extract", "route", "handle", "localize", "assemble", "persist"}, stages)
	assert.Equal(t, "s1", result.SessionID)
	resp := result.Response
	assert.Equal(t, types.MessageTripPlan, resp.MessageType)
	require.Len(t, resp.Components, 1)
	assert.Equal(t, types.ComponentTripPlanning, resp.Components[0].Type)

	plan, ok := resp.Components[0].Data.(types.TripPlan)
	require.True(t, ok)
	assert.Equal(t, "Seoul", plan.Summary.Destination)
	assert.Equal(t, 3, plan.Summary.TotalDays)
	assert.Equal(t, []string{}, plan.Summary.Interests)
	require.NotEmpty(t, plan.Itinerary)
	for _, item := range plan.Itinerary {
		assert.GreaterOrEqual(t, item.Day, 1)
		assert.LessOrEqual(t, item.Day, 3)
	}
	for day := 1; day <= 3; day++ {
		require.NotEmpty(t, plan.DaysSchedule[day], "day %d", day)
		assert.Equal(t, "08:00", plan.DaysSchedule[day][0].StartTime)
	}
	assert.Contains(t, resp.ActionsTaken, "Started new session context")
	assert.Contains(t, resp.ActionsTaken, "Response saved to database")
	assert.Equal(t, tripSuggestions, resp.NextSuggestions)

	m.sessions.AssertCalled(t, "Persist", mock.Anything, "tok", "s1", mock.MatchedBy(func(msg backend.OutgoingMessage) bool {
		return msg.FromRole == "assistant" &&
			msg.Metadata["intent"] == "trip_planning" &&
			msg.Metadata["model"] == "mock-model" &&
			msg.Metadata["places_count"] == len(plan.Itinerary)
	}))
	m.turns.AssertCalled(t, "SaveTurn", mock.Anything, mock.MatchedBy(func(turn types.ChatTurn) bool {
		return turn.SessionID == "s1" && turn.Intent == "trip_planning" && turn.Language == "en"
	}))
	m.localizer.AssertCalled(t, "TranslatePlaces", mock.Anything, mock.Anything, "en")
	m.aggregator.AssertExpectations(t)
}

func TestProcessTurnSuggestPlaces(t *testing.T) {
	ctx := context.Background()

	t.Run("top ten places from the aggregator", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("s2")
		m.aggregator.On("Gather", mock.Anything, mock.Anything, "Busan", []string(nil), 1).
			Return(fixturePlaces("attraction", 8, types.ActivityAttraction), fixturePlaces("restaurant", 5, types.ActivityRestaurant)).Once()

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("s2", "recommend restaurants in Busan", "en"), nil)
		require.NoError(t, err)

		resp := result.Response
		assert.Equal(t, types.MessagePlaces, resp.MessageType)
		require.Len(t, resp.Components, 1)
		list, ok := resp.Components[0].Data.(types.PlacesList)
		require.True(t, ok)
		assert.Len(t, list.Places, 10)
		assert.Equal(t, "attraction 0", list.Places[0].Name)
		assert.Equal(t, "restaurant 0", list.Places[1].Name)
		assert.Equal(t, "restaurant 4", list.Places[9].Name)
		assert.Contains(t, resp.Message, "10")
		assert.Equal(t, placesSuggestions, resp.NextSuggestions)
	})

	t.Run("session destination and interests are used", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.sessions.On("GetContext", mock.Anything, "tok", "s3").
			Return(types.SessionContext{Destination: "Gyeongju", Interests: []string{"history"}}, nil).Once()
		m.sessions.On("Persist", mock.Anything, "tok", "s3", mock.Anything).Return(nil).Once()
		m.turns.On("SaveTurn", mock.Anything, mock.Anything).Return(uuid.New(), nil).Once()
		m.aggregator.On("Gather", mock.Anything, mock.Anything, "Gyeongju", []string{"history"}, 1).
			Return(nil, nil).Once()

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("s3", "suggest something fun", "en"), nil)
		require.NoError(t, err)
		assert.Empty(t, result.Response.Components)
		assert.Equal(t, noPlacesMessage, result.Response.Message)
		assert.Equal(t, noPlacesSuggestions, result.Response.NextSuggestions)
		assert.Contains(t, result.Response.ActionsTaken, "Loaded session context")
		m.aggregator.AssertExpectations(t)
	})

	t.Run("no destination asks for one", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("s4")

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("s4", "recommend some places", "en"), nil)
		require.NoError(t, err)
		assert.Equal(t, types.MessageClarification, result.Response.MessageType)
		assert.Equal(t, askDestinationMessage, result.Response.Message)
		m.aggregator.AssertNotCalled(t, "Gather", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("corpus language users get untranslated places", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("s5")
		m.aggregator.On("Gather", mock.Anything, mock.Anything, "Busan", []string(nil), 1).
			Return(fixturePlaces("관광지", 2, types.ActivityAttraction), nil).Once()
		m.translator.On("Translate", mock.Anything, mock.Anything, "ko").Return("번역", nil)

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("s5", "recommend places in Busan", "ko"), nil)
		require.NoError(t, err)
		assert.Equal(t, "번역", result.Response.Message)
		m.localizer.AssertNotCalled(t, "TranslatePlaces", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProcessTurnHotels(t *testing.T) {
	ctx := context.Background()

	t.Run("hotel keyword wins over planning keyword", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("h1")
		m.hotels.On("Search", mock.Anything, "tok", "Jeju", (*types.TravelDates)(nil)).
			Return(nil, hotels.ErrMissingDates).Once()

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("h1", "find a hotel for my trip plan to Jeju", "en"), nil)
		require.NoError(t, err)
		assert.Equal(t, types.MessageClarification, result.Response.MessageType)
		assert.Equal(t, askHotelDetailsMessage, result.Response.Message)
		assert.Empty(t, result.Response.Components)
		m.aggregator.AssertNotCalled(t, "Gather", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dates from the message reach the search", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("h2")
		dates := &types.TravelDates{Start: "2025-11-22", End: "2025-11-25"}
		components := []types.Component{
			{Type: types.ComponentHotelOffers, Data: types.HotelOffersGroup{Hotel: types.Hotel{Name: "Ocean Suites"}}},
			{Type: types.ComponentHotelOffers, Data: types.HotelOffersGroup{Hotel: types.Hotel{Name: "Lotte Hotel"}}},
		}
		m.hotels.On("Search", mock.Anything, "tok", "Jeju", dates).Return(components, nil).Once()

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("h2", "hotel in Jeju from 22/11/2025 to 25/11/2025", "en"), nil)
		require.NoError(t, err)
		assert.Equal(t, types.MessageHotels, result.Response.MessageType)
		assert.Len(t, result.Response.Components, 2)
		assert.Equal(t, hotelsFoundMessage(2, "Jeju"), result.Response.Message)
		m.hotels.AssertExpectations(t)
	})

	t.Run("provider failure becomes an apology", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("h3")
		m.hotels.On("Search", mock.Anything, "tok", "Jeju", mock.Anything).Return(nil, errors.New("timeout")).Once()

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("h3", "hotel in Jeju from 22/11/2025 to 25/11/2025", "en"), nil)
		require.NoError(t, err)
		assert.Equal(t, types.MessageError, result.Response.MessageType)
		assert.Contains(t, result.Response.ActionsTaken, "Hotel search failed")
	})
}

func TestProcessTurnKnowledge(t *testing.T) {
	ctx := context.Background()
	service, m := setupChatServiceTest()
	m.expectSession("k1")
	query := "what is the etiquette for visiting a temple"
	answer := types.KnowledgeAnswer{
		Answer:           "관련 정보를 찾지 못했습니다.",
		Citations:        []types.Citation{},
		SuggestedQueries: []string{"템플스테이"},
	}
	m.knowledge.On("Answer", mock.Anything, query, "ko", types.SearchFilter{}).Return(answer).Once()

	result, err := service.ProcessTurn(ctx, "tok", chatRequest("k1", query, "ko"), nil)
	require.NoError(t, err)

	resp := result.Response
	assert.Equal(t, types.MessageKnowledge, resp.MessageType)
	assert.Equal(t, answer.Answer, resp.Message)
	require.Len(t, resp.Components, 1)
	assert.Equal(t, types.ComponentTravelKnowledge, resp.Components[0].Type)
	assert.Equal(t, []string{"템플스테이"}, resp.NextSuggestions)
	assert.Contains(t, resp.ActionsTaken, "No knowledge base match")
	// the answer and its suggested queries arrive localized
	m.translator.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessTurnImageTranslation(t *testing.T) {
	service, m := setupChatServiceTest()
	m.expectSession("i1")

	result, err := service.ProcessTurn(context.Background(), "tok", chatRequest("i1", "Please translate this image of a hotel menu", "en"), nil)
	require.NoError(t, err)

	resp := result.Response
	assert.Equal(t, types.MessageImageTranslation, resp.MessageType)
	require.Len(t, resp.Components, 1)
	assert.Equal(t, types.ComponentImageTranslationTrigger, resp.Components[0].Type)
	assert.Equal(t, types.ImageTranslationTrigger{Action: "open_image_upload"}, resp.Components[0].Data)
	assert.Contains(t, resp.ActionsTaken, "Prepared image translation interface")
	assert.Equal(t, imageSuggestions, resp.NextSuggestions)
	m.hotels.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessTurnConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("reply is translated to the user language", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("c1")
		m.translator.On("DetectLanguage", "안녕하세요").Return("ko").Once()
		m.llm.On("GenerateText", mock.Anything, conversationSystemPrompt, mock.Anything).Return(" Hello! ", nil).Once()
		m.translator.On("Translate", mock.Anything, "Hello!", "ko").Return("안녕하세요!", nil).Once()
		for _, s := range conversationSuggestions {
			m.translator.On("Translate", mock.Anything, s, "ko").Return("ko:"+s, nil).Once()
		}

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("c1", "안녕하세요", ""), nil)
		require.NoError(t, err)
		assert.Equal(t, types.MessageText, result.Response.MessageType)
		assert.Equal(t, "안녕하세요!", result.Response.Message)
		assert.Equal(t, "ko:Plan a trip", result.Response.NextSuggestions[1])
		assert.Empty(t, result.Response.Components)
		m.translator.AssertExpectations(t)
	})

	t.Run("model failure gives an apology", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.expectSession("c2")
		m.llm.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("c2", "hi there", "en"), nil)
		require.NoError(t, err)
		assert.Equal(t, types.MessageError, result.Response.MessageType)
		assert.Equal(t, apologyMessage, result.Response.Message)
	})
}

func TestProcessTurnFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing message", func(t *testing.T) {
		service, m := setupChatServiceTest()
		_, err := service.ProcessTurn(ctx, "tok", chatRequest("s1", "   ", "en"), nil)
		assert.ErrorIs(t, err, ErrInvalidRequest)
		m.sessions.AssertNotCalled(t, "GetContext", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unreadable session fails the turn", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.sessions.On("GetContext", mock.Anything, "tok", "s1").Return(types.SessionContext{}, errors.New("backend down")).Once()

		_, err := service.ProcessTurn(ctx, "tok", chatRequest("s1", "hello", "en"), nil)
		assert.ErrorContains(t, err, "backend down")
		m.sessions.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("persistence failures do not fail the turn", func(t *testing.T) {
		service, m := setupChatServiceTest()
		m.sessions.On("GetContext", mock.Anything, "tok", "s1").Return(types.SessionContext{}, nil).Once()
		m.sessions.On("Persist", mock.Anything, "tok", "s1", mock.Anything).Return(errors.New("backend down")).Once()
		m.turns.On("SaveTurn", mock.Anything, mock.Anything).Return(uuid.Nil, errors.New("db down")).Once()

		result, err := service.ProcessTurn(ctx, "tok", chatRequest("s1", "translate image", "en"), nil)
		require.NoError(t, err)
		assert.Contains(t, result.Response.ActionsTaken, "Failed to save response")
		assert.NotContains(t, result.Response.ActionsTaken, "Response saved to database")
		m.turns.AssertExpectations(t)
	})
}

func TestTopPlaces(t *testing.T) {
	a := fixturePlaces("a", 3, types.ActivityAttraction)
	r := fixturePlaces("r", 3, types.ActivityRestaurant)

	assert.Len(t, topPlaces(a, r, 10), 6)
	top := topPlaces(a, r, 4)
	require.Len(t, top, 4)
	assert.Equal(t, []string{"a 0", "r 0", "a 1", "r 1"}, placeNames(top))
	assert.Empty(t, topPlaces(nil, nil, 10))

	t.Run("a full attraction bucket still leaves room for restaurants", func(t *testing.T) {
		top := topPlaces(fixturePlaces("a", 10, types.ActivityAttraction), fixturePlaces("r", 5, types.ActivityRestaurant), maxSuggestedPlaces)
		require.Len(t, top, maxSuggestedPlaces)
		restaurants := 0
		for _, p := range top {
			if p.ActivityType == types.ActivityRestaurant {
				restaurants++
			}
		}
		assert.Equal(t, 5, restaurants)
	})

	t.Run("leftovers come from the longer bucket", func(t *testing.T) {
		top := topPlaces(fixturePlaces("a", 1, types.ActivityAttraction), fixturePlaces("r", 4, types.ActivityRestaurant), 10)
		assert.Equal(t, []string{"a 0", "r 0", "r 1", "r 2", "r 3"}, placeNames(top))
	})
}

func placeNames(places []types.Place) []string {
	names := make([]string, len(places))
	for i, p := range places {
		names[i] = p.Name
	}
	return names
}

func TestDescribeContext(t *testing.T) {
	sc := types.SessionContext{
		Destination: "Seoul",
		Interests:   []string{"food", "palaces"},
		TravelDates: &types.TravelDates{Start: "2025-11-22", End: "2025-11-25"},
	}
	got := describeContext(sc)
	assert.Contains(t, got, "Destination: Seoul")
	assert.Contains(t, got, "Interests: food, palaces")
	assert.Contains(t, got, "Travel dates: 2025-11-22 to 2025-11-25")
	assert.NotContains(t, got, "Budget")
	assert.Empty(t, describeContext(types.SessionContext{}))
}
