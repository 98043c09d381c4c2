package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	appMiddleware "github.com/naver-ai-trip/agent-trip/app/middleware"
	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	llmChat "github.com/naver-ai-trip/agent-trip/internal/api/chat_prompt"
	"github.com/naver-ai-trip/agent-trip/internal/api/extraction"
	"github.com/naver-ai-trip/agent-trip/internal/api/hotels"
	"github.com/naver-ai-trip/agent-trip/internal/api/itinerary"
	"github.com/naver-ai-trip/agent-trip/internal/api/knowledge"
	"github.com/naver-ai-trip/agent-trip/internal/api/poi"
	"github.com/naver-ai-trip/agent-trip/internal/api/session"
	"github.com/naver-ai-trip/agent-trip/internal/api/translation"
	api "github.com/naver-ai-trip/agent-trip/internal/router"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const e2eToken = "e2e-token"

// stubLLM echoes translations and answers everything else with a fixed line.
type stubLLM struct{}

func (stubLLM) GenerateText(_ context.Context, system, prompt string) (string, error) {
	if strings.HasPrefix(system, "You are a professional translator") {
		return prompt, nil
	}
	return "Happy to help with your trip!", nil
}

func (stubLLM) GenerateJSON(context.Context, string, string) (string, error) {
	return "", errors.New("json generation disabled in tests")
}

func (stubLLM) Embed(context.Context, string) ([]float32, error) { return []float32{0.1, 0.2, 0.3}, nil }

func (stubLLM) Model() string { return "stub-model" }

// emptyKnowledge is a knowledge base without documents.
type emptyKnowledge struct{}

func (emptyKnowledge) Embed(context.Context, string) ([]float32, error) { return []float32{0.1}, nil }

func (emptyKnowledge) Search(context.Context, []float32, int, types.SearchFilter) ([]types.KnowledgeChunk, error) {
	return nil, nil
}

func (emptyKnowledge) Rerank(context.Context, string, []types.KnowledgeChunk) (*types.RerankResult, error) {
	return nil, errors.New("nothing to rerank")
}

func (emptyKnowledge) Metadata(context.Context, uuid.UUID) (*types.KnowledgeDocument, error) {
	return nil, knowledge.ErrDocumentNotFound
}

func (emptyKnowledge) SaveDocument(context.Context, *types.KnowledgeDocument, []types.KnowledgeChunk, [][]float32) error {
	return nil
}

// fakeTripBackend serves the subset of the trip backend REST API the service calls.
type fakeTripBackend struct {
	mu       sync.Mutex
	messages []backend.OutgoingMessage
}

func place(name, category string, lat, lon float64) map[string]any {
	return map[string]any{"name": name, "category": category, "latitude": lat, "longitude": lon}
}

func (f *fakeTripBackend) handler() http.Handler {
	writeData := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": v})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat-sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "known" {
			http.NotFound(w, r)
			return
		}
		writeData(w, map[string]any{"context": map[string]any{"destination": "Busan", "interests": []string{"food"}}})
	})
	mux.HandleFunc("POST /chat-sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var msg backend.OutgoingMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.messages = append(f.messages, msg)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /places/search", func(w http.ResponseWriter, r *http.Request) {
		places := make([]map[string]any, 0, 8)
		for i := range 4 {
			places = append(places, place(fmt.Sprintf("궁궐 %d", i), "관광명소>고궁", 37.57+float64(i)/100, 126.97))
		}
		for i := range 4 {
			places = append(places, place(fmt.Sprintf("식당 %d", i), "음식점>한식", 37.56, 126.98+float64(i)/100))
		}
		writeData(w, places)
	})
	mux.HandleFunc("POST /places/search-nearby", func(w http.ResponseWriter, r *http.Request) {
		var req backend.NearbyRequest
		json.NewDecoder(r.Body).Decode(&req)
		places := make([]map[string]any, 0, 4)
		for i := range 4 {
			places = append(places, place(fmt.Sprintf("명소 %d-%d", req.Radius, i), "관광명소", req.Latitude, req.Longitude))
		}
		writeData(w, places)
	})
	mux.HandleFunc("POST /hotels/search-with-offers", func(w http.ResponseWriter, r *http.Request) {
		var params types.HotelSearchParams
		json.NewDecoder(r.Body).Decode(&params)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"offers":[{"hotel":{"hotelId":"H1","name":"Ocean Suites"},
			"offers":[{"id":"O1","checkInDate":%q,"checkOutDate":%q,"price":{"total":"420.00","currency":"USD"}}]}]},
			"meta":{"total_hotels":1,"total_offers":1}}`, params.CheckInDate, params.CheckOutDate)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+e2eToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeTripBackend) sent() []backend.OutgoingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.OutgoingMessage(nil), f.messages...)
}

// newTestApp wires the real services the way the container does, minus
// Postgres and Redis.
func newTestApp(backendURL string, logger *slog.Logger) http.Handler {
	llm := stubLLM{}
	translator := translation.NewLLMTranslator(llm, logger)
	client := backend.NewHTTPClient(backendURL, 5*time.Second, logger)
	knowledgeService := knowledge.NewService(emptyKnowledge{}, emptyKnowledge{}, translator, "ko", 10, 800, logger)

	chatService := llmChat.NewServiceImpl(llmChat.Deps{
		Sessions:        session.NewBackendStore(client),
		LLM:             llm,
		Translator:      translator,
		PlaceLocalizer:  translation.NewPlaceTranslator(llm, "ko", logger),
		Places:          poi.NewBackendProvider(client, 10000, nil),
		Aggregator:      poi.NewAggregator(translator, "ko", 10000, rand.New(rand.NewPCG(1, 2)), logger),
		Scheduler:       itinerary.NewScheduler(rand.New(rand.NewPCG(3, 4)), logger),
		Knowledge:       knowledgeService,
		Hotels:          hotels.NewService(client, translator, "ko", logger),
		Days:            extraction.DayCounter{DefaultDays: 3, MaxDays: 14},
		CorpusLanguage:  "ko",
		MessageLanguage: "en",
	}, logger)

	return api.SetupRouter(&api.Config{
		ChatHandler:            llmChat.NewHandlerImpl(chatService, nil, logger),
		KnowledgeHandler:       knowledge.NewHandler(knowledgeService, logger),
		AuthenticateMiddleware: appMiddleware.Authenticate(nil, logger),
	})
}

// E2ETestSuite drives chat turns through the HTTP API against a fake trip backend.
type E2ETestSuite struct {
	suite.Suite
	backend *fakeTripBackend
	tripAPI *httptest.Server
	server  *httptest.Server
	client  *http.Client
}

func (suite *E2ETestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	suite.backend = &fakeTripBackend{}
	suite.tripAPI = httptest.NewServer(suite.backend.handler())
	suite.server = httptest.NewServer(newTestApp(suite.tripAPI.URL, logger))
	suite.client = &http.Client{Timeout: 30 * time.Second}
}

func (suite *E2ETestSuite) TearDownTest() {
	suite.server.Close()
	suite.tripAPI.Close()
}

type wireComponent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireResult struct {
	SessionID string `json:"session_id"`
	Response  struct {
		Message         string          `json:"message"`
		MessageType     string          `json:"message_type"`
		Components      []wireComponent `json:"components"`
		ActionsTaken    []string        `json:"actions_taken"`
		NextSuggestions []string        `json:"next_suggestions"`
	} `json:"response"`
}

func (suite *E2ETestSuite) post(path string, body any) *http.Response {
	b, err := json.Marshal(body)
	suite.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPost, suite.server.URL+path, bytes.NewReader(b))
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e2eToken)
	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	return resp
}

func (suite *E2ETestSuite) chat(sessionID, message string) wireResult {
	resp := suite.post("/api/v1/chat", types.ChatRequest{SessionID: sessionID, Message: message, UserLanguage: "en"})
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	var result wireResult
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&result))
	suite.Equal(sessionID, result.SessionID)
	return result
}

func (suite *E2ETestSuite) TestTripPlanningWorkflow() {
	result := suite.chat("new-1", "plan 2 day trip to Seoul")

	suite.Equal("trip_plan", result.Response.MessageType)
	suite.Require().Len(result.Response.Components, 1)
	suite.Equal("trip_planning", result.Response.Components[0].Type)

	var plan struct {
		Summary      types.TripSummary        `json:"summary"`
		Itinerary    []types.Place            `json:"itinerary"`
		DaysSchedule map[string][]types.Place `json:"days_schedule"`
	}
	suite.Require().NoError(json.Unmarshal(result.Response.Components[0].Data, &plan))
	suite.Equal("Seoul", plan.Summary.Destination)
	suite.Equal(2, plan.Summary.TotalDays)
	suite.Require().NotEmpty(plan.Itinerary)
	for _, day := range []string{"1", "2"} {
		suite.Require().NotEmpty(plan.DaysSchedule[day], "day %s", day)
		suite.Equal("08:00", plan.DaysSchedule[day][0].StartTime)
		suite.Equal(types.ActivityAttraction, plan.DaysSchedule[day][0].ActivityType)
	}
	for _, item := range plan.Itinerary {
		suite.Contains([]int{1, 2}, item.Day)
	}

	sent := suite.backend.sent()
	suite.Require().Len(sent, 1)
	suite.Equal("assistant", sent[0].FromRole)
	suite.Equal("trip_planning", sent[0].Metadata["intent"])
	suite.Equal("stub-model", sent[0].Metadata["model"])
	suite.Contains(result.Response.ActionsTaken, "Response saved to database")
}

func (suite *E2ETestSuite) TestSuggestPlacesUsesSessionContext() {
	result := suite.chat("known", "recommend something good")

	suite.Equal("places", result.Response.MessageType)
	suite.Require().Len(result.Response.Components, 1)
	suite.Equal("places_list", result.Response.Components[0].Type)

	var list types.PlacesList
	suite.Require().NoError(json.Unmarshal(result.Response.Components[0].Data, &list))
	suite.NotEmpty(list.Places)
	suite.LessOrEqual(len(list.Places), 10)
	suite.Contains(result.Response.Message, "Busan")
	suite.Contains(result.Response.ActionsTaken, "Loaded session context")
}

func (suite *E2ETestSuite) TestHotelWorkflow() {
	clarify := suite.chat("new-2", "find me a hotel in Jeju")
	suite.Equal("clarification", clarify.Response.MessageType)
	suite.Empty(clarify.Response.Components)

	result := suite.chat("new-2", "hotel in Jeju from 22/11/2025 to 25/11/2025")
	suite.Equal("hotels", result.Response.MessageType)
	suite.Require().Len(result.Response.Components, 1)
	suite.Equal("hotel_offers", result.Response.Components[0].Type)

	var group types.HotelOffersGroup
	suite.Require().NoError(json.Unmarshal(result.Response.Components[0].Data, &group))
	suite.Equal("Ocean Suites", group.Hotel.Name)
	suite.Require().Len(group.Offers, 1)
	suite.Equal("2025-11-22", group.Offers[0].CheckInDate)
}

func (suite *E2ETestSuite) TestKnowledgeQueryWithoutMatches() {
	result := suite.chat("new-3", "what is the etiquette for visiting a temple")

	suite.Equal("knowledge", result.Response.MessageType)
	suite.NotEmpty(result.Response.Message)
	suite.Require().Len(result.Response.Components, 1)

	var answer types.KnowledgeAnswer
	suite.Require().NoError(json.Unmarshal(result.Response.Components[0].Data, &answer))
	suite.False(answer.Found)
	suite.Empty(answer.Citations)
}

func (suite *E2ETestSuite) TestImageTranslationTrigger() {
	result := suite.chat("new-4", "can you translate this image for me")

	suite.Equal("image_translation", result.Response.MessageType)
	suite.Require().Len(result.Response.Components, 1)
	suite.JSONEq(`{"action":"open_image_upload"}`, string(result.Response.Components[0].Data))
}

func (suite *E2ETestSuite) TestStreamingTurn() {
	resp := suite.post("/api/v1/chat/stream", types.ChatRequest{SessionID: "new-5", Message: "hello!", UserLanguage: "en"})
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	text := string(body)
	suite.Contains(text, "event: progress")
	suite.Contains(text, "event: response")
	suite.Contains(text, "event: complete")
	suite.Less(strings.Index(text, "event: response"), strings.Index(text, "event: complete"))
	suite.Contains(text, "Happy to help with your trip!")
}

func (suite *E2ETestSuite) TestErrorHandling() {
	req, err := http.NewRequest(http.MethodPost, suite.server.URL+"/api/v1/chat", strings.NewReader(`{"session_id":"x","message":"hi"}`))
	suite.Require().NoError(err)
	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	resp.Body.Close()
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = suite.post("/api/v1/chat", map[string]string{"session_id": "x", "message": " "})
	resp.Body.Close()
	suite.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = suite.post("/api/v1/chat", map[string]string{"session_id": "x", "text": "hi"})
	resp.Body.Close()
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestE2E(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
