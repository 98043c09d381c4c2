package llmChat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	"github.com/naver-ai-trip/agent-trip/internal/api/extraction"
	generativeAI "github.com/naver-ai-trip/agent-trip/internal/api/generative_ai"
	"github.com/naver-ai-trip/agent-trip/internal/api/hotels"
	"github.com/naver-ai-trip/agent-trip/internal/api/intent"
	"github.com/naver-ai-trip/agent-trip/internal/api/itinerary"
	"github.com/naver-ai-trip/agent-trip/internal/api/knowledge"
	"github.com/naver-ai-trip/agent-trip/internal/api/poi"
	"github.com/naver-ai-trip/agent-trip/internal/api/session"
	"github.com/naver-ai-trip/agent-trip/internal/api/translation"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

var ErrInvalidRequest = errors.New("session_id and message are required")

// ProgressFunc is told the name of each stage before it runs.
type ProgressFunc func(stage string)

type Service interface {
	ProcessTurn(ctx context.Context, token string, req types.ChatRequest, progress ProgressFunc) (types.ChatResult, error)
}

// PlaceLocalizer translates corpus-language place fields for the user.
type PlaceLocalizer interface {
	TranslatePlaces(ctx context.Context, places []types.Place, targetLang string) []types.Place
}

// Deps groups the collaborators of the chat pipeline.
type Deps struct {
	Sessions        session.Store
	LLM             generativeAI.LLMClient
	Translator      translation.Translator
	PlaceLocalizer  PlaceLocalizer
	Places          poi.SourceProvider
	Aggregator      poi.Aggregator
	Scheduler       itinerary.Scheduler
	Knowledge       knowledge.Service
	Hotels          hotels.Service
	Turns           Repository
	Days            extraction.DayCounter
	CorpusLanguage  string
	MessageLanguage string
}

type ServiceImpl struct {
	logger *slog.Logger
	deps   Deps
	now    func() time.Time
}

var _ Service = (*ServiceImpl)(nil)

func NewServiceImpl(deps Deps, logger *slog.Logger) *ServiceImpl {
	if deps.MessageLanguage == "" {
		deps.MessageLanguage = "en"
	}
	return &ServiceImpl{logger: logger, deps: deps, now: time.Now}
}

type stage struct {
	name string
	run  func(ctx context.Context, st *TurnState) error
}

func (s *ServiceImpl) stages() []stage {
	return []stage{
		{"load_context", s.loadContext},
		{"extract", s.extract},
		{"route", s.route},
		{"handle", s.handle},
		{"localize", s.localize},
		{"assemble", s.assemble},
		{"persist", s.persist},
	}
}

// ProcessTurn runs one message through the pipeline. Provider failures degrade
// the answer; only a bad request or an unreadable session fails the turn.
func (s *ServiceImpl) ProcessTurn(ctx context.Context, token string, req types.ChatRequest, progress ProgressFunc) (types.ChatResult, error) {
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Message) == "" {
		return types.ChatResult{}, ErrInvalidRequest
	}

	ctx, span := otel.Tracer("ChatService").Start(ctx, "ProcessTurn", trace.WithAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.Int("message.length", len(req.Message)),
	))
	defer span.End()

	st := newTurnState(token, req, s.now())
	for _, stg := range s.stages() {
		if progress != nil {
			progress(stg.name)
		}
		if err := stg.run(ctx, st); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Stage "+stg.name+" failed")
			return types.ChatResult{}, fmt.Errorf("%s: %w", stg.name, err)
		}
	}

	elapsed := s.now().Sub(st.Started)
	attrs := metric.WithAttributes(attribute.String("intent", string(st.Intent)))
	metrics.Get().TurnsTotal.Add(ctx, 1, attrs)
	metrics.Get().TurnDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)

	span.SetAttributes(
		attribute.String("intent", string(st.Intent)),
		attribute.String("language", st.Language),
		attribute.Int("components", len(st.Response.Components)),
	)
	span.SetStatus(codes.Ok, "Turn processed")
	return types.ChatResult{Response: st.Response, SessionID: st.SessionID}, nil
}

// loadContext reads the sticky session state. A session the backend does not
// know starts empty.
func (s *ServiceImpl) loadContext(ctx context.Context, st *TurnState) error {
	sc, err := s.deps.Sessions.GetContext(ctx, st.Token, st.SessionID)
	switch {
	case err == nil:
		st.Context = sc
		st.action("Loaded session context")
	case errors.Is(err, backend.ErrNotFound):
		st.action("Started new session context")
	default:
		return fmt.Errorf("failed to load session context: %w", err)
	}

	if st.Language == "" {
		st.Language = s.deps.Translator.DetectLanguage(st.Message)
	}
	st.Context.UserLanguage = st.Language
	return nil
}

func (s *ServiceImpl) extract(_ context.Context, st *TurnState) error {
	extraction.Apply(st.Message, &st.Context)
	st.NumDays = s.deps.Days.NumDays(st.Message, st.Context.TravelDates)
	return nil
}

func (s *ServiceImpl) route(ctx context.Context, st *TurnState) error {
	st.Intent = intent.Classify(st.Message)
	s.logger.DebugContext(ctx, "Routed chat turn",
		slog.String("session_id", st.SessionID),
		slog.String("intent", string(st.Intent)),
		slog.Int("num_days", st.NumDays))
	return nil
}

func (s *ServiceImpl) handle(ctx context.Context, st *TurnState) error {
	switch st.Intent {
	case intent.ImageTranslation:
		s.handleImageTranslation(ctx, st)
	case intent.FindHotel:
		s.handleHotels(ctx, st)
	case intent.RAGQuery:
		s.handleKnowledge(ctx, st)
	case intent.TripPlanning:
		s.handleTripPlanning(ctx, st)
	case intent.SuggestPlaces:
		s.handleSuggestPlaces(ctx, st)
	default:
		s.handleConversation(ctx, st)
	}
	return nil
}

func (s *ServiceImpl) handleConversation(ctx context.Context, st *TurnState) {
	l := s.logger.With(slog.String("method", "handleConversation"))
	text, err := s.deps.LLM.GenerateText(ctx, conversationSystemPrompt, getConversationPrompt(st.Context, st.Message))
	if err != nil {
		metrics.ProviderFailure(ctx, "llm", "conversation")
		l.WarnContext(ctx, "Conversation reply failed", slog.Any("error", err))
		st.reply(types.MessageError, apologyMessage, conversationSuggestions...)
		st.action("Conversation reply failed")
		return
	}
	st.reply(types.MessageText, strings.TrimSpace(text), conversationSuggestions...)
	st.action("Generated conversation reply")
}

func (s *ServiceImpl) handleImageTranslation(_ context.Context, st *TurnState) {
	st.ImageTrigger = true
	st.reply(types.MessageImageTranslation, imageTranslationMessage, imageSuggestions...)
	st.action("Prepared image translation interface")
}

func (s *ServiceImpl) handleKnowledge(ctx context.Context, st *TurnState) {
	answer := s.deps.Knowledge.Answer(ctx, st.Message, st.Language, types.SearchFilter{})
	st.Knowledge = &answer
	st.ReplyLocalized = true
	st.reply(types.MessageKnowledge, answer.Answer, answer.SuggestedQueries...)
	if answer.Found {
		st.action(fmt.Sprintf("Retrieved %d knowledge citations", len(answer.Citations)))
	} else {
		st.action("No knowledge base match")
	}
}

// localize translates reply text to the user language and corpus-native place
// fields out of the corpus language.
func (s *ServiceImpl) localize(ctx context.Context, st *TurnState) error {
	lang := st.Language
	if lang == "" {
		return nil
	}
	if lang != s.deps.MessageLanguage && !st.ReplyLocalized {
		st.Reply = translation.TranslateOrOriginal(ctx, s.deps.Translator, s.logger, st.Reply, lang)
		st.Suggestions = translation.TranslateAll(ctx, s.deps.Translator, s.logger, st.Suggestions, lang)
	}
	if lang != s.deps.CorpusLanguage && len(st.Places) > 0 && s.deps.PlaceLocalizer != nil {
		st.Places = s.deps.PlaceLocalizer.TranslatePlaces(ctx, st.Places, lang)
	}
	return nil
}

func (s *ServiceImpl) assemble(_ context.Context, st *TurnState) error {
	components := []types.Component{}
	switch {
	case st.ImageTrigger:
		components = append(components, types.Component{
			Type: types.ComponentImageTranslationTrigger,
			Data: types.ImageTranslationTrigger{Action: "open_image_upload"},
		})
	case st.Plan != nil:
		st.Plan.Itinerary = st.Places
		st.Plan.DaysSchedule = groupByDay(st.Places)
		components = append(components, types.Component{Type: types.ComponentTripPlanning, Data: *st.Plan})
	case st.Knowledge != nil:
		components = append(components, types.Component{Type: types.ComponentTravelKnowledge, Data: *st.Knowledge})
	case len(st.Hotels) > 0:
		components = append(components, st.Hotels...)
	case len(st.Places) > 0:
		components = append(components, types.Component{Type: types.ComponentPlacesList, Data: types.PlacesList{Places: st.Places}})
	}

	suggestions := st.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	st.Response = types.ChatResponse{
		Message:         st.Reply,
		MessageType:     st.MessageType,
		Components:      components,
		ActionsTaken:    st.Actions,
		NextSuggestions: suggestions,
	}
	return nil
}

// persist posts the assembled response to the backend and writes the local
// turn log. Neither failure fails the turn.
func (s *ServiceImpl) persist(ctx context.Context, st *TurnState) error {
	l := s.logger.With(slog.String("method", "persist"), slog.String("session_id", st.SessionID))

	msg, err := outgoingMessage(st, s.deps.LLM.Model())
	if err == nil {
		err = s.deps.Sessions.Persist(ctx, st.Token, st.SessionID, msg)
	}
	if err != nil {
		metrics.ProviderFailure(ctx, "backend", "send_message")
		l.WarnContext(ctx, "Failed to save response", slog.Any("error", err))
		st.action("Failed to save response")
	} else {
		st.action("Response saved to database")
	}
	st.Response.ActionsTaken = st.Actions

	if s.deps.Turns == nil {
		return nil
	}
	turn := types.ChatTurn{
		SessionID:   st.SessionID,
		TripID:      st.TripID,
		Intent:      string(st.Intent),
		UserMessage: st.Message,
		Response:    st.Response,
		Language:    st.Language,
		LatencyMs:   s.now().Sub(st.Started).Milliseconds(),
		CreatedAt:   st.Started,
	}
	if _, err := s.deps.Turns.SaveTurn(ctx, turn); err != nil {
		l.WarnContext(ctx, "Failed to record chat turn", slog.Any("error", err))
	}
	return nil
}
