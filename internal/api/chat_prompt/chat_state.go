package llmChat

import (
	"time"

	"github.com/naver-ai-trip/agent-trip/internal/api/intent"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// TurnState is the request-scoped state of one chat turn. It is created per
// request and handed by pointer to each stage in order.
type TurnState struct {
	Token     string
	SessionID string
	TripID    string
	Message   string
	Language  string
	Started   time.Time

	Context types.SessionContext
	NumDays int
	Intent  intent.Intent

	Reply string
	// ReplyLocalized is set when the handler already produced the reply and
	// suggestions in the user language.
	ReplyLocalized bool
	MessageType    types.MessageType
	Places         []types.Place
	Plan           *types.TripPlan
	Knowledge      *types.KnowledgeAnswer
	Hotels         []types.Component
	ImageTrigger   bool
	Actions        []string
	Suggestions    []string

	Response types.ChatResponse
}

func newTurnState(token string, req types.ChatRequest, now time.Time) *TurnState {
	return &TurnState{
		Token:     token,
		SessionID: req.SessionID,
		TripID:    req.TripID,
		Message:   req.Message,
		Language:  req.UserLanguage,
		Started:   now,
		Actions:   []string{},
	}
}

func (st *TurnState) action(a string) {
	st.Actions = append(st.Actions, a)
}

func (st *TurnState) reply(msgType types.MessageType, message string, suggestions ...string) {
	st.MessageType = msgType
	st.Reply = message
	st.Suggestions = suggestions
}
