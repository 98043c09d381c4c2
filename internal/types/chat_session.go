package types

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// TravelDates are ISO dates (YYYY-MM-DD).
type TravelDates struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (d *TravelDates) Complete() bool {
	return d != nil && d.Start != "" && d.End != ""
}

// SessionContext is the sticky per-conversation state loaded at the start of every turn.
type SessionContext struct {
	Destination  string       `json:"destination,omitempty"`
	Budget       string       `json:"budget,omitempty"`
	Interests    []string     `json:"interests,omitempty"`
	TravelDates  *TravelDates `json:"travel_dates,omitempty"`
	UserLanguage string       `json:"user_language,omitempty"`
}

type ComponentType string

const (
	ComponentPlacesList              ComponentType = "places_list"
	ComponentTripPlanning            ComponentType = "trip_planning"
	ComponentTravelKnowledge         ComponentType = "travel_knowledge"
	ComponentHotelOffers             ComponentType = "hotel_offers"
	ComponentImageTranslationTrigger ComponentType = "image_translation_trigger"
)

type Component struct {
	Type ComponentType `json:"type"`
	Data any           `json:"data"`
}

// PlacesList is the data of a places_list component.
type PlacesList struct {
	Places []Place `json:"places"`
}

// ImageTranslationTrigger tells the client to open its image upload flow.
type ImageTranslationTrigger struct {
	Action string `json:"action"`
}

type MessageType string

const (
	MessageText             MessageType = "text"
	MessagePlaces           MessageType = "places"
	MessageTripPlan         MessageType = "trip_plan"
	MessageKnowledge        MessageType = "knowledge"
	MessageHotels           MessageType = "hotels"
	MessageImageTranslation MessageType = "image_translation"
	MessageClarification    MessageType = "clarification"
	MessageError            MessageType = "error"
)

// ChatResponse is the payload returned to the presentation layer for every turn.
type ChatResponse struct {
	Message         string      `json:"message"`
	MessageType     MessageType `json:"message_type"`
	Components      []Component `json:"components"`
	ActionsTaken    []string    `json:"actions_taken"`
	NextSuggestions []string    `json:"next_suggestions"`
}

type ChatRequest struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	TripID       string `json:"trip_id,omitempty"`
	UserLanguage string `json:"user_language,omitempty"`
}

type ChatResult struct {
	Response  ChatResponse `json:"response"`
	SessionID string       `json:"session_id"`
}

// ChatTurn is one answered turn as recorded in the local turn log.
type ChatTurn struct {
	ID          uuid.UUID    `json:"id"`
	SessionID   string       `json:"session_id"`
	TripID      string       `json:"trip_id,omitempty"`
	Intent      string       `json:"intent"`
	UserMessage string       `json:"user_message"`
	Response    ChatResponse `json:"response"`
	Language    string       `json:"language"`
	LatencyMs   int64        `json:"latency_ms"`
	CreatedAt   time.Time    `json:"created_at"`
}

// StreamEvent is one server-sent event of the streaming chat endpoint.
type StreamEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventTypeProgress = "progress"
	EventTypeResponse = "response"
	EventTypeComplete = "complete"
	EventTypeError    = "error"
)
