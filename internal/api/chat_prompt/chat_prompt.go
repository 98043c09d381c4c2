package llmChat

import (
	"fmt"
	"strings"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// Reply templates are written in English and localized per turn.
const (
	apologyMessage          = "I'm sorry, something went wrong while handling your request. Please try again."
	askDestinationMessage   = "Which city or area would you like me to look at?"
	noPlacesMessage         = "I couldn't find any places matching your request. Could you provide more details or try a different search?"
	imageTranslationMessage = "I'll help you translate that image. Please upload the image you'd like me to translate."
	askHotelDetailsMessage  = "To find hotels I need your destination and your check-in and check-out dates, for example 22/11/2025 to 25/11/2025."
	noHotelOffersMessage    = "I couldn't find hotel offers in %s for those dates. Would you like to try other dates?"
	locateFailedMessage     = "I couldn't locate %s. Could you give me a more specific place name?"
)

var (
	conversationSuggestions = []string{"Suggest places to visit", "Plan a trip", "Find hotels"}
	placesSuggestions       = []string{"Add a place to itinerary", "Get directions", "Search nearby attractions", "Create complete trip plan"}
	noPlacesSuggestions     = []string{"Try a different search", "Ask for recommendations"}
	tripSuggestions         = []string{"Find hotels", "Suggest more restaurants", "Adjust the schedule"}
	hotelSuggestions        = []string{"Plan a trip", "Suggest places to visit"}
	imageSuggestions        = []string{"Upload an image with text to translate"}
)

const conversationSystemPrompt = `You are a friendly travel assistant for trips in Korea.
Answer briefly in English, in at most four sentences. Do not invent bookings, prices or opening hours.
If the user seems ready to plan, invite them to ask for place suggestions, a trip plan or hotels.`

func getConversationPrompt(sc types.SessionContext, message string) string {
	var b strings.Builder
	if c := describeContext(sc); c != "" {
		b.WriteString("Session context:\n")
		b.WriteString(c)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "User message: %s", message)
	return b.String()
}

func describeContext(sc types.SessionContext) string {
	var parts []string
	if sc.Destination != "" {
		parts = append(parts, "Destination: "+sc.Destination)
	}
	if len(sc.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(sc.Interests, ", "))
	}
	if sc.Budget != "" {
		parts = append(parts, "Budget: "+sc.Budget)
	}
	if sc.TravelDates.Complete() {
		parts = append(parts, fmt.Sprintf("Travel dates: %s to %s", sc.TravelDates.Start, sc.TravelDates.End))
	}
	return strings.Join(parts, "\n")
}

func placesFoundMessage(n int, destination string) string {
	return fmt.Sprintf("I found %d great places in %s that match your preferences!", n, destination)
}

func tripPlanMessage(days int, destination string, stops int) string {
	if days == 1 {
		return fmt.Sprintf("Here is your 1-day plan for %s with %d stops.", destination, stops)
	}
	return fmt.Sprintf("Here is your %d-day plan for %s with %d stops.", days, destination, stops)
}

func hotelsFoundMessage(n int, destination string) string {
	if n == 1 {
		return fmt.Sprintf("I found 1 hotel with available offers in %s.", destination)
	}
	return fmt.Sprintf("I found %d hotels with available offers in %s.", n, destination)
}
