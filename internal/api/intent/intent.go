// Package intent classifies a chat message into the handler that should answer it.
package intent

import "strings"

type Intent string

const (
	ImageTranslation Intent = "image_translation"
	FindHotel        Intent = "find_hotel"
	RAGQuery         Intent = "rag_query"
	TripPlanning     Intent = "trip_planning"
	SuggestPlaces    Intent = "suggest_places"
	Conversation     Intent = "conversation"
)

// Rule pairs a predicate over the lowercased message with the intent it selects.
type Rule struct {
	Intent Intent
	Match  func(msg string) bool
}

var (
	imageTranslationPhrases = []string{
		"translate image", "image translation", "translate this image", "translate photo",
		"translate the photo", "translate this photo", "translate picture", "translate a picture",
		"이미지 번역", "사진 번역", "사진 좀 번역",
	}

	hotelKeywords = []string{
		"hotel", "accommodation", "hostel", "resort", "lodging", "motel", "guesthouse",
		"place to stay", "where to stay", "somewhere to stay",
		"호텔", "숙소", "숙박", "리조트", "게스트하우스",
	}

	// Kept to words that do not occur inside place names or common verbs:
	// "bus" would match Busan and "king" would match booking.
	knowledgeKeywords = []string{
		"culture", "cultural", "custom", "etiquette", "tradition", "manners", "respect",
		"history", "historical", "heritage", "ancient", "dynasty",
		"tips", "travel tip", "advice", "best time", "season", "weather",
		"insider", "authentic",
		"transportation", "subway", "metro card", "t-money", "taxi",
		"visa", "currency", "exchange rate", "sim card", "wifi", "emergency", "hospital", "pharmacy",
		"礼儀", "예절", "문화", "역사", "유산", "꿀팁", "준비물", "교통", "비자", "환전",
	}

	knowledgePatterns = []string{
		"what is", "what are", "what's the", "tell me about", "explain", "why",
		"how does", "how do", "can you explain",
		"알려줘", "설명해", "뭐야", "어때",
	}

	recommendationWords = []string{"recommend", "suggest", "find", "search", "추천"}

	tripPlanningKeywords = []string{
		"plan", "itinerary", "schedule",
		"일정", "계획", "여행 코스",
	}

	suggestionKeywords = []string{
		"suggest", "recommend", "find", "show me", "search", "places to visit", "where should",
		"추천", "찾아", "보여줘",
	}
)

func containsAny(msg string, words []string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func keywords(words []string) func(string) bool {
	return func(msg string) bool { return containsAny(msg, words) }
}

// IsKnowledgeQuery reports a knowledge-base question: a topic keyword, or a
// question pattern that is not also a request for recommendations.
func IsKnowledgeQuery(msg string) bool {
	if containsAny(msg, knowledgeKeywords) {
		return true
	}
	return containsAny(msg, knowledgePatterns) && !containsAny(msg, recommendationWords)
}

var rules = []Rule{
	{ImageTranslation, keywords(imageTranslationPhrases)},
	{FindHotel, keywords(hotelKeywords)},
	{RAGQuery, IsKnowledgeQuery},
	{TripPlanning, keywords(tripPlanningKeywords)},
	{SuggestPlaces, keywords(suggestionKeywords)},
}

// Rules returns the ordered rule list; earlier rules win.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the intent of the first rule matching the message.
// Only the message itself is considered, never the conversation history.
func Classify(message string) Intent {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return Conversation
	}
	for _, r := range rules {
		if r.Match(msg) {
			return r.Intent
		}
	}
	return Conversation
}
