package poi

import (
	"strings"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

var restaurantKeywords = []string{
	// Korean provider categories, e.g. "음식점>한식".
	"음식", "식당", "레스토랑", "카페", "한식", "일식", "중식", "양식", "분식",
	"술집", "주점", "베이커리", "디저트", "맛집", "고기", "해물",
	// Google place types and English categories.
	"restaurant", "cafe", "café", "coffee", "food", "bakery", "dining",
	"eatery", "bistro", "bar", "pub", "meal_takeaway", "meal_delivery",
}

// Classify buckets a place category. Anything that does not look like an
// eatery is an attraction.
func Classify(category string) types.ActivityType {
	c := strings.ToLower(category)
	for _, kw := range restaurantKeywords {
		if strings.Contains(c, kw) {
			return types.ActivityRestaurant
		}
	}
	return types.ActivityAttraction
}
