package types

import "maps"

type ActivityType string

const (
	ActivityAttraction ActivityType = "attraction"
	ActivityRestaurant ActivityType = "restaurant"
)

type MealType string

const (
	MealLunch  MealType = "lunch"
	MealDinner MealType = "dinner"
)

// Place is a candidate point of interest or eatery returned by a place source.
// The scheduling fields are empty until the place is slotted into an itinerary.
type Place struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Address     string         `json:"address,omitempty"`
	RoadAddress string         `json:"road_address,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	URL         string         `json:"url,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	Rating      float64        `json:"rating"`
	Extra       map[string]any `json:"extra,omitempty"`

	ActivityType ActivityType `json:"activity_type,omitempty"`
	MealType     MealType     `json:"meal_type,omitempty"`
	Day          int          `json:"day,omitempty"`
	StartTime    string       `json:"start_time,omitempty"`
	EndTime      string       `json:"end_time,omitempty"`
}

// Coordinates reports the place location when the provider returned one.
func (p Place) Coordinates() (lat, lon float64, ok bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return 0, 0, false
	}
	return *p.Latitude, *p.Longitude, true
}

// Clone returns a deep copy, so schedule fields and provider extras can be
// mutated without touching the original.
func (p Place) Clone() Place {
	c := p
	if p.Latitude != nil {
		lat := *p.Latitude
		c.Latitude = &lat
	}
	if p.Longitude != nil {
		lon := *p.Longitude
		c.Longitude = &lon
	}
	if p.Extra != nil {
		c.Extra = maps.Clone(p.Extra)
	}
	return c
}

// CatalogEntry is a named point of interest scraped from a regional catalog.
// NativeName is the name in the corpus language, used to resolve full details.
type CatalogEntry struct {
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	Category   string `json:"category"`
}
