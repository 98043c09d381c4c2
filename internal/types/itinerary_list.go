package types

// Itinerary is the scheduler output. Items are in generation order: day by day,
// and time ordered within a day.
type Itinerary struct {
	Items             []Place         `json:"items"`
	DaysSchedule      map[int][]Place `json:"days_schedule"`
	NumDays           int             `json:"num_days"`
	ActualNumDays     int             `json:"actual_num_days"`
	AttractionsPerDay int             `json:"attractions_per_day"`
}

type TripSummary struct {
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	TotalDays   int      `json:"total_days"`
	Budget      string   `json:"budget,omitempty"`
	Interests   []string `json:"interests"`
}

// TripPlan is the data of a trip_planning component.
type TripPlan struct {
	Summary      TripSummary     `json:"summary"`
	Itinerary    []Place         `json:"itinerary"`
	DaysSchedule map[int][]Place `json:"days_schedule"`
}
