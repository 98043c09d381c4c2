package types

// HotelSearchParams mirrors the backend hotel offers search body.
type HotelSearchParams struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CheckInDate  string  `json:"check_in_date"`
	CheckOutDate string  `json:"check_out_date"`
	Adults       int     `json:"adults"`
	Radius       int     `json:"radius"`
	RadiusUnit   string  `json:"radius_unit"`
	RoomQuantity int     `json:"room_quantity"`
	Currency     string  `json:"currency"`
}

type Hotel struct {
	HotelID   string   `json:"hotelId"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HotelOffer keeps the provider's nested room/guest/price/policy objects opaque.
type HotelOffer struct {
	ID           string         `json:"id"`
	CheckInDate  string         `json:"checkInDate"`
	CheckOutDate string         `json:"checkOutDate"`
	RateCode     string         `json:"rateCode,omitempty"`
	Room         map[string]any `json:"room,omitempty"`
	Guests       map[string]any `json:"guests,omitempty"`
	Price        map[string]any `json:"price,omitempty"`
	Policies     map[string]any `json:"policies,omitempty"`
}

// HotelOffersGroup is the data of one hotel_offers component.
type HotelOffersGroup struct {
	Hotel  Hotel        `json:"hotel"`
	Offers []HotelOffer `json:"offers"`
}

type HotelOffersResult struct {
	Data struct {
		Offers []HotelOffersGroup `json:"offers"`
	} `json:"data"`
	Meta struct {
		TotalHotels int `json:"total_hotels"`
		TotalOffers int `json:"total_offers"`
	} `json:"meta"`
}
