package backend

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// backendPlace accepts both the normalised place shape and raw local-search
// results (title/telephone/link, x/y coordinates).
type backendPlace struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Address     string          `json:"address"`
	RoadAddress string          `json:"road_address"`
	RoadAddr    string          `json:"roadAddress"`
	Phone       string          `json:"phone"`
	Telephone   string          `json:"telephone"`
	URL         string          `json:"url"`
	Link        string          `json:"link"`
	Latitude    json.RawMessage `json:"latitude"`
	Longitude   json.RawMessage `json:"longitude"`
	X           json.RawMessage `json:"x"`
	Y           json.RawMessage `json:"y"`
	Rating      *float64        `json:"rating"`
}

func toPlaces(raw []backendPlace) []types.Place {
	out := make([]types.Place, 0, len(raw))
	for _, r := range raw {
		p := types.Place{
			ID:          strings.Trim(string(r.ID), `"`),
			Name:        firstNonEmpty(r.Name, stripTags(r.Title)),
			Category:    r.Category,
			Address:     r.Address,
			RoadAddress: firstNonEmpty(r.RoadAddress, r.RoadAddr),
			Phone:       firstNonEmpty(r.Phone, r.Telephone),
			URL:         firstNonEmpty(r.URL, r.Link),
			Latitude:    firstNumber(r.Latitude, r.Y),
			Longitude:   firstNumber(r.Longitude, r.X),
		}
		if p.ID == "null" {
			p.ID = ""
		}
		if r.Rating != nil {
			p.Rating = *r.Rating
		}
		if p.Name == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstNumber decodes the first present coordinate, given as a JSON number or numeric string.
func firstNumber(values ...json.RawMessage) *float64 {
	for _, v := range values {
		s := strings.Trim(string(v), `"`)
		if s == "" || s == "null" {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			// local search returns WGS84 degrees scaled by 1e7
			if f > 180 || f < -180 {
				f /= 1e7
			}
			return &f
		}
	}
	return nil
}

func stripTags(s string) string {
	s = strings.ReplaceAll(s, "<b>", "")
	return strings.ReplaceAll(s, "</b>", "")
}
