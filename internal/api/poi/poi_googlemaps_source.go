package poi

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"googlemaps.github.io/maps"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// GoogleMapsSearcher searches places with the Google Places API.
type GoogleMapsSearcher struct {
	client    *maps.Client
	language  string
	region    string
	maxRadius int
}

var _ Searcher = (*GoogleMapsSearcher)(nil)

func NewGoogleMapsSearcher(apiKey, language, region string, maxRadius int, opts ...maps.ClientOption) (*GoogleMapsSearcher, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleMapsSearcher{client: client, language: language, region: region, maxRadius: maxRadius}, nil
}

func (s *GoogleMapsSearcher) SearchByText(ctx context.Context, query string) ([]types.Place, error) {
	ctx, span := otel.Tracer("GoogleMaps").Start(ctx, "SearchByText", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    query,
		Language: s.language,
		Region:   s.region,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Text search failed")
		return nil, fmt.Errorf("maps text search failed: %w", err)
	}
	span.SetStatus(codes.Ok, "Text search completed")
	return fromMapsResults(resp.Results), nil
}

func (s *GoogleMapsSearcher) SearchNearby(ctx context.Context, lat, lon float64, radius int) ([]types.Place, error) {
	if s.maxRadius > 0 && radius > s.maxRadius {
		radius = s.maxRadius
	}
	ctx, span := otel.Tracer("GoogleMaps").Start(ctx, "SearchNearby", trace.WithAttributes(
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lon),
		attribute.Int("radius", radius),
	))
	defer span.End()

	resp, err := s.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lon},
		Radius:   uint(radius),
		Language: s.language,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Nearby search failed")
		return nil, fmt.Errorf("maps nearby search failed: %w", err)
	}
	span.SetStatus(codes.Ok, "Nearby search completed")
	return fromMapsResults(resp.Results), nil
}

func fromMapsResults(results []maps.PlacesSearchResult) []types.Place {
	places := make([]types.Place, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		lat, lon := r.Geometry.Location.Lat, r.Geometry.Location.Lng
		address := r.FormattedAddress
		if address == "" {
			address = r.Vicinity
		}
		p := types.Place{
			ID:       r.PlaceID,
			Name:     r.Name,
			Category: strings.Join(r.Types, ","),
			Address:  address,
			Rating:   float64(r.Rating),
		}
		if lat != 0 || lon != 0 {
			p.Latitude, p.Longitude = &lat, &lon
		}
		places = append(places, p)
	}
	return places
}
