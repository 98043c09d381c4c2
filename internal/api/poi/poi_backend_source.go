package poi

import (
	"context"

	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// BackendSearcher searches places through the trip backend on behalf of one user.
type BackendSearcher struct {
	client    backend.Client
	token     string
	maxRadius int
}

var _ Searcher = (*BackendSearcher)(nil)

func NewBackendSearcher(client backend.Client, token string, maxRadius int) *BackendSearcher {
	return &BackendSearcher{client: client, token: token, maxRadius: maxRadius}
}

func (s *BackendSearcher) SearchByText(ctx context.Context, query string) ([]types.Place, error) {
	return s.client.SearchPlaces(ctx, s.token, query)
}

func (s *BackendSearcher) SearchNearby(ctx context.Context, lat, lon float64, radius int) ([]types.Place, error) {
	if s.maxRadius > 0 && radius > s.maxRadius {
		radius = s.maxRadius
	}
	return s.client.SearchNearbyPlaces(ctx, s.token, backend.NearbyRequest{
		Latitude:  lat,
		Longitude: lon,
		Radius:    radius,
	})
}

// NewBackendProvider creates a per-token backend searcher for every turn.
func NewBackendProvider(client backend.Client, maxRadius int, catalog RegionCatalog) SourceProvider {
	return &sourceProvider{
		newSearcher: func(token string) Searcher { return NewBackendSearcher(client, token, maxRadius) },
		catalog:     catalog,
	}
}
