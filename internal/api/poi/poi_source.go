package poi

import (
	"context"
	"errors"
	"fmt"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

var ErrPlaceNotFound = errors.New("place not found")

// Searcher covers the text and proximity search strategies.
type Searcher interface {
	SearchByText(ctx context.Context, query string) ([]types.Place, error)
	SearchNearby(ctx context.Context, lat, lon float64, radius int) ([]types.Place, error)
}

// RegionCatalog lists named points of interest for a region.
type RegionCatalog interface {
	CatalogForRegion(ctx context.Context, region string, limit int) ([]types.CatalogEntry, error)
}

// Catalog is the catalog lookup strategy: list a region, then resolve each
// entry to a full place by its native name.
type Catalog interface {
	RegionCatalog
	DetailsByNativeName(ctx context.Context, name string) (*types.Place, error)
}

// PlaceSource bundles the three independently fallible search strategies.
type PlaceSource interface {
	Searcher
	Catalog
}

// SourceProvider builds the place source for one turn. The bearer token of the
// turn is passed explicitly so sources never read ambient request state.
type SourceProvider interface {
	ForToken(token string) PlaceSource
}

// CompositeSource resolves catalog entries through its Searcher.
type CompositeSource struct {
	Searcher
	catalog RegionCatalog
}

var _ PlaceSource = (*CompositeSource)(nil)

func NewCompositeSource(searcher Searcher, catalog RegionCatalog) *CompositeSource {
	return &CompositeSource{Searcher: searcher, catalog: catalog}
}

func (s *CompositeSource) CatalogForRegion(ctx context.Context, region string, limit int) ([]types.CatalogEntry, error) {
	if s.catalog == nil {
		return nil, nil
	}
	return s.catalog.CatalogForRegion(ctx, region, limit)
}

// DetailsByNativeName returns the first text-search hit for name.
func (s *CompositeSource) DetailsByNativeName(ctx context.Context, name string) (*types.Place, error) {
	places, err := s.SearchByText(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", name, err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%q: %w", name, ErrPlaceNotFound)
	}
	p := places[0]
	return &p, nil
}

type sourceProvider struct {
	newSearcher func(token string) Searcher
	catalog     RegionCatalog
}

func (p *sourceProvider) ForToken(token string) PlaceSource {
	return NewCompositeSource(p.newSearcher(token), p.catalog)
}

// NewStaticProvider serves the same searcher to every turn; used for providers
// authenticated by API key rather than by the user's token.
func NewStaticProvider(searcher Searcher, catalog RegionCatalog) SourceProvider {
	return &sourceProvider{
		newSearcher: func(string) Searcher { return searcher },
		catalog:     catalog,
	}
}
