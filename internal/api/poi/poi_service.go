package poi

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	"github.com/naver-ai-trip/agent-trip/internal/api/translation"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const (
	attractionsPerDay  = 4
	restaurantsPerDay  = 2
	maxCatalogEntries  = 30
	baseCatalogEntries = 10
	catalogPerExtraDay = 5

	maxProximityRounds = 3
	maxProximitySeeds  = 5
	baseRadius         = 3000
	radiusStep         = 2000

	maxInterestsInQuery = 2
)

// Aggregator gathers candidate attractions and restaurants for a destination.
type Aggregator interface {
	Gather(ctx context.Context, src PlaceSource, destination string, interests []string, numDays int) (attractions, restaurants []types.Place)
}

type AggregatorImpl struct {
	logger         *slog.Logger
	translator     translation.Translator
	corpusLanguage string
	maxRadius      int

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Aggregator = (*AggregatorImpl)(nil)

// NewAggregator builds an aggregator. translator may be nil, in which case the
// text query is sent as written. rng drives the rating fallback.
func NewAggregator(translator translation.Translator, corpusLanguage string, maxRadius int, rng *rand.Rand, logger *slog.Logger) *AggregatorImpl {
	if maxRadius <= 0 {
		maxRadius = 10000
	}
	return &AggregatorImpl{
		logger:         logger,
		translator:     translator,
		corpusLanguage: corpusLanguage,
		maxRadius:      maxRadius,
		rng:            rng,
	}
}

// CatalogLimit is how many catalog entries are resolved for a trip of numDays.
func CatalogLimit(numDays int) int {
	return min(maxCatalogEntries, baseCatalogEntries+catalogPerExtraDay*(max(numDays, 1)-1))
}

// Gather runs the catalog, text and proximity strategies in that order. A failing
// strategy is logged and skipped; the result is never an error.
func (s *AggregatorImpl) Gather(ctx context.Context, src PlaceSource, destination string, interests []string, numDays int) ([]types.Place, []types.Place) {
	numDays = max(numDays, 1)
	ctx, span := otel.Tracer("PlacesAggregator").Start(ctx, "Gather", trace.WithAttributes(
		attribute.String("destination", destination),
		attribute.StringSlice("interests", interests),
		attribute.Int("num_days", numDays),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Gather"), slog.String("destination", destination))

	targetAttractions := numDays * attractionsPerDay
	attractions, restaurants := newBucket(), newBucket()
	fold := func(places []types.Place) {
		for _, p := range places {
			p.ActivityType = Classify(p.Category)
			if p.Rating <= 0 {
				p.Rating = s.syntheticRating()
			}
			if p.ActivityType == types.ActivityRestaurant {
				restaurants.add(p)
			} else {
				attractions.add(p)
			}
		}
	}

	if destination != "" {
		s.gatherCatalog(ctx, l, src, destination, CatalogLimit(numDays), fold)
	}

	if query := s.textQuery(ctx, destination, interests); query != "" {
		places, err := src.SearchByText(ctx, query)
		if err != nil {
			l.WarnContext(ctx, "Text search failed", slog.String("query", query), slog.Any("error", err))
			span.RecordError(err)
			metrics.ProviderFailure(ctx, "places", "text_search")
		} else {
			fold(places)
		}
	}

	for round := 0; round < maxProximityRounds && len(attractions.items) < targetAttractions; round++ {
		seeds := proximitySeeds(attractions.items, restaurants.items)
		if len(seeds) == 0 {
			l.DebugContext(ctx, "No place with coordinates to search around")
			break
		}
		lat, lon, _ := seeds[round%len(seeds)].Coordinates()
		radius := min(baseRadius+radiusStep*round, s.maxRadius)
		places, err := src.SearchNearby(ctx, lat, lon, radius)
		if err != nil {
			l.WarnContext(ctx, "Nearby search failed", slog.Int("round", round), slog.Int("radius", radius), slog.Any("error", err))
			metrics.ProviderFailure(ctx, "places", "nearby_search")
			continue
		}
		fold(places)
	}

	outAttractions := truncate(attractions.items, max(10, numDays*attractionsPerDay))
	outRestaurants := truncate(restaurants.items, max(5, numDays*restaurantsPerDay))

	metrics.Get().PlacesGathered.Record(ctx, int64(len(outAttractions)+len(outRestaurants)),
		metric.WithAttributes(attribute.Int("num_days", numDays)))
	l.InfoContext(ctx, "Places gathered",
		slog.Int("attractions", len(outAttractions)),
		slog.Int("restaurants", len(outRestaurants)))
	span.SetAttributes(
		attribute.Int("attractions", len(outAttractions)),
		attribute.Int("restaurants", len(outRestaurants)),
	)
	span.SetStatus(codes.Ok, "Places gathered")
	return outAttractions, outRestaurants
}

func (s *AggregatorImpl) gatherCatalog(ctx context.Context, l *slog.Logger, src PlaceSource, destination string, limit int, fold func([]types.Place)) {
	entries, err := src.CatalogForRegion(ctx, destination, limit)
	if err != nil {
		l.WarnContext(ctx, "Catalog lookup failed", slog.Any("error", err))
		metrics.ProviderFailure(ctx, "catalog", "region")
		return
	}
	entries = entries[:min(len(entries), limit)]
	for _, e := range entries {
		name := e.NativeName
		if name == "" {
			name = e.Name
		}
		p, err := src.DetailsByNativeName(ctx, name)
		if err != nil || p == nil {
			l.DebugContext(ctx, "Catalog entry not resolved", slog.String("name", name), slog.Any("error", err))
			continue
		}
		if p.Category == "" {
			p.Category = e.Category
		}
		fold([]types.Place{*p})
	}
}

// textQuery joins the destination with the first interests, rendered in the
// corpus language when a translator is available.
func (s *AggregatorImpl) textQuery(ctx context.Context, destination string, interests []string) string {
	parts := make([]string, 0, 1+maxInterestsInQuery)
	if d := strings.TrimSpace(destination); d != "" {
		parts = append(parts, d)
	}
	for _, in := range interests[:min(len(interests), maxInterestsInQuery)] {
		if in = strings.TrimSpace(in); in != "" {
			parts = append(parts, in)
		}
	}
	query := strings.Join(parts, " ")
	if query == "" || s.translator == nil || s.corpusLanguage == "" {
		return query
	}
	return translation.TranslateOrOriginal(ctx, s.translator, s.logger, query, s.corpusLanguage)
}

// syntheticRating fills a missing provider rating with a value in [4.6, 5.0].
func (s *AggregatorImpl) syntheticRating() float64 {
	s.mu.Lock()
	v := s.rng.Float64()
	s.mu.Unlock()
	return roundTo(4.6+v*0.4, 1)
}

func proximitySeeds(groups ...[]types.Place) []types.Place {
	seeds := make([]types.Place, 0, maxProximitySeeds)
	for _, g := range groups {
		for _, p := range g {
			if len(seeds) == maxProximitySeeds {
				return seeds
			}
			if _, _, ok := p.Coordinates(); ok {
				seeds = append(seeds, p)
			}
		}
	}
	return seeds
}
