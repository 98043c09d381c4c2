package hotels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	"github.com/naver-ai-trip/agent-trip/internal/api/extraction"
	"github.com/naver-ai-trip/agent-trip/internal/api/translation"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

var (
	ErrMissingDestination = errors.New("hotel search needs a destination")
	ErrMissingDates       = errors.New("hotel search needs check-in and check-out dates")
	ErrNoCoordinates      = errors.New("could not locate destination")
)

// Search defaults sent with every offers request.
const (
	defaultAdults       = 2
	defaultRadius       = 20
	defaultRadiusUnit   = "KM"
	defaultRoomQuantity = 1
	defaultCurrency     = "USD"
)

type Service interface {
	Search(ctx context.Context, token, destination string, dates *types.TravelDates) ([]types.Component, error)
}

type ServiceImpl struct {
	logger         *slog.Logger
	client         backend.Client
	translator     translation.Translator
	corpusLanguage string
}

var _ Service = (*ServiceImpl)(nil)

func NewService(client backend.Client, translator translation.Translator, corpusLanguage string, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, client: client, translator: translator, corpusLanguage: corpusLanguage}
}

// Search returns one hotel_offers component per hotel that has offers. A
// destination or dates missing is reported with a sentinel error so the caller
// can ask the user.
func (s *ServiceImpl) Search(ctx context.Context, token, destination string, dates *types.TravelDates) ([]types.Component, error) {
	ctx, span := otel.Tracer("HotelService").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("destination", destination),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Search"), slog.String("destination", destination))

	if strings.TrimSpace(destination) == "" {
		span.SetStatus(codes.Error, "Missing destination")
		return nil, ErrMissingDestination
	}
	if !dates.Complete() {
		span.SetStatus(codes.Error, "Missing dates")
		return nil, ErrMissingDates
	}

	lat, lon, err := s.coordinates(ctx, token, destination)
	if err != nil {
		l.WarnContext(ctx, "Could not resolve destination coordinates", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "No coordinates")
		return nil, err
	}

	result, err := s.client.SearchHotelOffers(ctx, token, types.HotelSearchParams{
		Latitude:     lat,
		Longitude:    lon,
		CheckInDate:  dates.Start,
		CheckOutDate: dates.End,
		Adults:       defaultAdults,
		Radius:       defaultRadius,
		RadiusUnit:   defaultRadiusUnit,
		RoomQuantity: defaultRoomQuantity,
		Currency:     defaultCurrency,
	})
	if err != nil {
		metrics.ProviderFailure(ctx, "backend", "hotel_offers")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Offer search failed")
		return nil, fmt.Errorf("hotel offer search failed: %w", err)
	}

	components := Components(result)
	l.InfoContext(ctx, "Hotel offers found",
		slog.Int("hotels", len(components)),
		slog.Int("total_offers", result.Meta.TotalOffers))
	span.SetAttributes(attribute.Int("hotels", len(components)))
	span.SetStatus(codes.Ok, "Hotel offers found")
	return components, nil
}

// coordinates takes the first place search hit for the destination city.
func (s *ServiceImpl) coordinates(ctx context.Context, token, destination string) (float64, float64, error) {
	query := extraction.StripCountry(destination)
	if s.translator != nil && s.corpusLanguage != "" {
		query = translation.TranslateOrOriginal(ctx, s.translator, s.logger, query, s.corpusLanguage)
	}

	places, err := s.client.SearchPlaces(ctx, token, query)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrNoCoordinates, err)
	}
	if len(places) == 0 {
		return 0, 0, fmt.Errorf("%w: no places for %q", ErrNoCoordinates, query)
	}
	lat, lon, ok := places[0].Coordinates()
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q has no coordinates", ErrNoCoordinates, places[0].Name)
	}
	return lat, lon, nil
}

// Components turns an offers result into hotel_offers components, skipping
// hotels without offers.
func Components(result *types.HotelOffersResult) []types.Component {
	if result == nil {
		return []types.Component{}
	}
	components := make([]types.Component, 0, len(result.Data.Offers))
	for _, group := range result.Data.Offers {
		if len(group.Offers) == 0 {
			continue
		}
		components = append(components, types.Component{
			Type: types.ComponentHotelOffers,
			Data: group,
		})
	}
	return components
}
