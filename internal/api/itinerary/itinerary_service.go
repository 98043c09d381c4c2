package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// Minutes since midnight.
const (
	dayStart = 8 * 60
	dayEnd   = 21 * 60

	lunchHour      = 12
	dinnerFromHour = 18
	dinnerToHour   = 20

	lunchMinutes  = 60
	dinnerMinutes = 90

	MinAttractionsPerDay = 4
	MinRestaurantsPerDay = 2
	minDegradedPerDay    = 2
)

var (
	attractionMinutes = []int{60, 90, 120}
	bufferMinutes     = []int{15, 20, 30}
)

// Scheduler lays attractions and restaurants out as a day-by-day itinerary.
type Scheduler interface {
	Schedule(ctx context.Context, attractions, restaurants []types.Place, numDays int) types.Itinerary
}

type SchedulerImpl struct {
	logger *slog.Logger

	// mu guards rng, which is not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

var _ Scheduler = (*SchedulerImpl)(nil)

// NewScheduler creates a scheduler drawing durations and travel buffers from rng.
// Pass a seeded generator for reproducible layouts.
func NewScheduler(rng *rand.Rand, logger *slog.Logger) *SchedulerImpl {
	return &SchedulerImpl{logger: logger, rng: rng}
}

// Schedule never fails: short supply lowers the per-day target, duplicates
// restaurants or leaves later days empty. Inputs are not mutated.
func (s *SchedulerImpl) Schedule(ctx context.Context, attractions, restaurants []types.Place, numDays int) types.Itinerary {
	numDays = max(numDays, 1)
	ctx, span := otel.Tracer("TripScheduler").Start(ctx, "Schedule", trace.WithAttributes(
		attribute.Int("attractions", len(attractions)),
		attribute.Int("restaurants", len(restaurants)),
		attribute.Int("num_days", numDays),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Schedule"))

	perDay := MinAttractionsPerDay
	if len(attractions) < numDays*MinAttractionsPerDay {
		perDay = max(minDegradedPerDay, len(attractions)/numDays)
		l.InfoContext(ctx, "Attraction shortfall, lowering daily target",
			slog.Int("available", len(attractions)),
			slog.Int("per_day", perDay))
	}

	pool := restaurantPool(restaurants, numDays*MinRestaurantsPerDay)
	if len(pool) > len(restaurants) {
		l.InfoContext(ctx, "Restaurant shortfall, duplicating entries",
			slog.Int("available", len(restaurants)),
			slog.Int("slots", len(pool)))
	}

	byDay := make([][]types.Place, numDays)
	for i, a := range attractions {
		d := i % numDays
		byDay[d] = append(byDay[d], a.Clone())
	}

	s.mu.Lock()
	items := make([]types.Place, 0, len(attractions)+len(pool))
	for d := range numDays {
		items = append(items, s.scheduleDay(d+1, byDay[d], &pool)...)
	}
	s.mu.Unlock()

	it := reconcile(items, numDays)
	it.AttractionsPerDay = perDay

	metrics.Get().ItineraryItems.Record(ctx, int64(len(it.Items)))
	span.SetAttributes(
		attribute.Int("items", len(it.Items)),
		attribute.Int("actual_num_days", it.ActualNumDays),
	)
	span.SetStatus(codes.Ok, "Itinerary scheduled")
	return it
}

// scheduleDay slots one day. Restaurants are taken from the front of the shared pool.
func (s *SchedulerImpl) scheduleDay(day int, dayAttractions []types.Place, pool *[]types.Place) []types.Place {
	var (
		stops      []types.Place
		clock      = dayStart
		placed     int
		next       int
		lunchDone  bool
		dinnerDone bool
	)

	for iter := 0; iter < len(dayAttractions)+2 && clock < dayEnd; iter++ {
		hour := clock / 60

		var stop types.Place
		var minutes int
		switch {
		case hour == lunchHour && placed >= 1 && !lunchDone && len(*pool) > 0:
			stop, minutes = popMeal(pool, types.MealLunch), lunchMinutes
			lunchDone = true
		case hour >= dinnerFromHour && hour < dinnerToHour && placed >= 2 && !dinnerDone && len(*pool) > 0:
			stop, minutes = popMeal(pool, types.MealDinner), dinnerMinutes
			dinnerDone = true
		case next < len(dayAttractions):
			stop = dayAttractions[next]
			stop.ActivityType = types.ActivityAttraction
			stop.MealType = ""
			minutes = s.pick(attractionMinutes)
			next++
			placed++
		default:
			return stops
		}

		stop.Day = day
		stop.StartTime = clockString(clock)
		clock += minutes
		stop.EndTime = clockString(clock)
		stops = append(stops, stop)

		clock += s.pick(bufferMinutes)
	}
	return stops
}

func (s *SchedulerImpl) pick(choices []int) int {
	return choices[s.rng.IntN(len(choices))]
}

func popMeal(pool *[]types.Place, meal types.MealType) types.Place {
	p := (*pool)[0]
	*pool = (*pool)[1:]
	p.ActivityType = types.ActivityRestaurant
	p.MealType = meal
	return p
}

// restaurantPool returns independent copies of restaurants, cycled until need
// entries exist. An empty input stays empty.
func restaurantPool(restaurants []types.Place, need int) []types.Place {
	n := max(len(restaurants), need)
	if len(restaurants) == 0 {
		n = 0
	}
	pool := make([]types.Place, 0, n)
	for i := range n {
		pool = append(pool, restaurants[i%len(restaurants)].Clone())
	}
	return pool
}

// reconcile drops days past numDays and groups the rest.
func reconcile(items []types.Place, numDays int) types.Itinerary {
	it := types.Itinerary{
		Items:        make([]types.Place, 0, len(items)),
		DaysSchedule: make(map[int][]types.Place),
		NumDays:      numDays,
	}
	for _, p := range items {
		if p.Day < 1 || p.Day > numDays {
			continue
		}
		it.Items = append(it.Items, p)
		it.DaysSchedule[p.Day] = append(it.DaysSchedule[p.Day], p)
		it.ActualNumDays = max(it.ActualNumDays, p.Day)
	}
	return it
}

func clockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
