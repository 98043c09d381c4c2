package llmChat

import (
	"context"
	"fmt"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const (
	maxSuggestedPlaces = 10
	suggestionDays     = 1
)

func (s *ServiceImpl) handleSuggestPlaces(ctx context.Context, st *TurnState) {
	destination := st.Context.Destination
	if destination == "" {
		st.reply(types.MessageClarification, askDestinationMessage, placesSuggestions[3])
		st.action("Asked for destination")
		return
	}

	src := s.deps.Places.ForToken(st.Token)
	attractions, restaurants := s.deps.Aggregator.Gather(ctx, src, destination, st.Context.Interests, suggestionDays)
	places := topPlaces(attractions, restaurants, maxSuggestedPlaces)
	st.action(fmt.Sprintf("Found %d places", len(places)))

	if len(places) == 0 {
		st.reply(types.MessageText, noPlacesMessage, noPlacesSuggestions...)
		return
	}
	st.Places = places
	st.reply(types.MessagePlaces, placesFoundMessage(len(places), destination), placesSuggestions...)
}

func (s *ServiceImpl) handleTripPlanning(ctx context.Context, st *TurnState) {
	destination := st.Context.Destination
	if destination == "" {
		st.reply(types.MessageClarification, askDestinationMessage)
		st.action("Asked for destination")
		return
	}

	src := s.deps.Places.ForToken(st.Token)
	attractions, restaurants := s.deps.Aggregator.Gather(ctx, src, destination, st.Context.Interests, st.NumDays)
	st.action(fmt.Sprintf("Gathered %d attractions and %d restaurants", len(attractions), len(restaurants)))

	plan := s.deps.Scheduler.Schedule(ctx, attractions, restaurants, st.NumDays)
	if len(plan.Items) == 0 {
		st.reply(types.MessageText, noPlacesMessage, noPlacesSuggestions...)
		return
	}
	st.action(fmt.Sprintf("Scheduled %d stops over %d days", len(plan.Items), plan.ActualNumDays))

	st.Places = plan.Items
	st.Plan = &types.TripPlan{Summary: tripSummary(st.Context, st.NumDays)}
	st.reply(types.MessageTripPlan, tripPlanMessage(st.NumDays, destination, len(plan.Items)), tripSuggestions...)
}

func tripSummary(sc types.SessionContext, numDays int) types.TripSummary {
	summary := types.TripSummary{
		Destination: sc.Destination,
		TotalDays:   numDays,
		Budget:      sc.Budget,
		Interests:   sc.Interests,
	}
	if summary.Interests == nil {
		summary.Interests = []string{}
	}
	if sc.TravelDates != nil {
		summary.StartDate = sc.TravelDates.Start
		summary.EndDate = sc.TravelDates.End
	}
	return summary
}
