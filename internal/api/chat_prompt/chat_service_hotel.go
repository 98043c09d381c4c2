package llmChat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/naver-ai-trip/agent-trip/internal/api/hotels"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

func (s *ServiceImpl) handleHotels(ctx context.Context, st *TurnState) {
	l := s.logger.With(slog.String("method", "handleHotels"))
	destination := st.Context.Destination

	components, err := s.deps.Hotels.Search(ctx, st.Token, destination, st.Context.TravelDates)
	switch {
	case errors.Is(err, hotels.ErrMissingDestination), errors.Is(err, hotels.ErrMissingDates):
		st.reply(types.MessageClarification, askHotelDetailsMessage)
		st.action("Asked for hotel search details")
		return
	case errors.Is(err, hotels.ErrNoCoordinates):
		st.reply(types.MessageText, fmt.Sprintf(locateFailedMessage, destination), hotelSuggestions...)
		st.action("Could not locate destination")
		return
	case err != nil:
		l.WarnContext(ctx, "Hotel search failed", slog.String("destination", destination), slog.Any("error", err))
		st.reply(types.MessageError, apologyMessage, hotelSuggestions...)
		st.action("Hotel search failed")
		return
	}

	st.action(fmt.Sprintf("Found %d hotels with offers", len(components)))
	if len(components) == 0 {
		st.reply(types.MessageText, fmt.Sprintf(noHotelOffersMessage, destination), hotelSuggestions...)
		return
	}
	st.Hotels = components
	st.reply(types.MessageHotels, hotelsFoundMessage(len(components), destination), hotelSuggestions...)
}
