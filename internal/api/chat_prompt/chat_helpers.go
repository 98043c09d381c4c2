package llmChat

import (
	"encoding/json"
	"fmt"

	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// topPlaces alternates attractions and restaurants, keeping each bucket's order,
// and stops at n. A bucket that runs out leaves the rest to the other.
func topPlaces(attractions, restaurants []types.Place, n int) []types.Place {
	out := make([]types.Place, 0, min(n, len(attractions)+len(restaurants)))
	for i := 0; len(out) < n && (i < len(attractions) || i < len(restaurants)); i++ {
		if i < len(attractions) {
			out = append(out, attractions[i])
		}
		if i < len(restaurants) && len(out) < n {
			out = append(out, restaurants[i])
		}
	}
	return out
}

func groupByDay(items []types.Place) map[int][]types.Place {
	days := make(map[int][]types.Place)
	for _, p := range items {
		days[p.Day] = append(days[p.Day], p)
	}
	return days
}

func outgoingMessage(st *TurnState, model string) (backend.OutgoingMessage, error) {
	body, err := json.Marshal(st.Response)
	if err != nil {
		return backend.OutgoingMessage{}, fmt.Errorf("failed to marshal response: %w", err)
	}
	return backend.OutgoingMessage{
		Message:  string(body),
		FromRole: string(types.RoleAssistant),
		Metadata: map[string]any{
			"model":         model,
			"intent":        string(st.Intent),
			"actions_taken": st.Actions,
			"places_count":  len(st.Places),
		},
	}, nil
}
