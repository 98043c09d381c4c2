package poi

import (
	"math"

	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// bucket accumulates places of one activity type. Names are compared exactly
// and the first place with a name wins; nameless places are dropped.
type bucket struct {
	seen  map[string]struct{}
	items []types.Place
}

func newBucket() *bucket {
	return &bucket{seen: make(map[string]struct{})}
}

func (b *bucket) add(p types.Place) bool {
	if p.Name == "" {
		return false
	}
	if _, ok := b.seen[p.Name]; ok {
		return false
	}
	b.seen[p.Name] = struct{}{}
	b.items = append(b.items, p)
	return true
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func truncate(places []types.Place, n int) []types.Place {
	if len(places) > n {
		return places[:n]
	}
	return places
}
