package par

import (
	"math"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func day(n float64) *time.Time {
	t := baseTime.Add(time.Duration(n * float64(24*time.Hour)))
	return &t
}

func obs(name string, qty float64) domain.ItemObservation {
	return domain.ItemObservation{ItemName: name, StockQuantity: qty, Category: "Protein", Unit: "kg"}
}

func count(id string, at *time.Time, items ...domain.ItemObservation) domain.ApprovedCount {
	return domain.ApprovedCount{SessionID: id, ScopeID: "list-1", ApprovedAt: at, Observations: items}
}

// weekly builds one count per week for a single item, oldest first.
func weekly(name string, stocks ...float64) []domain.ApprovedCount {
	out := make([]domain.ApprovedCount, len(stocks))
	for i, s := range stocks {
		out[i] = count("s"+string(rune('a'+i)), day(float64(7*i)), obs(name, s))
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func findSuggestion(list []domain.Suggestion, key string) (domain.Suggestion, bool) {
	for _, s := range list {
		if s.ItemKey == key {
			return s, true
		}
	}
	return domain.Suggestion{}, false
}
