package par

import (
	"math"
	"sort"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// EstimateUsage aligns every item seen in the counts to chronological slots and derives
// its weekly usage samples. Counts may be passed in any order; they are sorted oldest
// first. The result is sorted by item key.
func EstimateUsage(counts []domain.ApprovedCount) []ItemSeries {
	chrono := make([]domain.ApprovedCount, 0, len(counts))
	for _, c := range counts {
		if c.ApprovedAt != nil {
			chrono = append(chrono, c)
		}
	}
	sort.SliceStable(chrono, func(i, j int) bool {
		return chrono[i].ApprovedAt.Before(*chrono[j].ApprovedAt)
	})

	byKey := make(map[string]*ItemSeries)
	for slot, c := range chrono {
		for _, obs := range c.Observations {
			key := obs.Key()
			if key == "" {
				continue
			}
			s, ok := byKey[key]
			if !ok {
				s = &ItemSeries{Key: key, Stocks: make([]*float64, len(chrono))}
				byKey[key] = s
			}

			// Rows for the same item within one count (e.g. two storage areas) add up.
			qty := math.Max(0, obs.StockQuantity)
			if s.Stocks[slot] != nil {
				qty += *s.Stocks[slot]
			}
			s.Stocks[slot] = &qty

			// Later counts win for display attributes and the session PAR.
			s.Name = obs.ItemName
			if obs.Category != "" {
				s.Category = obs.Category
			}
			if obs.Unit != "" {
				s.Unit = obs.Unit
			}
			if obs.ParLevel != nil {
				p := *obs.ParLevel
				s.SessionPar = &p
			}
		}
	}

	out := make([]ItemSeries, 0, len(byKey))
	for _, s := range byKey {
		s.Samples = usageSamples(chrono, s.Stocks)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}

// usageSamples keeps the positive weekly rates of consecutive present slots.
// Absent slots break the chain; they are never read as zero stock.
func usageSamples(chrono []domain.ApprovedCount, stocks []*float64) []domain.UsageSample {
	var samples []domain.UsageSample
	for i := 1; i < len(stocks); i++ {
		prev, cur := stocks[i-1], stocks[i]
		if prev == nil || cur == nil {
			continue
		}

		used := *prev - *cur
		days := math.Max(1, chrono[i].ApprovedAt.Sub(*chrono[i-1].ApprovedAt).Hours()/24)
		weekly := used / days * 7
		if weekly <= 0 {
			continue
		}

		samples = append(samples, domain.UsageSample{
			FromSession: chrono[i-1].SessionID,
			ToSession:   chrono[i].SessionID,
			ElapsedDays: days,
			WeeklyRate:  weekly,
		})
	}
	return samples
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
