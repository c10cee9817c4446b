package par

import (
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// Thresholds holds every tunable constant of the suggestion pipeline.
type Thresholds struct {
	LeadTimeDays float64 // Days between ordering and receiving stock
	Lookback     int     // Number of approved counts to load (K)
	RoundingStep float64 // Granularity of suggested PAR levels
	MinPar       float64 // Floor for any suggested PAR

	StockoutRatio      float64 // Stock below this share of PAR counts as a stockout
	OverstockRatio     float64 // Stock above this share of PAR counts as overstocked
	OverstockShare     float64 // Share of observations (rounded up) that must be overstocked
	StockoutBuffer     float64 // Multiplier applied to stockout suggestions
	OverstockReduction float64 // Multiplier applied to overstock suggestions

	MinChangeAmount float64 // Absolute change required to emit a suggestion
	ChangedPct      float64 // |change_pct| for the "changed" filter and the emit gate
	MajorPct        float64 // |change_pct| for the "major" filter

	HighConfidencePoints   int     // data points for high confidence
	MediumConfidencePoints int     // data points for medium confidence
	FluctuationMinSamples  int     // usage samples needed before volatility is judged
	FluctuationStepPct     float64 // relative change between consecutive samples
	FluctuationRunLength   int     // consecutive volatile transitions required
	FluctuationMaxCV       float64 // coefficient of variation limit

	NotifyFluctuatingMin int // fluctuating items that trigger a broadcast
	NotifyMajorMin       int // major changes that trigger a broadcast
	NotifyTotalMin       int // total suggestions that trigger a broadcast
	NotifyTopItems       int // items listed in the notification payload
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LeadTimeDays: 2,
		Lookback:     4,
		RoundingStep: 0.1,
		MinPar:       0.1,

		StockoutRatio:      0.10,
		OverstockRatio:     0.80,
		OverstockShare:     0.75,
		StockoutBuffer:     1.20,
		OverstockReduction: 0.85,

		MinChangeAmount: 0.5,
		ChangedPct:      10,
		MajorPct:        20,

		HighConfidencePoints:   4,
		MediumConfidencePoints: 2,
		FluctuationMinSamples:  3,
		FluctuationStepPct:     15,
		FluctuationRunLength:   2,
		FluctuationMaxCV:       0.3,

		NotifyFluctuatingMin: 3,
		NotifyMajorMin:       1,
		NotifyTotalMin:       15,
		NotifyTopItems:       5,
	}
}

// History is the immutable input of a generation run.
type History struct {
	Scope  domain.Scope
	Counts []domain.ApprovedCount // newest first, ApprovedAt always set
	// CurrentPar maps item key to the highest PAR across the guides in scope.
	CurrentPar map[string]float64
}

// ItemSeries is one item's history aligned to the chronological count slots.
type ItemSeries struct {
	Key        string
	Name       string
	Category   string
	Unit       string
	Stocks     []*float64 // oldest first; nil marks a count the item was absent from
	SessionPar *float64   // PAR recorded on the most recent session observing the item
	Samples    []domain.UsageSample
}

// Observed returns the present stock values in chronological order.
func (s ItemSeries) Observed() []float64 {
	out := make([]float64, 0, len(s.Stocks))
	for _, v := range s.Stocks {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// DataPoints is the number of counts the item was present in.
func (s ItemSeries) DataPoints() int {
	n := 0
	for _, v := range s.Stocks {
		if v != nil {
			n++
		}
	}
	return n
}

// WeeklyRates returns the usage sample rates in order.
func (s ItemSeries) WeeklyRates() []float64 {
	out := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.WeeklyRate
	}
	return out
}

// Clock returns the current time; tests inject a fixed one.
type Clock func() time.Time
