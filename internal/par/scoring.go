package par

import (
	"math"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// Scorer rates suggestion reliability and detects volatile usage.
type Scorer struct {
	t Thresholds
}

// NewScorer creates a scorer using the given thresholds.
func NewScorer(t Thresholds) *Scorer {
	return &Scorer{t: t}
}

// Confidence depends only on how many counts observed the item.
func (s *Scorer) Confidence(dataPoints int) domain.Confidence {
	switch {
	case dataPoints >= s.t.HighConfidencePoints:
		return domain.ConfidenceHigh
	case dataPoints >= s.t.MediumConfidencePoints:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// IsFluctuating flags usage that swings by more than FluctuationStepPct on
// FluctuationRunLength consecutive transitions, or whose coefficient of variation
// exceeds FluctuationMaxCV. Fewer than FluctuationMinSamples samples never fluctuate.
func (s *Scorer) IsFluctuating(rates []float64) bool {
	if len(rates) < s.t.FluctuationMinSamples {
		return false
	}

	run := 0
	for i := 1; i < len(rates); i++ {
		prev := rates[i-1]
		if prev != 0 && math.Abs(rates[i]-prev)/math.Abs(prev)*100 > s.t.FluctuationStepPct {
			run++
			if run >= s.t.FluctuationRunLength {
				return true
			}
		} else {
			run = 0
		}
	}

	m := mean(rates)
	if m == 0 {
		return false
	}
	return stddev(rates, m)/m > s.t.FluctuationMaxCV
}

// stddev is the population standard deviation.
func stddev(values []float64, m float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
