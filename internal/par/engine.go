package par

import (
	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// Engine turns a loaded history into ranked PAR suggestions. It holds no state
// between calls, so identical histories always produce identical output.
type Engine struct {
	thresholds Thresholds
	risk       *RiskClassifier
	calculator *SuggestionCalculator
	scorer     *Scorer
	ranker     *Ranker
}

// NewEngine wires the pipeline stages with one set of thresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{
		thresholds: t,
		risk:       NewRiskClassifier(t),
		calculator: NewSuggestionCalculator(t),
		scorer:     NewScorer(t),
		ranker:     NewRanker(t),
	}
}

// Thresholds returns the engine's configuration.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Ranker exposes the filter and ranking stage.
func (e *Engine) Ranker() *Ranker {
	return e.ranker
}

// Generate runs usage estimation, risk classification, calculation and scoring for every
// item in the history and returns the significant suggestions ranked by |change_pct|.
func (e *Engine) Generate(h *History) []domain.Suggestion {
	if h == nil || len(h.Counts) == 0 {
		return nil
	}

	series := EstimateUsage(h.Counts)
	out := make([]domain.Suggestion, 0, len(series))
	for _, s := range series {
		if s.DataPoints() < 1 {
			continue
		}

		currentPar := EffectivePar(s, h.CurrentPar)
		risk := e.risk.Classify(s.Observed(), currentPar)

		sug, ok := e.calculator.Calculate(s, currentPar, risk)
		if !ok || !e.calculator.Significant(sug) {
			continue
		}

		sug.Confidence = e.scorer.Confidence(sug.DataPoints)
		sug.IsFluctuating = e.scorer.IsFluctuating(sug.WeeklyUsages)
		out = append(out, sug)
	}

	Rank(out)
	return out
}
