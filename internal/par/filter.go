package par

import (
	"math"
	"sort"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// Ranker filters and orders suggestion lists. It never mutates its input.
type Ranker struct {
	t Thresholds
}

// NewRanker creates a ranker using the given thresholds.
func NewRanker(t Thresholds) *Ranker {
	return &Ranker{t: t}
}

// Matches reports whether s belongs to the named view.
func (r *Ranker) Matches(f domain.Filter, s domain.Suggestion) bool {
	switch f {
	case domain.FilterChanged:
		return math.Abs(s.ChangePct) >= r.t.ChangedPct
	case domain.FilterMajor:
		return math.Abs(s.ChangePct) >= r.t.MajorPct
	case domain.FilterStockout:
		return s.RiskType == domain.RiskStockout
	case domain.FilterOverstock:
		return s.RiskType == domain.RiskOverstock
	case domain.FilterMissingPar:
		return s.RiskType == domain.RiskMissingPar
	default:
		return true
	}
}

// Apply returns the suggestions matching f, ranked.
func (r *Ranker) Apply(f domain.Filter, suggestions []domain.Suggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if r.Matches(f, s) {
			out = append(out, s)
		}
	}
	Rank(out)
	return out
}

// Top returns the first n ranked suggestions.
func (r *Ranker) Top(suggestions []domain.Suggestion, n int) []domain.Suggestion {
	ranked := r.Apply(domain.FilterAll, suggestions)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Summarize counts the suggestions per view.
func (r *Ranker) Summarize(suggestions []domain.Suggestion) domain.SuggestionSummary {
	sum := domain.SuggestionSummary{Total: len(suggestions)}
	for _, s := range suggestions {
		if r.Matches(domain.FilterChanged, s) {
			sum.Changed++
		}
		if r.Matches(domain.FilterMajor, s) {
			sum.Major++
		}
		switch s.RiskType {
		case domain.RiskStockout:
			sum.Stockout++
		case domain.RiskOverstock:
			sum.Overstock++
		case domain.RiskMissingPar:
			sum.MissingPar++
		}
		if s.IsFluctuating {
			sum.Fluctuating++
		}
	}
	return sum
}

// Rank sorts in place by descending |change_pct|, then by item key.
func Rank(suggestions []domain.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := math.Abs(suggestions[i].ChangePct), math.Abs(suggestions[j].ChangePct)
		if a != b {
			return a > b
		}
		return suggestions[i].ItemKey < suggestions[j].ItemKey
	})
}
