package par

import (
	"reflect"
	"testing"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

func sampleSuggestions() []domain.Suggestion {
	return []domain.Suggestion{
		{ItemKey: "beef", ChangePct: 24, RiskType: domain.RiskStockout},
		{ItemKey: "cream", ChangePct: -62, RiskType: domain.RiskOverstock, IsFluctuating: true},
		{ItemKey: "basil", ChangePct: 100, RiskType: domain.RiskMissingPar},
		{ItemKey: "salt", ChangePct: 12, RiskType: domain.RiskAdjustment},
		{ItemKey: "rice", ChangePct: -12, RiskType: domain.RiskAdjustment},
		{ItemKey: "oil", ChangePct: 5, RiskType: domain.RiskMissingPar},
	}
}

func keys(list []domain.Suggestion) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ItemKey
	}
	return out
}

func TestRanker_Apply(t *testing.T) {
	r := NewRanker(DefaultThresholds())

	tests := []struct {
		filter   domain.Filter
		expected []string
	}{
		{domain.FilterAll, []string{"basil", "cream", "beef", "rice", "salt", "oil"}},
		{domain.FilterChanged, []string{"basil", "cream", "beef", "rice", "salt"}},
		{domain.FilterMajor, []string{"basil", "cream", "beef"}},
		{domain.FilterStockout, []string{"beef"}},
		{domain.FilterOverstock, []string{"cream"}},
		{domain.FilterMissingPar, []string{"basil", "oil"}},
	}

	for _, tc := range tests {
		t.Run(string(tc.filter), func(t *testing.T) {
			got := keys(r.Apply(tc.filter, sampleSuggestions()))
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestRanker_ApplyIsPureAndIdempotent(t *testing.T) {
	r := NewRanker(DefaultThresholds())
	input := sampleSuggestions()
	before := keys(input)

	once := r.Apply(domain.FilterChanged, input)
	twice := r.Apply(domain.FilterChanged, once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Expected filtering to be idempotent, got %v then %v", keys(once), keys(twice))
	}
	if !reflect.DeepEqual(keys(input), before) {
		t.Errorf("Expected input order to be untouched, got %v", keys(input))
	}
}

func TestRanker_TopAndSummarize(t *testing.T) {
	r := NewRanker(DefaultThresholds())

	top := r.Top(sampleSuggestions(), 2)
	if !reflect.DeepEqual(keys(top), []string{"basil", "cream"}) {
		t.Errorf("Expected top 2 [basil cream], got %v", keys(top))
	}

	sum := r.Summarize(sampleSuggestions())
	expected := domain.SuggestionSummary{
		Total: 6, Changed: 5, Major: 3, Stockout: 1, Overstock: 1, MissingPar: 2, Fluctuating: 1,
	}
	if sum != expected {
		t.Errorf("Expected %+v, got %+v", expected, sum)
	}
}
