package par

import (
	"testing"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

func seriesFor(counts []domain.ApprovedCount) ItemSeries {
	return EstimateUsage(counts)[0]
}

func TestSuggestionCalculator_StockoutBump(t *testing.T) {
	calc := NewSuggestionCalculator(DefaultThresholds())
	s := seriesFor(weekly("Beef", 8.5, 0.5))

	sug, ok := calc.Calculate(s, 10, domain.RiskStockout)
	if !ok {
		t.Fatal("Expected a suggestion")
	}

	// 8/week * (1 + 2/7) = 10.29 -> 10.3, * 1.2 = 12.36 -> 12.4
	if sug.SuggestedPar != 12.4 {
		t.Errorf("Expected suggested 12.4, got %v", sug.SuggestedPar)
	}
	if !approx(sug.ChangeAmount, 2.4) {
		t.Errorf("Expected change 2.4, got %v", sug.ChangeAmount)
	}
	if !approx(sug.ChangePct, 24) {
		t.Errorf("Expected change pct 24, got %v", sug.ChangePct)
	}
	if !calc.Significant(sug) {
		t.Error("Expected suggestion to be significant")
	}
}

func TestSuggestionCalculator_MissingParAlwaysSignificant(t *testing.T) {
	calc := NewSuggestionCalculator(DefaultThresholds())
	s := seriesFor(weekly("Basil", 0.4, 0.3))

	sug, ok := calc.Calculate(s, 0, domain.RiskMissingPar)
	if !ok {
		t.Fatal("Expected a suggestion")
	}
	if sug.SuggestedPar != 0.1 {
		t.Errorf("Expected 0.1/week usage to round to 0.1, got %v", sug.SuggestedPar)
	}
	if sug.ChangePct != 100 {
		t.Errorf("Expected change pct 100, got %v", sug.ChangePct)
	}
	if !calc.Significant(sug) {
		t.Error("Expected missing PAR suggestion to be significant regardless of size")
	}
}

func TestSuggestionCalculator_InsignificantChangeSuppressed(t *testing.T) {
	calc := NewSuggestionCalculator(DefaultThresholds())
	// 15.79/week * 9/7 = 20.30
	s := seriesFor(weekly("Rice", 18, 2.21))

	sug, ok := calc.Calculate(s, 20, domain.RiskAdjustment)
	if !ok {
		t.Fatal("Expected a suggestion")
	}
	if sug.SuggestedPar != 20.3 {
		t.Fatalf("Expected suggested 20.3, got %v", sug.SuggestedPar)
	}
	if calc.Significant(sug) {
		t.Errorf("Expected change %v (%v%%) to be suppressed", sug.ChangeAmount, sug.ChangePct)
	}
}

func TestSuggestionCalculator_OverstockReduction(t *testing.T) {
	calc := NewSuggestionCalculator(DefaultThresholds())
	// 3.5/week * 9/7 = 4.5, * 0.85 = 3.825 -> 3.8
	s := seriesFor(weekly("Cream", 12, 8.5))

	sug, _ := calc.Calculate(s, 10, domain.RiskOverstock)
	if sug.SuggestedPar != 3.8 {
		t.Errorf("Expected suggested 3.8, got %v", sug.SuggestedPar)
	}
	if !approx(sug.ChangeAmount, -6.2) {
		t.Errorf("Expected change -6.2, got %v", sug.ChangeAmount)
	}
}

func TestSuggestionCalculator_NoUsageFallsBackToMeanStock(t *testing.T) {
	calc := NewSuggestionCalculator(DefaultThresholds())
	s := seriesFor(weekly("Salt", 4, 4.2))

	sug, ok := calc.Calculate(s, 10, domain.RiskAdjustment)
	if !ok {
		t.Fatal("Expected a suggestion")
	}
	if sug.SuggestedPar != 4.1 {
		t.Errorf("Expected mean stock 4.1, got %v", sug.SuggestedPar)
	}
	if sug.AvgWeeklyUse != 0 {
		t.Errorf("Expected zero usage, got %v", sug.AvgWeeklyUse)
	}
}

func TestSuggestionCalculator_Floor(t *testing.T) {
	calc := NewSuggestionCalculator(DefaultThresholds())
	s := seriesFor(weekly("Saffron", 0, 0))

	sug, ok := calc.Calculate(s, 0, domain.RiskMissingPar)
	if !ok {
		t.Fatal("Expected a suggestion")
	}
	if sug.SuggestedPar != 0.1 {
		t.Errorf("Expected floor 0.1, got %v", sug.SuggestedPar)
	}
}

func TestSuggestionCalculator_NoBasis(t *testing.T) {
	calc := NewSuggestionCalculator(DefaultThresholds())
	if _, ok := calc.Calculate(ItemSeries{Key: "ghost", Stocks: []*float64{nil}}, 5, domain.RiskAdjustment); ok {
		t.Error("Expected no suggestion without observations")
	}
}

func TestChangePct(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		suggested float64
		expected  float64
	}{
		{"new par", 0, 3, 100},
		{"both zero", 0, 0, 0},
		{"increase", 10, 12, 20},
		{"decrease", 20, 15, -25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ChangePct(tc.current, tc.suggested, tc.suggested-tc.current)
			if !approx(got, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}
