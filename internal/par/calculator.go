package par

import (
	"fmt"
	"math"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// SuggestionCalculator derives suggested PAR levels from usage, lead time and risk.
type SuggestionCalculator struct {
	t Thresholds
}

// NewSuggestionCalculator creates a calculator using the given thresholds.
func NewSuggestionCalculator(t Thresholds) *SuggestionCalculator {
	return &SuggestionCalculator{t: t}
}

// Calculate builds the suggestion for one item. The second return value is false when
// the item has no basis for a suggestion (no usage and no observed stock).
func (c *SuggestionCalculator) Calculate(series ItemSeries, currentPar float64, risk domain.RiskType) (domain.Suggestion, bool) {
	rates := series.WeeklyRates()
	observed := series.Observed()
	avgUsage := mean(rates)

	// 1. Base level: usage covering one week plus the lead time, else average stock on hand
	var base decimal.Decimal
	switch {
	case avgUsage > 0:
		cover := 1 + c.t.LeadTimeDays/7
		base = c.roundToStep(decimal.NewFromFloat(avgUsage).Mul(decimal.NewFromFloat(cover)))
	case len(observed) > 0:
		base = c.roundToStep(decimal.NewFromFloat(mean(observed)))
	default:
		return domain.Suggestion{}, false
	}

	// 2. Risk adjustment
	switch risk {
	case domain.RiskStockout:
		base = c.roundToStep(base.Mul(decimal.NewFromFloat(c.t.StockoutBuffer)))
	case domain.RiskOverstock:
		base = c.roundToStep(base.Mul(decimal.NewFromFloat(c.t.OverstockReduction)))
	}

	// 3. Floor
	floor := decimal.NewFromFloat(c.t.MinPar)
	if base.LessThan(floor) {
		base = floor
	}

	suggested := base.InexactFloat64()
	change := base.Sub(decimal.NewFromFloat(currentPar)).InexactFloat64()

	return domain.Suggestion{
		ItemKey:      series.Key,
		ItemName:     series.Name,
		Category:     series.Category,
		Unit:         series.Unit,
		CurrentPar:   currentPar,
		SuggestedPar: suggested,
		ChangeAmount: change,
		ChangePct:    ChangePct(currentPar, suggested, change),
		RiskType:     risk,
		DataPoints:   series.DataPoints(),
		AvgWeeklyUse: avgUsage,
		Reason:       c.reason(risk, avgUsage, mean(observed), suggested),
		WeeklyUsages: rates,
	}, true
}

// Significant reports whether the suggestion clears the emit gate. Missing PARs always do.
func (c *SuggestionCalculator) Significant(s domain.Suggestion) bool {
	if s.RiskType == domain.RiskMissingPar {
		return true
	}
	return math.Abs(s.ChangeAmount) >= c.t.MinChangeAmount && math.Abs(s.ChangePct) >= c.t.ChangedPct
}

// ChangePct is 100 for a new PAR, 0 when both levels are 0, else the relative change.
func ChangePct(currentPar, suggestedPar, change float64) float64 {
	if currentPar == 0 {
		if suggestedPar > 0 {
			return 100
		}
		return 0
	}
	return change / currentPar * 100
}

func (c *SuggestionCalculator) roundToStep(v decimal.Decimal) decimal.Decimal {
	if c.t.RoundingStep <= 0 {
		return v
	}
	step := decimal.NewFromFloat(c.t.RoundingStep)
	return v.Div(step).Round(0).Mul(step)
}

func (c *SuggestionCalculator) reason(risk domain.RiskType, avgUsage, avgStock, suggested float64) string {
	basis := fmt.Sprintf("avg weekly usage %.1f with %g-day lead time", avgUsage, c.t.LeadTimeDays)
	if avgUsage <= 0 {
		basis = fmt.Sprintf("no recorded usage, average stock on hand %.1f", avgStock)
	}

	switch risk {
	case domain.RiskMissingPar:
		return fmt.Sprintf("No PAR set; %s suggests %.1f.", basis, suggested)
	case domain.RiskStockout:
		return fmt.Sprintf("Stock fell below %.0f%% of PAR; %s plus a %.0f%% safety buffer.",
			c.t.StockoutRatio*100, basis, (c.t.StockoutBuffer-1)*100)
	case domain.RiskOverstock:
		return fmt.Sprintf("Stock stayed above %.0f%% of PAR; %s reduced by %.0f%%.",
			c.t.OverstockRatio*100, basis, (1-c.t.OverstockReduction)*100)
	default:
		return fmt.Sprintf("Adjusted to usage: %s.", basis)
	}
}
