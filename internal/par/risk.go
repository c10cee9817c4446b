package par

import (
	"math"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// EffectivePar returns the guide PAR for the item, falling back to the PAR recorded on
// its most recent session, or 0 when neither exists.
func EffectivePar(series ItemSeries, currentPar map[string]float64) float64 {
	if p, ok := currentPar[series.Key]; ok && p > 0 {
		return p
	}
	if series.SessionPar != nil && *series.SessionPar > 0 {
		return *series.SessionPar
	}
	return 0
}

// RiskClassifier labels an item's recent stock trajectory.
type RiskClassifier struct {
	t Thresholds
}

// NewRiskClassifier creates a classifier using the given thresholds.
func NewRiskClassifier(t Thresholds) *RiskClassifier {
	return &RiskClassifier{t: t}
}

// Classify evaluates missing_par first and returns immediately when it holds. The
// stockout and overstock checks then run in order and each overwrites the label when
// satisfied, so an item meeting both ends up overstock.
func (rc *RiskClassifier) Classify(observed []float64, currentPar float64) domain.RiskType {
	if currentPar <= 0 {
		return domain.RiskMissingPar
	}

	risk := domain.RiskAdjustment
	if len(observed) < 2 {
		return risk
	}

	stockoutLimit := currentPar * rc.t.StockoutRatio
	for _, v := range observed {
		if v < stockoutLimit {
			risk = domain.RiskStockout
			break
		}
	}

	overstockLimit := currentPar * rc.t.OverstockRatio
	over := 0
	for _, v := range observed {
		if v > overstockLimit {
			over++
		}
	}
	if float64(over) >= math.Ceil(float64(len(observed))*rc.t.OverstockShare) {
		risk = domain.RiskOverstock
	}

	return risk
}
