package service

import (
	"fmt"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/config"
	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/par"
)

// Options configures a ParService.
type Options struct {
	Thresholds        par.Thresholds
	Apply             par.ApplyConfig
	DefaultTimezone   *time.Location
	DefaultRecipients domain.RecipientMode
	Now               par.Clock
}

// DefaultOptions mirrors the engine defaults in UTC.
func DefaultOptions() Options {
	return Options{
		Thresholds:        par.DefaultThresholds(),
		Apply:             par.DefaultApplyConfig(),
		DefaultTimezone:   time.UTC,
		DefaultRecipients: domain.RecipientsOwnersManagers,
		Now:               time.Now,
	}
}

// OptionsFromConfig overlays configured values on the defaults. Zero values keep the default.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	t := &opts.Thresholds
	p := cfg.Par

	setFloat(&t.LeadTimeDays, p.LeadTimeDays)
	setInt(&t.Lookback, p.Lookback)
	setFloat(&t.RoundingStep, p.RoundingStep)
	setFloat(&t.MinPar, p.MinPar)
	setFloat(&t.StockoutRatio, p.StockoutRatio)
	setFloat(&t.OverstockRatio, p.OverstockRatio)
	setFloat(&t.OverstockShare, p.OverstockShare)
	setFloat(&t.StockoutBuffer, p.StockoutBuffer)
	setFloat(&t.OverstockReduction, p.OverstockReduction)
	setFloat(&t.MinChangeAmount, p.MinChangeAmount)
	setFloat(&t.ChangedPct, p.ChangedPct)
	setFloat(&t.MajorPct, p.MajorPct)

	setInt(&t.HighConfidencePoints, p.HighConfidencePoints)
	setInt(&t.MediumConfidencePoints, p.MediumConfidencePoints)
	setInt(&t.FluctuationMinSamples, p.FluctuationMinSamples)
	setFloat(&t.FluctuationStepPct, p.FluctuationStepPct)
	setInt(&t.FluctuationRunLength, p.FluctuationRunLength)
	setFloat(&t.FluctuationMaxCV, p.FluctuationMaxCV)

	n := cfg.Notification
	setInt(&t.NotifyFluctuatingMin, n.FluctuatingMin)
	setInt(&t.NotifyMajorMin, n.MajorMin)
	setInt(&t.NotifyTotalMin, n.TotalMin)
	setInt(&t.NotifyTopItems, n.TopItems)

	setInt(&opts.Apply.Workers, p.ApplyWorkers)
	if p.ApplyRetries >= 0 {
		opts.Apply.RetryAttempts = p.ApplyRetries
	}
	if p.ApplyRetryBackoff > 0 {
		opts.Apply.RetryBackoff = p.ApplyRetryBackoff
	}

	if n.DefaultTimezone != "" {
		loc, err := time.LoadLocation(n.DefaultTimezone)
		if err != nil {
			return opts, fmt.Errorf("invalid default timezone %q: %w", n.DefaultTimezone, err)
		}
		opts.DefaultTimezone = loc
	}
	if n.DefaultRecipients != "" {
		opts.DefaultRecipients = domain.ParseRecipientMode(n.DefaultRecipients)
	}

	return opts, nil
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
