package par

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// SkipReason explains why the gate sent nothing. These are informational outcomes.
type SkipReason string

const (
	SkipAlreadyNotifiedToday       SkipReason = "already_notified_today"
	SkipBelowSignificanceThreshold SkipReason = "below_significance_threshold"
	SkipNoEligibleRecipients       SkipReason = "no_eligible_recipients"
	SkipInAppDisabled              SkipReason = "in_app_disabled"
)

// NotifyRequest carries one run's suggestions and the restaurant's preferences.
type NotifyRequest struct {
	RestaurantID string
	Suggestions  []domain.Suggestion
	Settings     domain.NotificationSettings
}

// NotifyResult reports what the gate decided.
type NotifyResult struct {
	Sent       bool                     `json:"sent"`
	Skipped    SkipReason               `json:"skipped,omitempty"`
	Severity   domain.Severity          `json:"severity,omitempty"`
	Day        string                   `json:"day"`
	Recipients []domain.Recipient       `json:"recipients,omitempty"`
	Summary    domain.SuggestionSummary `json:"summary"`
}

// NotificationGate decides whether a "PAR suggestions changed" broadcast goes out.
type NotificationGate struct {
	store     repository.NotificationRepository
	t         Thresholds
	ranker    *Ranker
	now       Clock
	defaultTZ *time.Location
}

// NewNotificationGate creates a gate. A nil location means UTC; a nil clock uses time.Now.
func NewNotificationGate(store repository.NotificationRepository, t Thresholds, defaultTZ *time.Location, now Clock) *NotificationGate {
	if defaultTZ == nil {
		defaultTZ = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationGate{store: store, t: t, ranker: NewRanker(t), now: now, defaultTZ: defaultTZ}
}

// Evaluate runs the dedup check, thresholds, recipient resolution and channel gate in
// that order and, when all pass, stores the notification batch. Storage failures are
// returned as errors; every other outcome is a result with a SkipReason.
func (g *NotificationGate) Evaluate(ctx context.Context, req NotifyRequest) (*NotifyResult, error) {
	scope := domain.Scope{RestaurantID: req.RestaurantID}
	day := g.localDay(req.Settings.Timezone)
	summary := g.ranker.Summarize(req.Suggestions)
	res := &NotifyResult{Day: day, Summary: summary}

	// 1. Anti-spam
	exists, err := g.store.NotificationExistsToday(ctx, req.RestaurantID, domain.NotificationTypeParSuggestions, day)
	if err != nil {
		return nil, domain.NewStorageError("check notification", scope, err)
	}
	if exists {
		return g.skip(res, req.RestaurantID, SkipAlreadyNotifiedToday), nil
	}

	// 2. Significance
	if summary.Fluctuating < g.t.NotifyFluctuatingMin &&
		summary.Major < g.t.NotifyMajorMin &&
		summary.Total < g.t.NotifyTotalMin {
		return g.skip(res, req.RestaurantID, SkipBelowSignificanceThreshold), nil
	}

	// 3. Recipients; staff never receive this notification type
	resolved, err := g.store.ResolveRecipients(ctx, req.RestaurantID, req.Settings.Mode, req.Settings.CustomRecipients)
	if err != nil {
		return nil, domain.NewStorageError("resolve recipients", scope, err)
	}
	recipients := excludeStaff(resolved)
	if len(recipients) == 0 {
		return g.skip(res, req.RestaurantID, SkipNoEligibleRecipients), nil
	}

	// 4. Channel
	if !req.Settings.InAppEnabled {
		return g.skip(res, req.RestaurantID, SkipInAppDisabled), nil
	}

	// 5. Severity
	res.Severity = domain.SeverityInfo
	if summary.Major > 0 || summary.Fluctuating >= g.t.NotifyFluctuatingMin {
		res.Severity = domain.SeverityWarning
	}

	// 6. Emit and record in one write
	batch := domain.NotificationBatch{
		Record: domain.NotificationRecord{
			RestaurantID: req.RestaurantID,
			Type:         domain.NotificationTypeParSuggestions,
			NotifiedOn:   day,
			CreatedAt:    g.now(),
		},
		Recipients: recipients,
		Payload: domain.NotificationPayload{
			Title:    "PAR suggestions updated",
			Message:  summaryMessage(summary),
			Severity: res.Severity,
			TopItems: g.ranker.Top(req.Suggestions, g.t.NotifyTopItems),
		},
	}
	if err := g.store.InsertNotification(ctx, batch); err != nil {
		if errors.Is(err, domain.ErrAlreadyNotified) {
			return g.skip(res, req.RestaurantID, SkipAlreadyNotifiedToday), nil
		}
		return nil, domain.NewStorageError("insert notification", scope, err)
	}

	res.Sent = true
	res.Recipients = recipients
	log.Info().
		Str("restaurant_id", req.RestaurantID).
		Str("severity", string(res.Severity)).
		Int("recipients", len(recipients)).
		Msg("par notify: suggestions broadcast sent")

	return res, nil
}

func (g *NotificationGate) skip(res *NotifyResult, restaurantID string, reason SkipReason) *NotifyResult {
	res.Skipped = reason
	log.Info().
		Str("restaurant_id", restaurantID).
		Str("reason", string(reason)).
		Msg("par notify: skipped")
	return res
}

func (g *NotificationGate) localDay(tz string) string {
	loc := g.defaultTZ
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			log.Warn().Str("timezone", tz).Msg("par notify: unknown timezone, using default")
		}
	}
	return g.now().In(loc).Format("2006-01-02")
}

func excludeStaff(in []domain.Recipient) []domain.Recipient {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Recipient, 0, len(in))
	for _, r := range in {
		if r.Role == domain.RoleStaff || r.UserID == "" {
			continue
		}
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func summaryMessage(s domain.SuggestionSummary) string {
	return fmt.Sprintf("%d PAR suggestions ready: %d major changes, %d fluctuating items, %d items without a PAR.",
		s.Total, s.Major, s.Fluctuating, s.MissingPar)
}
