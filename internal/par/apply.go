package par

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ApplyConfig bounds the item write fan-out.
type ApplyConfig struct {
	Workers       int           // Concurrent item writes
	RetryAttempts int           // Retries per item on transient storage failures
	RetryBackoff  time.Duration // Linear backoff step between retries
}

// DefaultApplyConfig returns sensible defaults.
func DefaultApplyConfig() ApplyConfig {
	return ApplyConfig{
		Workers:       4,
		RetryAttempts: 2,
		RetryBackoff:  200 * time.Millisecond,
	}
}

// ApplyRequest selects suggestions and the guide they are written to. Scope.GuideID
// names an explicit target; otherwise the first guide of Scope.ListID is used, and a
// new guide is created when none exists.
type ApplyRequest struct {
	Scope       domain.Scope
	Suggestions []domain.Suggestion
}

// Applier writes suggestions into PAR guides.
type Applier struct {
	guides repository.GuideRepository
	cfg    ApplyConfig
	now    Clock
}

// NewApplier creates an applier. A nil clock uses time.Now.
func NewApplier(guides repository.GuideRepository, cfg ApplyConfig, now Clock) *Applier {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Applier{guides: guides, cfg: cfg, now: now}
}

// Apply resolves the target guide before any item write, then upserts every selected
// suggestion. Running it twice with the same input leaves the guide unchanged the second
// time. Item failures are collected in the result; only guide resolution errors are returned.
func (a *Applier) Apply(ctx context.Context, req ApplyRequest) (*domain.ApplyResult, error) {
	guideID, created, err := a.resolveGuide(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	result := &domain.ApplyResult{GuideID: guideID, GuideCreated: created}
	selected := dedupeSelection(req.Suggestions)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.cfg.Workers)

	for _, s := range selected {
		g.Go(func() error {
			inserted, err := a.writeWithRetry(ctx, guideID, s)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed = append(result.Failed, domain.ApplyFailure{ItemName: s.ItemName, Error: err.Error()})
			case inserted:
				result.Created++
			default:
				result.Updated++
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].ItemName < result.Failed[j].ItemName
	})

	if len(result.Failed) > 0 {
		log.Warn().
			Str("guide_id", guideID).
			Int("created", result.Created).
			Int("updated", result.Updated).
			Int("failed", len(result.Failed)).
			Msg("par apply: some item writes failed")
	}

	return result, nil
}

func (a *Applier) resolveGuide(ctx context.Context, scope domain.Scope) (string, bool, error) {
	if scope.GuideID != "" {
		g, err := a.guides.GetGuide(ctx, scope.GuideID)
		if err != nil {
			return "", false, domain.NewStorageError("get guide", scope, err)
		}
		if g == nil {
			return "", false, fmt.Errorf("guide %s: %w", scope.GuideID, domain.ErrNotFound)
		}
		return g.ID, false, nil
	}

	if scope.ListID != "" {
		guides, err := a.guides.ListGuides(ctx, scope.RestaurantID, scope.ListID)
		if err != nil {
			return "", false, domain.NewStorageError("list guides", scope, err)
		}
		if len(guides) > 0 {
			return guides[0].ID, false, nil
		}
	}

	name := "PAR Guide " + a.now().Format("2006-01-02 15:04")
	id, err := a.guides.CreateGuide(ctx, scope, name)
	if err != nil {
		return "", false, domain.NewStorageError("create guide", scope, err)
	}
	return id, true, nil
}

func (a *Applier) writeWithRetry(ctx context.Context, guideID string, s domain.Suggestion) (bool, error) {
	for attempt := 0; ; attempt++ {
		inserted, err := a.write(ctx, guideID, s)
		if err == nil || !domain.IsTransient(err) || attempt >= a.cfg.RetryAttempts {
			return inserted, err
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(a.cfg.RetryBackoff * time.Duration(attempt+1)):
		}
	}
}

func (a *Applier) write(ctx context.Context, guideID string, s domain.Suggestion) (bool, error) {
	name := strings.TrimSpace(s.ItemName)
	if name == "" {
		name = s.ItemKey
	}

	existing, err := a.guides.FindGuideItem(ctx, guideID, name)
	if err != nil {
		return false, fmt.Errorf("find guide item %q: %w", name, err)
	}

	if existing != nil {
		item := *existing
		item.ParLevel = s.SuggestedPar
		if _, err := a.guides.UpsertGuideItem(ctx, guideID, item); err != nil {
			return false, fmt.Errorf("update guide item %q: %w", name, err)
		}
		return false, nil
	}

	item := domain.GuideItem{
		GuideID:  guideID,
		ItemName: name,
		Category: s.Category,
		Unit:     s.Unit,
		ParLevel: s.SuggestedPar,
	}
	if _, err := a.guides.UpsertGuideItem(ctx, guideID, item); err != nil {
		return false, fmt.Errorf("insert guide item %q: %w", name, err)
	}
	return true, nil
}

// dedupeSelection keeps one suggestion per normalized item key; the last one wins.
func dedupeSelection(suggestions []domain.Suggestion) []domain.Suggestion {
	index := make(map[string]int, len(suggestions))
	out := make([]domain.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		key := domain.NormalizeItemKey(s.ItemKey)
		if key == "" {
			key = domain.NormalizeItemKey(s.ItemName)
		}
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			out[i] = s
			continue
		}
		index[key] = len(out)
		out = append(out, s)
	}
	return out
}
