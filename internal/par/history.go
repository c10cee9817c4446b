package par

import (
	"context"
	"sort"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository"
)

// HistoryLoader reads the counts and guide PARs a generation run needs.
type HistoryLoader struct {
	counts repository.HistoryRepository
	guides repository.GuideRepository
}

// NewHistoryLoader creates a loader over the given repositories.
func NewHistoryLoader(counts repository.HistoryRepository, guides repository.GuideRepository) *HistoryLoader {
	return &HistoryLoader{counts: counts, guides: guides}
}

// Load returns the newest lookback approved counts and the current PAR map for the scope.
// It returns domain.ErrInsufficientHistory when no approved count exists.
func (l *HistoryLoader) Load(ctx context.Context, scope domain.Scope, lookback int) (*History, error) {
	if lookback <= 0 {
		lookback = DefaultThresholds().Lookback
	}

	raw, err := l.counts.LoadApprovedCounts(ctx, scope, lookback)
	if err != nil {
		return nil, domain.NewStorageError("load approved counts", scope, err)
	}

	counts := make([]domain.ApprovedCount, 0, len(raw))
	for _, c := range raw {
		if c.ApprovedAt == nil {
			continue
		}
		counts = append(counts, c)
	}
	if len(counts) == 0 {
		return nil, domain.ErrInsufficientHistory
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].ApprovedAt.After(*counts[j].ApprovedAt)
	})
	if len(counts) > lookback {
		counts = counts[:lookback]
	}

	guides, err := l.guidesInScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(guides))
	for i, g := range guides {
		ids[i] = g.ID
	}

	var items []domain.GuideItem
	if len(ids) > 0 {
		items, err = l.guides.LoadGuideItems(ctx, ids)
		if err != nil {
			return nil, domain.NewStorageError("load guide items", scope, err)
		}
	}

	return &History{
		Scope:      scope,
		Counts:     counts,
		CurrentPar: BuildCurrentParMap(ids, items),
	}, nil
}

// guidesInScope resolves the explicit guide, then the list's guides, then every
// guide of the restaurant.
func (l *HistoryLoader) guidesInScope(ctx context.Context, scope domain.Scope) ([]domain.Guide, error) {
	if scope.GuideID != "" {
		g, err := l.guides.GetGuide(ctx, scope.GuideID)
		if err != nil {
			return nil, domain.NewStorageError("get guide", scope, err)
		}
		if g != nil {
			return []domain.Guide{*g}, nil
		}
	}

	if scope.ListID != "" {
		guides, err := l.guides.ListGuides(ctx, scope.RestaurantID, scope.ListID)
		if err != nil {
			return nil, domain.NewStorageError("list guides", scope, err)
		}
		if len(guides) > 0 {
			return guides, nil
		}
	}

	guides, err := l.guides.ListGuides(ctx, scope.RestaurantID, "")
	if err != nil {
		return nil, domain.NewStorageError("list guides", scope, err)
	}
	return guides, nil
}

// BuildCurrentParMap keeps the highest PAR per item key across guides. Guides are
// visited in guideOrder so that the first guide keeps an item on equal values.
func BuildCurrentParMap(guideOrder []string, items []domain.GuideItem) map[string]float64 {
	rank := make(map[string]int, len(guideOrder))
	for i, id := range guideOrder {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}

	ordered := append([]domain.GuideItem(nil), items...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].GuideID] < rank[ordered[j].GuideID]
	})

	out := make(map[string]float64, len(ordered))
	for _, it := range ordered {
		key := domain.NormalizeItemKey(it.ItemName)
		if key == "" {
			continue
		}
		if cur, ok := out[key]; !ok || it.ParLevel > cur {
			out[key] = it.ParLevel
		}
	}
	return out
}
