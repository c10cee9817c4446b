package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
)

// AppliedRun is the audit record written after suggestions are applied to a guide.
type AppliedRun struct {
	Run       *domain.SuggestionRun `json:"run"`
	Applied   []domain.Suggestion   `json:"applied"`
	Result    *domain.ApplyResult   `json:"result"`
	AppliedAt time.Time             `json:"applied_at"`
}

// RunArchive stores applied runs as JSON objects keyed by restaurant and day.
type RunArchive struct {
	store  ObjectStorage
	prefix string
}

func NewRunArchive(store ObjectStorage, prefix string) *RunArchive {
	return &RunArchive{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a run applied at the given time.
func (a *RunArchive) Key(restaurantID, runID string, at time.Time) string {
	return path.Join(a.prefix, restaurantID, at.UTC().Format("2006/01/02"), runID+".json")
}

func (a *RunArchive) Save(ctx context.Context, rec AppliedRun) (string, error) {
	if rec.Run == nil {
		return "", fmt.Errorf("archive applied run: missing run")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode applied run: %w", err)
	}

	key := a.Key(rec.Run.Scope.RestaurantID, rec.Run.ID, rec.AppliedAt)
	if err := a.store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// List returns the archived object keys for a restaurant, sorted.
func (a *RunArchive) List(ctx context.Context, restaurantID string) ([]string, error) {
	objects, err := a.store.ListObjects(ctx, path.Join(a.prefix, restaurantID)+"/")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (a *RunArchive) Load(ctx context.Context, key string) (*AppliedRun, error) {
	data, err := a.store.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec AppliedRun
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode applied run %s: %w", key, err)
	}
	return &rec, nil
}
