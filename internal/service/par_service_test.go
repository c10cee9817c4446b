package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/andresuchdata/autopar/backend-go/internal/config"
	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository/memory"
	"github.com/andresuchdata/autopar/backend-go/internal/storage"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type recordingObjects struct {
	mu   sync.Mutex
	keys []string
	data map[string][]byte
}

func (r *recordingObjects) UploadObject(ctx context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		r.data = make(map[string][]byte)
	}
	r.keys = append(r.keys, key)
	r.data[key] = data
	return nil
}

func (r *recordingObjects) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []storage.ObjectInfo
	for _, k := range r.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(r.data[k]))})
		}
	}
	return out, nil
}

func (r *recordingObjects) GetObject(ctx context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.data[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func approved(id string, at time.Time, obs ...domain.ItemObservation) domain.ApprovedCount {
	return domain.ApprovedCount{SessionID: id, ScopeID: "list-1", ApprovedAt: &at, Observations: obs}
}

func kitchen() (*memory.ParStore, string) {
	store := memory.NewParStore()
	start := time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC)
	store.AddCount("r1", approved("s1", start,
		domain.ItemObservation{ItemName: "Beef", StockQuantity: 8.5, Category: "Protein", Unit: "kg"}))
	store.AddCount("r1", approved("s2", start.AddDate(0, 0, 7),
		domain.ItemObservation{ItemName: "Beef", StockQuantity: 0.5, Category: "Protein", Unit: "kg"},
		domain.ItemObservation{ItemName: "Basil", StockQuantity: 0.6, Category: "Herbs", Unit: "bunch"}))

	guideID := store.AddGuide(domain.Guide{RestaurantID: "r1", ListID: "list-1", Name: "Main"},
		domain.GuideItem{ItemName: "beef", Category: "Protein", Unit: "kg", ParLevel: 10})

	store.AddMember("r1", domain.Recipient{UserID: "owner", Role: domain.RoleOwner})
	store.AddMember("r1", domain.Recipient{UserID: "cook", Role: domain.RoleStaff})
	return store, guideID
}

func newService(store *memory.ParStore, objects storage.ObjectStorage) *ParService {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	return NewParService(store, nil, storage.NewRunArchive(objects, "par-runs"), opts)
}

var kitchenScope = domain.Scope{RestaurantID: "r1", ListID: "list-1"}

func TestParService_GenerateAndView(t *testing.T) {
	store, _ := kitchen()
	svc := newService(store, storage.NoopStorage{})

	run, err := svc.Generate(context.Background(), GenerateParams{Scope: kitchenScope})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if run.SessionCount != 2 || run.Summary.Total != 2 {
		t.Fatalf("Expected 2 sessions and 2 suggestions, got %+v", run)
	}
	if run.Suggestions[0].ItemKey != "basil" || run.Suggestions[1].SuggestedPar != 12.4 {
		t.Errorf("Unexpected ranking: %+v", run.Suggestions)
	}

	view, err := svc.GetRun(context.Background(), run.ID, domain.FilterStockout)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(view.Suggestions) != 1 || view.Suggestions[0].ItemKey != "beef" {
		t.Errorf("Expected only beef under stockout, got %+v", view.Suggestions)
	}
	if view.Summary.Total != 2 {
		t.Errorf("Expected summary of the full run, got %+v", view.Summary)
	}
}

func TestParService_GenerateLeadTimeOverride(t *testing.T) {
	store, _ := kitchen()
	svc := newService(store, storage.NoopStorage{})

	run, err := svc.Generate(context.Background(), GenerateParams{Scope: kitchenScope, LeadTimeDays: 7})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if run.LeadTimeDays != 7 {
		t.Errorf("Expected lead time 7, got %v", run.LeadTimeDays)
	}
	for _, s := range run.Suggestions {
		// 8/week * 2 * 1.2
		if s.ItemKey == "beef" && s.SuggestedPar != 19.2 {
			t.Errorf("Expected beef 19.2 with a week of lead time, got %v", s.SuggestedPar)
		}
	}
}

func TestParService_GenerateErrors(t *testing.T) {
	svc := newService(memory.NewParStore(), storage.NoopStorage{})

	if _, err := svc.Generate(context.Background(), GenerateParams{Scope: domain.Scope{RestaurantID: "r1"}}); !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Errorf("Expected ErrInsufficientHistory, got %v", err)
	}
	if _, err := svc.Generate(context.Background(), GenerateParams{}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.GetRun(context.Background(), "missing", domain.FilterAll); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestParService_ApplyFromRun(t *testing.T) {
	store, guideID := kitchen()
	objects := &recordingObjects{}
	svc := newService(store, objects)

	run, err := svc.Generate(context.Background(), GenerateParams{Scope: kitchenScope})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	out, err := svc.Apply(context.Background(), ApplyParams{RunID: run.ID, ItemKeys: []string{" BEEF "}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Result.GuideID != guideID || out.Result.Updated != 1 || out.Result.Created != 0 {
		t.Errorf("Expected one update in the list guide, got %+v", out.Result)
	}

	items := store.GuideItems(guideID)
	if len(items) != 1 || items[0].ParLevel != 12.4 {
		t.Errorf("Expected beef at 12.4, got %+v", items)
	}

	expectedKey := "par-runs/r1/2026/10/16/" + run.ID + ".json"
	if out.ArchiveKey != expectedKey || len(objects.keys) != 1 {
		t.Errorf("Expected archive at %s, got %q (%v)", expectedKey, out.ArchiveKey, objects.keys)
	}
}

func TestParService_FullyAppliedRunLeavesCache(t *testing.T) {
	store, _ := kitchen()
	svc := newService(store, &recordingObjects{})
	ctx := context.Background()

	run, err := svc.Generate(ctx, GenerateParams{Scope: kitchenScope})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if _, err := svc.Apply(ctx, ApplyParams{RunID: run.ID, ItemKeys: []string{"beef"}}); err != nil {
		t.Fatalf("Partial apply failed: %v", err)
	}
	if _, err := svc.GetRun(ctx, run.ID, domain.FilterAll); err != nil {
		t.Fatalf("Expected the run to stay cached after a partial apply, got %v", err)
	}

	out, err := svc.Apply(ctx, ApplyParams{RunID: run.ID})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Result.Created != 1 || out.Result.Updated != 1 {
		t.Errorf("Expected basil created and beef updated, got %+v", out.Result)
	}
	if _, err := svc.GetRun(ctx, run.ID, domain.FilterAll); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected the fully applied run to be gone, got %v", err)
	}
}

func TestParService_FlushRuns(t *testing.T) {
	store, _ := kitchen()
	svc := newService(store, storage.NoopStorage{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Generate(ctx, GenerateParams{Scope: kitchenScope}); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
	}

	n, err := svc.FlushRuns(ctx)
	if err != nil {
		t.Fatalf("FlushRuns failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 runs flushed, got %d", n)
	}
}

func TestParService_ArchivedRuns(t *testing.T) {
	store, _ := kitchen()
	objects := &recordingObjects{}
	svc := newService(store, objects)
	ctx := context.Background()

	run, _ := svc.Generate(ctx, GenerateParams{Scope: kitchenScope})
	out, err := svc.Apply(ctx, ApplyParams{RunID: run.ID, ItemKeys: []string{"beef"}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	keys, err := svc.ArchivedRuns(ctx, "r1")
	if err != nil {
		t.Fatalf("ArchivedRuns failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != out.ArchiveKey {
		t.Fatalf("Expected [%s], got %v", out.ArchiveKey, keys)
	}

	rec, err := svc.ArchivedRun(ctx, keys[0])
	if err != nil {
		t.Fatalf("ArchivedRun failed: %v", err)
	}
	if rec.Run.ID != run.ID || len(rec.Applied) != 1 || rec.Applied[0].ItemKey != "beef" {
		t.Errorf("Unexpected archived run: %+v", rec)
	}
	if rec.Result.Updated != 1 {
		t.Errorf("Expected the archived result to show one update, got %+v", rec.Result)
	}

	if _, err := svc.ArchivedRun(ctx, "par-runs/r1/missing.json"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ArchivedRuns(ctx, " "); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}
}

func TestParService_ApplyRejectsUnknownItems(t *testing.T) {
	store, _ := kitchen()
	svc := newService(store, storage.NoopStorage{})
	run, _ := svc.Generate(context.Background(), GenerateParams{Scope: kitchenScope})

	_, err := svc.Apply(context.Background(), ApplyParams{RunID: run.ID, ItemKeys: []string{"beef", "truffle"}})
	if !errors.Is(err, domain.ErrInvalidRequest) || !strings.Contains(err.Error(), "truffle") {
		t.Errorf("Expected invalid request naming truffle, got %v", err)
	}
}

func TestParService_ApplyExplicitSelection(t *testing.T) {
	store := memory.NewParStore()
	svc := newService(store, storage.NoopStorage{})

	out, err := svc.Apply(context.Background(), ApplyParams{
		Scope:       domain.Scope{RestaurantID: "r2", ListID: "bar"},
		Suggestions: []domain.Suggestion{{ItemKey: "lime", ItemName: "Lime", SuggestedPar: 3}},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !out.Result.GuideCreated || out.Result.Created != 1 {
		t.Errorf("Expected a new guide with one item, got %+v", out.Result)
	}

	if _, err := svc.Apply(context.Background(), ApplyParams{Scope: domain.Scope{RestaurantID: "r2"}}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest for an empty selection, got %v", err)
	}
}

func TestParService_Notify(t *testing.T) {
	store, _ := kitchen()
	svc := newService(store, storage.NoopStorage{})

	res, err := svc.Notify(context.Background(), domain.Scope{RestaurantID: "r1"})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if !res.Sent || res.Severity != domain.SeverityWarning {
		t.Fatalf("Expected a WARNING broadcast for a major change, got %+v", res)
	}
	if len(res.Recipients) != 1 || res.Recipients[0].UserID != "owner" {
		t.Errorf("Expected only the owner, got %+v", res.Recipients)
	}

	again, err := svc.Notify(context.Background(), domain.Scope{RestaurantID: "r1"})
	if err != nil {
		t.Fatalf("Second notify failed: %v", err)
	}
	if again.Sent {
		t.Error("Expected the second broadcast of the day to be skipped")
	}
}

func TestParService_NotifyRespectsStoredSettings(t *testing.T) {
	store, _ := kitchen()
	store.SetNotificationSettings("r1", domain.NotificationSettings{Mode: domain.RecipientsAll, InAppEnabled: false})
	svc := newService(store, storage.NoopStorage{})

	res, err := svc.Notify(context.Background(), domain.Scope{RestaurantID: "r1"})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if res.Sent || res.Skipped != "in_app_disabled" {
		t.Errorf("Expected in_app_disabled skip, got %+v", res)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Par: config.ParConfig{LeadTimeDays: 3, Lookback: 6, ApplyWorkers: 8, ApplyRetries: 0, ApplyRetryBackoff: time.Second},
		Notification: config.NotificationConfig{
			DefaultTimezone:   "Europe/Paris",
			TotalMin:          20,
			DefaultRecipients: "all",
		},
	}

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig failed: %v", err)
	}
	if opts.Thresholds.LeadTimeDays != 3 || opts.Thresholds.Lookback != 6 || opts.Thresholds.NotifyTotalMin != 20 {
		t.Errorf("Unexpected thresholds: %+v", opts.Thresholds)
	}
	if opts.Thresholds.RoundingStep != 0.1 {
		t.Errorf("Expected unset values to keep defaults, got step %v", opts.Thresholds.RoundingStep)
	}
	if opts.Apply.Workers != 8 || opts.Apply.RetryAttempts != 0 || opts.Apply.RetryBackoff != time.Second {
		t.Errorf("Unexpected apply config: %+v", opts.Apply)
	}
	if opts.DefaultTimezone.String() != "Europe/Paris" || opts.DefaultRecipients != domain.RecipientsAll {
		t.Errorf("Unexpected notification defaults: %v %v", opts.DefaultTimezone, opts.DefaultRecipients)
	}

	cfg.Notification.DefaultTimezone = "Mars/Olympus"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("Expected an error for an unknown timezone")
	}
}

func TestOptionsFromConfig_ScoringThresholds(t *testing.T) {
	cfg := &config.Config{Par: config.ParConfig{
		HighConfidencePoints:   6,
		MediumConfidencePoints: 3,
		FluctuationMinSamples:  5,
		FluctuationStepPct:     25,
		FluctuationRunLength:   3,
		FluctuationMaxCV:       0.5,
	}}

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig failed: %v", err)
	}

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"high confidence points", float64(opts.Thresholds.HighConfidencePoints), 6},
		{"medium confidence points", float64(opts.Thresholds.MediumConfidencePoints), 3},
		{"fluctuation min samples", float64(opts.Thresholds.FluctuationMinSamples), 5},
		{"fluctuation step pct", opts.Thresholds.FluctuationStepPct, 25},
		{"fluctuation run length", float64(opts.Thresholds.FluctuationRunLength), 3},
		{"fluctuation max cv", opts.Thresholds.FluctuationMaxCV, 0.5},
	}
	for _, tc := range tests {
		if tc.got != tc.expected {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, tc.got)
		}
	}

	defaults, _ := OptionsFromConfig(&config.Config{})
	if defaults.Thresholds.FluctuationMaxCV != 0.3 || defaults.Thresholds.HighConfidencePoints != 4 {
		t.Errorf("Expected engine defaults when unset, got %+v", defaults.Thresholds)
	}
}

func TestOptionsFromConfig_BadTimezone(t *testing.T) {
	cfg := &config.Config{Notification: config.NotificationConfig{DefaultTimezone: "Mars/Olympus"}}
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("Expected an error for an unknown timezone")
	}
}
