package par

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository/memory"
)

type failingHistory struct{}

func (failingHistory) LoadApprovedCounts(ctx context.Context, scope domain.Scope, limit int) ([]domain.ApprovedCount, error) {
	return nil, errors.New("connection refused")
}

func seededStore() *memory.ParStore {
	store := memory.NewParStore()
	for i, c := range weekly("Beef", 20, 15, 11, 6, 2) {
		c.SessionID = string(rune('a' + i))
		store.AddCount("r1", c)
	}
	// Not yet approved.
	store.AddCount("r1", count("draft", nil, obs("Beef", 1)))
	return store
}

func TestHistoryLoader_LoadsNewestLookback(t *testing.T) {
	store := seededStore()
	loader := NewHistoryLoader(store, store)

	h, err := loader.Load(context.Background(), domain.Scope{RestaurantID: "r1", ListID: "list-1"}, 4)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(h.Counts) != 4 {
		t.Fatalf("Expected 4 counts, got %d", len(h.Counts))
	}
	if h.Counts[0].SessionID != "e" || h.Counts[3].SessionID != "b" {
		t.Errorf("Expected newest-first e..b, got %s..%s", h.Counts[0].SessionID, h.Counts[3].SessionID)
	}
	for _, c := range h.Counts {
		if c.ApprovedAt == nil {
			t.Errorf("Count %s has no approval time", c.SessionID)
		}
	}
}

func TestHistoryLoader_InsufficientHistory(t *testing.T) {
	store := memory.NewParStore()
	store.AddCount("r1", count("draft", nil, obs("Beef", 1)))

	_, err := NewHistoryLoader(store, store).Load(context.Background(), domain.Scope{RestaurantID: "r1"}, 4)
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Errorf("Expected ErrInsufficientHistory, got %v", err)
	}
}

func TestHistoryLoader_StorageError(t *testing.T) {
	store := memory.NewParStore()
	scope := domain.Scope{RestaurantID: "r1"}

	_, err := NewHistoryLoader(failingHistory{}, store).Load(context.Background(), scope, 4)

	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if se.Op != "load approved counts" || se.Scope != scope {
		t.Errorf("Unexpected storage error context: %+v", se)
	}
}

func TestHistoryLoader_CurrentParAcrossGuides(t *testing.T) {
	store := seededStore()
	store.AddGuide(domain.Guide{RestaurantID: "r1", ListID: "list-1", Name: "Weekday"},
		domain.GuideItem{ItemName: "Beef", ParLevel: 10},
		domain.GuideItem{ItemName: "Milk", ParLevel: 4})
	store.AddGuide(domain.Guide{RestaurantID: "r1", ListID: "list-1", Name: "Weekend"},
		domain.GuideItem{ItemName: "BEEF", ParLevel: 14})
	store.AddGuide(domain.Guide{RestaurantID: "r1", ListID: "list-2", Name: "Bar"},
		domain.GuideItem{ItemName: "Beef", ParLevel: 99})

	h, err := NewHistoryLoader(store, store).Load(context.Background(), domain.Scope{RestaurantID: "r1", ListID: "list-1"}, 4)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if h.CurrentPar["beef"] != 14 {
		t.Errorf("Expected max PAR 14 within the list, got %v", h.CurrentPar["beef"])
	}
	if h.CurrentPar["milk"] != 4 {
		t.Errorf("Expected milk PAR 4, got %v", h.CurrentPar["milk"])
	}
}

func TestHistoryLoader_FallsBackToRestaurantGuides(t *testing.T) {
	store := seededStore()
	store.AddGuide(domain.Guide{RestaurantID: "r1", ListID: "other", Name: "Main"},
		domain.GuideItem{ItemName: "Beef", ParLevel: 8})

	h, err := NewHistoryLoader(store, store).Load(context.Background(), domain.Scope{RestaurantID: "r1", ListID: "list-1"}, 4)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if h.CurrentPar["beef"] != 8 {
		t.Errorf("Expected restaurant-wide PAR 8, got %v", h.CurrentPar["beef"])
	}
}

func TestHistoryLoader_ExplicitGuide(t *testing.T) {
	store := seededStore()
	store.AddGuide(domain.Guide{RestaurantID: "r1", ListID: "list-1"}, domain.GuideItem{ItemName: "Beef", ParLevel: 30})
	id := store.AddGuide(domain.Guide{RestaurantID: "r1", ListID: "list-1"}, domain.GuideItem{ItemName: "Beef", ParLevel: 5})

	h, err := NewHistoryLoader(store, store).Load(context.Background(), domain.Scope{RestaurantID: "r1", GuideID: id}, 4)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if h.CurrentPar["beef"] != 5 {
		t.Errorf("Expected explicit guide PAR 5, got %v", h.CurrentPar["beef"])
	}
}

func TestBuildCurrentParMap_FirstGuideKeepsTies(t *testing.T) {
	items := []domain.GuideItem{
		{GuideID: "g2", ItemName: "beef", ParLevel: 10},
		{GuideID: "g1", ItemName: "Beef ", ParLevel: 10},
		{GuideID: "g2", ItemName: "Milk", ParLevel: 3},
		{GuideID: "g1", ItemName: "milk", ParLevel: 2},
	}

	got := BuildCurrentParMap([]string{"g1", "g2"}, items)
	if len(got) != 2 || got["beef"] != 10 || got["milk"] != 3 {
		t.Errorf("Unexpected PAR map: %v", got)
	}
}
