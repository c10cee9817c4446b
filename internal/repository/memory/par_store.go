package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/autopar/backend-go/internal/domain"
	"github.com/andresuchdata/autopar/backend-go/internal/repository"
	"github.com/google/uuid"
)

// SentNotification is one delivered in-app notification.
type SentNotification struct {
	RestaurantID string
	UserID       string
	Payload      domain.NotificationPayload
}

// ParStore provides in-memory storage for the PAR suggestion engine
type ParStore struct {
	mu sync.RWMutex

	counts        map[string][]domain.ApprovedCount // restaurant -> counts
	guides        []domain.Guide
	guideItems    map[string][]domain.GuideItem // guide -> items
	members       map[string][]domain.Recipient // restaurant -> members
	settings      map[string]domain.NotificationSettings
	records       map[string]domain.NotificationRecord
	notifications []SentNotification

	now func() time.Time
}

// NewParStore creates an empty in-memory store
func NewParStore() *ParStore {
	return &ParStore{
		counts:     make(map[string][]domain.ApprovedCount),
		guideItems: make(map[string][]domain.GuideItem),
		members:    make(map[string][]domain.Recipient),
		settings:   make(map[string]domain.NotificationSettings),
		records:    make(map[string]domain.NotificationRecord),
		now:        time.Now,
	}
}

// Verify interface compliance
var _ repository.ParStore = (*ParStore)(nil)

// AddCount stores an approved count for a restaurant
func (s *ParStore) AddCount(restaurantID string, c domain.ApprovedCount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[restaurantID] = append(s.counts[restaurantID], c)
}

// AddGuide stores a guide with its items and returns the guide ID
func (s *ParStore) AddGuide(g domain.Guide, items ...domain.GuideItem) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	s.guides = append(s.guides, g)
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.GuideID = g.ID
		s.guideItems[g.ID] = append(s.guideItems[g.ID], it)
	}
	return g.ID
}

// AddMember registers a restaurant user
func (s *ParStore) AddMember(restaurantID string, r domain.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[restaurantID] = append(s.members[restaurantID], r)
}

// SetNotificationSettings stores the restaurant's notification preferences
func (s *ParStore) SetNotificationSettings(restaurantID string, settings domain.NotificationSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[restaurantID] = settings
}

// LoadApprovedCounts returns approved counts for the scope, newest first
func (s *ParStore) LoadApprovedCounts(ctx context.Context, scope domain.Scope, limit int) ([]domain.ApprovedCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ApprovedCount
	for _, c := range s.counts[scope.RestaurantID] {
		if c.ApprovedAt == nil {
			continue
		}
		if scope.ListID != "" && c.ScopeID != scope.ListID {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ApprovedAt.After(*out[j].ApprovedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListGuides returns the restaurant's guides in creation order
func (s *ParStore) ListGuides(ctx context.Context, restaurantID, listID string) ([]domain.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Guide
	for _, g := range s.guides {
		if g.RestaurantID != restaurantID {
			continue
		}
		if listID != "" && g.ListID != listID {
			continue
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetGuide returns nil when the guide does not exist
func (s *ParStore) GetGuide(ctx context.Context, guideID string) (*domain.Guide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guides {
		if g.ID == guideID {
			g := g
			return &g, nil
		}
	}
	return nil, nil
}

// LoadGuideItems returns the items of the given guides
func (s *ParStore) LoadGuideItems(ctx context.Context, guideIDs []string) ([]domain.GuideItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.GuideItem
	for _, id := range guideIDs {
		out = append(out, s.guideItems[id]...)
	}
	return out, nil
}

// FindGuideItem matches item names case-insensitively
func (s *ParStore) FindGuideItem(ctx context.Context, guideID, itemName string) (*domain.GuideItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := domain.NormalizeItemKey(itemName)
	for _, it := range s.guideItems[guideID] {
		if domain.NormalizeItemKey(it.ItemName) == key {
			it := it
			return &it, nil
		}
	}
	return nil, nil
}

// UpsertGuideItem inserts a new item or updates the par level of an existing one
func (s *ParStore) UpsertGuideItem(ctx context.Context, guideID string, item domain.GuideItem) (domain.GuideItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.GuideID = guideID
	item.UpdatedAt = s.now()
	items := s.guideItems[guideID]
	if item.ID != "" {
		for i := range items {
			if items[i].ID == item.ID {
				items[i].ParLevel = item.ParLevel
				items[i].UpdatedAt = item.UpdatedAt
				return items[i], nil
			}
		}
		return domain.GuideItem{}, domain.ErrNotFound
	}

	item.ID = uuid.NewString()
	s.guideItems[guideID] = append(items, item)
	return item, nil
}

// CreateGuide stores a new guide for the scope
func (s *ParStore) CreateGuide(ctx context.Context, scope domain.Scope, name string) (string, error) {
	return s.AddGuide(domain.Guide{
		RestaurantID: scope.RestaurantID,
		ListID:       scope.ListID,
		Name:         name,
	}), nil
}

// NotificationExistsToday checks the dedup record for the day
func (s *ParStore) NotificationExistsToday(ctx context.Context, restaurantID, notificationType, day string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[recordKey(restaurantID, notificationType, day)]
	return ok, nil
}

// InsertNotification stores the dedup record and per-recipient notifications under one lock
func (s *ParStore) InsertNotification(ctx context.Context, batch domain.NotificationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(batch.Record.RestaurantID, batch.Record.Type, batch.Record.NotifiedOn)
	if _, ok := s.records[key]; ok {
		return domain.ErrAlreadyNotified
	}
	s.records[key] = batch.Record

	for _, r := range batch.Recipients {
		s.notifications = append(s.notifications, SentNotification{
			RestaurantID: batch.Record.RestaurantID,
			UserID:       r.UserID,
			Payload:      batch.Payload,
		})
	}
	return nil
}

// ResolveRecipients returns owners and managers, or the members named in custom
func (s *ParStore) ResolveRecipients(ctx context.Context, restaurantID string, mode domain.RecipientMode, custom []string) ([]domain.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(custom))
	for _, id := range custom {
		wanted[strings.TrimSpace(id)] = true
	}

	var out []domain.Recipient
	for _, m := range s.members[restaurantID] {
		switch mode {
		case domain.RecipientsCustom:
			if wanted[m.UserID] {
				out = append(out, m)
			}
		default:
			if m.Role == domain.RoleOwner || m.Role == domain.RoleManager {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// GetNotificationSettings returns nil when the restaurant has no stored preferences
func (s *ParStore) GetNotificationSettings(ctx context.Context, restaurantID string) (*domain.NotificationSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[restaurantID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

// GuideItems returns a copy of a guide's items
func (s *ParStore) GuideItems(guideID string) []domain.GuideItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.GuideItem(nil), s.guideItems[guideID]...)
}

// Notifications returns every delivered notification
func (s *ParStore) Notifications() []SentNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SentNotification(nil), s.notifications...)
}

// NotificationRecords returns the number of dedup records
func (s *ParStore) NotificationRecords() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func recordKey(restaurantID, notificationType, day string) string {
	return restaurantID + "|" + notificationType + "|" + day
}
