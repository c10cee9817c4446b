// backend-go/internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

// Scope identifies the restaurant and optionally the inventory list and PAR guide
// a suggestion run or an apply operation is bound to.
type Scope struct {
	RestaurantID string `json:"restaurant_id"`
	ListID       string `json:"list_id,omitempty"`
	GuideID      string `json:"guide_id,omitempty"`
}

func (s Scope) String() string {
	parts := []string{"restaurant=" + s.RestaurantID}
	if s.ListID != "" {
		parts = append(parts, "list="+s.ListID)
	}
	if s.GuideID != "" {
		parts = append(parts, "guide="+s.GuideID)
	}
	return strings.Join(parts, ",")
}

// ApprovedCount is a finalized inventory count session.
type ApprovedCount struct {
	SessionID    string            `json:"session_id" db:"id"`
	ScopeID      string            `json:"scope_id" db:"list_id"`
	ApprovedAt   *time.Time        `json:"approved_at" db:"approved_at"`
	Observations []ItemObservation `json:"observations" db:"-"`
}

// ItemObservation is one item's stock on hand within an approved count.
type ItemObservation struct {
	ItemName      string   `json:"item_name" db:"item_name"`
	StockQuantity float64  `json:"stock_quantity" db:"stock_quantity"`
	Category      string   `json:"category" db:"category"`
	Unit          string   `json:"unit" db:"unit"`
	ParLevel      *float64 `json:"par_level,omitempty" db:"par_level"` // PAR recorded on the session, if any
}

// Key returns the normalized item identity of the observation.
func (o ItemObservation) Key() string {
	return NormalizeItemKey(o.ItemName)
}

// Guide is a named collection of PAR levels for a list.
type Guide struct {
	ID           string    `json:"id" db:"id"`
	RestaurantID string    `json:"restaurant_id" db:"restaurant_id"`
	ListID       string    `json:"list_id" db:"list_id"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// GuideItem is a persisted PAR level inside a guide.
type GuideItem struct {
	ID        string    `json:"id" db:"id"`
	GuideID   string    `json:"guide_id" db:"guide_id"`
	ItemName  string    `json:"item_name" db:"item_name"`
	Category  string    `json:"category" db:"category"`
	Unit      string    `json:"unit" db:"unit"`
	ParLevel  float64   `json:"par_level" db:"par_level"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UsageSample is a weekly-normalized usage rate between two consecutive counts.
type UsageSample struct {
	FromSession string  `json:"from_session"`
	ToSession   string  `json:"to_session"`
	ElapsedDays float64 `json:"elapsed_days"`
	WeeklyRate  float64 `json:"weekly_rate"`
}

// Suggestion is the recommended PAR change for one item.
type Suggestion struct {
	ItemKey       string     `json:"item_key"`
	ItemName      string     `json:"item_name"`
	Category      string     `json:"category"`
	Unit          string     `json:"unit"`
	CurrentPar    float64    `json:"current_par"`
	SuggestedPar  float64    `json:"suggested_par"`
	ChangeAmount  float64    `json:"change_amount"`
	ChangePct     float64    `json:"change_pct"`
	RiskType      RiskType   `json:"risk_type"`
	Confidence    Confidence `json:"confidence"`
	IsFluctuating bool       `json:"is_fluctuating"`
	DataPoints    int        `json:"data_points"`
	AvgWeeklyUse  float64    `json:"avg_weekly_usage"`
	Reason        string     `json:"reason"`
	WeeklyUsages  []float64  `json:"weekly_usages"`
}

// SuggestionSummary aggregates a suggestion list for dashboards and the notification gate.
type SuggestionSummary struct {
	Total       int `json:"total"`
	Changed     int `json:"changed"`
	Major       int `json:"major"`
	Stockout    int `json:"stockout"`
	Overstock   int `json:"overstock"`
	MissingPar  int `json:"missing_par"`
	Fluctuating int `json:"fluctuating"`
}

// SuggestionRun is one generation pass, held between generation and the user-driven apply step.
type SuggestionRun struct {
	ID           string            `json:"id"`
	Scope        Scope             `json:"scope"`
	GeneratedAt  time.Time         `json:"generated_at"`
	LeadTimeDays float64           `json:"lead_time_days"`
	SessionCount int               `json:"session_count"`
	Suggestions  []Suggestion      `json:"suggestions"`
	Summary      SuggestionSummary `json:"summary"`
}

// ApplyFailure records a single item write that did not succeed.
type ApplyFailure struct {
	ItemName string `json:"item_name"`
	Error    string `json:"error"`
}

// ApplyResult reports the outcome of writing suggestions into a guide.
type ApplyResult struct {
	GuideID      string         `json:"guide_id"`
	GuideCreated bool           `json:"guide_created"`
	Created      int            `json:"created"`
	Updated      int            `json:"updated"`
	Failed       []ApplyFailure `json:"failed_items,omitempty"`
}

// Partial reports whether some item writes failed while others succeeded.
func (r ApplyResult) Partial() bool {
	return len(r.Failed) > 0 && r.Created+r.Updated > 0
}

// Recipient is a user eligible to receive restaurant notifications.
type Recipient struct {
	UserID string `json:"user_id" db:"user_id"`
	Role   Role   `json:"role" db:"role"`
}

// NotificationRecord is the per-day dedup marker for a notification type.
type NotificationRecord struct {
	RestaurantID string    `json:"restaurant_id" db:"restaurant_id"`
	Type         string    `json:"type" db:"type"`
	NotifiedOn   string    `json:"notified_on" db:"notified_on"` // YYYY-MM-DD in the restaurant's timezone
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NotificationPayload is the message delivered to each recipient.
type NotificationPayload struct {
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Severity Severity     `json:"severity"`
	TopItems []Suggestion `json:"top_items"`
}

// NotificationBatch is written atomically: the dedup record plus one notification per recipient.
type NotificationBatch struct {
	Record     NotificationRecord  `json:"record"`
	Recipients []Recipient         `json:"recipients"`
	Payload    NotificationPayload `json:"payload"`
}

// NotificationSettings are the per-restaurant preferences consumed by the notification gate.
type NotificationSettings struct {
	Mode             RecipientMode `json:"mode"`
	CustomRecipients []string      `json:"custom_recipients,omitempty"`
	InAppEnabled     bool          `json:"in_app_enabled"`
	Timezone         string        `json:"timezone,omitempty"`
}
