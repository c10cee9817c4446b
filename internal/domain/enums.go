package domain

import "strings"

// RiskType classifies an item's stocking health.
type RiskType string

const (
	RiskMissingPar RiskType = "missing_par"
	RiskStockout   RiskType = "stockout"
	RiskOverstock  RiskType = "overstock"
	RiskAdjustment RiskType = "adjustment"
)

var riskTypeLabels = map[RiskType]string{
	RiskMissingPar: "Missing PAR",
	RiskStockout:   "Stockout risk",
	RiskOverstock:  "Overstock",
	RiskAdjustment: "Usage adjustment",
}

// Label returns a human-readable label for the risk type.
func (r RiskType) Label() string {
	if label, ok := riskTypeLabels[r]; ok {
		return label
	}

	return "Unknown"
}

// Confidence rates how much history backs a suggestion.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Filter names a view over a suggestion list.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterChanged    Filter = "changed"
	FilterMajor      Filter = "major"
	FilterStockout   Filter = "stockout"
	FilterOverstock  Filter = "overstock"
	FilterMissingPar Filter = "missing_par"
)

var filters = map[string]Filter{
	"all":         FilterAll,
	"changed":     FilterChanged,
	"major":       FilterMajor,
	"stockout":    FilterStockout,
	"overstock":   FilterOverstock,
	"missing_par": FilterMissingPar,
}

// ParseFilter returns the filter for a given name (case-insensitive). Empty means all.
func ParseFilter(name string) (Filter, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FilterAll, true
	}
	f, ok := filters[name]

	return f, ok
}

// Role is a restaurant membership role.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// RecipientMode selects who receives PAR suggestion notifications.
type RecipientMode string

const (
	RecipientsAll            RecipientMode = "ALL"
	RecipientsCustom         RecipientMode = "CUSTOM"
	RecipientsOwnersManagers RecipientMode = "OWNERS_MANAGERS"
)

// ParseRecipientMode maps unknown or empty values to OWNERS_MANAGERS.
func ParseRecipientMode(v string) RecipientMode {
	switch RecipientMode(strings.ToUpper(strings.TrimSpace(v))) {
	case RecipientsAll:
		return RecipientsAll
	case RecipientsCustom:
		return RecipientsCustom
	default:
		return RecipientsOwnersManagers
	}
}

// Severity of an emitted notification.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
)

// NotificationTypeParSuggestions is the dedup type for suggestion broadcasts.
const NotificationTypeParSuggestions = "PAR_SUGGESTIONS"

// NormalizeItemKey trims and lowercases an item name. It is the only identity used
// when comparing items across counts, guides and selections.
func NormalizeItemKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
