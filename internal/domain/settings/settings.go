// Package settings defines the key-value settings store and the typed
// values kept in it.
package settings

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
)

// Store is a string key-value store with a global and a per-user scope.
// Lists are stored as JSON arrays.  A missing key yields def.
type Store interface {
	GetGlobal(ctx context.Context, key, def string) (string, error)
	SetGlobal(ctx context.Context, key, value string) error
	GetUser(ctx context.Context, userID, key, def string) (string, error)
	SetUser(ctx context.Context, userID, key, value string) error
}

// Global keys.
const (
	KeyTalkChatToken = "talk_chat_token"
	KeyReminderDays1 = "reminder_days_1"
	KeyReminderDays2 = "reminder_days_2"
	KeyEditors       = "editors"
	KeyViewers       = "viewers"
)

// Per-user keys.
const (
	KeyEmailReminder = "email_reminder"
	KeySortBy        = "sort_by"
	KeySortDirection = "sort_direction"
	KeyFilters       = "filters"
)

const (
	DefaultReminderDays1 = 14
	DefaultReminderDays2 = 3
	DefaultSortBy        = "endDate"
	DefaultSortDirection = "asc"
)

var (
	AllowedSortBy         = []string{"endDate", "name", "updatedAt", "cost"}
	AllowedSortDirections = []string{"asc", "desc"}
	AllowedFilterStatuses = []contract.Status{contract.StatusActive, contract.StatusCancelled, contract.StatusEnded}
	AllowedFilterTypes    = []contract.Type{"", contract.TypeFixed, contract.TypeAutoRenewal}
)

// ValidSortBy reports whether s is an allowed sort column.
func ValidSortBy(s string) bool { return slices.Contains(AllowedSortBy, s) }

// ValidSortDirection reports whether s is asc or desc.
func ValidSortDirection(s string) bool { return slices.Contains(AllowedSortDirections, s) }

// ClampDays returns days, raised to 1 when smaller.
func ClampDays(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

// ParseDays reads a stored day count, falling back to def when the value is
// not an integer.  The result is clamped to at least 1.
func ParseDays(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return ClampDays(n)
}

// FormatBool renders a boolean the way the store keeps it.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool reads a stored boolean.  Only "1" and "true" are true.
func ParseBool(raw string) bool {
	return raw == "1" || strings.EqualFold(raw, "true")
}

// Filters are a user's saved list filters.
type Filters struct {
	Vendor       string            `json:"vendor"`
	Statuses     []contract.Status `json:"statuses"`
	ContractType contract.Type     `json:"contractType"`
}

// Sanitize drops values outside the allow-lists.
func (f Filters) Sanitize() Filters {
	out := Filters{Vendor: f.Vendor, Statuses: []contract.Status{}}
	for _, s := range f.Statuses {
		if slices.Contains(AllowedFilterStatuses, s) && !slices.Contains(out.Statuses, s) {
			out.Statuses = append(out.Statuses, s)
		}
	}
	if slices.Contains(AllowedFilterTypes, f.ContractType) {
		out.ContractType = f.ContractType
	}
	return out
}

// ParseFilters decodes stored filters.  Invalid JSON yields the defaults
// and individual values outside the allow-lists are dropped.
func ParseFilters(raw string) Filters {
	if strings.TrimSpace(raw) == "" {
		return Filters{Statuses: []contract.Status{}}
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return Filters{Statuses: []contract.Status{}}
	}

	var f Filters
	if v, ok := probe["vendor"]; ok {
		_ = json.Unmarshal(v, &f.Vendor)
	}
	if v, ok := probe["statuses"]; ok {
		var items []json.RawMessage
		if json.Unmarshal(v, &items) == nil {
			for _, item := range items {
				var s string
				if json.Unmarshal(item, &s) == nil {
					f.Statuses = append(f.Statuses, contract.Status(s))
				}
			}
		}
	}
	if v, ok := probe["contractType"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			f.ContractType = contract.Type(s)
		}
	}
	return f.Sanitize()
}

// Encode renders sanitized filters as stored JSON.
func (f Filters) Encode() string {
	b, _ := json.Marshal(f.Sanitize())
	return string(b)
}

// Preferences are the per-user display and notification preferences.
type Preferences struct {
	EmailReminder bool    `json:"emailReminder"`
	SortBy        string  `json:"sortBy"`
	SortDirection string  `json:"sortDirection"`
	Filters       Filters `json:"filters"`
}

// AdminSettings are the global settings editable by administrators.
type AdminSettings struct {
	TalkChatToken string   `json:"talkChatToken"`
	ReminderDays1 int      `json:"reminderDays1"`
	ReminderDays2 int      `json:"reminderDays2"`
	Editors       []string `json:"editors"`
	Viewers       []string `json:"viewers"`
}

//Personal.AI order the ending
