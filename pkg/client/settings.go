package client

import (
	"context"
	"fmt"
	"net/url"
)

// Category groups contracts.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// Permissions describes what the caller may do.
type Permissions struct {
	IsAdmin              bool `json:"isAdmin"`
	IsEditor             bool `json:"isEditor"`
	IsViewer             bool `json:"isViewer"`
	CanEdit              bool `json:"canEdit"`
	CanDeletePermanently bool `json:"canDeletePermanently"`
}

// Deadline is the result of the deadline calculator.
type Deadline struct {
	Deadline  string `json:"deadline"`
	Formatted string `json:"formatted"`
	DaysLeft  int    `json:"daysLeft"`
}

// AdminSettings are the global settings.  Editors and Viewers hold
// "user:<id>" and "group:<id>" entries.
type AdminSettings struct {
	TalkChatToken string   `json:"talkChatToken"`
	ReminderDays1 int      `json:"reminderDays1"`
	ReminderDays2 int      `json:"reminderDays2"`
	Editors       []string `json:"editors"`
	Viewers       []string `json:"viewers"`
}

// AdminSettingsUpdate changes only the non-nil fields.
type AdminSettingsUpdate struct {
	TalkChatToken *string   `json:"talkChatToken,omitempty"`
	ReminderDays1 *int      `json:"reminderDays1,omitempty"`
	ReminderDays2 *int      `json:"reminderDays2,omitempty"`
	Editors       *[]string `json:"editors,omitempty"`
	Viewers       *[]string `json:"viewers,omitempty"`
}

// Filters are the saved list filters of a user.
type Filters struct {
	Vendor       string   `json:"vendor"`
	Statuses     []string `json:"statuses"`
	ContractType string   `json:"contractType"`
}

// Preferences are the caller's personal settings.
type Preferences struct {
	EmailReminder bool    `json:"emailReminder"`
	SortBy        string  `json:"sortBy"`
	SortDirection string  `json:"sortDirection"`
	Filters       Filters `json:"filters"`
}

// PreferencesUpdate changes only the non-nil fields.
type PreferencesUpdate struct {
	EmailReminder *bool    `json:"emailReminder,omitempty"`
	SortBy        *string  `json:"sortBy,omitempty"`
	SortDirection *string  `json:"sortDirection,omitempty"`
	Filters       *Filters `json:"filters,omitempty"`
}

// ---------------------------------------------------------------------------
// CategoriesClient
// ---------------------------------------------------------------------------

// CategoriesClient calls /categories.
type CategoriesClient struct {
	client *Client
}

// List returns all categories in sort order.
func (c *CategoriesClient) List(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.client.get(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create appends a category.
func (c *CategoriesClient) Create(ctx context.Context, name string) (*Category, error) {
	var out Category
	if err := c.client.post(ctx, "/categories", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rename changes a category's name.
func (c *CategoriesClient) Rename(ctx context.Context, id int64, name string) (*Category, error) {
	var out Category
	if err := c.client.put(ctx, fmt.Sprintf("/categories/%d", id), map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a category.
func (c *CategoriesClient) Delete(ctx context.Context, id int64) error {
	return c.client.delete(ctx, fmt.Sprintf("/categories/%d", id), nil)
}

// ---------------------------------------------------------------------------
// SettingsClient
// ---------------------------------------------------------------------------

// SettingsClient covers permissions, settings and the deadline calculator.
type SettingsClient struct {
	client *Client
}

// Permissions returns the caller's roles.
func (s *SettingsClient) Permissions(ctx context.Context) (*Permissions, error) {
	var out Permissions
	if err := s.client.get(ctx, "/permissions", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deadline computes endDate (YYYY-MM-DD) minus period on the server.
func (s *SettingsClient) Deadline(ctx context.Context, endDate, period string) (*Deadline, error) {
	q := url.Values{"endDate": {endDate}, "period": {period}}
	var out Deadline
	if err := s.client.get(ctx, "/deadline?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Admin returns the global settings.  Administrators only.
func (s *SettingsClient) Admin(ctx context.Context) (*AdminSettings, error) {
	var out AdminSettings
	if err := s.client.get(ctx, "/settings/admin", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAdmin changes the global settings.  Administrators only.
func (s *SettingsClient) UpdateAdmin(ctx context.Context, in *AdminSettingsUpdate) (*AdminSettings, error) {
	var out AdminSettings
	if err := s.client.put(ctx, "/settings/admin", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Preferences returns the caller's preferences.
func (s *SettingsClient) Preferences(ctx context.Context) (*Preferences, error) {
	var out Preferences
	if err := s.client.get(ctx, "/settings/preferences", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePreferences changes the caller's preferences.
func (s *SettingsClient) UpdatePreferences(ctx context.Context, in *PreferencesUpdate) (*Preferences, error) {
	var out Preferences
	if err := s.client.put(ctx, "/settings/preferences", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
