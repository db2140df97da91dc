// Package settings is the application service over the settings store:
// typed admin settings, per-user preferences, and the snapshots consumed by
// the permission evaluator and the reminder engine.
package settings

import (
	"context"
	"strconv"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	domain "github.com/turtacn/ContractKeeper/internal/domain/settings"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// AdminSettingsUpdate carries the admin fields to change.  Nil fields are
// left untouched.
type AdminSettingsUpdate struct {
	TalkChatToken *string   `json:"talkChatToken,omitempty"`
	ReminderDays1 *int      `json:"reminderDays1,omitempty"`
	ReminderDays2 *int      `json:"reminderDays2,omitempty"`
	Editors       *[]string `json:"editors,omitempty"`
	Viewers       *[]string `json:"viewers,omitempty"`
}

// PreferencesUpdate carries the per-user fields to change.
type PreferencesUpdate struct {
	EmailReminder *bool           `json:"emailReminder,omitempty"`
	SortBy        *string         `json:"sortBy,omitempty"`
	SortDirection *string         `json:"sortDirection,omitempty"`
	Filters       *domain.Filters `json:"filters,omitempty"`
}

// Service reads and writes settings.  Every read goes to the store.
type Service struct {
	store  domain.Store
	logger logging.Logger
}

// NewService constructs a Service.
func NewService(store domain.Store, logger logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

// PermissionConfig loads the editors and viewers lists.
func (s *Service) PermissionConfig(ctx context.Context) (access.Config, error) {
	editors, err := s.store.GetGlobal(ctx, domain.KeyEditors, "[]")
	if err != nil {
		return access.Config{}, errors.Wrap(err, errors.CodeUnknown, "failed to read editors")
	}
	viewers, err := s.store.GetGlobal(ctx, domain.KeyViewers, "[]")
	if err != nil {
		return access.Config{}, errors.Wrap(err, errors.CodeUnknown, "failed to read viewers")
	}
	return access.Config{
		Editors: access.ParsePrincipalList(editors),
		Viewers: access.ParsePrincipalList(viewers),
	}, nil
}

// ReminderSettings loads the global lead times.
func (s *Service) ReminderSettings(ctx context.Context) (reminder.Settings, error) {
	d1, err := s.store.GetGlobal(ctx, domain.KeyReminderDays1, strconv.Itoa(domain.DefaultReminderDays1))
	if err != nil {
		return reminder.Settings{}, errors.Wrap(err, errors.CodeUnknown, "failed to read reminder_days_1")
	}
	d2, err := s.store.GetGlobal(ctx, domain.KeyReminderDays2, strconv.Itoa(domain.DefaultReminderDays2))
	if err != nil {
		return reminder.Settings{}, errors.Wrap(err, errors.CodeUnknown, "failed to read reminder_days_2")
	}
	return reminder.Settings{
		Days1: domain.ParseDays(d1, domain.DefaultReminderDays1),
		Days2: domain.ParseDays(d2, domain.DefaultReminderDays2),
	}, nil
}

// TalkChatToken returns the configured chat token, or "".
func (s *Service) TalkChatToken(ctx context.Context) (string, error) {
	token, err := s.store.GetGlobal(ctx, domain.KeyTalkChatToken, "")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeUnknown, "failed to read talk_chat_token")
	}
	return token, nil
}

// EmailReminderEnabled reports whether userID opted in to reminder emails.
func (s *Service) EmailReminderEnabled(ctx context.Context, userID string) (bool, error) {
	raw, err := s.store.GetUser(ctx, userID, domain.KeyEmailReminder, "0")
	if err != nil {
		return false, errors.Wrap(err, errors.CodeUnknown, "failed to read email_reminder")
	}
	return domain.ParseBool(raw), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin settings
// ─────────────────────────────────────────────────────────────────────────────

// AdminSettings returns the global settings.
func (s *Service) AdminSettings(ctx context.Context) (*domain.AdminSettings, error) {
	token, err := s.TalkChatToken(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := s.ReminderSettings(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.PermissionConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.AdminSettings{
		TalkChatToken: token,
		ReminderDays1: rs.Days1,
		ReminderDays2: rs.Days2,
		Editors:       principalStrings(cfg.Editors),
		Viewers:       principalStrings(cfg.Viewers),
	}, nil
}

// UpdateAdminSettings applies in.  Only administrators may call it.  Day
// counts are clamped to at least 1 and principal lists must parse.
func (s *Service) UpdateAdminSettings(ctx context.Context, subject access.Subject, in AdminSettingsUpdate) (*domain.AdminSettings, error) {
	if err := subject.CheckAdmin(); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	editors := parsePrincipals(in.Editors, "editors", fields)
	viewers := parsePrincipals(in.Viewers, "viewers", fields)
	if len(fields) > 0 {
		return nil, errors.NewValidation(fields)
	}

	writes := []struct {
		key   string
		value *string
	}{
		{domain.KeyTalkChatToken, in.TalkChatToken},
		{domain.KeyReminderDays1, daysString(in.ReminderDays1)},
		{domain.KeyReminderDays2, daysString(in.ReminderDays2)},
		{domain.KeyEditors, encodePrincipals(in.Editors, editors)},
		{domain.KeyViewers, encodePrincipals(in.Viewers, viewers)},
	}
	for _, w := range writes {
		if w.value == nil {
			continue
		}
		if err := s.store.SetGlobal(ctx, w.key, *w.value); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "failed to write setting").WithDetail(w.key)
		}
	}

	s.logger.Info("admin settings updated", logging.String("user_id", subject.UserID))
	return s.AdminSettings(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Preferences
// ─────────────────────────────────────────────────────────────────────────────

// Preferences returns the user's preferences with defaults applied.
func (s *Service) Preferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	email, err := s.EmailReminderEnabled(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortBy, err := s.store.GetUser(ctx, userID, domain.KeySortBy, domain.DefaultSortBy)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to read sort_by")
	}
	dir, err := s.store.GetUser(ctx, userID, domain.KeySortDirection, domain.DefaultSortDirection)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to read sort_direction")
	}
	filters, err := s.store.GetUser(ctx, userID, domain.KeyFilters, "")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to read filters")
	}

	if !domain.ValidSortBy(sortBy) {
		sortBy = domain.DefaultSortBy
	}
	if !domain.ValidSortDirection(dir) {
		dir = domain.DefaultSortDirection
	}
	return &domain.Preferences{
		EmailReminder: email,
		SortBy:        sortBy,
		SortDirection: dir,
		Filters:       domain.ParseFilters(filters),
	}, nil
}

// UpdatePreferences applies in for userID.  Sort values outside the
// allow-lists are rejected and filter values outside them are dropped.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, in PreferencesUpdate) (*domain.Preferences, error) {
	fields := map[string]string{}
	if in.SortBy != nil && !domain.ValidSortBy(*in.SortBy) {
		fields["sortBy"] = "must be one of endDate, name, updatedAt, cost"
	}
	if in.SortDirection != nil && !domain.ValidSortDirection(*in.SortDirection) {
		fields["sortDirection"] = "must be asc or desc"
	}
	if len(fields) > 0 {
		return nil, errors.NewValidation(fields)
	}

	set := func(key, value string) error {
		if err := s.store.SetUser(ctx, userID, key, value); err != nil {
			return errors.Wrap(err, errors.CodeUnknown, "failed to write preference").WithDetail(key)
		}
		return nil
	}
	if in.EmailReminder != nil {
		if err := set(domain.KeyEmailReminder, domain.FormatBool(*in.EmailReminder)); err != nil {
			return nil, err
		}
	}
	if in.SortBy != nil {
		if err := set(domain.KeySortBy, *in.SortBy); err != nil {
			return nil, err
		}
	}
	if in.SortDirection != nil {
		if err := set(domain.KeySortDirection, *in.SortDirection); err != nil {
			return nil, err
		}
	}
	if in.Filters != nil {
		if err := set(domain.KeyFilters, in.Filters.Encode()); err != nil {
			return nil, err
		}
	}
	return s.Preferences(ctx, userID)
}

func principalStrings(list []access.Principal) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.String())
	}
	return out
}

func parsePrincipals(in *[]string, field string, fields map[string]string) []access.Principal {
	if in == nil {
		return nil
	}
	out := make([]access.Principal, 0, len(*in))
	for _, raw := range *in {
		p, ok := access.ParsePrincipal(raw)
		if !ok {
			fields[field] = "invalid principal " + strconv.Quote(raw) + ", expected user:<id> or group:<id>"
			continue
		}
		out = append(out, p)
	}
	return out
}

func encodePrincipals(in *[]string, parsed []access.Principal) *string {
	if in == nil {
		return nil
	}
	v := access.EncodePrincipalList(parsed)
	return &v
}

func daysString(days *int) *string {
	if days == nil {
		return nil
	}
	v := strconv.Itoa(domain.ClampDays(*days))
	return &v
}

//Personal.AI order the ending
