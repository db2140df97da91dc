package handlers

import (
	"context"
	"net/http"
	"time"

	appsettings "github.com/turtacn/ContractKeeper/internal/application/settings"
	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/domain/settings"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// SettingsService is the slice of the settings application service used here.
type SettingsService interface {
	AdminSettings(ctx context.Context) (*settings.AdminSettings, error)
	UpdateAdminSettings(ctx context.Context, subject access.Subject, in appsettings.AdminSettingsUpdate) (*settings.AdminSettings, error)
	Preferences(ctx context.Context, userID string) (*settings.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, in appsettings.PreferencesUpdate) (*settings.Preferences, error)
}

// SettingsHandler serves settings, permission info and the deadline
// calculator.
type SettingsHandler struct {
	settings SettingsService
	logger   logging.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings SettingsService, logger logging.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// GetAdmin handles GET /api/v1/settings/admin.
func (h *SettingsHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	if err := subjectOf(r).CheckAdmin(); err != nil {
		writeAppError(w, err)
		return
	}
	s, err := h.settings.AdminSettings(r.Context())
	if err != nil {
		respondError(h.logger, w, "load admin settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateAdmin handles PUT /api/v1/settings/admin.
func (h *SettingsHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	var in appsettings.AdminSettingsUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeAppError(w, err)
		return
	}
	s, err := h.settings.UpdateAdminSettings(r.Context(), subjectOf(r), in)
	if err != nil {
		respondError(h.logger, w, "update admin settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetPreferences handles GET /api/v1/settings/preferences.
func (h *SettingsHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.settings.Preferences(r.Context(), subjectOf(r).UserID)
	if err != nil {
		respondError(h.logger, w, "load preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePreferences handles PUT /api/v1/settings/preferences.
func (h *SettingsHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var in appsettings.PreferencesUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeAppError(w, err)
		return
	}
	p, err := h.settings.UpdatePreferences(r.Context(), subjectOf(r).UserID, in)
	if err != nil {
		respondError(h.logger, w, "update preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Permissions handles GET /api/v1/permissions.
func (h *SettingsHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, subjectOf(r).Info())
}

// DeadlineResponse is the result of the deadline calculator.
type DeadlineResponse struct {
	Deadline  string `json:"deadline"`
	Formatted string `json:"formatted"`
	DaysLeft  int    `json:"daysLeft"`
}

// Deadline handles GET /api/v1/deadline?endDate=YYYY-MM-DD&period=3+months.
func (h *SettingsHandler) Deadline(w http.ResponseWriter, r *http.Request) {
	end, err := parseDate("endDate", r.URL.Query().Get("endDate"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	period := r.URL.Query().Get("period")
	d, ok := contract.CalculateDeadline(end, period)
	if !ok {
		writeAppError(w, errors.NewValidation(map[string]string{"period": "endDate and a period like \"3 months\" are required"}))
		return
	}
	today := contract.DateOf(time.Now())
	writeJSON(w, http.StatusOK, DeadlineResponse{
		Deadline:  d.Format(contract.DateLayout),
		Formatted: contract.FormatDeadline(d),
		DaysLeft:  int(d.Sub(today).Hours() / 24),
	})
}

//Personal.AI order the ending
