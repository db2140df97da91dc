package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
)

// TrashService is the slice of the trash application service used here.
type TrashService interface {
	SoftDelete(ctx context.Context, subject access.Subject, id int64, now time.Time) (*contract.Contract, error)
	RestoreFromTrash(ctx context.Context, subject access.Subject, id int64, now time.Time) (*contract.Contract, error)
	List(ctx context.Context, subject access.Subject) ([]*contract.Contract, error)
	Purge(ctx context.Context, subject access.Subject, id int64, now time.Time) error
	EmptyTrash(ctx context.Context, subject access.Subject, now time.Time) (int, error)
}

// TrashHandler serves /api/v1/trash.
type TrashHandler struct {
	trash  TrashService
	logger logging.Logger
	now    func() time.Time
}

// NewTrashHandler creates a new TrashHandler.
func NewTrashHandler(trash TrashService, logger logging.Logger) *TrashHandler {
	return &TrashHandler{trash: trash, logger: logger, now: time.Now}
}

// List handles GET /api/v1/trash.
func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.trash.List(r.Context(), subjectOf(r))
	if err != nil {
		respondError(h.logger, w, "list trash", err)
		return
	}
	writeJSON(w, http.StatusOK, newContractViews(list))
}

// Restore handles POST /api/v1/trash/{id}/restore.
func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	c, err := h.trash.RestoreFromTrash(r.Context(), subjectOf(r), id, h.now())
	if err != nil {
		respondError(h.logger, w, "restore contract", err)
		return
	}
	writeJSON(w, http.StatusOK, newContractView(c))
}

// Purge handles DELETE /api/v1/trash/{id}.
func (h *TrashHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.trash.Purge(r.Context(), subjectOf(r), id, h.now()); err != nil {
		respondError(h.logger, w, "purge contract", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmptyResponse reports how many contracts were purged.
type EmptyResponse struct {
	Purged int `json:"purged"`
}

// Empty handles DELETE /api/v1/trash.
func (h *TrashHandler) Empty(w http.ResponseWriter, r *http.Request) {
	n, err := h.trash.EmptyTrash(r.Context(), subjectOf(r), h.now())
	if err != nil {
		respondError(h.logger, w, "empty trash", err)
		return
	}
	writeJSON(w, http.StatusOK, EmptyResponse{Purged: n})
}

//Personal.AI order the ending
