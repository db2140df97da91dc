package handlers

import (
	"context"
	"net/http"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
)

// CategoryService is the slice of the category application service used here.
type CategoryService interface {
	List(ctx context.Context) ([]*contract.Category, error)
	Create(ctx context.Context, subject access.Subject, name string) (*contract.Category, error)
	Rename(ctx context.Context, subject access.Subject, id int64, name string) (*contract.Category, error)
	Delete(ctx context.Context, subject access.Subject, id int64) error
}

// CategoryHandler serves /api/v1/categories.
type CategoryHandler struct {
	categories CategoryService
	logger     logging.Logger
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categories CategoryService, logger logging.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

// CategoryRequest is the create/rename body.
type CategoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.categories.List(r.Context())
	if err != nil {
		respondError(h.logger, w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	c, err := h.categories.Create(r.Context(), subjectOf(r), req.Name)
	if err != nil {
		respondError(h.logger, w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	c, err := h.categories.Rename(r.Context(), subjectOf(r), id, req.Name)
	if err != nil {
		respondError(h.logger, w, "rename category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.categories.Delete(r.Context(), subjectOf(r), id); err != nil {
		respondError(h.logger, w, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

//Personal.AI order the ending
