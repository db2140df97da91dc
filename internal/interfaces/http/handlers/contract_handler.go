package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	appcontract "github.com/turtacn/ContractKeeper/internal/application/contract"
	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// ContractService is the slice of the contract application service used here.
type ContractService interface {
	Get(ctx context.Context, subject access.Subject, id int64) (*contract.Contract, error)
	List(ctx context.Context, subject access.Subject, q appcontract.Query) ([]*contract.Contract, error)
	Create(ctx context.Context, subject access.Subject, in appcontract.Input) (*contract.Contract, error)
	Update(ctx context.Context, subject access.Subject, id int64, in appcontract.Input) (*contract.Contract, error)
	Archive(ctx context.Context, subject access.Subject, id int64) (*contract.Contract, error)
	Unarchive(ctx context.Context, subject access.Subject, id int64) (*contract.Contract, error)
	DocumentURL(ctx context.Context, subject access.Subject, id int64) (string, error)
}

// ContractHandler serves /api/v1/contracts.
type ContractHandler struct {
	contracts ContractService
	trash     TrashService
	logger    logging.Logger
	now       func() time.Time
}

// NewContractHandler creates a new ContractHandler.  DELETE moves the
// contract to the trash through trash.
func NewContractHandler(contracts ContractService, trash TrashService, logger logging.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, trash: trash, logger: logger, now: time.Now}
}

// ContractRequest is the create/update body.  Dates are YYYY-MM-DD.
type ContractRequest struct {
	appcontract.Input
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (req *ContractRequest) toInput() (appcontract.Input, error) {
	in := req.Input
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return in, err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return in, err
	}
	in.StartDate, in.EndDate = start, end
	return in, nil
}

// ContractView renders a contract with civil dates and its computed
// cancellation deadline.
type ContractView struct {
	*contract.Contract
	StartDate            *string `json:"startDate,omitempty"`
	EndDate              *string `json:"endDate,omitempty"`
	CancellationDeadline *string `json:"cancellationDeadline,omitempty"`
}

func newContractView(c *contract.Contract) ContractView {
	v := ContractView{Contract: c}
	v.StartDate = formatDate(c.StartDate)
	v.EndDate = formatDate(c.EndDate)
	if d, ok := c.Deadline(); ok {
		v.CancellationDeadline = formatDate(&d)
	}
	return v
}

func newContractViews(list []*contract.Contract) []ContractView {
	out := make([]ContractView, 0, len(list))
	for _, c := range list {
		out = append(out, newContractView(c))
	}
	return out
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(contract.DateLayout)
	return &s
}

// List handles GET /api/v1/contracts.
//
// Query parameters: archived, search, status (comma separated), type,
// category, vendor, sortBy, sortDirection, limit, offset.
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryPage(r)
	query := appcontract.Query{
		Archived:      q.Get("archived") == "true",
		Search:        q.Get("search"),
		ContractType:  contract.Type(q.Get("type")),
		Vendor:        q.Get("vendor"),
		SortBy:        q.Get("sortBy"),
		SortDirection: q.Get("sortDirection"),
		Limit:         page.Limit,
		Offset:        page.Offset,
	}
	for _, s := range strings.Split(q.Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			query.Statuses = append(query.Statuses, contract.Status(s))
		}
	}
	if raw := q.Get("category"); raw != "" {
		id, err := parseInt64(raw)
		if err != nil {
			writeAppError(w, errors.InvalidParam("category must be an integer"))
			return
		}
		query.CategoryID = &id
	}

	list, err := h.contracts.List(r.Context(), subjectOf(r), query)
	if err != nil {
		h.fail(w, "list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, newContractViews(list))
}

// Get handles GET /api/v1/contracts/{id}.
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	c, err := h.contracts.Get(r.Context(), subjectOf(r), id)
	if err != nil {
		h.fail(w, "get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, newContractView(c))
}

// Create handles POST /api/v1/contracts.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeAppError(w, err)
		return
	}
	c, err := h.contracts.Create(r.Context(), subjectOf(r), in)
	if err != nil {
		h.fail(w, "create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, newContractView(c))
}

// Update handles PUT /api/v1/contracts/{id}.
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req ContractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeAppError(w, err)
		return
	}
	c, err := h.contracts.Update(r.Context(), subjectOf(r), id, in)
	if err != nil {
		h.fail(w, "update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, newContractView(c))
}

// Archive handles POST /api/v1/contracts/{id}/archive.
func (h *ContractHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "archive contract", h.contracts.Archive)
}

// Unarchive handles POST /api/v1/contracts/{id}/unarchive.
func (h *ContractHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "unarchive contract", h.contracts.Unarchive)
}

func (h *ContractHandler) toggle(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, access.Subject, int64) (*contract.Contract, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	c, err := fn(r.Context(), subjectOf(r), id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newContractView(c))
}

// Delete handles DELETE /api/v1/contracts/{id}: a soft delete.
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	c, err := h.trash.SoftDelete(r.Context(), subjectOf(r), id, h.now())
	if err != nil {
		h.fail(w, "trash contract", err)
		return
	}
	writeJSON(w, http.StatusOK, newContractView(c))
}

// DocumentResponse carries a presigned link.
type DocumentResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Document handles GET /api/v1/contracts/{id}/document.
func (h *ContractHandler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeAppError(w, err)
		return
	}
	url, err := h.contracts.DocumentURL(r.Context(), subjectOf(r), id)
	if err != nil {
		h.fail(w, "presign document", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		URL:       url,
		ExpiresAt: h.now().Add(appcontract.DefaultDocumentURLExpiry).UTC(),
	})
}

func (h *ContractHandler) fail(w http.ResponseWriter, op string, err error) {
	respondError(h.logger, w, op, err)
}

//Personal.AI order the ending
