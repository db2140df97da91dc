package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Contract as returned by the API.  Dates are YYYY-MM-DD.
type Contract struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Vendor               string     `json:"vendor"`
	Status               string     `json:"status"`
	CategoryID           *int64     `json:"categoryId,omitempty"`
	StartDate            *string    `json:"startDate,omitempty"`
	EndDate              *string    `json:"endDate,omitempty"`
	CancellationPeriod   string     `json:"cancellationPeriod"`
	CancellationDeadline *string    `json:"cancellationDeadline,omitempty"`
	ContractType         string     `json:"contractType"`
	RenewalPeriod        *string    `json:"renewalPeriod,omitempty"`
	Cost                 *string    `json:"cost,omitempty"`
	Currency             string     `json:"currency"`
	CostInterval         *string    `json:"costInterval,omitempty"`
	ContractFolder       *string    `json:"contractFolder,omitempty"`
	MainDocument         *string    `json:"mainDocument,omitempty"`
	ReminderEnabled      bool       `json:"reminderEnabled"`
	ReminderDays         *int       `json:"reminderDays,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	Archived             bool       `json:"archived"`
	IsPrivate            bool       `json:"isPrivate"`
	DeletedAt            *time.Time `json:"deletedAt,omitempty"`
	CreatedBy            string     `json:"createdBy"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// ContractInput is the create and update body.  Update replaces every
// field.
type ContractInput struct {
	Name               string  `json:"name"`
	Vendor             string  `json:"vendor"`
	Status             string  `json:"status,omitempty"`
	CategoryID         *int64  `json:"categoryId,omitempty"`
	StartDate          string  `json:"startDate,omitempty"`
	EndDate            string  `json:"endDate"`
	CancellationPeriod string  `json:"cancellationPeriod"`
	ContractType       string  `json:"contractType,omitempty"`
	RenewalPeriod      *string `json:"renewalPeriod,omitempty"`
	Cost               *string `json:"cost,omitempty"`
	Currency           string  `json:"currency,omitempty"`
	CostInterval       *string `json:"costInterval,omitempty"`
	ContractFolder     *string `json:"contractFolder,omitempty"`
	MainDocument       *string `json:"mainDocument,omitempty"`
	ReminderEnabled    bool    `json:"reminderEnabled"`
	ReminderDays       *int    `json:"reminderDays,omitempty"`
	Notes              *string `json:"notes,omitempty"`
	IsPrivate          bool    `json:"isPrivate"`
}

// ListOptions filters and sorts a contract listing.  Zero values are
// omitted.
type ListOptions struct {
	Archived      bool
	Search        string
	Statuses      []string
	ContractType  string
	CategoryID    *int64
	Vendor        string
	SortBy        string
	SortDirection string
	Limit         int
	Offset        int
}

func (o *ListOptions) values() url.Values {
	v := url.Values{}
	if o == nil {
		return v
	}
	if o.Archived {
		v.Set("archived", "true")
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if len(o.Statuses) > 0 {
		v.Set("status", strings.Join(o.Statuses, ","))
	}
	if o.ContractType != "" {
		v.Set("type", o.ContractType)
	}
	if o.CategoryID != nil {
		v.Set("category", strconv.FormatInt(*o.CategoryID, 10))
	}
	if o.Vendor != "" {
		v.Set("vendor", o.Vendor)
	}
	if o.SortBy != "" {
		v.Set("sortBy", o.SortBy)
	}
	if o.SortDirection != "" {
		v.Set("sortDirection", o.SortDirection)
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}
	return v
}

// DocumentLink is a presigned download link.
type DocumentLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ---------------------------------------------------------------------------
// ContractsClient
// ---------------------------------------------------------------------------

// ContractsClient calls /contracts.
type ContractsClient struct {
	client *Client
}

func contractPath(id int64, suffix string) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("contract id must be positive, got %d", id)
	}
	return fmt.Sprintf("/contracts/%d%s", id, suffix), nil
}

// List returns the contracts visible to the caller.
func (c *ContractsClient) List(ctx context.Context, opts *ListOptions) ([]Contract, error) {
	path := "/contracts"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}
	var out []Contract
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one contract.
func (c *ContractsClient) Get(ctx context.Context, id int64) (*Contract, error) {
	return c.call(ctx, http.MethodGet, id, "", nil)
}

// Create adds a contract owned by the caller.
func (c *ContractsClient) Create(ctx context.Context, in *ContractInput) (*Contract, error) {
	if in == nil {
		return nil, fmt.Errorf("contract input is required")
	}
	var out Contract
	if err := c.client.post(ctx, "/contracts", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a contract's fields.
func (c *ContractsClient) Update(ctx context.Context, id int64, in *ContractInput) (*Contract, error) {
	if in == nil {
		return nil, fmt.Errorf("contract input is required")
	}
	return c.call(ctx, http.MethodPut, id, "", in)
}

// Archive hides a contract from the default listing.
func (c *ContractsClient) Archive(ctx context.Context, id int64) (*Contract, error) {
	return c.call(ctx, http.MethodPost, id, "/archive", nil)
}

// Unarchive reverses Archive.
func (c *ContractsClient) Unarchive(ctx context.Context, id int64) (*Contract, error) {
	return c.call(ctx, http.MethodPost, id, "/unarchive", nil)
}

// Delete moves a contract to the trash and returns it.
func (c *ContractsClient) Delete(ctx context.Context, id int64) (*Contract, error) {
	return c.call(ctx, http.MethodDelete, id, "", nil)
}

// Document returns a presigned link to the contract's main document.
func (c *ContractsClient) Document(ctx context.Context, id int64) (*DocumentLink, error) {
	path, err := contractPath(id, "/document")
	if err != nil {
		return nil, err
	}
	var out DocumentLink
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ContractsClient) call(ctx context.Context, method string, id int64, suffix string, body interface{}) (*Contract, error) {
	path, err := contractPath(id, suffix)
	if err != nil {
		return nil, err
	}
	var out Contract
	if err := c.client.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// TrashClient
// ---------------------------------------------------------------------------

// TrashClient calls /trash.
type TrashClient struct {
	client *Client
}

// List returns the trashed contracts visible to the caller.
func (t *TrashClient) List(ctx context.Context) ([]Contract, error) {
	var out []Contract
	if err := t.client.get(ctx, "/trash", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Restore takes a contract out of the trash.
func (t *TrashClient) Restore(ctx context.Context, id int64) (*Contract, error) {
	if id <= 0 {
		return nil, fmt.Errorf("contract id must be positive, got %d", id)
	}
	var out Contract
	if err := t.client.post(ctx, fmt.Sprintf("/trash/%d/restore", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Purge deletes a trashed contract permanently.  Administrators only.
func (t *TrashClient) Purge(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("contract id must be positive, got %d", id)
	}
	return t.client.delete(ctx, fmt.Sprintf("/trash/%d", id), nil)
}

// Empty purges the whole trash and returns the number of contracts removed.
func (t *TrashClient) Empty(ctx context.Context) (int, error) {
	var out struct {
		Purged int `json:"purged"`
	}
	if err := t.client.delete(ctx, "/trash", &out); err != nil {
		return 0, err
	}
	return out.Purged, nil
}

//Personal.AI order the ending
