package contract

import (
	"context"
	"slices"
	"strings"
	"time"
)

// TrashScope selects how List treats trashed contracts.
type TrashScope int

const (
	// ExcludeTrashed lists only contracts that are not in the trash.
	ExcludeTrashed TrashScope = iota
	// OnlyTrashed lists only trashed contracts.
	OnlyTrashed
	// AnyTrashState ignores the trash flag.
	AnyTrashState
)

// ListFilter narrows Repository.List.  Zero values mean "no constraint".
type ListFilter struct {
	// Archived, when set, requires the archived flag to equal *Archived.
	Archived *bool
	Trash    TrashScope

	// VisibleTo, when non-empty, restricts results to contracts that are not
	// private or were created by this principal.
	VisibleTo string

	// CreatedBy, when non-empty, restricts results to this owner.
	CreatedBy string

	Statuses     []Status
	ContractType Type
	CategoryID   *int64
	Vendor       string

	// Query is a case-insensitive substring match on name, vendor and notes.
	Query string

	SortBy        string
	SortDirection string
	Limit         int
	Offset        int
}

// ListOption mutates a ListFilter.
type ListOption func(*ListFilter)

// WithArchived restricts results to the given archived state.
func WithArchived(archived bool) ListOption {
	return func(f *ListFilter) { f.Archived = &archived }
}

// WithTrash sets the trash scope.
func WithTrash(scope TrashScope) ListOption {
	return func(f *ListFilter) { f.Trash = scope }
}

// VisibleTo restricts results to what userID may see without admin rights.
func VisibleTo(userID string) ListOption {
	return func(f *ListFilter) { f.VisibleTo = userID }
}

// OwnedBy restricts results to one owner.
func OwnedBy(userID string) ListOption {
	return func(f *ListFilter) { f.CreatedBy = userID }
}

// Matching sets the free-text query.
func Matching(query string) ListOption {
	return func(f *ListFilter) { f.Query = query }
}

// NewListFilter applies opts to an empty filter.
func NewListFilter(opts ...ListOption) ListFilter {
	var f ListFilter
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Matches evaluates the filter in memory.  SQL repositories translate the
// same predicates into a WHERE clause; paging and sorting are not applied.
func (f ListFilter) Matches(c *Contract) bool {
	if f.Archived != nil && c.Archived != *f.Archived {
		return false
	}
	switch f.Trash {
	case ExcludeTrashed:
		if c.IsTrashed() {
			return false
		}
	case OnlyTrashed:
		if !c.IsTrashed() {
			return false
		}
	}
	if f.VisibleTo != "" && c.IsPrivate && c.CreatedBy != f.VisibleTo {
		return false
	}
	if f.CreatedBy != "" && c.CreatedBy != f.CreatedBy {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, c.Status) {
		return false
	}
	if f.ContractType != "" && c.ContractType != f.ContractType {
		return false
	}
	if f.CategoryID != nil && (c.CategoryID == nil || *c.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Vendor != "" && !strings.Contains(strings.ToLower(c.Vendor), strings.ToLower(f.Vendor)) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		notes := ""
		if c.Notes != nil {
			notes = *c.Notes
		}
		if !strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Vendor), q) &&
			!strings.Contains(strings.ToLower(notes), q) {
			return false
		}
	}
	return true
}

// Repository persists contracts.
type Repository interface {
	// Get returns the contract or a CTR_001 not-found error.
	Get(ctx context.Context, id int64) (*Contract, error)

	// Save inserts the contract when ID is zero (assigning ID, CreatedAt and
	// UpdatedAt) and updates it otherwise.
	Save(ctx context.Context, c *Contract) error

	// Delete removes the contract permanently.
	Delete(ctx context.Context, c *Contract) error

	// List returns contracts matching filter.
	List(ctx context.Context, filter ListFilter) ([]*Contract, error)

	// FindCandidatesForReminder returns active, reminder-enabled, unarchived,
	// untrashed contracts that have an end date and a cancellation period.
	FindCandidatesForReminder(ctx context.Context) ([]*Contract, error)

	// FindExpiredTrash returns trashed contracts with DeletedAt before cutoff
	// whose owner is not in excludeOwners.
	FindExpiredTrash(ctx context.Context, cutoff time.Time, excludeOwners []string) ([]*Contract, error)
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	FindAll(ctx context.Context) ([]*Category, error)
	Get(ctx context.Context, id int64) (*Category, error)
	FindByName(ctx context.Context, name string) (*Category, error)
	MaxSortOrder(ctx context.Context) (int, error)
	// Save inserts when ID is zero and updates otherwise.  A duplicate name
	// yields CTR_003.
	Save(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
}

//Personal.AI order the ending
