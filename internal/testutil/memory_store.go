package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Contracts
// ─────────────────────────────────────────────────────────────────────────────

// MemoryContractRepo is an in-memory contract.Repository.  Values are copied
// in and out so callers never share state with the store.
type MemoryContractRepo struct {
	mu     sync.Mutex
	rows   map[int64]contract.Contract
	nextID int64
	Now    func() time.Time

	// FailGet and FailDelete inject errors for specific IDs.
	FailGet    map[int64]error
	FailDelete map[int64]error
}

// NewMemoryContractRepo creates an empty repository.
func NewMemoryContractRepo() *MemoryContractRepo {
	return &MemoryContractRepo{
		rows:       map[int64]contract.Contract{},
		Now:        time.Now,
		FailGet:    map[int64]error{},
		FailDelete: map[int64]error{},
	}
}

// Seed stores copies of cs, assigning IDs to those without one.
func (r *MemoryContractRepo) Seed(cs ...*contract.Contract) {
	for _, c := range cs {
		_ = r.Save(context.Background(), c)
	}
}

// Len returns the number of stored contracts.
func (r *MemoryContractRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *MemoryContractRepo) Get(_ context.Context, id int64) (*contract.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailGet[id]; err != nil {
		return nil, err
	}
	c, ok := r.rows[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeContractNotFound, "contract not found")
	}
	return &c, nil
}

func (r *MemoryContractRepo) Save(_ context.Context, c *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.Now().UTC()
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
	} else if c.ID > r.nextID {
		r.nextID = c.ID
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	r.rows[c.ID] = *c
	return nil
}

func (r *MemoryContractRepo) Delete(_ context.Context, c *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailDelete[c.ID]; err != nil {
		return err
	}
	if _, ok := r.rows[c.ID]; !ok {
		return errors.New(errors.ErrCodeContractNotFound, "contract not found")
	}
	delete(r.rows, c.ID)
	return nil
}

func (r *MemoryContractRepo) List(_ context.Context, f contract.ListFilter) ([]*contract.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*contract.Contract, 0, len(r.rows))
	for _, row := range r.rows {
		c := row
		if f.Matches(&c) {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*contract.Contract{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryContractRepo) FindCandidatesForReminder(ctx context.Context) ([]*contract.Contract, error) {
	all, err := r.List(ctx, contract.NewListFilter(contract.WithArchived(false)))
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, c := range all {
		if reminder.IsCandidate(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryContractRepo) FindExpiredTrash(ctx context.Context, cutoff time.Time, excludeOwners []string) ([]*contract.Contract, error) {
	trashed, err := r.List(ctx, contract.NewListFilter(contract.WithTrash(contract.OnlyTrashed)))
	if err != nil {
		return nil, err
	}
	excluded := make(map[string]bool, len(excludeOwners))
	for _, o := range excludeOwners {
		excluded[o] = true
	}
	out := trashed[:0]
	for _, c := range trashed {
		if c.IsExpired(cutoff) && !excluded[c.CreatedBy] {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ contract.Repository = (*MemoryContractRepo)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Categories
// ─────────────────────────────────────────────────────────────────────────────

// MemoryCategoryRepo is an in-memory contract.CategoryRepository.
type MemoryCategoryRepo struct {
	mu     sync.Mutex
	rows   map[int64]contract.Category
	nextID int64
}

// NewMemoryCategoryRepo creates an empty repository.
func NewMemoryCategoryRepo() *MemoryCategoryRepo {
	return &MemoryCategoryRepo{rows: map[int64]contract.Category{}}
}

func (r *MemoryCategoryRepo) FindAll(context.Context) ([]*contract.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*contract.Category, 0, len(r.rows))
	for _, row := range r.rows {
		c := row
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryCategoryRepo) Get(_ context.Context, id int64) (*contract.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeCategoryNotFound, "category not found")
	}
	return &c, nil
}

func (r *MemoryCategoryRepo) FindByName(_ context.Context, name string) (*contract.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Name == name {
			c := row
			return &c, nil
		}
	}
	return nil, errors.New(errors.ErrCodeCategoryNotFound, "category not found")
}

func (r *MemoryCategoryRepo) MaxSortOrder(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, row := range r.rows {
		if row.SortOrder > max {
			max = row.SortOrder
		}
	}
	return max, nil
}

func (r *MemoryCategoryRepo) Save(_ context.Context, c *contract.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.Name == c.Name && id != c.ID {
			return errors.New(errors.ErrCodeCategoryExists, "category name already exists")
		}
	}
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
	} else if _, ok := r.rows[c.ID]; !ok {
		return errors.New(errors.ErrCodeCategoryNotFound, "category not found")
	}
	r.rows[c.ID] = *c
	return nil
}

func (r *MemoryCategoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return errors.New(errors.ErrCodeCategoryNotFound, "category not found")
	}
	delete(r.rows, id)
	return nil
}

var _ contract.CategoryRepository = (*MemoryCategoryRepo)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Reminder ledger
// ─────────────────────────────────────────────────────────────────────────────

// MemoryLedger is an in-memory reminder.Ledger enforcing the
// (contract, type) uniqueness of the SQL schema.
type MemoryLedger struct {
	mu     sync.Mutex
	rows   []reminder.Sent
	nextID int64

	// FailRecord makes RecordSent fail for the given reminder type.
	FailRecord map[string]error
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{FailRecord: map[string]error{}}
}

func (l *MemoryLedger) HasBeenSent(_ context.Context, contractID int64, reminderType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.ContractID == contractID && r.ReminderType == reminderType {
			return true, nil
		}
	}
	return false, nil
}

func (l *MemoryLedger) RecordSent(_ context.Context, rec *reminder.Sent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.FailRecord[rec.ReminderType]; err != nil {
		return err
	}
	for _, r := range l.rows {
		if r.ContractID == rec.ContractID && r.ReminderType == rec.ReminderType {
			return reminder.ErrAlreadySent
		}
	}
	l.nextID++
	rec.ID = l.nextID
	l.rows = append(l.rows, *rec)
	return nil
}

func (l *MemoryLedger) DeleteForContract(_ context.Context, contractID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.rows[:0]
	for _, r := range l.rows {
		if r.ContractID != contractID {
			kept = append(kept, r)
		}
	}
	l.rows = kept
	return nil
}

func (l *MemoryLedger) ListForContract(_ context.Context, contractID int64) ([]*reminder.Sent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*reminder.Sent
	for _, r := range l.rows {
		if r.ContractID == contractID {
			rec := r
			out = append(out, &rec)
		}
	}
	return out, nil
}

// Len returns the number of rows.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

var _ reminder.Ledger = (*MemoryLedger)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// MemorySettingsStore is an in-memory settings.Store.
type MemorySettingsStore struct {
	mu     sync.Mutex
	global map[string]string
	user   map[string]map[string]string
}

// NewMemorySettingsStore creates an empty store.
func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{global: map[string]string{}, user: map[string]map[string]string{}}
}

func (s *MemorySettingsStore) GetGlobal(_ context.Context, key, def string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.global[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *MemorySettingsStore) SetGlobal(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global[key] = value
	return nil
}

func (s *MemorySettingsStore) GetUser(_ context.Context, userID, key, def string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.user[userID][key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *MemorySettingsStore) SetUser(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user[userID] == nil {
		s.user[userID] = map[string]string{}
	}
	s.user[userID][key] = value
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Group directory
// ─────────────────────────────────────────────────────────────────────────────

// StaticDirectory is a fixed access.GroupDirectory and
// reminder.UserDirectory.
type StaticDirectory struct {
	Admins   []string
	Groups   map[string][]string
	Profiles map[string]*reminder.UserProfile
}

func (d *StaticDirectory) IsAdmin(_ context.Context, userID string) (bool, error) {
	for _, a := range d.Admins {
		if a == userID {
			return true, nil
		}
	}
	return false, nil
}

func (d *StaticDirectory) IsMemberOf(_ context.Context, userID, groupID string) (bool, error) {
	for _, m := range d.Groups[groupID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func (d *StaticDirectory) MembersOf(_ context.Context, groupID string) ([]string, error) {
	return append([]string(nil), d.Groups[groupID]...), nil
}

func (d *StaticDirectory) LookupUser(_ context.Context, userID string) (*reminder.UserProfile, error) {
	if p, ok := d.Profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, errors.New(errors.ErrCodeRecipientUnknown, "user not found")
}

//Personal.AI order the ending
