// Package contract is the application service for contract CRUD, listing,
// archiving and document links.  Every read and write goes through the
// caller's access.Subject before it touches the repository.
package contract

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	domain "github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// DocumentStore resolves MainDocument object keys to download links.
type DocumentStore interface {
	PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// DefaultDocumentURLExpiry bounds presigned links.
const DefaultDocumentURLExpiry = 15 * time.Minute

// Input is the editable part of a contract.
type Input struct {
	Name               string        `json:"name"`
	Vendor             string        `json:"vendor"`
	Status             domain.Status `json:"status"`
	CategoryID         *int64        `json:"categoryId"`
	StartDate          *time.Time    `json:"startDate"`
	EndDate            *time.Time    `json:"endDate"`
	CancellationPeriod string        `json:"cancellationPeriod"`
	ContractType       domain.Type   `json:"contractType"`
	RenewalPeriod      *string       `json:"renewalPeriod"`
	Cost               *string       `json:"cost"`
	Currency           string        `json:"currency"`
	CostInterval       *string       `json:"costInterval"`
	ContractFolder     *string       `json:"contractFolder"`
	MainDocument       *string       `json:"mainDocument"`
	ReminderEnabled    bool          `json:"reminderEnabled"`
	ReminderDays       *int          `json:"reminderDays"`
	Notes              *string       `json:"notes"`
	IsPrivate          bool          `json:"isPrivate"`
}

// apply copies the editable fields onto c.  Dates are truncated to civil
// dates.
func (in *Input) apply(c *domain.Contract) {
	c.Name = domain.CleanText(in.Name)
	c.Vendor = domain.CleanText(in.Vendor)
	c.Status = in.Status
	c.CategoryID = in.CategoryID
	c.StartDate = civil(in.StartDate)
	c.EndDate = civil(in.EndDate)
	c.CancellationPeriod = strings.TrimSpace(in.CancellationPeriod)
	c.ContractType = in.ContractType
	c.RenewalPeriod = in.RenewalPeriod
	c.Cost = in.Cost
	c.Currency = in.Currency
	c.CostInterval = in.CostInterval
	c.ContractFolder = in.ContractFolder
	c.MainDocument = in.MainDocument
	c.ReminderEnabled = in.ReminderEnabled
	c.ReminderDays = in.ReminderDays
	c.Notes = in.Notes
	c.IsPrivate = in.IsPrivate
}

func civil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}

// Query selects a contract list.
type Query struct {
	Archived      bool
	Search        string
	Statuses      []domain.Status
	ContractType  domain.Type
	CategoryID    *int64
	Vendor        string
	SortBy        string
	SortDirection string
	Limit         int
	Offset        int
}

// Service manages contracts.
type Service struct {
	contracts  domain.Repository
	categories domain.CategoryRepository
	documents  DocumentStore
	logger     logging.Logger
	now        func() time.Time
}

// NewService constructs a Service.  documents may be nil when no object
// storage is configured.
func NewService(contracts domain.Repository, categories domain.CategoryRepository, documents DocumentStore, logger logging.Logger) *Service {
	return &Service{
		contracts:  contracts,
		categories: categories,
		documents:  documents,
		logger:     logger,
		now:        time.Now,
	}
}

// Get returns contract id if subject may read it.
func (s *Service) Get(ctx context.Context, subject access.Subject, id int64) (*domain.Contract, error) {
	c, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := subject.CheckRead(c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the untrashed contracts visible to subject.
func (s *Service) List(ctx context.Context, subject access.Subject, q Query) ([]*domain.Contract, error) {
	f := domain.NewListFilter(domain.WithArchived(q.Archived), domain.Matching(strings.TrimSpace(q.Search)))
	if !subject.Admin {
		f.VisibleTo = subject.UserID
	}
	f.Statuses = q.Statuses
	f.ContractType = q.ContractType
	f.CategoryID = q.CategoryID
	f.Vendor = strings.TrimSpace(q.Vendor)
	f.SortBy = q.SortBy
	f.SortDirection = q.SortDirection
	f.Limit = q.Limit
	f.Offset = q.Offset
	return s.contracts.List(ctx, f)
}

// Create stores a new contract owned by subject.
func (s *Service) Create(ctx context.Context, subject access.Subject, in Input) (*domain.Contract, error) {
	if err := subject.CheckCreate(); err != nil {
		return nil, err
	}
	c := &domain.Contract{CreatedBy: subject.UserID}
	in.apply(c)
	c.ApplyDefaults()
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to create contract")
	}
	s.logger.Info("contract created", logging.Int64("contract_id", c.ID), logging.String("user_id", subject.UserID))
	return c, nil
}

// Update replaces the editable fields of contract id.
func (s *Service) Update(ctx context.Context, subject access.Subject, id int64, in Input) (*domain.Contract, error) {
	c, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := subject.CheckWrite(c); err != nil {
		return nil, err
	}
	// Only the owner or an admin may change the privacy flag.
	if in.IsPrivate != c.IsPrivate && !subject.Admin && !c.IsOwnedBy(subject.UserID) {
		return nil, errors.Forbidden(access.ReasonPrivate).WithDetail("isPrivate")
	}
	in.apply(c)
	c.ApplyDefaults()
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to update contract")
	}
	s.logger.Info("contract updated", logging.Int64("contract_id", id), logging.String("user_id", subject.UserID))
	return c, nil
}

// Archive sets the archived flag of contract id.
func (s *Service) Archive(ctx context.Context, subject access.Subject, id int64) (*domain.Contract, error) {
	return s.mutate(ctx, subject, id, func(c *domain.Contract, now time.Time) { c.Archive(now) })
}

// Unarchive clears the archived flag of contract id.
func (s *Service) Unarchive(ctx context.Context, subject access.Subject, id int64) (*domain.Contract, error) {
	return s.mutate(ctx, subject, id, func(c *domain.Contract, now time.Time) { c.Unarchive(now) })
}

func (s *Service) mutate(ctx context.Context, subject access.Subject, id int64, fn func(*domain.Contract, time.Time)) (*domain.Contract, error) {
	c, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := subject.CheckWrite(c); err != nil {
		return nil, err
	}
	fn(c, s.now())
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to save contract")
	}
	return c, nil
}

// DocumentURL returns a short-lived download link for the contract's main
// document.
func (s *Service) DocumentURL(ctx context.Context, subject access.Subject, id int64) (string, error) {
	c, err := s.Get(ctx, subject, id)
	if err != nil {
		return "", err
	}
	if c.MainDocument == nil || *c.MainDocument == "" {
		return "", errors.New(errors.ErrCodeDocumentUnavailable, "contract has no main document")
	}
	if s.documents == nil {
		return "", errors.New(errors.ErrCodeFeatureDisabled, "document storage is not configured")
	}
	url, err := s.documents.PresignedURL(ctx, *c.MainDocument, DefaultDocumentURLExpiry)
	if errors.IsCode(err, errors.ErrCodeDocumentUnavailable) {
		return "", err
	}
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorageError, "failed to presign document")
	}
	return url, nil
}

// validate runs the entity checks and confirms the category exists.
func (s *Service) validate(ctx context.Context, c *domain.Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CategoryID == nil {
		return nil
	}
	if _, err := s.categories.Get(ctx, *c.CategoryID); err != nil {
		if errors.IsCode(err, errors.ErrCodeCategoryNotFound) {
			return errors.NewValidation(map[string]string{"categoryId": "unknown category"})
		}
		return err
	}
	return nil
}

//Personal.AI order the ending
