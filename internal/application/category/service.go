// Package category manages contract categories.
package category

import (
	"context"
	"unicode/utf8"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// MaxNameLength bounds category names.
const MaxNameLength = 100

// Service manages categories.
type Service struct {
	repo   contract.CategoryRepository
	logger logging.Logger
}

// NewService constructs a Service.
func NewService(repo contract.CategoryRepository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns all categories ordered by sort order.  The defaults are
// seeded the first time the list is empty.
func (s *Service) List(ctx context.Context) ([]*contract.Category, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return all, nil
	}

	for i, name := range contract.DefaultCategories {
		c := &contract.Category{Name: name, SortOrder: i + 1}
		if err := s.repo.Save(ctx, c); err != nil && !errors.IsCode(err, errors.ErrCodeCategoryExists) {
			return nil, errors.Wrap(err, errors.CodeUnknown, "failed to seed default categories")
		}
	}
	s.logger.Info("default categories seeded", logging.Int("count", len(contract.DefaultCategories)))
	return s.repo.FindAll(ctx)
}

// Get returns category id.
func (s *Service) Get(ctx context.Context, id int64) (*contract.Category, error) {
	return s.repo.Get(ctx, id)
}

// Create appends a category after the current last one.
func (s *Service) Create(ctx context.Context, subject access.Subject, name string) (*contract.Category, error) {
	if err := subject.CheckCreate(); err != nil {
		return nil, err
	}
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	last, err := s.repo.MaxSortOrder(ctx)
	if err != nil {
		return nil, err
	}
	c := &contract.Category{Name: name, SortOrder: last + 1}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, conflict(err, name)
	}
	s.logger.Info("category created", logging.Int64("category_id", c.ID), logging.String("name", name))
	return c, nil
}

// Rename changes the name of category id.
func (s *Service) Rename(ctx context.Context, subject access.Subject, id int64, name string) (*contract.Category, error) {
	if err := subject.CheckCreate(); err != nil {
		return nil, err
	}
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, conflict(err, name)
	}
	return c, nil
}

// Delete removes category id.  Contracts referencing it lose their category.
func (s *Service) Delete(ctx context.Context, subject access.Subject, id int64) error {
	if err := subject.CheckCreate(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category deleted", logging.Int64("category_id", id))
	return nil
}

func validName(name string) (string, error) {
	name = contract.CleanText(name)
	switch {
	case name == "":
		return "", errors.NewValidation(map[string]string{"name": "name is required"})
	case utf8.RuneCountInString(name) > MaxNameLength:
		return "", errors.NewValidation(map[string]string{"name": "name is too long"})
	}
	return name, nil
}

// conflict maps a duplicate name to COMMON_006.
func conflict(err error, name string) error {
	if errors.IsCode(err, errors.ErrCodeCategoryExists) {
		return errors.Conflict("category already exists").WithDetail(name)
	}
	return err
}

//Personal.AI order the ending
