package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type postgresCategoryRepo struct {
	baseRepo
}

// NewPostgresCategoryRepo returns a contract.CategoryRepository backed by conn.
func NewPostgresCategoryRepo(conn *postgres.Connection, log logging.Logger, opts ...Option) contract.CategoryRepository {
	return &postgresCategoryRepo{baseRepo: newBaseRepo(conn, log, opts)}
}

func (r *postgresCategoryRepo) FindAll(ctx context.Context) (list []*contract.Category, err error) {
	defer r.observe("category_find_all", time.Now(), &err)
	rows, err := r.executor().QueryContext(ctx, `SELECT id, name, sort_order FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list categories")
	}
	defer rows.Close()

	list = make([]*contract.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate categories")
	}
	return list, nil
}

func (r *postgresCategoryRepo) Get(ctx context.Context, id int64) (c *contract.Category, err error) {
	defer r.observe("category_get", time.Now(), &err)
	row := r.executor().QueryRowContext(ctx, `SELECT id, name, sort_order FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

func (r *postgresCategoryRepo) FindByName(ctx context.Context, name string) (c *contract.Category, err error) {
	defer r.observe("category_find_by_name", time.Now(), &err)
	row := r.executor().QueryRowContext(ctx, `SELECT id, name, sort_order FROM categories WHERE name = $1`, name)
	return scanCategory(row)
}

func (r *postgresCategoryRepo) MaxSortOrder(ctx context.Context) (n int, err error) {
	defer r.observe("category_max_sort_order", time.Now(), &err)
	err = r.executor().QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM categories`).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read category sort order")
	}
	return n, nil
}

func (r *postgresCategoryRepo) Save(ctx context.Context, c *contract.Category) (err error) {
	defer r.observe("category_save", time.Now(), &err)
	if c.ID == 0 {
		err = r.executor().QueryRowContext(ctx,
			`INSERT INTO categories (name, sort_order) VALUES ($1, $2) RETURNING id`,
			c.Name, c.SortOrder,
		).Scan(&c.ID)
		return categoryWriteError(err)
	}

	res, err := r.executor().ExecContext(ctx,
		`UPDATE categories SET name = $1, sort_order = $2 WHERE id = $3`,
		c.Name, c.SortOrder, c.ID,
	)
	if err != nil {
		return categoryWriteError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeCategoryNotFound, "category not found")
	}
	return nil
}

func (r *postgresCategoryRepo) Delete(ctx context.Context, id int64) (err error) {
	defer r.observe("category_delete", time.Now(), &err)
	res, err := r.executor().ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeCategoryNotFound, "category not found")
	}
	return nil
}

func categoryWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return errors.New(errors.ErrCodeCategoryExists, "category already exists")
	default:
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save category")
	}
}

func scanCategory(row scanner) (*contract.Category, error) {
	c := &contract.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeCategoryNotFound, "category not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan category")
	}
	return c, nil
}

//Personal.AI order the ending
