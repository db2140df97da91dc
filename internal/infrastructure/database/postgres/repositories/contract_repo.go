package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

const contractColumns = `id, name, vendor, status, category_id, start_date, end_date,
	cancellation_period, contract_type, renewal_period, cost, currency, cost_interval,
	contract_folder, main_document, reminder_enabled, reminder_days, notes, archived,
	is_private, deleted_at, created_by, created_at, updated_at`

// sortColumns maps the API sort keys onto SQL expressions.
var sortColumns = map[string]string{
	"endDate":   "end_date",
	"name":      "LOWER(name)",
	"updatedAt": "updated_at",
	"cost":      "cost",
}

type postgresContractRepo struct {
	baseRepo
}

// NewPostgresContractRepo returns a contract.Repository backed by conn.
func NewPostgresContractRepo(conn *postgres.Connection, log logging.Logger, opts ...Option) contract.Repository {
	return &postgresContractRepo{baseRepo: newBaseRepo(conn, log, opts)}
}

func (r *postgresContractRepo) Get(ctx context.Context, id int64) (c *contract.Contract, err error) {
	defer r.observe("contract_get", time.Now(), &err)
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	return scanContract(r.executor().QueryRowContext(ctx, query, id))
}

func (r *postgresContractRepo) Save(ctx context.Context, c *contract.Contract) error {
	if c.ID == 0 {
		return r.insert(ctx, c)
	}
	return r.update(ctx, c)
}

func (r *postgresContractRepo) insert(ctx context.Context, c *contract.Contract) (err error) {
	defer r.observe("contract_insert", time.Now(), &err)
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	query := `
		INSERT INTO contracts (
			name, vendor, status, category_id, start_date, end_date,
			cancellation_period, contract_type, renewal_period, cost, currency, cost_interval,
			contract_folder, main_document, reminder_enabled, reminder_days, notes, archived,
			is_private, deleted_at, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id
	`
	err = r.executor().QueryRowContext(ctx, query,
		c.Name, c.Vendor, c.Status, nullable(c.CategoryID), dateParam(c.StartDate), dateParam(c.EndDate),
		c.CancellationPeriod, c.ContractType, nullString(c.RenewalPeriod), nullString(c.Cost), c.Currency, nullString(c.CostInterval),
		nullString(c.ContractFolder), nullString(c.MainDocument), c.ReminderEnabled, nullable(c.ReminderDays), nullString(c.Notes), c.Archived,
		c.IsPrivate, nullable(c.DeletedAt), c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert contract")
	}
	return nil
}

func (r *postgresContractRepo) update(ctx context.Context, c *contract.Contract) (err error) {
	defer r.observe("contract_update", time.Now(), &err)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE contracts SET
			name = $1, vendor = $2, status = $3, category_id = $4, start_date = $5, end_date = $6,
			cancellation_period = $7, contract_type = $8, renewal_period = $9, cost = $10,
			currency = $11, cost_interval = $12, contract_folder = $13, main_document = $14,
			reminder_enabled = $15, reminder_days = $16, notes = $17, archived = $18,
			is_private = $19, deleted_at = $20, updated_at = $21
		WHERE id = $22
	`
	res, err := r.executor().ExecContext(ctx, query,
		c.Name, c.Vendor, c.Status, nullable(c.CategoryID), dateParam(c.StartDate), dateParam(c.EndDate),
		c.CancellationPeriod, c.ContractType, nullString(c.RenewalPeriod), nullString(c.Cost),
		c.Currency, nullString(c.CostInterval), nullString(c.ContractFolder), nullString(c.MainDocument),
		c.ReminderEnabled, nullable(c.ReminderDays), nullString(c.Notes), c.Archived,
		c.IsPrivate, nullable(c.DeletedAt), c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update contract")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeContractNotFound, "contract not found")
	}
	return nil
}

func (r *postgresContractRepo) Delete(ctx context.Context, c *contract.Contract) (err error) {
	defer r.observe("contract_delete", time.Now(), &err)
	res, err := r.executor().ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, c.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete contract")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeContractNotFound, "contract not found")
	}
	return nil
}

func (r *postgresContractRepo) List(ctx context.Context, f contract.ListFilter) (list []*contract.Contract, err error) {
	defer r.observe("contract_list", time.Now(), &err)
	query, args := buildListQuery(f)
	return r.query(ctx, query, args...)
}

func (r *postgresContractRepo) FindCandidatesForReminder(ctx context.Context) (list []*contract.Contract, err error) {
	defer r.observe("contract_reminder_candidates", time.Now(), &err)
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE status = 'active'
		  AND reminder_enabled
		  AND NOT archived
		  AND deleted_at IS NULL
		  AND end_date IS NOT NULL
		  AND cancellation_period <> ''
		ORDER BY id`
	return r.query(ctx, query)
}

func (r *postgresContractRepo) FindExpiredTrash(ctx context.Context, cutoff time.Time, excludeOwners []string) (list []*contract.Contract, err error) {
	defer r.observe("contract_expired_trash", time.Now(), &err)
	if excludeOwners == nil {
		// A NULL array would make the NOT ANY predicate NULL for every row.
		excludeOwners = []string{}
	}
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE deleted_at IS NOT NULL
		  AND deleted_at < $1
		  AND NOT (created_by = ANY($2))
		ORDER BY deleted_at, id`
	return r.query(ctx, query, cutoff.UTC(), pq.Array(excludeOwners))
}

func (r *postgresContractRepo) query(ctx context.Context, query string, args ...interface{}) ([]*contract.Contract, error) {
	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query contracts")
	}
	defer rows.Close()

	out := make([]*contract.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate contracts")
	}
	return out, nil
}

// buildListQuery translates f into SQL.  The predicates mirror
// contract.ListFilter.Matches.
func buildListQuery(f contract.ListFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch f.Trash {
	case contract.ExcludeTrashed:
		where = append(where, "deleted_at IS NULL")
	case contract.OnlyTrashed:
		where = append(where, "deleted_at IS NOT NULL")
	}
	if f.Archived != nil {
		where = append(where, "archived = "+arg(*f.Archived))
	}
	if f.VisibleTo != "" {
		where = append(where, "(NOT is_private OR created_by = "+arg(f.VisibleTo)+")")
	}
	if f.CreatedBy != "" {
		where = append(where, "created_by = "+arg(f.CreatedBy))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	if f.ContractType != "" {
		where = append(where, "contract_type = "+arg(string(f.ContractType)))
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = "+arg(*f.CategoryID))
	}
	if f.Vendor != "" {
		where = append(where, "vendor ILIKE "+arg(likePattern(f.Vendor)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg(likePattern(q))
		where = append(where, "(name ILIKE "+p+" OR vendor ILIKE "+p+" OR COALESCE(notes, '') ILIKE "+p+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + contractColumns + " FROM contracts")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = sortColumns["endDate"]
	}
	direction := "ASC"
	if strings.EqualFold(f.SortDirection, "desc") {
		direction = "DESC"
	}
	b.WriteString(fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id ASC", column, direction))

	if f.Limit > 0 {
		b.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		b.WriteString(" OFFSET " + arg(f.Offset))
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanContract(row scanner) (*contract.Contract, error) {
	var (
		c                                        contract.Contract
		categoryID                               sql.NullInt64
		startDate, endDate, deletedAt            sql.NullTime
		renewal, cost, costInterval, folder, doc sql.NullString
		notes                                    sql.NullString
		reminderDays                             sql.NullInt32
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Vendor, &c.Status, &categoryID, &startDate, &endDate,
		&c.CancellationPeriod, &c.ContractType, &renewal, &cost, &c.Currency, &costInterval,
		&folder, &doc, &c.ReminderEnabled, &reminderDays, &notes, &c.Archived,
		&c.IsPrivate, &deletedAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeContractNotFound, "contract not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan contract")
	}

	if categoryID.Valid {
		id := categoryID.Int64
		c.CategoryID = &id
	}
	c.StartDate = civilDate(startDate)
	c.EndDate = civilDate(endDate)
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		c.DeletedAt = &t
	}
	c.RenewalPeriod = stringPtr(renewal)
	c.Cost = stringPtr(cost)
	c.CostInterval = stringPtr(costInterval)
	c.ContractFolder = stringPtr(folder)
	c.MainDocument = stringPtr(doc)
	c.Notes = stringPtr(notes)
	if reminderDays.Valid {
		d := int(reminderDays.Int32)
		c.ReminderDays = &d
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// dateParam sends a civil date as text so the session time zone cannot shift
// it by a day.
func dateParam(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func civilDate(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	d := contract.DateOf(nt.Time)
	return &d
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

//Personal.AI order the ending
