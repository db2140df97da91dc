package repositories

import (
	"context"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type postgresReminderLedger struct {
	baseRepo
}

// NewPostgresReminderLedger returns a reminder.Ledger over the reminder_sent
// table.  Its unique constraint on (contract_id, reminder_type) turns a
// concurrent duplicate insert into reminder.ErrAlreadySent.
func NewPostgresReminderLedger(conn *postgres.Connection, log logging.Logger, opts ...Option) reminder.Ledger {
	return &postgresReminderLedger{baseRepo: newBaseRepo(conn, log, opts)}
}

func (r *postgresReminderLedger) HasBeenSent(ctx context.Context, contractID int64, reminderType string) (sent bool, err error) {
	defer r.observe("reminder_has_been_sent", time.Now(), &err)
	query := `SELECT EXISTS(SELECT 1 FROM reminder_sent WHERE contract_id = $1 AND reminder_type = $2)`
	if err = r.executor().QueryRowContext(ctx, query, contractID, reminderType).Scan(&sent); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check reminder ledger")
	}
	return sent, nil
}

func (r *postgresReminderLedger) RecordSent(ctx context.Context, rec *reminder.Sent) (err error) {
	defer r.observe("reminder_record_sent", time.Now(), &err)
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	query := `
		INSERT INTO reminder_sent (contract_id, reminder_type, sent_at, sent_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err = r.executor().QueryRowContext(ctx, query, rec.ContractID, rec.ReminderType, rec.SentAt, rec.SentTo).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err) {
			r.log.Debug("reminder already recorded",
				logging.Int64("contract_id", rec.ContractID),
				logging.String("reminder_type", rec.ReminderType))
			return reminder.ErrAlreadySent
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record reminder")
	}
	return nil
}

func (r *postgresReminderLedger) DeleteForContract(ctx context.Context, contractID int64) (err error) {
	defer r.observe("reminder_delete_for_contract", time.Now(), &err)
	if _, err = r.executor().ExecContext(ctx, `DELETE FROM reminder_sent WHERE contract_id = $1`, contractID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete reminder ledger rows")
	}
	return nil
}

func (r *postgresReminderLedger) ListForContract(ctx context.Context, contractID int64) (list []*reminder.Sent, err error) {
	defer r.observe("reminder_list_for_contract", time.Now(), &err)
	query := `
		SELECT id, contract_id, reminder_type, sent_at, sent_to
		FROM reminder_sent
		WHERE contract_id = $1
		ORDER BY sent_at, id
	`
	rows, err := r.executor().QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list reminder ledger")
	}
	defer rows.Close()

	list = make([]*reminder.Sent, 0)
	for rows.Next() {
		s := &reminder.Sent{}
		if err := rows.Scan(&s.ID, &s.ContractID, &s.ReminderType, &s.SentAt, &s.SentTo); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan reminder ledger row")
		}
		s.SentAt = s.SentAt.UTC()
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate reminder ledger")
	}
	return list, nil
}

//Personal.AI order the ending
