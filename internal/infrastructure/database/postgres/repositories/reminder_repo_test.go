package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

func newLedger(t *testing.T) (reminder.Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	logger := logging.NewNopLogger()
	return NewPostgresReminderLedger(postgres.NewConnectionWithDB(db, logger), logger), mock
}

func TestReminderLedger_HasBeenSent(t *testing.T) {
	ledger, mock := newLedger(t)
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM reminder_sent WHERE contract_id = \$1 AND reminder_type = \$2\)`).
		WithArgs(int64(7), "cancellation_2026-06-30_first").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	sent, err := ledger.HasBeenSent(context.Background(), 7, "cancellation_2026-06-30_first")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestReminderLedger_RecordSent(t *testing.T) {
	ledger, mock := newLedger(t)
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO reminder_sent").
		WithArgs(int64(7), "cancellation_2026-06-30_first", at, "alice").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	rec := &reminder.Sent{ContractID: 7, ReminderType: "cancellation_2026-06-30_first", SentAt: at, SentTo: "alice"}
	require.NoError(t, ledger.RecordSent(context.Background(), rec))
	assert.Equal(t, int64(11), rec.ID)
}

func TestReminderLedger_RecordSent_UniqueViolationIsAlreadySent(t *testing.T) {
	ledger, mock := newLedger(t)
	mock.ExpectQuery("INSERT INTO reminder_sent").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_reminder_sent_contract_type"})

	err := ledger.RecordSent(context.Background(), &reminder.Sent{ContractID: 7, ReminderType: "x", SentAt: time.Now()})
	assert.True(t, reminder.IsAlreadySent(err))
}

func TestReminderLedger_RecordSent_OtherErrors(t *testing.T) {
	ledger, mock := newLedger(t)
	mock.ExpectQuery("INSERT INTO reminder_sent").
		WillReturnError(&pq.Error{Code: "23503"})

	err := ledger.RecordSent(context.Background(), &reminder.Sent{ContractID: 7, ReminderType: "x", SentAt: time.Now()})
	assert.False(t, reminder.IsAlreadySent(err))
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestReminderLedger_DeleteAndList(t *testing.T) {
	ledger, mock := newLedger(t)
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM reminder_sent\s+WHERE contract_id = \$1\s+ORDER BY sent_at, id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "contract_id", "reminder_type", "sent_at", "sent_to"}).
			AddRow(int64(1), int64(7), "cancellation_2026-06-30_first", at, "alice").
			AddRow(int64(2), int64(7), "cancellation_2026-06-30_final", at.Add(24*time.Hour), "alice"))
	mock.ExpectExec(`DELETE FROM reminder_sent WHERE contract_id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rows, err := ledger.ListForContract(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cancellation_2026-06-30_final", rows[1].ReminderType)

	assert.NoError(t, ledger.DeleteForContract(context.Background(), 7))
}

//Personal.AI order the ending
