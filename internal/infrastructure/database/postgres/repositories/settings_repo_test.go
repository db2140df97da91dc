package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ContractKeeper/internal/domain/settings"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type SettingsStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	conn  *postgres.Connection
	store settings.Store
}

func (s *SettingsStoreSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.conn = postgres.NewConnectionWithDB(s.db, logging.NewNopLogger())
	s.store = NewPostgresSettingsStore(s.conn, logging.NewNopLogger())
}

func (s *SettingsStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *SettingsStoreSuite) TestGetGlobal_Stored() {
	s.mock.ExpectQuery(`SELECT value FROM app_settings WHERE key = \$1`).
		WithArgs("reminder_days_1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("21"))

	v, err := s.store.GetGlobal(context.Background(), "reminder_days_1", "14")
	s.Require().NoError(err)
	s.Equal("21", v)
}

func (s *SettingsStoreSuite) TestGetGlobal_MissingReturnsDefault() {
	s.mock.ExpectQuery(`SELECT value FROM app_settings`).
		WithArgs("reminder_days_2").
		WillReturnError(sql.ErrNoRows)

	v, err := s.store.GetGlobal(context.Background(), "reminder_days_2", "3")
	s.Require().NoError(err)
	s.Equal("3", v)
}

func (s *SettingsStoreSuite) TestGetUser_DatabaseError() {
	s.mock.ExpectQuery(`SELECT value FROM user_settings WHERE user_id = \$1 AND key = \$2`).
		WithArgs("alice", "email_reminder").
		WillReturnError(stderrors.New("connection refused"))

	_, err := s.store.GetUser(context.Background(), "alice", "email_reminder", "false")
	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func (s *SettingsStoreSuite) TestSetGlobal_Upserts() {
	s.mock.ExpectExec(`INSERT INTO app_settings .* ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("editors", `["group:legal"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.store.SetGlobal(context.Background(), "editors", `["group:legal"]`))
}

func (s *SettingsStoreSuite) TestSetUser_Error() {
	s.mock.ExpectExec(`INSERT INTO user_settings`).
		WithArgs("alice", "sort_by", "cost").
		WillReturnError(stderrors.New("disk full"))

	err := s.store.SetUser(context.Background(), "alice", "sort_by", "cost")
	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func (s *SettingsStoreSuite) TestWithTx_UsesTransaction() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO user_settings`).
		WithArgs("bob", "filters", "{}").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	tx, err := s.db.Begin()
	s.Require().NoError(err)
	store := NewPostgresSettingsStore(s.conn, logging.NewNopLogger(), WithTx(tx))
	s.Require().NoError(store.SetUser(context.Background(), "bob", "filters", "{}"))
	s.NoError(tx.Commit())
}

func TestSettingsStoreSuite(t *testing.T) {
	suite.Run(t, new(SettingsStoreSuite))
}

//Personal.AI order the ending
