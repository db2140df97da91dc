package trash

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/testutil"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, msg *common.ProducerMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockProducer) PublishBatch(ctx context.Context, msgs []*common.ProducerMessage) (*common.BatchPublishResult, error) {
	args := m.Called(ctx, msgs)
	res, _ := args.Get(0).(*common.BatchPublishResult)
	return res, args.Error(1)
}

type TrashServiceSuite struct {
	suite.Suite
	ctx    context.Context
	now    time.Time
	repo   *testutil.MemoryContractRepo
	ledger *testutil.MemoryLedger
	dir    *testutil.StaticDirectory
	logger *testutil.MockLogger
	svc    *Service

	admin  access.Subject
	owner  access.Subject
	editor access.Subject
}

func (s *TrashServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	s.repo = testutil.NewMemoryContractRepo()
	s.ledger = testutil.NewMemoryLedger()
	s.dir = &testutil.StaticDirectory{
		Admins: []string{"root"},
		Groups: map[string][]string{"admin": {"root"}},
	}
	s.logger = testutil.NewMockLogger()
	s.svc = NewService(s.repo, s.ledger, s.dir, s.logger)

	s.admin = access.Subject{UserID: "root", Admin: true}
	s.owner = access.Subject{UserID: "alice", Editor: true}
	s.editor = access.Subject{UserID: "bob", Editor: true}
}

func TestTrashServiceSuite(t *testing.T) {
	suite.Run(t, new(TrashServiceSuite))
}

func (s *TrashServiceSuite) seed(owner string, deletedAgo time.Duration) *contract.Contract {
	c := &contract.Contract{
		Name:         "Contract of " + owner,
		Vendor:       "ACME",
		Status:       contract.StatusActive,
		ContractType: contract.TypeFixed,
		CreatedBy:    owner,
	}
	if deletedAgo > 0 {
		c.SoftDelete(s.now.Add(-deletedAgo))
	}
	s.repo.Seed(c)
	return c
}

func (s *TrashServiceSuite) addLedgerRow(contractID int64, reminderType string) {
	s.Require().NoError(s.ledger.RecordSent(s.ctx, &reminder.Sent{
		ContractID: contractID, ReminderType: reminderType, SentAt: s.now, SentTo: "alice",
	}))
}

func (s *TrashServiceSuite) TestSoftDeleteAndRestore() {
	c := s.seed("alice", 0)
	c.Archived = true
	s.Require().NoError(s.repo.Save(s.ctx, c))

	deleted, err := s.svc.SoftDelete(s.ctx, s.editor, c.ID, s.now)
	s.Require().NoError(err)
	s.True(deleted.IsTrashed())
	s.True(deleted.Archived)

	_, err = s.svc.RestoreFromTrash(s.ctx, s.editor, c.ID, s.now)
	s.True(errors.IsForbidden(err), "editors cannot restore someone else's contract")

	restored, err := s.svc.RestoreFromTrash(s.ctx, s.owner, c.ID, s.now)
	s.Require().NoError(err)
	s.False(restored.IsTrashed())
	s.True(restored.Archived)

	_, err = s.svc.RestoreFromTrash(s.ctx, s.owner, c.ID, s.now)
	s.True(errors.IsCode(err, errors.ErrCodeContractNotInTrash))
}

func (s *TrashServiceSuite) TestSoftDelete_RequiresEdit() {
	c := s.seed("alice", 0)
	_, err := s.svc.SoftDelete(s.ctx, access.Subject{UserID: "vic", Viewer: true}, c.ID, s.now)
	s.True(errors.IsForbidden(err))

	stored, err := s.repo.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.False(stored.IsTrashed())
}

func (s *TrashServiceSuite) TestSoftDelete_NotFound() {
	_, err := s.svc.SoftDelete(s.ctx, s.admin, 404, s.now)
	s.True(errors.IsCode(err, errors.ErrCodeContractNotFound))
}

func (s *TrashServiceSuite) TestList_AdminSeesAllOthersOwn() {
	s.seed("alice", time.Hour)
	s.seed("bob", time.Hour)
	s.seed("alice", 0)

	all, err := s.svc.List(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Len(all, 2)

	own, err := s.svc.List(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal("alice", own[0].CreatedBy)
}

func (s *TrashServiceSuite) TestPurge_RemovesLedgerRows() {
	c := s.seed("alice", time.Hour)
	other := s.seed("bob", 0)
	s.addLedgerRow(c.ID, "cancellation_2026-06-30_first")
	s.addLedgerRow(c.ID, "cancellation_2026-06-30_final")
	s.addLedgerRow(other.ID, "cancellation_2026-06-30_first")

	s.Require().NoError(s.svc.Purge(s.ctx, s.admin, c.ID, s.now))

	_, err := s.repo.Get(s.ctx, c.ID)
	s.True(errors.IsNotFound(err) || errors.IsCode(err, errors.ErrCodeContractNotFound))
	rows, err := s.ledger.ListForContract(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(rows)
	s.Equal(1, s.ledger.Len())
}

func (s *TrashServiceSuite) TestPurge_FailedDeleteKeepsLedgerRows() {
	c := s.seed("alice", time.Hour)
	s.addLedgerRow(c.ID, "cancellation_2026-06-30_first")
	s.repo.FailDelete[c.ID] = stderrors.New("lock timeout")

	err := s.svc.Purge(s.ctx, s.admin, c.ID, s.now)
	s.Require().Error(err)

	_, err = s.repo.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	sent, err := s.ledger.HasBeenSent(s.ctx, c.ID, "cancellation_2026-06-30_first")
	s.Require().NoError(err)
	s.True(sent, "restoring the contract must not resend the first reminder")
}

func (s *TrashServiceSuite) TestPurge_AdminOnlyAndTrashedOnly() {
	c := s.seed("alice", 0)
	s.True(errors.IsForbidden(s.svc.Purge(s.ctx, s.owner, c.ID, s.now)))
	s.True(errors.IsCode(s.svc.Purge(s.ctx, s.admin, c.ID, s.now), errors.ErrCodeContractNotInTrash))
	s.Equal(1, s.repo.Len())
}

func (s *TrashServiceSuite) TestEmptyTrash_ReturnsCount() {
	s.seed("alice", time.Hour)
	s.seed("bob", 48*time.Hour)
	s.seed("root", time.Minute)
	s.seed("alice", 0)

	n, err := s.svc.EmptyTrash(s.ctx, s.admin, s.now)
	s.Require().NoError(err)
	s.Equal(3, n)

	left, err := s.svc.List(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Empty(left)
	s.Equal(1, s.repo.Len())
}

func (s *TrashServiceSuite) TestEmptyTrash_RequiresAdmin() {
	s.seed("alice", time.Hour)
	_, err := s.svc.EmptyTrash(s.ctx, s.owner, s.now)
	s.True(errors.IsForbidden(err))
	s.Equal(1, s.repo.Len())
}

func (s *TrashServiceSuite) TestEmptyTrash_IsolatesFailures() {
	bad := s.seed("alice", time.Hour)
	s.seed("bob", time.Hour)
	s.repo.FailDelete[bad.ID] = stderrors.New("lock timeout")

	n, err := s.svc.EmptyTrash(s.ctx, s.admin, s.now)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.True(s.logger.HasMessage("error", "failed to purge contract"))
}

func (s *TrashServiceSuite) TestRunExpirySweep_ExemptsAdmins() {
	old := s.seed("alice", 31*24*time.Hour)
	adminOld := s.seed("root", 400*24*time.Hour)
	recent := s.seed("bob", 29*24*time.Hour)
	active := s.seed("carol", 0)

	n, err := s.svc.RunExpirySweep(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.repo.Get(s.ctx, old.ID)
	s.Error(err)
	for _, id := range []int64{adminOld.ID, recent.ID, active.ID} {
		_, err := s.repo.Get(s.ctx, id)
		s.NoError(err)
	}
}

func (s *TrashServiceSuite) TestRunExpirySweep_AdminGroupIsReadEachRun() {
	c := s.seed("alice", 60*24*time.Hour)
	s.dir.Groups["admin"] = []string{"root", "alice"}

	n, err := s.svc.RunExpirySweep(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(0, n)

	s.dir.Groups["admin"] = []string{"root"}
	n, err = s.svc.RunExpirySweep(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, n)
	_, err = s.repo.Get(s.ctx, c.ID)
	s.Error(err)
}

func (s *TrashServiceSuite) TestRunExpirySweep_CustomRetention() {
	s.seed("alice", 8*24*time.Hour)
	svc := NewService(s.repo, s.ledger, s.dir, s.logger,
		WithConfig(Config{AdminGroup: "admin", Retention: 7 * 24 * time.Hour}))

	n, err := svc.RunExpirySweep(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *TrashServiceSuite) TestPurge_PublishesEvent() {
	c := s.seed("alice", time.Hour)
	producer := &mockProducer{}
	producer.On("Publish", mock.Anything, mock.MatchedBy(func(m *common.ProducerMessage) bool {
		return m.Topic == common.TopicTrashPurged
	})).Return(nil).Once()
	svc := NewService(s.repo, s.ledger, s.dir, s.logger, WithProducer(producer))

	s.Require().NoError(svc.Purge(s.ctx, s.admin, c.ID, s.now))
	producer.AssertExpectations(s.T())

	msg := producer.Calls[0].Arguments.Get(1).(*common.ProducerMessage)
	var ev PurgedEvent
	s.Require().NoError(json.Unmarshal(msg.Value, &ev))
	s.Equal(c.ID, ev.ContractID)
	s.Equal(ReasonManual, ev.Reason)
}

func (s *TrashServiceSuite) TestEmptyTrash_PublishesOneBatch() {
	a := s.seed("alice", time.Hour)
	b := s.seed("bob", time.Hour)
	producer := &mockProducer{}
	producer.On("PublishBatch", mock.Anything, mock.MatchedBy(func(msgs []*common.ProducerMessage) bool {
		return len(msgs) == 2
	})).Return(&common.BatchPublishResult{Succeeded: 1, Failed: 1, Errors: []common.BatchItemError{{Index: 1, Error: "leader not available"}}}, nil).Once()
	svc := NewService(s.repo, s.ledger, s.dir, s.logger, WithProducer(producer))

	n, err := svc.EmptyTrash(s.ctx, s.admin, s.now)
	s.Require().NoError(err)
	s.Equal(2, n)
	producer.AssertExpectations(s.T())
	producer.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything)

	msgs := producer.Calls[0].Arguments.Get(1).([]*common.ProducerMessage)
	ids := map[string]bool{}
	for _, m := range msgs {
		var ev PurgedEvent
		s.Require().NoError(json.Unmarshal(m.Value, &ev))
		s.Equal(ReasonEmpty, ev.Reason)
		ids[string(m.Key)] = true
	}
	s.True(ids[strconv.FormatInt(a.ID, 10)])
	s.True(ids[strconv.FormatInt(b.ID, 10)])
	s.True(s.logger.HasMessage("warn", "failed to publish purge event"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "admin", cfg.AdminGroup)
	require.Equal(t, 30*24*time.Hour, cfg.Retention)
}

//Personal.AI order the ending
