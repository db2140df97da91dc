package reminder

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
)

// memLedger is an in-memory Ledger keyed on (contract, type).
type memLedger struct {
	rows   map[int64]map[string]*Sent
	nextID int64
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[int64]map[string]*Sent{}}
}

func (l *memLedger) HasBeenSent(_ context.Context, contractID int64, reminderType string) (bool, error) {
	_, ok := l.rows[contractID][reminderType]
	return ok, nil
}

func (l *memLedger) RecordSent(_ context.Context, rec *Sent) error {
	if l.rows[rec.ContractID] == nil {
		l.rows[rec.ContractID] = map[string]*Sent{}
	}
	if _, ok := l.rows[rec.ContractID][rec.ReminderType]; ok {
		return ErrAlreadySent
	}
	l.nextID++
	rec.ID = l.nextID
	l.rows[rec.ContractID][rec.ReminderType] = rec
	return nil
}

func (l *memLedger) DeleteForContract(_ context.Context, contractID int64) error {
	delete(l.rows, contractID)
	return nil
}

func (l *memLedger) ListForContract(_ context.Context, contractID int64) ([]*Sent, error) {
	var out []*Sent
	for _, r := range l.rows[contractID] {
		out = append(out, r)
	}
	return out, nil
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) HasBeenSent(ctx context.Context, contractID int64, reminderType string) (bool, error) {
	args := m.Called(ctx, contractID, reminderType)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) RecordSent(ctx context.Context, rec *Sent) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockLedger) DeleteForContract(ctx context.Context, contractID int64) error {
	return m.Called(ctx, contractID).Error(0)
}

func (m *mockLedger) ListForContract(ctx context.Context, contractID int64) ([]*Sent, error) {
	args := m.Called(ctx, contractID)
	if v := args.Get(0); v != nil {
		return v.([]*Sent), args.Error(1)
	}
	return nil, args.Error(1)
}

func date(y int, m time.Month, d int) *time.Time {
	t := contract.Date(y, m, d)
	return &t
}

func candidate() *contract.Contract {
	return &contract.Contract{
		ID:                 1,
		Name:               "Office Lease",
		Vendor:             "ACME",
		Status:             contract.StatusActive,
		EndDate:            date(2026, 6, 30),
		CancellationPeriod: "1 month",
		ReminderEnabled:    true,
		CreatedBy:          "alice",
	}
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

// ─────────────────────────────────────────────────────────────────────────────
// Candidate predicate and keys
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCandidate(t *testing.T) {
	assert.True(t, IsCandidate(candidate()))
	assert.False(t, IsCandidate(nil))

	cases := map[string]func(c *contract.Contract){
		"cancelled":   func(c *contract.Contract) { c.Status = contract.StatusCancelled },
		"ended":       func(c *contract.Contract) { c.Status = contract.StatusEnded },
		"disabled":    func(c *contract.Contract) { c.ReminderEnabled = false },
		"archived":    func(c *contract.Contract) { c.Archived = true },
		"trashed":     func(c *contract.Contract) { c.SoftDelete(time.Now()) },
		"no end date": func(c *contract.Contract) { c.EndDate = nil },
		"no period":   func(c *contract.Contract) { c.CancellationPeriod = "" },
	}
	for name, mutate := range cases {
		c := candidate()
		mutate(c)
		assert.False(t, IsCandidate(c), name)
	}
}

func TestReminderType(t *testing.T) {
	c := candidate()
	assert.Equal(t, "cancellation_2026-06-30_first", ReminderType(c, StageFirst))
	assert.Equal(t, "cancellation_2026-06-30_final", ReminderType(c, StageFinal))

	c.EndDate = nil
	assert.Equal(t, "cancellation_unknown_first", ReminderType(c, StageFirst))
}

func TestLeadDays(t *testing.T) {
	s := Settings{Days1: 14, Days2: 3}
	c := candidate()
	assert.Equal(t, 14, LeadDays(c, StageFirst, s))
	assert.Equal(t, 3, LeadDays(c, StageFinal, s))

	days := 30
	c.ReminderDays = &days
	assert.Equal(t, 30, LeadDays(c, StageFirst, s))
	assert.Equal(t, 3, LeadDays(c, StageFinal, s), "final stage has no per-contract override")
}

func TestWindow(t *testing.T) {
	from, deadline, ok := Window(candidate(), StageFirst, DefaultSettings())
	require.True(t, ok)
	assert.Equal(t, contract.Date(2026, 5, 16), from)
	assert.Equal(t, contract.Date(2026, 5, 30), deadline)

	c := candidate()
	c.CancellationPeriod = "whenever"
	_, _, ok = Window(c, StageFirst, DefaultSettings())
	assert.False(t, ok)
}

// ─────────────────────────────────────────────────────────────────────────────
// Window boundaries
// ─────────────────────────────────────────────────────────────────────────────

func TestShouldSendFirst_Boundaries(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemLedger())
	s := DefaultSettings()
	c := candidate()

	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(2026, 5, 15, 23), false},
		{at(2026, 5, 16, 0), true},
		{at(2026, 5, 16, 18), true},
		{at(2026, 5, 23, 9), true},
		{at(2026, 5, 30, 0), true},
		{at(2026, 5, 30, 23), true},
		{at(2026, 5, 31, 0), false},
	}
	for _, tc := range cases {
		got, err := e.ShouldSendFirst(ctx, c, s, tc.now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.now.String())
	}
}

func TestShouldSendFinal_UsesGlobalDays(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemLedger())
	s := Settings{Days1: 14, Days2: 3}
	c := candidate()
	days := 40
	c.ReminderDays = &days

	got, err := e.ShouldSendFinal(ctx, c, s, at(2026, 5, 26, 12))
	require.NoError(t, err)
	assert.False(t, got)

	got, err = e.ShouldSendFinal(ctx, c, s, at(2026, 5, 27, 12))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = e.ShouldSendFirst(ctx, c, s, at(2026, 4, 20, 12))
	require.NoError(t, err)
	assert.True(t, got, "override widens the first window")
}

func TestBothStagesDueNearDeadline(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(newMemLedger())
	now := at(2026, 5, 29, 8)

	first, err := e.ShouldSendFirst(ctx, candidate(), DefaultSettings(), now)
	require.NoError(t, err)
	final, err := e.ShouldSendFinal(ctx, candidate(), DefaultSettings(), now)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, final)
}

func TestShouldSend_NotCandidateSkipsLedger(t *testing.T) {
	ledger := new(mockLedger)
	e := NewEngine(ledger)
	c := candidate()
	c.Archived = true

	got, err := e.ShouldSendFirst(context.Background(), c, DefaultSettings(), at(2026, 5, 20, 0))
	require.NoError(t, err)
	assert.False(t, got)

	got, err = e.ShouldSendFirst(context.Background(), candidate(), DefaultSettings(), at(2026, 1, 1, 0))
	require.NoError(t, err)
	assert.False(t, got, "outside window")

	ledger.AssertNotCalled(t, "HasBeenSent", mock.Anything, mock.Anything, mock.Anything)
}

func TestShouldSend_LedgerError(t *testing.T) {
	ledger := new(mockLedger)
	ledger.On("HasBeenSent", mock.Anything, int64(1), "cancellation_2026-06-30_first").
		Return(false, stderrors.New("connection reset"))
	e := NewEngine(ledger)

	got, err := e.ShouldSendFirst(context.Background(), candidate(), DefaultSettings(), at(2026, 5, 20, 0))
	assert.Error(t, err)
	assert.False(t, got)
	ledger.AssertExpectations(t)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dedup
// ─────────────────────────────────────────────────────────────────────────────

func TestScenario_FirstReminderThenDedup(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	e := NewEngine(ledger)
	s := Settings{Days1: 14, Days2: 3}
	c := candidate()

	deadline, ok := c.Deadline()
	require.True(t, ok)
	assert.Equal(t, contract.Date(2026, 5, 30), deadline)

	due, err := e.ShouldSendFirst(ctx, c, s, at(2026, 5, 20, 9))
	require.NoError(t, err)
	require.True(t, due)

	require.NoError(t, ledger.RecordSent(ctx, &Sent{
		ContractID:   c.ID,
		ReminderType: ReminderType(c, StageFirst),
		SentAt:       at(2026, 5, 20, 9),
		SentTo:       c.CreatedBy,
	}))

	due, err = e.ShouldSendFirst(ctx, c, s, at(2026, 5, 21, 9))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestDedup_ReopensWhenEndDateChanges(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	e := NewEngine(ledger)
	s := DefaultSettings()
	c := candidate()

	require.NoError(t, ledger.RecordSent(ctx, &Sent{ContractID: c.ID, ReminderType: ReminderType(c, StageFirst)}))
	due, err := e.ShouldSendFirst(ctx, c, s, at(2026, 5, 20, 9))
	require.NoError(t, err)
	assert.False(t, due)

	c.EndDate = date(2027, 6, 30)
	due, err = e.ShouldSendFirst(ctx, c, s, at(2027, 5, 20, 9))
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRecordSent_DuplicateIsAlreadySent(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	rec := &Sent{ContractID: 1, ReminderType: "cancellation_2026-06-30_final"}
	require.NoError(t, ledger.RecordSent(ctx, rec))
	err := ledger.RecordSent(ctx, &Sent{ContractID: 1, ReminderType: rec.ReminderType})
	assert.True(t, IsAlreadySent(err))
	assert.False(t, IsAlreadySent(stderrors.New("other")))
}

func TestShouldSendReminder_Legacy(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	e := NewEngine(ledger)
	s := DefaultSettings()
	c := candidate()

	due, err := e.ShouldSendReminder(ctx, c, s, at(2026, 5, 28, 0))
	require.NoError(t, err)
	assert.True(t, due)

	require.NoError(t, ledger.RecordSent(ctx, &Sent{ContractID: c.ID, ReminderType: ReminderType(c, StageFirst)}))
	due, err = e.ShouldSendReminder(ctx, c, s, at(2026, 5, 28, 0))
	require.NoError(t, err)
	assert.True(t, due, "final stage still open")

	require.NoError(t, ledger.RecordSent(ctx, &Sent{ContractID: c.ID, ReminderType: ReminderType(c, StageFinal)}))
	due, err = e.ShouldSendReminder(ctx, c, s, at(2026, 5, 28, 0))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestAttemptResult(t *testing.T) {
	ok := AttemptResult{Transport: TransportChat, Success: true}
	failed := AttemptResult{Transport: TransportEmail, Err: stderrors.New("smtp: 550")}
	assert.Equal(t, "", ok.Error())
	assert.Equal(t, "smtp: 550", failed.Error())
	assert.True(t, AnySucceeded([]AttemptResult{failed, ok}))
	assert.False(t, AnySucceeded([]AttemptResult{failed}))
	assert.False(t, AnySucceeded(nil))

	p := &UserProfile{ID: "alice"}
	assert.Equal(t, "alice", p.Name())
	p.DisplayName = "Alice A."
	assert.Equal(t, "Alice A.", p.Name())
}

//Personal.AI order the ending
