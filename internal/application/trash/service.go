// Package trash implements the trash lifecycle: soft delete, restore,
// permanent purge, empty trash and the retention sweep.
package trash

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// SweepName labels expiry sweeps in metrics and locks.
const SweepName = "trash"

// MessageProducer abstracts the event bus.  Bulk purges use PublishBatch.
type MessageProducer interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
	PublishBatch(ctx context.Context, msgs []*common.ProducerMessage) (*common.BatchPublishResult, error)
}

// Config tunes retention.
type Config struct {
	// AdminGroup is the group whose members' contracts are never auto-purged.
	AdminGroup string
	// Retention is how long trashed contracts survive.
	Retention time.Duration
}

// DefaultConfig keeps trash for 30 days and exempts the "admin" group.
func DefaultConfig() Config {
	return Config{AdminGroup: "admin", Retention: contract.DefaultTrashRetention}
}

// PurgedEvent is published on common.TopicTrashPurged.
type PurgedEvent struct {
	EventID    string    `json:"eventId"`
	ContractID int64     `json:"contractId"`
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Purge reasons.
const (
	ReasonManual = "manual"
	ReasonEmpty  = "empty_trash"
	ReasonExpiry = "expired"
)

// Service manages trashed contracts.
type Service struct {
	contracts contract.Repository
	ledger    reminder.Ledger
	groups    access.GroupDirectory
	producer  MessageProducer
	metrics   *prometheus.AppMetrics
	cfg       Config
	logger    logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithProducer(p MessageProducer) Option { return func(s *Service) { s.producer = p } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithConfig(cfg Config) Option { return func(s *Service) { s.cfg = cfg } }

// NewService constructs a Service.
func NewService(contracts contract.Repository, ledger reminder.Ledger, groups access.GroupDirectory, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		contracts: contracts,
		ledger:    ledger,
		groups:    groups,
		cfg:       DefaultConfig(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// User operations
// ─────────────────────────────────────────────────────────────────────────────

// SoftDelete moves contract id to the trash.  Deleting a trashed contract
// is a no-op.
func (s *Service) SoftDelete(ctx context.Context, subject access.Subject, id int64, now time.Time) (*contract.Contract, error) {
	c, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := subject.CheckWrite(c); err != nil {
		return nil, err
	}
	if c.IsTrashed() {
		return c, nil
	}
	c.SoftDelete(now)
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to move contract to trash")
	}
	s.logger.Info("contract moved to trash", logging.Int64("contract_id", id), logging.String("user_id", subject.UserID))
	return c, nil
}

// RestoreFromTrash takes contract id out of the trash.  Only the owner or an
// administrator may restore.
func (s *Service) RestoreFromTrash(ctx context.Context, subject access.Subject, id int64, now time.Time) (*contract.Contract, error) {
	c, err := s.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := subject.CheckRestore(c); err != nil {
		return nil, err
	}
	if err := c.RestoreFromTrash(now); err != nil {
		return nil, err
	}
	if err := s.contracts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to restore contract")
	}
	s.logger.Info("contract restored from trash", logging.Int64("contract_id", id), logging.String("user_id", subject.UserID))
	return c, nil
}

// List returns the trash as seen by subject: everything for administrators,
// the subject's own contracts otherwise.
func (s *Service) List(ctx context.Context, subject access.Subject) ([]*contract.Contract, error) {
	opts := []contract.ListOption{contract.WithTrash(contract.OnlyTrashed)}
	if !subject.Admin {
		opts = append(opts, contract.OwnedBy(subject.UserID))
	}
	return s.contracts.List(ctx, contract.NewListFilter(opts...))
}

// Purge permanently deletes trashed contract id.  Administrators only.
func (s *Service) Purge(ctx context.Context, subject access.Subject, id int64, now time.Time) error {
	if err := subject.CheckPurge(); err != nil {
		return err
	}
	c, err := s.contracts.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.IsTrashed() {
		return errors.New(errors.ErrCodeContractNotInTrash, "only trashed contracts can be deleted permanently").
			WithDetail("contract_id=" + strconv.FormatInt(id, 10))
	}
	if err := s.purge(ctx, c, ReasonManual); err != nil {
		return err
	}
	s.publish(ctx, []*contract.Contract{c}, ReasonManual, now)
	return nil
}

// EmptyTrash purges every trashed contract.  Administrators only.  Items
// that fail are logged and skipped; the count of purged items is returned.
func (s *Service) EmptyTrash(ctx context.Context, subject access.Subject, now time.Time) (int, error) {
	if err := subject.CheckPurge(); err != nil {
		return 0, err
	}
	trashed, err := s.contracts.List(ctx, contract.NewListFilter(contract.WithTrash(contract.OnlyTrashed)))
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeUnknown, "failed to list trash")
	}
	purged := s.purgeAll(ctx, trashed, ReasonEmpty, now)
	s.logger.Info("trash emptied", logging.Int("purged", purged), logging.Int("total", len(trashed)),
		logging.String("user_id", subject.UserID))
	return purged, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Retention sweep
// ─────────────────────────────────────────────────────────────────────────────

// RunExpirySweep purges contracts trashed before now minus the retention,
// except those owned by current members of the admin group.
func (s *Service) RunExpirySweep(ctx context.Context, now time.Time) (purged int, err error) {
	start := time.Now()
	defer func() { prometheus.RecordSweep(s.metrics, SweepName, time.Since(start), err) }()

	admins, err := s.groups.MembersOf(ctx, s.cfg.AdminGroup)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeExternalService, "failed to resolve admin group")
	}
	cutoff := contract.ExpiryCutoff(now, s.cfg.Retention)
	expired, err := s.contracts.FindExpiredTrash(ctx, cutoff, admins)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeUnknown, "failed to find expired trash")
	}

	purged = s.purgeAll(ctx, expired, ReasonExpiry, now)
	s.logger.Info("trash expiry sweep finished",
		logging.Time("cutoff", cutoff),
		logging.Int("expired", len(expired)),
		logging.Int("purged", purged))
	return purged, nil
}

func (s *Service) purgeAll(ctx context.Context, cs []*contract.Contract, reason string, now time.Time) int {
	done := make([]*contract.Contract, 0, len(cs))
	for _, c := range cs {
		if err := s.purge(ctx, c, reason); err != nil {
			s.logger.Error("failed to purge contract", logging.Int64("contract_id", c.ID), logging.Err(err))
			prometheus.RecordSweepItem(s.metrics, SweepName, "failed")
			continue
		}
		done = append(done, c)
	}
	s.publish(ctx, done, reason, now)
	return len(done)
}

// purge deletes the contract, which takes its ledger rows with it in
// Postgres.  The ledger call afterwards clears stores without foreign keys.
// Nothing is touched when the contract delete fails.
func (s *Service) purge(ctx context.Context, c *contract.Contract, reason string) error {
	if err := s.contracts.Delete(ctx, c); err != nil {
		return errors.Wrap(err, errors.CodeUnknown, "failed to delete contract")
	}
	if err := s.ledger.DeleteForContract(ctx, c.ID); err != nil {
		s.logger.Warn("failed to clear reminder records of purged contract",
			logging.Int64("contract_id", c.ID), logging.Err(err))
	}
	prometheus.RecordSweepItem(s.metrics, SweepName, "purged")
	s.logger.Info("contract purged", logging.Int64("contract_id", c.ID), logging.String("reason", reason))
	return nil
}

func purgedMessage(c *contract.Contract, reason string, now time.Time) (*common.ProducerMessage, error) {
	ev := PurgedEvent{
		EventID:    uuid.New().String(),
		ContractID: c.ID,
		Name:       c.Name,
		Owner:      c.CreatedBy,
		Reason:     reason,
		OccurredAt: now,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &common.ProducerMessage{
		Topic:     common.TopicTrashPurged,
		Key:       []byte(strconv.FormatInt(c.ID, 10)),
		Value:     payload,
		Headers:   map[string]string{"event_type": "trash.purged", "event_id": ev.EventID},
		Timestamp: now,
	}, nil
}

// publish announces purged contracts.  It is best effort: failures are
// logged and counted, never returned.
func (s *Service) publish(ctx context.Context, purged []*contract.Contract, reason string, now time.Time) {
	if s.producer == nil || len(purged) == 0 {
		return
	}
	msgs := make([]*common.ProducerMessage, 0, len(purged))
	for _, c := range purged {
		msg, err := purgedMessage(c, reason, now)
		if err != nil {
			s.logger.Error("failed to marshal purge event", logging.Int64("contract_id", c.ID), logging.Err(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	if len(msgs) == 1 {
		err := s.producer.Publish(ctx, msgs[0])
		prometheus.RecordEventPublished(s.metrics, common.TopicTrashPurged, err)
		if err != nil {
			s.logger.Warn("failed to publish purge event", logging.Int64("contract_id", purged[0].ID), logging.Err(err))
		}
		return
	}

	res, err := s.producer.PublishBatch(ctx, msgs)
	if err != nil {
		s.logger.Warn("failed to publish purge events", logging.Int("count", len(msgs)), logging.Err(err))
		for range msgs {
			prometheus.RecordEventPublished(s.metrics, common.TopicTrashPurged, err)
		}
		return
	}
	for i := 0; i < res.Succeeded; i++ {
		prometheus.RecordEventPublished(s.metrics, common.TopicTrashPurged, nil)
	}
	for _, item := range res.Errors {
		prometheus.RecordEventPublished(s.metrics, common.TopicTrashPurged, errors.New(errors.CodeMessageQueueError, item.Error))
		s.logger.Warn("failed to publish purge event", logging.Int("index", item.Index), logging.String("error", item.Error))
	}
}

//Personal.AI order the ending
