// Package reminder runs the cancellation reminder sweep: it loads the
// candidate contracts, asks the domain engine which stages are due, fans each
// due stage out to the chat and email transports, and records the stage in
// the ledger.
package reminder

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	domain "github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// SweepName labels reminder sweeps in metrics and locks.
const SweepName = "reminders"

// SettingsProvider supplies the per-run settings snapshot and the per-user
// email opt-in.
type SettingsProvider interface {
	ReminderSettings(ctx context.Context) (domain.Settings, error)
	EmailReminderEnabled(ctx context.Context, userID string) (bool, error)
}

// MessageProducer abstracts the event bus.
type MessageProducer interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// Config tunes the sweep.
type Config struct {
	// AppURL is linked from messages.  Empty omits the link.
	AppURL string
	// RecordOnTotalFailure records a stage even when no transport delivered.
	RecordOnTotalFailure bool
}

// DefaultConfig records every attempted stage.
func DefaultConfig() Config {
	return Config{RecordOnTotalFailure: true}
}

// ─────────────────────────────────────────────────────────────────────────────
// Results
// ─────────────────────────────────────────────────────────────────────────────

// Dispatch is the outcome of one due stage.
type Dispatch struct {
	ContractID   int64                  `json:"contractId"`
	ContractName string                 `json:"contractName"`
	Stage        domain.Stage           `json:"stage"`
	ReminderType string                 `json:"reminderType"`
	Deadline     string                 `json:"deadline"`
	Attempts     []domain.AttemptResult `json:"attempts"`
	Recorded     bool                   `json:"recorded"`
	AlreadySent  bool                   `json:"alreadySent,omitempty"`
}

// ContractFailure is a contract whose processing was aborted.
type ContractFailure struct {
	ContractID int64        `json:"contractId"`
	Stage      domain.Stage `json:"stage"`
	Error      string       `json:"error"`
}

// SweepResult aggregates one run.  Sent counts recorded stages.
type SweepResult struct {
	StartedAt  time.Time         `json:"startedAt"`
	Duration   time.Duration     `json:"duration"`
	Candidates int               `json:"candidates"`
	Sent       int               `json:"sent"`
	Dispatches []Dispatch        `json:"dispatches"`
	Failures   []ContractFailure `json:"failures,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service orchestrates reminder sweeps.
type Service struct {
	contracts contract.Repository
	ledger    domain.Ledger
	engine    *domain.Engine
	settings  SettingsProvider
	users     domain.UserDirectory
	chat      domain.ChatTransport
	email     domain.EmailTransport
	renderer  *Renderer
	producer  MessageProducer
	metrics   *prometheus.AppMetrics
	cfg       Config
	logger    logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithProducer publishes a dispatch event per recorded stage.
func WithProducer(p MessageProducer) Option {
	return func(s *Service) { s.producer = p }
}

// WithMetrics records sweep and transport metrics.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// NewService constructs a Service.  chat and email may be nil to disable a
// transport.
func NewService(
	contracts contract.Repository,
	ledger domain.Ledger,
	settings SettingsProvider,
	users domain.UserDirectory,
	chat domain.ChatTransport,
	email domain.EmailTransport,
	logger logging.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		contracts: contracts,
		ledger:    ledger,
		engine:    domain.NewEngine(ledger),
		settings:  settings,
		users:     users,
		chat:      chat,
		email:     email,
		cfg:       DefaultConfig(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = NewRenderer(s.cfg.AppURL)
	return s
}

// RunSweep evaluates every candidate at now and dispatches the due stages.
// Only a failure to load candidates or settings is returned; per-contract
// failures are logged and reported in the result.
func (s *Service) RunSweep(ctx context.Context, now time.Time) (result *SweepResult, err error) {
	result = &SweepResult{StartedAt: now, Dispatches: []Dispatch{}}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		prometheus.RecordSweep(s.metrics, SweepName, result.Duration, err)
	}()

	rs, err := s.settings.ReminderSettings(ctx)
	if err != nil {
		return result, errors.Wrap(err, errors.CodeUnknown, "failed to load reminder settings")
	}
	candidates, err := s.contracts.FindCandidatesForReminder(ctx)
	if err != nil {
		return result, errors.Wrap(err, errors.CodeUnknown, "failed to load reminder candidates")
	}
	result.Candidates = len(candidates)

	for _, c := range candidates {
		if ctx.Err() != nil {
			return result, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "reminder sweep interrupted")
		}
		s.processContract(ctx, c, rs, now, result)
	}

	s.logger.Info("reminder sweep finished",
		logging.Int("candidates", result.Candidates),
		logging.Int("sent", result.Sent),
		logging.Int("failures", len(result.Failures)))
	return result, nil
}

// processContract handles both stages of c.  A failing stage is recorded in
// result and does not hold back the other one.
func (s *Service) processContract(ctx context.Context, c *contract.Contract, rs domain.Settings, now time.Time, result *SweepResult) {
	for _, stage := range domain.Stages {
		d, err := s.processStage(ctx, c, stage, rs, now)
		if err != nil {
			s.logger.Error("reminder processing failed",
				logging.Int64("contract_id", c.ID), logging.String("stage", string(stage)), logging.Err(err))
			result.Failures = append(result.Failures, ContractFailure{ContractID: c.ID, Stage: stage, Error: err.Error()})
			prometheus.RecordSweepItem(s.metrics, SweepName, "failed")
			continue
		}
		if d == nil {
			continue
		}
		result.Dispatches = append(result.Dispatches, *d)
		if d.Recorded {
			result.Sent++
		}
	}
}

// processStage returns nil, nil when stage is not due.
func (s *Service) processStage(ctx context.Context, c *contract.Contract, stage domain.Stage, rs domain.Settings, now time.Time) (*Dispatch, error) {
	due, err := s.engine.ShouldSend(ctx, c, stage, rs, now)
	if err != nil || !due {
		return nil, err
	}
	return s.dispatch(ctx, c, stage, now)
}

func (s *Service) dispatch(ctx context.Context, c *contract.Contract, stage domain.Stage, now time.Time) (*Dispatch, error) {
	deadline, ok := c.Deadline()
	if !ok {
		return nil, errors.New(errors.CodeInternal, "deadline not computable for due contract")
	}
	d := &Dispatch{
		ContractID:   c.ID,
		ContractName: c.Name,
		Stage:        stage,
		ReminderType: domain.ReminderType(c, stage),
		Deadline:     contract.FormatDeadline(deadline),
	}

	log := s.logger.With(
		logging.Int64("contract_id", c.ID),
		logging.String("stage", string(stage)),
		logging.String("reminder_type", d.ReminderType))

	if a, attempted := s.sendChat(ctx, c, stage, deadline, log); attempted {
		d.Attempts = append(d.Attempts, a)
	}
	if a, attempted := s.sendEmail(ctx, c, stage, deadline, log); attempted {
		d.Attempts = append(d.Attempts, a)
	}

	if !domain.AnySucceeded(d.Attempts) {
		if !s.cfg.RecordOnTotalFailure {
			log.Warn("no transport delivered, stage left open for the next sweep")
			prometheus.RecordSweepItem(s.metrics, SweepName, "undelivered")
			return d, nil
		}
		log.Warn("no transport delivered, recording stage as attempted")
	}

	err := s.ledger.RecordSent(ctx, &domain.Sent{
		ContractID:   c.ID,
		ReminderType: d.ReminderType,
		SentAt:       now,
		SentTo:       c.CreatedBy,
	})
	switch {
	case domain.IsAlreadySent(err):
		log.Info("reminder already recorded by a concurrent sweep")
		d.AlreadySent = true
		prometheus.RecordSweepItem(s.metrics, SweepName, "already_sent")
		return d, nil
	case err != nil:
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to record reminder")
	}

	d.Recorded = true
	prometheus.RecordReminder(s.metrics, string(stage))
	prometheus.RecordSweepItem(s.metrics, SweepName, "sent")
	log.Info("reminder recorded", logging.Int("attempts", len(d.Attempts)))
	s.publish(ctx, c, d, now)
	return d, nil
}

// sendChat attempts the chat transport.  attempted is false when chat is
// disabled or has no target.
func (s *Service) sendChat(ctx context.Context, c *contract.Contract, stage domain.Stage, deadline time.Time, log logging.Logger) (a domain.AttemptResult, attempted bool) {
	a.Transport = domain.TransportChat
	if s.chat == nil || !s.chat.IsAvailable(ctx) || !s.chat.IsConfigured(ctx) {
		log.Debug("chat transport not available or not configured")
		return a, false
	}

	msg, err := s.renderer.Chat(s.renderer.Data(c, stage, deadline, ""))
	if err != nil {
		a.Err = err
		return a, true
	}

	start := time.Now()
	err = s.chat.Send(ctx, msg)
	prometheus.RecordTransportAttempt(s.metrics, domain.TransportChat, err == nil, time.Since(start))
	if err != nil {
		log.Warn("chat reminder failed", logging.Err(err))
		a.Err = err
		return a, true
	}
	a.Success = true
	return a, true
}

// sendEmail attempts the email transport for the contract owner.  attempted
// is false when email is disabled or the owner has not opted in.
func (s *Service) sendEmail(ctx context.Context, c *contract.Contract, stage domain.Stage, deadline time.Time, log logging.Logger) (a domain.AttemptResult, attempted bool) {
	a.Transport = domain.TransportEmail
	if s.email == nil || c.CreatedBy == "" {
		return a, false
	}

	enabled, err := s.settings.EmailReminderEnabled(ctx, c.CreatedBy)
	if err != nil {
		log.Warn("failed to read email preference", logging.Err(err))
		a.Err = err
		return a, true
	}
	if !enabled {
		return a, false
	}

	profile, err := s.users.LookupUser(ctx, c.CreatedBy)
	if err != nil && !errors.IsNotFound(err) && !errors.IsCode(err, errors.ErrCodeRecipientUnknown) {
		log.Warn("failed to look up reminder recipient", logging.Err(err))
		a.Err = err
		return a, true
	}
	if profile == nil || profile.Email == "" {
		log.Info("owner has no email address, skipping email reminder", logging.String("user_id", c.CreatedBy))
		a.Skipped = true
		return a, true
	}

	mail, err := s.renderer.Email(s.renderer.Data(c, stage, deadline, profile.Name()))
	if err != nil {
		a.Err = err
		return a, true
	}

	start := time.Now()
	err = s.email.Send(ctx, profile.Email, mail.Subject, mail.HTML, mail.Plain)
	prometheus.RecordTransportAttempt(s.metrics, domain.TransportEmail, err == nil, time.Since(start))
	if err != nil {
		log.Warn("email reminder failed", logging.Err(err))
		a.Err = err
		return a, true
	}
	a.Success = true
	return a, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────────

// DispatchedEvent is published on common.TopicReminderDispatched.
type DispatchedEvent struct {
	EventID      string         `json:"eventId"`
	ContractID   int64          `json:"contractId"`
	Owner        string         `json:"owner"`
	Stage        domain.Stage   `json:"stage"`
	ReminderType string         `json:"reminderType"`
	Deadline     string         `json:"deadline"`
	Delivered    bool           `json:"delivered"`
	Transports   map[string]any `json:"transports"`
	OccurredAt   time.Time      `json:"occurredAt"`
}

// publish is best effort.  Failures are logged and counted.
func (s *Service) publish(ctx context.Context, c *contract.Contract, d *Dispatch, now time.Time) {
	if s.producer == nil {
		return
	}
	ev := DispatchedEvent{
		EventID:      uuid.New().String(),
		ContractID:   c.ID,
		Owner:        c.CreatedBy,
		Stage:        d.Stage,
		ReminderType: d.ReminderType,
		Deadline:     d.Deadline,
		Delivered:    domain.AnySucceeded(d.Attempts),
		Transports:   map[string]any{},
		OccurredAt:   now,
	}
	for _, a := range d.Attempts {
		ev.Transports[a.Transport] = map[string]any{"success": a.Success, "skipped": a.Skipped, "error": a.Error()}
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal reminder event", logging.Err(err))
		return
	}
	err = s.producer.Publish(ctx, &common.ProducerMessage{
		Topic:     common.TopicReminderDispatched,
		Key:       []byte(strconv.FormatInt(c.ID, 10)),
		Value:     payload,
		Headers:   map[string]string{"event_type": "reminder.dispatched", "event_id": ev.EventID},
		Timestamp: now,
	})
	prometheus.RecordEventPublished(s.metrics, common.TopicReminderDispatched, err)
	if err != nil {
		s.logger.Warn("failed to publish reminder event", logging.Int64("contract_id", c.ID), logging.Err(err))
	}
}

//Personal.AI order the ending
