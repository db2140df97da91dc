package bootstrap

import (
	"context"
	"time"

	appreminder "github.com/turtacn/ContractKeeper/internal/application/reminder"
	apptrash "github.com/turtacn/ContractKeeper/internal/application/trash"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/redis"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// ReminderSweeper is satisfied by *appreminder.Service.
type ReminderSweeper interface {
	RunSweep(ctx context.Context, now time.Time) (*appreminder.SweepResult, error)
}

// TrashSweeper is satisfied by *apptrash.Service.
type TrashSweeper interface {
	RunExpirySweep(ctx context.Context, now time.Time) (int, error)
}

// Sweeps runs the periodic jobs under the cluster lock.  A nil guard runs
// them unguarded.
type Sweeps struct {
	guard     *redis.SweepGuard
	reminders ReminderSweeper
	trash     TrashSweeper
	logger    logging.Logger
}

// NewSweeps constructs Sweeps.
func NewSweeps(guard *redis.SweepGuard, reminders ReminderSweeper, trash TrashSweeper, logger logging.Logger) *Sweeps {
	return &Sweeps{guard: guard, reminders: reminders, trash: trash, logger: logger}
}

// Sweeps returns the guarded sweeps over s.
func (s *Services) Sweeps(logger logging.Logger) *Sweeps {
	return NewSweeps(s.Guard, s.Reminders, s.Trash, logger)
}

// Reminders runs one reminder sweep.  It returns an ErrCodeSweepLocked error when another
// replica holds the lock.
func (s *Sweeps) Reminders(ctx context.Context, now time.Time) (*appreminder.SweepResult, error) {
	var result *appreminder.SweepResult
	err := s.guard.Run(ctx, appreminder.SweepName, func(ctx context.Context) error {
		var err error
		result, err = s.reminders.RunSweep(ctx, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Reminder sweep finished",
		logging.Int("candidates", result.Candidates),
		logging.Int("sent", result.Sent),
		logging.Int("failures", len(result.Failures)),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// Trash runs one retention sweep and returns the number of purged contracts.
func (s *Sweeps) Trash(ctx context.Context, now time.Time) (int, error) {
	var purged int
	err := s.guard.Run(ctx, apptrash.SweepName, func(ctx context.Context) error {
		var err error
		purged, err = s.trash.RunExpirySweep(ctx, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Trash sweep finished", logging.Int("purged", purged))
	return purged, nil
}

// Run dispatches by sweep name.  A held lock is not an error here: the
// other holder is doing the same work.
func (s *Sweeps) Run(ctx context.Context, sweep string, now time.Time) error {
	var err error
	switch sweep {
	case kafka.SweepReminders:
		_, err = s.Reminders(ctx, now)
	case kafka.SweepTrash:
		_, err = s.Trash(ctx, now)
	default:
		return errors.NewValidationOp("sweep", "sweep", "must be reminders or trash")
	}
	if errors.IsCode(err, errors.ErrCodeSweepLocked) {
		return nil
	}
	return err
}

// SweepRequestHandler consumes common.TopicSweepRequested.  Malformed
// requests are logged and acknowledged so they do not block the partition.
func (s *Sweeps) SweepRequestHandler(now func() time.Time) common.MessageHandler {
	return func(ctx context.Context, msg *common.Message) error {
		req, err := kafka.DecodeSweepRequest(msg)
		if err != nil {
			s.logger.Warn("Dropping malformed sweep request", logging.Err(err), logging.Int64("offset", msg.Offset))
			return nil
		}
		s.logger.Info("Sweep requested",
			logging.String("sweep", req.Sweep),
			logging.String("requested_by", req.RequestedBy),
		)
		return s.Run(ctx, req.Sweep, now())
	}
}

//Personal.AI order the ending
