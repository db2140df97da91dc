// Package reminder decides when cancellation reminders are due.  A contract
// has two independent stages, first and final, each with its own window
// ending on the cancellation deadline and its own dedup key in the Ledger.
package reminder

import (
	"context"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/domain/settings"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// Stage is a reminder stage.
type Stage string

const (
	StageFirst Stage = "first"
	StageFinal Stage = "final"
)

// Stages in evaluation order.
var Stages = []Stage{StageFirst, StageFinal}

// Settings is the snapshot of global lead times used for one evaluation.
type Settings struct {
	Days1 int
	Days2 int
}

// DefaultSettings returns 14 and 3 days.
func DefaultSettings() Settings {
	return Settings{Days1: settings.DefaultReminderDays1, Days2: settings.DefaultReminderDays2}
}

// ReminderType is the dedup key: cancellation_<end date>_<stage>.  A new end
// date yields a new key so reminders fire again after renewal.
func ReminderType(c *contract.Contract, stage Stage) string {
	end := "unknown"
	if c.EndDate != nil {
		end = c.EndDate.UTC().Format(contract.DateLayout)
	}
	return "cancellation_" + end + "_" + string(stage)
}

// IsCandidate reports whether c can receive reminders at all.
func IsCandidate(c *contract.Contract) bool {
	return c != nil &&
		c.Status == contract.StatusActive &&
		c.ReminderEnabled &&
		!c.Archived &&
		c.DeletedAt == nil &&
		c.EndDate != nil &&
		c.CancellationPeriod != ""
}

// LeadDays returns the window length for stage.  Only the first stage
// honours the contract's own override.
func LeadDays(c *contract.Contract, stage Stage, s Settings) int {
	if stage == StageFirst {
		if c.ReminderDays != nil {
			return *c.ReminderDays
		}
		return s.Days1
	}
	return s.Days2
}

// Window returns the inclusive [from, deadline] date range of stage.
func Window(c *contract.Contract, stage Stage, s Settings) (from, deadline time.Time, ok bool) {
	deadline, ok = c.Deadline()
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return deadline.AddDate(0, 0, -LeadDays(c, stage, s)), deadline, true
}

// InWindow compares calendar dates: both window ends qualify regardless of
// the time of day in now.
func InWindow(now, from, to time.Time) bool {
	today := contract.DateOf(now)
	return !today.Before(from) && !today.After(to)
}

// Engine evaluates reminder eligibility against the ledger.
type Engine struct {
	ledger Ledger
}

// NewEngine constructs an Engine.
func NewEngine(ledger Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// ShouldSend reports whether stage is due for c at now.  The ledger is only
// consulted when the window is open.
func (e *Engine) ShouldSend(ctx context.Context, c *contract.Contract, stage Stage, s Settings, now time.Time) (bool, error) {
	if !IsCandidate(c) {
		return false, nil
	}
	from, deadline, ok := Window(c, stage, s)
	if !ok || !InWindow(now, from, deadline) {
		return false, nil
	}
	sent, err := e.ledger.HasBeenSent(ctx, c.ID, ReminderType(c, stage))
	if err != nil {
		return false, errors.Wrap(err, errors.CodeUnknown, "failed to check reminder ledger").
			WithDetail(ReminderType(c, stage))
	}
	return !sent, nil
}

// ShouldSendFirst evaluates the first stage.
func (e *Engine) ShouldSendFirst(ctx context.Context, c *contract.Contract, s Settings, now time.Time) (bool, error) {
	return e.ShouldSend(ctx, c, StageFirst, s, now)
}

// ShouldSendFinal evaluates the final stage.
func (e *Engine) ShouldSendFinal(ctx context.Context, c *contract.Contract, s Settings, now time.Time) (bool, error) {
	return e.ShouldSend(ctx, c, StageFinal, s, now)
}

// ShouldSendReminder is true when either stage is due.
//
// Deprecated: evaluate the stages separately with ShouldSendFirst and
// ShouldSendFinal.
func (e *Engine) ShouldSendReminder(ctx context.Context, c *contract.Contract, s Settings, now time.Time) (bool, error) {
	first, err := e.ShouldSendFirst(ctx, c, s, now)
	if err != nil || first {
		return first, err
	}
	return e.ShouldSendFinal(ctx, c, s, now)
}

//Personal.AI order the ending
