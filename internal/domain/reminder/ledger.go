package reminder

import (
	"context"
	"time"

	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// Sent records that a reminder stage was attempted for a contract and end
// date.  (ContractID, ReminderType) is unique.
type Sent struct {
	ID           int64     `json:"id"`
	ContractID   int64     `json:"contractId"`
	ReminderType string    `json:"reminderType"`
	SentAt       time.Time `json:"sentAt"`
	SentTo       string    `json:"sentTo"`
}

// ErrAlreadySent is returned by Ledger.RecordSent when a row with the same
// (ContractID, ReminderType) exists.  Callers treat it as success.
var ErrAlreadySent = errors.New(errors.ErrCodeReminderAlreadySent, "reminder already recorded")

// IsAlreadySent reports whether err is a dedup conflict.
func IsAlreadySent(err error) bool {
	return errors.IsCode(err, errors.ErrCodeReminderAlreadySent)
}

// Ledger is the dedup store for sent reminders.
type Ledger interface {
	HasBeenSent(ctx context.Context, contractID int64, reminderType string) (bool, error)

	// RecordSent inserts rec and assigns its ID.  A duplicate yields an
	// error satisfying IsAlreadySent.
	RecordSent(ctx context.Context, rec *Sent) error

	DeleteForContract(ctx context.Context, contractID int64) error
	ListForContract(ctx context.Context, contractID int64) ([]*Sent, error)
}

//Personal.AI order the ending
