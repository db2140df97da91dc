package contract

import (
	"time"

	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// DefaultTrashRetention is how long a trashed contract survives before the
// expiry sweep may purge it.
const DefaultTrashRetention = 30 * 24 * time.Hour

// SoftDelete moves the contract into the trash.  Archived and Status are
// left untouched so a later restore returns it to the list it came from.
func (c *Contract) SoftDelete(now time.Time) {
	t := now.UTC()
	c.DeletedAt = &t
	c.UpdatedAt = t
}

// RestoreFromTrash takes the contract out of the trash.  It fails with
// CTR_004 when the contract is not trashed.
func (c *Contract) RestoreFromTrash(now time.Time) error {
	if c.DeletedAt == nil {
		return errors.New(errors.ErrCodeContractNotInTrash, "contract is not in trash")
	}
	c.DeletedAt = nil
	c.UpdatedAt = now.UTC()
	return nil
}

// Archive sets the archived flag.  Archiving is independent of the trash.
func (c *Contract) Archive(now time.Time) {
	c.Archived = true
	c.UpdatedAt = now.UTC()
}

// Unarchive clears the archived flag.
func (c *Contract) Unarchive(now time.Time) {
	c.Archived = false
	c.UpdatedAt = now.UTC()
}

// ExpiryCutoff returns the instant before which a trashed contract counts as
// expired.  A non-positive retention falls back to DefaultTrashRetention.
func ExpiryCutoff(now time.Time, retention time.Duration) time.Time {
	if retention <= 0 {
		retention = DefaultTrashRetention
	}
	return now.UTC().Add(-retention)
}

// IsExpired reports whether a trashed contract is older than cutoff.
func (c *Contract) IsExpired(cutoff time.Time) bool {
	return c.DeletedAt != nil && c.DeletedAt.Before(cutoff)
}

//Personal.AI order the ending
