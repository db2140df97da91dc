package contract

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// CleanText trims s and puts it in Unicode NFC, so a name typed with
// combining marks matches the same name typed precomposed.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ─────────────────────────────────────────────────────────────────────────────
// Enumerations
// ─────────────────────────────────────────────────────────────────────────────

// Status is the commercial state of a contract.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusEnded     Status = "ended"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusEnded:
		return true
	}
	return false
}

// Type distinguishes fixed-term contracts from those that renew automatically.
type Type string

const (
	TypeFixed       Type = "fixed"
	TypeAutoRenewal Type = "auto_renewal"
)

// IsValid reports whether t is a known contract type.
func (t Type) IsValid() bool {
	return t == TypeFixed || t == TypeAutoRenewal
}

// Field limits enforced by Validate.
const (
	MaxStringLength = 500
	MaxNotesLength  = 5000
	DefaultCurrency = "EUR"
)

// ─────────────────────────────────────────────────────────────────────────────
// Contract
// ─────────────────────────────────────────────────────────────────────────────

// Contract is a vendor agreement.  Instances are plain records; every
// decision re-reads them from the repository instead of caching.
type Contract struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Vendor             string     `json:"vendor"`
	Status             Status     `json:"status"`
	CategoryID         *int64     `json:"categoryId,omitempty"`
	StartDate          *time.Time `json:"startDate,omitempty"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	CancellationPeriod string     `json:"cancellationPeriod"`
	ContractType       Type       `json:"contractType"`
	RenewalPeriod      *string    `json:"renewalPeriod,omitempty"`
	Cost               *string    `json:"cost,omitempty"`
	Currency           string     `json:"currency"`
	CostInterval       *string    `json:"costInterval,omitempty"`
	ContractFolder     *string    `json:"contractFolder,omitempty"`
	MainDocument       *string    `json:"mainDocument,omitempty"`
	ReminderEnabled    bool       `json:"reminderEnabled"`
	ReminderDays       *int       `json:"reminderDays,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	Archived           bool       `json:"archived"`
	IsPrivate          bool       `json:"isPrivate"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty"`
	CreatedBy          string     `json:"createdBy"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// IsTrashed reports whether the contract is in the trash.
func (c *Contract) IsTrashed() bool {
	return c.DeletedAt != nil
}

// IsOwnedBy reports whether userID created the contract.
func (c *Contract) IsOwnedBy(userID string) bool {
	return c.CreatedBy == userID
}

// Deadline returns the cancellation deadline, if one can be computed.
func (c *Contract) Deadline() (time.Time, bool) {
	return CalculateDeadline(c.EndDate, c.CancellationPeriod)
}

// ApplyDefaults fills the fields a new contract must never leave empty.
func (c *Contract) ApplyDefaults() {
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.ContractType == "" {
		c.ContractType = TypeFixed
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
}

// Validate checks the contract's user-editable fields and returns a
// validation AppError with one message per offending field, or nil.
func (c *Contract) Validate() error {
	fields := map[string]string{}

	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		fields["name"] = "name is required"
	case utf8.RuneCountInString(c.Name) > MaxStringLength:
		fields["name"] = "name is too long"
	}

	vendor := strings.TrimSpace(c.Vendor)
	switch {
	case vendor == "":
		fields["vendor"] = "vendor is required"
	case utf8.RuneCountInString(c.Vendor) > MaxStringLength:
		fields["vendor"] = "vendor is too long"
	}

	if c.StartDate != nil && c.EndDate != nil && !DateOf(*c.StartDate).Before(DateOf(*c.EndDate)) {
		fields["endDate"] = "end date must be after start date"
	}

	if c.Status != "" && !c.Status.IsValid() {
		fields["status"] = "unknown status"
	}
	if c.ContractType != "" && !c.ContractType.IsValid() {
		fields["contractType"] = "unknown contract type"
	}

	if c.CancellationPeriod != "" {
		if _, ok := ParsePeriod(c.CancellationPeriod); !ok {
			fields["cancellationPeriod"] = "period must look like \"3 months\""
		}
	}
	if c.RenewalPeriod != nil && *c.RenewalPeriod != "" {
		if _, ok := ParsePeriod(*c.RenewalPeriod); !ok {
			fields["renewalPeriod"] = "period must look like \"1 year\""
		}
	}

	if c.Currency != "" && !isCurrencyCode(c.Currency) {
		fields["currency"] = "currency must be a three-letter code"
	}

	if c.ReminderDays != nil && *c.ReminderDays < 1 {
		fields["reminderDays"] = "reminder days must be at least 1"
	}
	if c.Notes != nil && utf8.RuneCountInString(*c.Notes) > MaxNotesLength {
		fields["notes"] = "notes are too long"
	}

	if len(fields) > 0 {
		return errors.NewValidation(fields)
	}
	return nil
}

// isCurrencyCode accepts ISO 4217 shaped codes such as "EUR" or "usd".
func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Category
// ─────────────────────────────────────────────────────────────────────────────

// Category groups contracts for display.  Names are unique.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// DefaultCategories is seeded the first time categories are listed and none
// exist yet.
var DefaultCategories = []string{
	"Software",
	"Telecommunications",
	"Insurance",
	"Rent/Leasing",
	"Services",
	"Other",
}

//Personal.AI order the ending
