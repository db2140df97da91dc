package reminder

import "context"

// Transport names used in AttemptResult and metrics labels.
const (
	TransportChat  = "chat"
	TransportEmail = "email"
)

// ChatTransport posts to the shared team chat.
type ChatTransport interface {
	// IsAvailable reports whether the chat backend is enabled at all.
	IsAvailable(ctx context.Context) bool
	// IsConfigured reports whether a target conversation is set.
	IsConfigured(ctx context.Context) bool
	// Send posts message.  Failures are returned, never panicked.
	Send(ctx context.Context, message string) error
}

// EmailTransport delivers a two-part email.
type EmailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody, plainBody string) error
}

// UserProfile is what the email path needs to know about a contract owner.
type UserProfile struct {
	ID          string
	Email       string
	DisplayName string
}

// Name returns the display name, or the ID when no display name is set.
func (p *UserProfile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// UserDirectory resolves owner profiles.
type UserDirectory interface {
	LookupUser(ctx context.Context, userID string) (*UserProfile, error)
}

// AttemptResult is the outcome of one transport attempt.
type AttemptResult struct {
	Transport string `json:"transport"`
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	Err       error  `json:"-"`
}

// Error returns the failure message, or "" on success.
func (a AttemptResult) Error() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// AnySucceeded reports whether at least one attempt delivered.
func AnySucceeded(attempts []AttemptResult) bool {
	for _, a := range attempts {
		if a.Success {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
