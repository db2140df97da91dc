package common

// MaxPageSize caps the limit of a paged list request.
const MaxPageSize = 500

// Page selects a window of a list.  A zero Limit means no limit.
type Page struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Clamp returns p with negative values zeroed and Limit capped at
// MaxPageSize.
func (p Page) Clamp() Page {
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ErrorBody is the JSON body of every non-2xx API response.  Fields maps
// an input field to its validation message.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ComponentState is the outcome of one readiness probe.
type ComponentState string

const (
	StateHealthy   ComponentState = "healthy"
	StateUnhealthy ComponentState = "unhealthy"
	// StateDegraded is a failing optional component.
	StateDegraded ComponentState = "degraded"
)

// Readiness states reported by /readyz.
const (
	Ready    = "ready"
	NotReady = "not_ready"
)

//Personal.AI order the ending
